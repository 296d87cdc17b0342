package batch

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/qinspire-team/qinspire-engine/sdkapp/job"
)

// Run assembles many programs concurrently. Translation is a pure transform
// over its own inputs, so the workers need no coordination beyond the queue.
// Payloads come back in program order; a failed program leaves a nil slot
// and its error in the combined return.
func Run(builder *job.Builder, programs []*job.Program, shots, workers int) ([]*job.Payload, error) {
	if workers < 1 {
		workers = 1
	}
	var queue fifo = newConqFIFO()
	for i, p := range programs {
		if err := queue.Enqueue(&programInBatch{index: i, program: p}); err != nil {
			return nil, fmt.Errorf("failed to enqueue program(%s): %w", p.Name, err)
		}
	}
	zap.L().Debug(fmt.Sprintf("translating %d program(s) with %d worker(s)", queue.GetLen(), workers))

	payloads := make([]*job.Payload, len(programs))
	errs := make([]error, len(programs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, err := queue.Dequeue()
				if err != nil {
					return // queue drained
				}
				payload, err := builder.Assemble(item.program, shots)
				if err != nil {
					zap.L().Info(fmt.Sprintf("failed to assemble program(%s)/reason:%s",
						item.program.Name, err))
					errs[item.index] = fmt.Errorf("program %s: %w", item.program.Name, err)
					continue
				}
				payloads[item.index] = payload
			}
		}()
	}
	wg.Wait()
	return payloads, multierr.Combine(errs...)
}
