package batch

import (
	conq "github.com/enriquebris/goconcurrentqueue"

	"github.com/qinspire-team/qinspire-engine/sdkapp/job"
)

type programInBatch struct {
	index   int
	program *job.Program
}

type fifo interface {
	Enqueue(*programInBatch) error
	Dequeue() (*programInBatch, error)
	GetLen() int
}

type conqFIFO struct {
	conq.FIFO
}

func newConqFIFO() *conqFIFO {
	return &conqFIFO{
		FIFO: *conq.NewFIFO(),
	}
}

func (c *conqFIFO) Enqueue(p *programInBatch) error {
	return c.FIFO.Enqueue(p)
}

func (c *conqFIFO) Dequeue() (*programInBatch, error) {
	tmp, err := c.FIFO.Dequeue()
	if err != nil {
		return nil, err
	}
	return tmp.(*programInBatch), nil
}

func (c *conqFIFO) GetLen() int {
	return c.FIFO.GetLen()
}
