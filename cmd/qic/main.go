package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"
	jsoniter "github.com/json-iterator/go"
	"github.com/massn/envordot"
	"github.com/oklog/run"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/qinspire-team/qinspire-engine/sdkapp/batch"
	"github.com/qinspire-team/qinspire-engine/sdkapp/common"
	"github.com/qinspire-team/qinspire-engine/sdkapp/core"
	"github.com/qinspire-team/qinspire-engine/sdkapp/job"
	"github.com/qinspire-team/qinspire-engine/sdkapp/log"
	"github.com/qinspire-team/qinspire-engine/sdkapp/measurement"
	"github.com/qinspire-team/qinspire-engine/sdkapp/result"
)

var versionByBuildFlag string
var parser *flags.Parser
var cli *Qic

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	if err := envordot.Load(false, ".env"); err != nil {
		fmt.Printf("Not found \".env\" file. Use only environment variables. Reason:%s\n", err.Error())
	} else {
		fmt.Println("Found \".env\" file. Environment variables are preferred, " +
			"but non-conflicting variables are those in the \".env\" file.")
	}
	cli = &Qic{}
	setParser(cli)
}

type Qic struct {
	Conf *core.Conf
}

func setParser(cli *Qic) {
	parser = flags.NewParser(cli, flags.Default)
	parser.ShortDescription = "qi sdk client"
	parser.LongDescription = "translates circuit programs to cQASM payloads and decodes backend results."
	parser.AddCommand("translate", "translate programs", "translate circuit program files into cQASM job payloads", newTranslateCmd())
	parser.AddCommand("decode", "decode a result", "decode a backend result payload into classical-register counts", newDecodeCmd())
}

func parse() {
	if _, err := parser.Parse(); err != nil {
		code := 1
		if fe, ok := err.(*flags.Error); ok {
			if fe.Type == flags.ErrHelp {
				code = 0
			}
		}
		if code == 1 {
			fmt.Printf("failed to parse flags, because %s\n", err)
		}
		os.Exit(code)
	}
}

func main() {
	parse()
}

func setup(conf *core.Conf) (*zap.Logger, error) {
	logger, err := log.Setup(conf)
	if err != nil {
		fmt.Printf("Failed to setup logger. Reason:%s\n", err)
		return nil, err
	}
	core.SetVersion(conf, versionByBuildFlag)
	core.ResetSetting()
	core.RegisterSetting("backend", job.NewDefaultBackendSetting())
	if _, err := os.Stat(conf.SettingPath); err == nil {
		if err := core.ParseSettingFromPath(conf.SettingPath); err != nil {
			zap.L().Error(fmt.Sprintf("failed to parse settings/reason:%s", err))
			return nil, err
		}
	} else {
		zap.L().Debug(fmt.Sprintf("no setting file at %s, using defaults", conf.SettingPath))
	}
	return logger, nil
}

func provideDIContainer(conf *core.Conf) (*dig.Container, error) {
	c := dig.New()
	if err := c.Provide(func() (*job.Builder, error) {
		v, ok := core.GetComponentSetting("backend")
		if !ok {
			return nil, fmt.Errorf("backend setting is not registered")
		}
		bs := job.BackendSettingFromComponent(v)
		allowFSP := bs.AllowFSP && !conf.DisableFSP
		return job.NewBuilder(bs.BasisGates, bs.MaxShots, allowFSP), nil
	}); err != nil {
		return &dig.Container{}, err
	}
	return c, nil
}

type translateCmd struct {
	OutDir string `long:"out-dir" description:"directory for generated payload files" default:"."`
	Args   struct {
		Files []string `positional-arg-name:"program.json" required:"1"`
	} `positional-args:"yes"`
}

func newTranslateCmd() *translateCmd {
	return &translateCmd{}
}

func (c *translateCmd) Execute(args []string) error {
	logger, err := setup(cli.Conf)
	if err != nil {
		return err
	}
	defer logger.Sync()

	container, err := provideDIContainer(cli.Conf)
	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to set up DI-Container. Reason:%s", err))
		return err
	}

	programs := make([]*job.Program, 0, len(c.Args.Files))
	for _, file := range c.Args.Files {
		content, err := common.ReadFile(file)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to read program file %s/reason:%s", file, err))
			return err
		}
		p := &job.Program{}
		if err := jsonIter.Unmarshal([]byte(content), p); err != nil {
			zap.L().Error(fmt.Sprintf("failed to unmarshal program file %s/reason:%s", file, err))
			return err
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		programs = append(programs, p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt))
	g.Add(func() error {
		defer cancel()
		return container.Invoke(func(builder *job.Builder) error {
			payloads, err := batch.Run(builder, programs, cli.Conf.Shots, cli.Conf.TranslateWorkerSize)
			if err != nil {
				return err
			}
			return c.writePayloads(payloads)
		})
	}, func(error) {
		cancel()
	})
	if err := g.Run(); err != nil {
		if _, ok := err.(run.SignalError); ok {
			zap.L().Info(fmt.Sprintf("interrupted: %s", err))
			return nil
		}
		zap.L().Error(fmt.Sprintf("translation failed/reason:%s", err))
		return err
	}
	return nil
}

func (c *translateCmd) writePayloads(payloads []*job.Payload) error {
	for _, p := range payloads {
		outPath := filepath.Join(c.OutDir, p.Name+".json")
		if err := os.WriteFile(outPath, []byte(p.String()), 0644); err != nil {
			return fmt.Errorf("failed to write payload %s: %w", outPath, err)
		}
		zap.L().Info(fmt.Sprintf("wrote job(%s) payload to %s", p.ID, outPath))
	}
	return nil
}

type decodeCmd struct {
	UserDataPath string `long:"user-data" description:"measurement mapping file serialized with the job"`
	QubitCount   int    `long:"qubits" description:"qubit count, used when no user-data file is given"`
	ClbitCount   int    `long:"clbits" description:"classical bit count, used when no user-data file is given"`
	Seed         int64  `long:"seed" description:"random seed for single-shot sampling" default:"-1"`
	Args         struct {
		File string `positional-arg-name:"result.json" required:"1"`
	} `positional-args:"yes"`
}

func newDecodeCmd() *decodeCmd {
	return &decodeCmd{}
}

func (c *decodeCmd) Execute(args []string) error {
	logger, err := setup(cli.Conf)
	if err != nil {
		return err
	}
	defer logger.Sync()

	content, err := common.ReadFile(c.Args.File)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to read result file %s/reason:%s", c.Args.File, err))
		return err
	}
	raw := &core.RawResult{}
	if err := jsonIter.Unmarshal([]byte(content), raw); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal result file %s/reason:%s", c.Args.File, err))
		return err
	}

	measurements, err := c.loadMeasurements(raw)
	if err != nil {
		return err
	}

	var rnd result.RandFunc
	if c.Seed >= 0 {
		rnd = rand.New(rand.NewSource(c.Seed)).Float64
	}
	decoded, err := result.NewDecoder(measurements, rnd).Decode(raw)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode result/reason:%s", err))
		return err
	}
	fmt.Println(decoded.String())
	return nil
}

// loadMeasurements restores the mapping serialized with the job, or falls
// back to the identity mapping built from out-of-band metadata.
func (c *decodeCmd) loadMeasurements(raw *core.RawResult) (*measurement.Measurements, error) {
	if c.UserDataPath != "" {
		userData, err := common.ReadFile(c.UserDataPath)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to read user data file %s/reason:%s", c.UserDataPath, err))
			return nil, err
		}
		return measurement.FromUserData(userData)
	}
	qubits := c.QubitCount
	if qubits == 0 {
		qubits = raw.QubitCount
	}
	clbits := c.ClbitCount
	if clbits == 0 {
		clbits = qubits
	}
	return measurement.FromInstructions(nil, qubits, clbits)
}
