package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/precice-go/config"
	"github.com/wippyai/precice-go/driver"
	"github.com/wippyai/precice-go/engine"
	"github.com/wippyai/precice-go/engine/loopback"
	"github.com/wippyai/precice-go/kernel"
	"github.com/wippyai/precice-go/metrics"
	"github.com/wippyai/precice-go/participant"
)

// session holds everything one run needs.
type session struct {
	s    config.Settings
	log  *zap.Logger
	p    *participant.Participant
	k    kernel.Kernel
	plan driver.Plan
}

func newLogger(s config.Settings) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if s.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(s.Level())
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func open(ctx context.Context, s config.Settings, log *zap.Logger) (_ *session, err error) {
	engine.SetLogger(log.Named("engine"))
	loopback.SetLogger(log.Named("loopback"))
	kernel.SetLogger(log.Named("kernel"))

	k, err := kernel.Open(ctx, s.Kernel, &kernel.Config{
		Export:           s.KernelExport,
		MemoryLimitPages: s.KernelMemoryPages,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, k.Close(ctx))
		}
	}()

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg, s.Participant)
	if err != nil {
		return nil, err
	}

	eng, err := engine.Open(engine.Config{
		Backend:  s.Engine,
		Protocol: s.ProtocolVersion(),
		Options:  s.Options(),
	})
	if err != nil {
		return nil, err
	}
	p := participant.New(eng,
		participant.WithName(s.Participant),
		participant.WithLogger(log),
		participant.WithMetrics(collector))
	defer func() {
		if err != nil {
			err = multierr.Append(err, p.Finalize(ctx))
		}
	}()

	connectivity, err := p.RequiresMeshConnectivityFor(s.Mesh)
	if err != nil {
		return nil, err
	}
	if connectivity {
		log.Warn("mapping needs mesh connectivity, the dummy sets none", zap.String("mesh", s.Mesh))
	}
	dims, err := p.GetMeshDimensions(s.Mesh)
	if err != nil {
		return nil, err
	}

	sess := &session{
		s:   s,
		log: log,
		p:   p,
		k:   k,
		plan: driver.Plan{
			Mesh:      s.Mesh,
			ReadData:  s.ReadData,
			WriteData: s.WriteData,
			Vertices:  driver.DummyVertices(s.Vertices, dims),
		},
	}
	if s.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, s.MetricsAddr, reg); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", s.MetricsAddr))
	}
	return sess, nil
}

func (sess *session) drive(ctx context.Context, observe driver.Observer) (driver.Result, error) {
	return driver.Run(ctx, sess.p, sess.plan, sess.k,
		driver.WithObserver(observe),
		driver.WithLogger(sess.log),
		driver.WithMaxSteps(sess.s.MaxSteps))
}

func (sess *session) close(ctx context.Context) error {
	return sess.k.Close(ctx)
}

// run couples the dummy solver and prints its progress to out.
func run(ctx context.Context, s config.Settings, out io.Writer) (err error) {
	log, err := newLogger(s)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	sess, err := open(ctx, s, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sess.close(ctx)) }()

	fmt.Fprintf(out, "DUMMY: Running solver dummy with preCICE config file %q, participant name %q, and mesh name %q.\n",
		s.Configuration, s.Participant, s.Mesh)
	res, err := sess.drive(ctx, func(e driver.Event) {
		if line := describe(e); line != "" {
			fmt.Fprintln(out, line)
		}
	})
	if err != nil {
		return err
	}
	log.Debug("run finished", zap.Int("steps", res.Steps), zap.Float64("time", res.Time))
	fmt.Fprintln(out, "DUMMY: Closing Go solver dummy...")
	return nil
}

// describe returns the solver dummy line for an event, or "".
func describe(e driver.Event) string {
	switch e.Kind {
	case driver.EventCheckpointSaved:
		return "DUMMY: Writing iteration checkpoint"
	case driver.EventAdvanced:
		return "DUMMY: Advancing in time"
	case driver.EventCheckpointRestored:
		return "DUMMY: Reading iteration checkpoint"
	}
	return ""
}
