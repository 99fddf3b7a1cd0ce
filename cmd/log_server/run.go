package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/eagine-core/log-server/internal/config"
	"github.com/eagine-core/log-server/internal/consolemirror"
	"github.com/eagine-core/log-server/internal/influxdb"
	"github.com/eagine-core/log-server/internal/libpq"
	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/output"
	"github.com/eagine-core/log-server/internal/output/asyncstream"
	"github.com/eagine-core/log-server/internal/reader"
	"github.com/eagine-core/log-server/internal/sinkfactory"
	"github.com/eagine-core/log-server/internal/texttree"
)

// run wires flags and config into readers, sink factories and outputs,
// then blocks until every accept loop stops (spec.md §6, §4.8).
func run(f *Flags) error {
	opts, err := config.Load(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	threshold, _ := logging.ParseSeverity(opts.Log.Severity)
	backend := logging.New(threshold)
	mirror := consolemirror.New(os.Stderr)

	sessionID := logging.NewSessionID(opts.Application.Random.Seed)
	backend.Logger().WithField("session_id", sessionID).Info("log_server starting")

	closers := make([]closerFunc, 0, 4)
	defer func() { runClosers(closers) }()

	textOut, outCloser, err := buildOutput(f)
	if err != nil {
		mirror.Fatal("output", err)
		return err
	}
	if outCloser != nil {
		closers = append(closers, outCloser)
	}

	sinkFactory, sinkCloser, err := buildSinkFactory(f, textOut)
	if err != nil {
		mirror.Fatal("sink factory", err)
		return err
	}
	if sinkCloser != nil {
		closers = append(closers, sinkCloser)
	}

	stopUpdates := make(chan struct{})
	go driveUpdates(sinkFactory, stopUpdates)
	closers = append(closers, func() error { close(stopUpdates); return nil })

	loops, err := buildReaders(f, sinkFactory, backend, opts.Log.HeartbeatTimeout)
	if err != nil {
		mirror.Fatal("reader", err)
		return err
	}
	if len(loops) == 0 {
		err := fmt.Errorf("no input source configured")
		mirror.Fatal("startup", err)
		return err
	}

	done := make(chan error, len(loops))
	for _, l := range loops {
		l := l
		go func() { done <- l.Run() }()
	}
	var firstErr error
	for range loops {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type closerFunc func() error

func runClosers(cs []closerFunc) {
	for i := len(cs) - 1; i >= 0; i-- {
		cs[i]()
	}
}

// driveUpdates calls factory.Update() periodically, standing in for the
// single event loop's "update() is called periodically" duty (spec.md
// §4.5) now that reading happens on per-connection goroutines.
func driveUpdates(f sinkfactory.Factory, stop <-chan struct{}) {
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			f.Update()
		case <-stop:
			return
		}
	}
}

func buildOutput(f *Flags) (output.TextOutput, closerFunc, error) {
	var outs []output.TextOutput
	var closers []closerFunc

	if f.Ostream {
		outs = append(outs, output.Wrap(os.Stdout))
	}
	if f.NetcatEnabled {
		ln, err := net.Listen("tcp", f.NetcatAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("netcat listen: %w", err)
		}
		a := asyncstream.Listen(ln)
		outs = append(outs, a)
		closers = append(closers, a.Close)
	}
	if f.SocatEnabled {
		os.Remove(f.SocatPath) // stale socket from a prior unclean exit
		ln, err := net.Listen("unix", f.SocatPath)
		if err != nil {
			return nil, nil, fmt.Errorf("socat listen: %w", err)
		}
		a := asyncstream.Listen(ln)
		path := f.SocatPath
		outs = append(outs, a)
		closers = append(closers, func() error {
			a.Close()
			return os.Remove(path) // spec.md §6: unlinked on clean shutdown
		})
	}

	switch len(outs) {
	case 0:
		return nil, nil, fmt.Errorf("no text output configured")
	case 1:
		return outs[0], combineCloser(closers), nil
	default:
		return output.NewCombined(outs...), combineCloser(closers), nil
	}
}

func combineCloser(cs []closerFunc) closerFunc {
	if len(cs) == 0 {
		return nil
	}
	return func() error {
		var firstErr error
		for _, c := range cs {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
}

func buildSinkFactory(f *Flags, textOut output.TextOutput) (sinkfactory.Factory, closerFunc, error) {
	var factories []sinkfactory.Factory
	var closers []closerFunc

	if f.TextTree {
		tt := texttree.New(textOut)
		factories = append(factories, tt)
		closers = append(closers, tt.Close)
	}
	if f.InfluxEnabled {
		factories = append(factories, influxdb.New(influxdb.Config{URL: f.InfluxDBURL}))
	}
	if f.LibpqEnabled {
		lp, err := libpq.New(f.LibpqConn)
		if err != nil {
			return nil, nil, fmt.Errorf("libpq: %w", err)
		}
		factories = append(factories, lp)
		closers = append(closers, lp.Close)
	}

	if f.SinksFile != "" {
		targets, err := config.LoadSinkTargets(f.SinksFile)
		if err != nil {
			return nil, nil, fmt.Errorf("sinks file: %w", err)
		}
		for _, target := range targets {
			switch target.Kind {
			case "influxdb":
				factories = append(factories, influxdb.New(influxdb.Config{URL: target.DSN}))
			case "libpq":
				lp, err := libpq.New(target.DSN)
				if err != nil {
					return nil, nil, fmt.Errorf("sinks file: libpq %q: %w", target.DSN, err)
				}
				factories = append(factories, lp)
				closers = append(closers, lp.Close)
			default:
				return nil, nil, fmt.Errorf("sinks file: unknown sink kind %q", target.Kind)
			}
		}
	}

	switch len(factories) {
	case 0:
		return nil, nil, fmt.Errorf("no sink factory configured")
	case 1:
		return factories[0], combineCloser(closers), nil
	default:
		return sinkfactory.NewCombinedFactory(factories...), combineCloser(closers), nil
	}
}

func buildReaders(f *Flags, factory sinkfactory.Factory, backend *logging.Backend, heartbeatTimeout time.Duration) ([]runner, error) {
	var loops []runner

	if f.LocalEnabled {
		os.Remove(f.LocalPath)
		ln, err := net.Listen("unix", f.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("local listen: %w", err)
		}
		path := f.LocalPath
		loops = append(loops, cleanupRunner{
			runner: reader.NewAcceptLoop(ln, factory, backend, 0, heartbeatTimeout),
			after:  func() { os.Remove(path) },
		})
	}
	if f.NetworkEnabled {
		ln, err := net.Listen("tcp", f.NetworkAddr)
		if err != nil {
			return nil, fmt.Errorf("network listen: %w", err)
		}
		loops = append(loops, reader.NewAcceptLoop(ln, factory, backend, 0, heartbeatTimeout))
	}
	if len(loops) == 0 {
		// No socket reader requested: fall back to stdin (spec.md §4.8
		// names stdin as a reader variant; the CLI table gives no flag
		// for it, so it is the default when no other source is given).
		loops = append(loops, reader.NewStdin(os.Stdin, factory, backend, 0))
	}
	return loops, nil
}

type runner interface {
	Run() error
}

// cleanupRunner wraps a runner.Run to unlink a socket path after the
// accept loop returns (spec.md §6: "an AF_UNIX reader/output socket is
// unlinked on clean shutdown").
type cleanupRunner struct {
	runner runner
	after  func()
}

func (c cleanupRunner) Run() error {
	err := c.runner.Run()
	c.after()
	return err
}
