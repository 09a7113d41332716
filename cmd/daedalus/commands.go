package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	natsconn "github.com/wehubfusion/Daedalus/internal/nats"
	"github.com/wehubfusion/Daedalus/internal/tracing"
	"github.com/wehubfusion/Daedalus/pkg/engine"
	"github.com/wehubfusion/Daedalus/pkg/events"
	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/registry"
	"github.com/wehubfusion/Daedalus/pkg/reporting"
	"github.com/wehubfusion/Daedalus/pkg/script"
)

// errFlowFailed is returned by run when the flow verdict is failed. The
// results have already been printed.
var errFlowFailed = errors.New("flow failed")

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

func runCommand(ctx context.Context, args []string, stdout io.Writer) error {
	var o options
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	o.registerCommon(fs)
	o.registerFlow(fs)
	o.registerRun(fs)
	if err := parseFlags(fs, args); err != nil {
		return helpIsNotAnError(err)
	}
	if err := o.requireDefs(); err != nil {
		return err
	}
	if o.flowPath == "" {
		return fmt.Errorf("-flow is required")
	}

	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return run(ctx, &o, stdout, logger)
}

// run loads the documents, prepares the flow and prints the results.
func run(ctx context.Context, o *options, stdout io.Writer, logger *zap.Logger) error {
	reg, f, err := loadDocuments(ctx, o, logger)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		logger.Warn("Flow has structural problems", zap.Error(err))
	}

	metricsRegistry := prometheus.NewRegistry()
	eng, cleanup, err := newEngine(ctx, o, reg, metricsRegistry, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := eng.PrepareFlow(ctx, f, engine.PrepareOptions{Force: o.force})
	if err != nil {
		return fmt.Errorf("failed to prepare flow: %w", err)
	}

	if o.jsonOutput {
		err = writeJSON(stdout, result)
	} else {
		err = writeText(stdout, result)
	}
	if err != nil {
		return err
	}

	if o.metricsFile != "" {
		if err := prometheus.WriteToTextfile(o.metricsFile, metricsRegistry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	m := eng.Config().Metrics.GetMetrics()
	logger.Info("Flow prepared",
		zap.Stringer("success", result.Success),
		zap.Int64("nodes_prepared", m.NodesPrepared),
		zap.Int64("exceptions", m.Exceptions),
		zap.Int64("validation_failures", m.ValidationFailures))

	if result.Success == flow.VerdictFailed {
		return errFlowFailed
	}
	return nil
}

// newEngine wires the evaluator and the optional tracing, event and
// reporting collaborators. cleanup releases them in reverse order.
func newEngine(ctx context.Context, o *options, reg *registry.Registry, metricsRegistry prometheus.Registerer, logger *zap.Logger) (*engine.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	scriptConfig := script.DefaultConfig()
	scriptConfig.Timeout = o.scriptTimeout
	evaluator, err := script.NewEvaluator(scriptConfig, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	if o.otlpEndpoint != "" {
		tc := tracing.DefaultConfig("daedalus")
		tc.ServiceVersion = version
		tc.Environment = o.environment
		tc.OTLPEndpoint = o.otlpEndpoint
		shutdown, err := tracing.SetupTracing(ctx, tc, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = tracing.ShutdownTracing(shutdown, logger) })
	}

	observers := []engine.StateObserver{engine.LoggingObserver(logger)}
	if o.natsURL != "" {
		conn, err := natsconn.Connect(ctx, natsconn.DefaultConnectionConfig(o.natsURL), logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := natsconn.Close(conn); err != nil {
				logger.Warn("Failed to close NATS connection", zap.Error(err))
			}
		})

		publisher, err := events.NewPublisher(conn, events.DefaultConfig().
			WithSubjectPrefix(o.subjectPrefix).
			WithIncludeData(o.includeData), logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Close(flushCtx); err != nil {
				logger.Warn("Failed to flush entry events", zap.Error(err))
			}
		})
		observers = append(observers, publisher)
	}

	var reporter engine.Reporter = engine.NopReporter{}
	if o.sentryDSN != "" {
		rc := reporting.DefaultConfig()
		rc.DSN = o.sentryDSN
		rc.Environment = o.environment
		rc.Release = "daedalus@" + version
		r, err := reporting.NewReporter(rc, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = r.Close() })
		reporter = r
	}

	config := engine.DefaultConfig().
		WithResolver(reg).
		WithEvaluator(evaluator).
		WithLogger(logger).
		WithMetrics(engine.NewPrometheusMetrics(metricsRegistry)).
		WithObserver(engine.Observers(observers...)).
		WithReporter(reporter)

	eng, err := engine.New(config)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

// loadDocuments fills a registry from the definitions source and decodes the flow.
func loadDocuments(ctx context.Context, o *options, logger *zap.Logger) (*registry.Registry, *flow.FlowState, error) {
	reg := registry.New()
	defs, err := openSource(ctx, o.defs, o, logger)
	if err != nil {
		return nil, nil, err
	}
	if _, err := registry.Load(ctx, reg, defs, logger); err != nil {
		return nil, nil, err
	}

	src, err := openSource(ctx, o.flowPath, o, logger)
	if err != nil {
		return nil, nil, err
	}
	f, err := registry.LoadFlow(ctx, reg, src)
	if err != nil {
		return nil, nil, err
	}
	return reg, f, nil
}

func checkCommand(ctx context.Context, args []string, stdout io.Writer) error {
	var o options
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	o.registerCommon(fs)
	o.registerFlow(fs)
	if err := parseFlags(fs, args); err != nil {
		return helpIsNotAnError(err)
	}
	if err := o.requireDefs(); err != nil {
		return err
	}
	if o.flowPath == "" {
		return fmt.Errorf("-flow is required")
	}
	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return check(ctx, &o, stdout, logger)
}

func check(ctx context.Context, o *options, stdout io.Writer, logger *zap.Logger) error {
	reg, f, err := loadDocuments(ctx, o, logger)
	if err != nil {
		return err
	}

	if err := f.Validate(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "ok: %d nodes, %d edges, %d definitions\n", len(f.Nodes), len(f.Edges), reg.Len())
	return err
}

func listCommand(ctx context.Context, args []string, stdout io.Writer) error {
	var o options
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	o.registerCommon(fs)
	if err := parseFlags(fs, args); err != nil {
		return helpIsNotAnError(err)
	}
	if err := o.requireDefs(); err != nil {
		return err
	}
	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := openSource(ctx, o.defs, &o, logger)
	if err != nil {
		return err
	}
	reg := registry.New()
	if _, err := registry.Load(ctx, reg, src, logger); err != nil {
		return err
	}
	return writeDefinitions(stdout, reg.List())
}

func publishCommand(ctx context.Context, args []string, stdout io.Writer) error {
	var o options
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	o.registerCommon(fs)
	fs.StringVar(&o.to, "to", "", "destination azure://container/blob")
	if err := parseFlags(fs, args); err != nil {
		return helpIsNotAnError(err)
	}
	if err := o.requireDefs(); err != nil {
		return err
	}
	if !strings.HasPrefix(o.to, "azure://") {
		return fmt.Errorf("-to must be an azure://container/blob destination")
	}
	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := openSource(ctx, o.defs, &o, logger)
	if err != nil {
		return err
	}
	data, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	// refuse to publish a document that does not load
	if _, err := registry.Load(ctx, registry.New(), registry.BytesSource{Label: src.Name(), Data: data}, logger); err != nil {
		return err
	}

	dest, err := openSource(ctx, o.to, &o, logger)
	if err != nil {
		return err
	}
	url, err := dest.(*registry.AzureBlobSource).Publish(ctx, data, contentType(o.defs))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "published %s\n", url)
	return err
}

func contentType(ref string) string {
	if strings.HasSuffix(strings.ToLower(ref), ".json") {
		return "application/json"
	}
	return "application/yaml"
}

func helpIsNotAnError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}
