package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/registry"
)

// options holds the flags shared by every command.
type options struct {
	defs     string
	flowPath string
	logLevel string

	azureConnection string
	s3Region        string
	s3Endpoint      string

	// run only
	jsonOutput    bool
	force         bool
	scriptTimeout time.Duration
	natsURL       string
	subjectPrefix string
	includeData   bool
	sentryDSN     string
	environment   string
	otlpEndpoint  string
	metricsFile   string

	// publish only
	to string
}

func (o *options) registerCommon(fs *flag.FlagSet) {
	fs.StringVar(&o.defs, "defs", "", "node definitions document (path, file://, azure:// or s3://)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&o.azureConnection, "azure-connection-string", os.Getenv("AZURE_STORAGE_CONNECTION_STRING"), "Azure storage connection string")
	fs.StringVar(&o.s3Region, "s3-region", os.Getenv("AWS_REGION"), "S3 region")
	fs.StringVar(&o.s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
}

func (o *options) registerFlow(fs *flag.FlagSet) {
	fs.StringVar(&o.flowPath, "flow", "", "flow document (path, file://, azure:// or s3://)")
}

func (o *options) registerRun(fs *flag.FlagSet) {
	fs.BoolVar(&o.jsonOutput, "json", false, "print results as JSON")
	fs.BoolVar(&o.force, "force", false, "re-evaluate nodes that already hold results")
	fs.DurationVar(&o.scriptTimeout, "script-timeout", 5*time.Second, "timeout for each inline implementation")
	fs.StringVar(&o.natsURL, "nats-url", "", "publish entry events to this NATS server")
	fs.StringVar(&o.subjectPrefix, "subject-prefix", "daedalus.entries", "NATS subject prefix for entry events")
	fs.BoolVar(&o.includeData, "event-data", false, "attach entry values to published events")
	fs.StringVar(&o.sentryDSN, "sentry-dsn", os.Getenv("SENTRY_DSN"), "report node exceptions to Sentry")
	fs.StringVar(&o.environment, "environment", "development", "deployment environment for traces and reports")
	fs.StringVar(&o.otlpEndpoint, "otlp-endpoint", "", "export traces to this OTLP/HTTP endpoint (host:port)")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}

func (o *options) requireDefs() error {
	if o.defs == "" {
		return fmt.Errorf("-defs is required")
	}
	return nil
}

// newLogger builds a development logger at debug level and a production
// logger otherwise.
func newLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// openSource turns a source reference into a registry source.
func openSource(ctx context.Context, ref string, o *options, logger *zap.Logger) (registry.Source, error) {
	switch {
	case strings.HasPrefix(ref, "azure://"):
		container, blob, ok := strings.Cut(strings.TrimPrefix(ref, "azure://"), "/")
		if !ok || container == "" || blob == "" {
			return nil, fmt.Errorf("azure source %q must look like azure://container/blob", ref)
		}
		src, err := registry.NewAzureBlobSource(o.azureConnection, container, blob, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case strings.HasPrefix(ref, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("s3 source %q must look like s3://bucket/key", ref)
		}
		src, err := registry.NewS3Source(ctx, registry.S3Config{
			Bucket:   bucket,
			Key:      key,
			Region:   o.s3Region,
			Endpoint: o.s3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case ref == "":
		return nil, fmt.Errorf("source reference is empty")
	}
	return registry.FileSource{Path: strings.TrimPrefix(ref, "file://")}, nil
}
