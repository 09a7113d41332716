// Package reporting forwards node exceptions to Sentry.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// ErrInvalidConfig is returned when the Sentry client cannot be built.
var ErrInvalidConfig = errors.New("invalid reporting configuration")

// Config configures the Sentry reporter.
type Config struct {
	// DSN is the Sentry project DSN. An empty DSN keeps reporting local.
	DSN string `json:"dsn"`

	Environment string `json:"environment"`
	Release     string `json:"release"`

	// FlushTimeout bounds Close.
	FlushTimeout time.Duration `json:"flushTimeout"`

	// BeforeSend can inspect or drop events before they leave the process.
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event `json:"-"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Environment:  "development",
		FlushTimeout: 2 * time.Second,
	}
}

// Reporter is an engine.Reporter backed by a Sentry hub.
type Reporter struct {
	hub     *sentry.Hub
	timeout time.Duration
	logger  *zap.Logger
}

var _ engine.Reporter = (*Reporter)(nil)

// NewReporter builds a dedicated Sentry client so that the global hub stays untouched.
func NewReporter(config Config, logger *zap.Logger) (*Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = DefaultConfig().FlushTimeout
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		AttachStacktrace: true,
		BeforeSend:       config.BeforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Reporter{
		hub:     sentry.NewHub(client, sentry.NewScope()),
		timeout: config.FlushTimeout,
		logger:  logger,
	}, nil
}

// ReportException captures failure on the hub carried by ctx, or the
// reporter's own hub when ctx has none.
func (r *Reporter) ReportException(ctx context.Context, failure engine.NodeFailure) {
	if failure.Err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = r.hub.Clone()
	}

	var id *sentry.EventID
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("node_id", failure.NodeID)
		scope.SetTag("meta_id", failure.MetaID)
		scope.SetTag("phase", failure.Phase)
		scope.SetTag("error_code", engine.CategorizeError(failure.Err))
		scope.SetContext("node", sentry.Context{
			"title": failure.Title,
			"path":  strings.Join(failure.Path, "/"),
		})
		scope.SetFingerprint([]string{"{{ default }}", failure.MetaID, failure.Phase})
		id = hub.CaptureException(failure.Err)
	})

	fields := []zap.Field{
		zap.String("node_id", failure.NodeID),
		zap.String("meta_id", failure.MetaID),
		zap.Error(failure.Err),
	}
	if id != nil {
		fields = append(fields, zap.String("event_id", string(*id)))
	}
	r.logger.Debug("Reported node exception", fields...)
}

// Flush waits until buffered events are sent or timeout passes.
func (r *Reporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// Close flushes pending events using the configured timeout.
func (r *Reporter) Close() error {
	if !r.Flush(r.timeout) {
		r.logger.Warn("Timed out flushing Sentry events", zap.Duration("timeout", r.timeout))
		return fmt.Errorf("sentry flush timed out after %s", r.timeout)
	}
	return nil
}
