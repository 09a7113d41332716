package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/flow"
)

// Direction tells whether an event concerns an input or an output entry.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// EntryEvent describes one entry state write.
type EntryEvent struct {
	NodeID    string
	MetaID    string
	Direction Direction
	Entry     string
	Previous  flow.EntryState
	Runtime   flow.EntryRuntime
	// Path holds the ids of the enclosing compound nodes, outermost first.
	Path []string
	Time time.Time
}

// StateObserver receives entry state writes. It is called synchronously on
// the preparing goroutine and must not mutate the flow.
type StateObserver interface {
	EntryChanged(ctx context.Context, event EntryEvent)
}

// ObserverFunc adapts a function to StateObserver.
type ObserverFunc func(ctx context.Context, event EntryEvent)

func (f ObserverFunc) EntryChanged(ctx context.Context, event EntryEvent) { f(ctx, event) }

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) EntryChanged(context.Context, EntryEvent) {}

// Observers fans events out to several observers in order.
func Observers(observers ...StateObserver) StateObserver {
	return ObserverFunc(func(ctx context.Context, event EntryEvent) {
		for _, o := range observers {
			o.EntryChanged(ctx, event)
		}
	})
}

// LoggingObserver logs every transition at debug level.
func LoggingObserver(logger *zap.Logger) StateObserver {
	return ObserverFunc(func(_ context.Context, event EntryEvent) {
		logger.Debug("entry changed",
			zap.String("node_id", event.NodeID),
			zap.String("meta_id", event.MetaID),
			zap.String("direction", string(event.Direction)),
			zap.String("entry", event.Entry),
			zap.String("from", string(event.Previous)),
			zap.String("to", string(event.Runtime.State)))
	})
}

// NodeFailure describes a node that raised an exception.
type NodeFailure struct {
	NodeID string
	MetaID string
	Title  string
	Phase  string
	Path   []string
	Err    error
}

// Reporter receives node exceptions.
type Reporter interface {
	ReportException(ctx context.Context, failure NodeFailure)
}

// NopReporter drops every report.
type NopReporter struct{}

func (NopReporter) ReportException(context.Context, NodeFailure) {}

var (
	_ StateObserver = NopObserver{}
	_ Reporter      = NopReporter{}
)
