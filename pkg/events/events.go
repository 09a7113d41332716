// Package events publishes entry state transitions to NATS so that
// dashboards and editors can follow a flow while it is prepared.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/engine"
	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// DefaultSubjectPrefix is the subject root events are published under.
const DefaultSubjectPrefix = "daedalus.entries"

// ErrInvalidConfig is returned for a publisher configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid events configuration")

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// Config configures a Publisher.
type Config struct {
	// SubjectPrefix is prepended to every subject, e.g. "daedalus.entries".
	SubjectPrefix string `json:"subjectPrefix"`

	// IncludeData attaches entry values to events. Types are always attached.
	IncludeData bool `json:"includeData"`

	// PublishMaxRetries is the number of extra attempts after a failed publish.
	PublishMaxRetries int `json:"publishMaxRetries"`

	// RetryWait is the pause between attempts.
	RetryWait time.Duration `json:"retryWait"`

	// QueueSize bounds the events waiting to be published. Events arriving
	// while the queue is full are dropped.
	QueueSize int `json:"queueSize"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		SubjectPrefix:     DefaultSubjectPrefix,
		PublishMaxRetries: 2,
		RetryWait:         50 * time.Millisecond,
		QueueSize:         1024,
	}
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.RetryWait <= 0 {
		c.RetryWait = 50 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.ContainsAny(c.SubjectPrefix, " \t*>") {
		return fmt.Errorf("%w: subject prefix %q must not contain whitespace or wildcards", ErrInvalidConfig, c.SubjectPrefix)
	}
	if strings.HasPrefix(c.SubjectPrefix, ".") || strings.HasSuffix(c.SubjectPrefix, ".") {
		return fmt.Errorf("%w: subject prefix %q has an empty token", ErrInvalidConfig, c.SubjectPrefix)
	}
	if c.PublishMaxRetries < 0 {
		return fmt.Errorf("%w: publish retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// WithIncludeData returns a copy of the config with entry values attached.
func (c Config) WithIncludeData(include bool) Config {
	c.IncludeData = include
	return c
}

// WithSubjectPrefix returns a copy of the config publishing under prefix.
func (c Config) WithSubjectPrefix(prefix string) Config {
	c.SubjectPrefix = prefix
	return c
}

// EntryMessage is the JSON body of an entry event.
type EntryMessage struct {
	ID        string           `json:"id"`
	NodeID    string           `json:"nodeId"`
	MetaID    string           `json:"metaId"`
	Direction string           `json:"direction"`
	Entry     string           `json:"entry"`
	Previous  string           `json:"previous"`
	State     string           `json:"state"`
	Type      any              `json:"type,omitempty"`
	Data      any              `json:"data,omitempty"`
	Error     *flow.EntryError `json:"error,omitempty"`
	Path      []string         `json:"path,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Stats counts publisher activity.
type Stats struct {
	Published int64
	Dropped   int64
}

type outgoing struct {
	subject string
	id      string
	nodeID  string
	data    []byte
}

// Publisher is an engine.StateObserver that publishes each entry write.
// EntryChanged only enqueues; a background worker publishes with retries.
// Failures are logged and counted and never reach preparation.
type Publisher struct {
	conn   Conn
	config Config
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan outgoing
	done   chan struct{}

	published atomic.Int64
	dropped   atomic.Int64
}

var _ engine.StateObserver = (*Publisher)(nil)

// NewPublisher creates a publisher on conn and starts its worker. Call Close
// to flush queued events.
func NewPublisher(conn Conn, config Config, logger *zap.Logger) (*Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: connection cannot be nil", ErrInvalidConfig)
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		conn:   conn,
		config: config,
		logger: logger,
		queue:  make(chan outgoing, config.QueueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Subject returns the subject an event is published on:
// <prefix>.<direction>.<state>.
func (p *Publisher) Subject(event engine.EntryEvent) string {
	return p.config.SubjectPrefix + "." + string(event.Direction) + "." + string(event.Runtime.State)
}

// Message builds the event body.
func (p *Publisher) Message(event engine.EntryEvent) EntryMessage {
	msg := EntryMessage{
		ID:        uuid.NewString(),
		NodeID:    event.NodeID,
		MetaID:    event.MetaID,
		Direction: string(event.Direction),
		Entry:     event.Entry,
		Previous:  string(event.Previous),
		State:     string(event.Runtime.State),
		Error:     event.Runtime.Err,
		Path:      event.Path,
		Timestamp: event.Time,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if t := event.Runtime.KnownType(); t != nil {
		msg.Type = schema.TypeValue(t)
	}
	if p.config.IncludeData && event.Runtime.State == flow.EntryDataReady {
		msg.Data = event.Runtime.Data
	}
	return msg
}

// EntryChanged encodes event and queues it without blocking.
func (p *Publisher) EntryChanged(_ context.Context, event engine.EntryEvent) {
	subject := p.Subject(event)
	msg := p.Message(event)

	data, err := json.Marshal(msg)
	if err != nil {
		p.drop("Failed to marshal entry event", subject, msg.ID, event.NodeID, err)
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop("Entry event after close", subject, msg.ID, event.NodeID, nil)
		return
	}
	select {
	case p.queue <- outgoing{subject: subject, id: msg.ID, nodeID: event.NodeID, data: data}:
	default:
		p.drop("Entry event queue is full", subject, msg.ID, event.NodeID, nil)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for out := range p.queue {
		p.publish(out)
	}
}

func (p *Publisher) publish(out outgoing) {
	var err error
	for attempt := 0; ; attempt++ {
		if err = p.conn.Publish(out.subject, out.data); err == nil {
			p.published.Add(1)
			return
		}
		if attempt >= p.config.PublishMaxRetries {
			break
		}
		time.Sleep(p.config.RetryWait)
	}
	p.drop("Failed to publish entry event", out.subject, out.id, out.nodeID, err)
}

func (p *Publisher) drop(reason, subject, id, nodeID string, err error) {
	p.dropped.Add(1)
	fields := []zap.Field{
		zap.String("subject", subject),
		zap.String("event_id", id),
		zap.String("node_id", nodeID),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	p.logger.Warn(reason, fields...)
}

// Close stops accepting events and waits until queued ones are published
// or ctx is done.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events still queued: %w", ctx.Err())
	}
}

// Stats returns publish counts.
func (p *Publisher) Stats() Stats {
	return Stats{Published: p.published.Load(), Dropped: p.dropped.Load()}
}
