// Package natsink publishes audit entries as JSON on NATS subjects
// "<prefix>.<modality>".
package natsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/biomatch/audit"
	"github.com/nats-io/nats.go"
)

// DefaultPrefix is the subject prefix used when none is given.
const DefaultPrefix = "biomatch.audit"

var _ audit.Sink = (*Sink)(nil)

// Publisher is the subset of *nats.Conn used by the sink.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Sink publishes entries to NATS.
type Sink struct {
	pub    Publisher
	prefix string
}

// New creates a sink on an existing connection.
func New(pub Publisher, prefix string) *Sink {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Sink{pub: pub, prefix: prefix}
}

// Connect dials url and returns a sink plus the connection for the caller
// to close.
func Connect(url, prefix string, opts ...nats.Option) (*Sink, *nats.Conn, error) {
	opts = append([]nats.Option{nats.Name("biomatch-audit")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return New(nc, prefix), nc, nil
}

// Subject returns the subject entries of modality name are published on.
func (s *Sink) Subject(name string) string {
	return s.prefix + "." + name
}

// Write implements audit.Sink.
func (s *Sink) Write(ctx context.Context, e audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if err := s.pub.Publish(s.Subject(e.Modality.String()), data); err != nil {
		return fmt.Errorf("publish audit entry: %w", err)
	}
	return nil
}
