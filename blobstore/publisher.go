package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/hupe1980/biomatch/codec"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/persistence"
)

// Publisher uploads index artifacts to a Store and restores them locally.
type Publisher struct {
	store  Store
	codec  codec.Codec
	prefix string
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithCodec sets the compression codec. Defaults to codec.Default.
func WithCodec(c codec.Codec) PublisherOption {
	return func(p *Publisher) {
		if c != nil {
			p.codec = c
		}
	}
}

// WithPrefix prepends prefix to every key.
func WithPrefix(prefix string) PublisherOption {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// NewPublisher creates a Publisher on store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, codec: codec.Default}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the object key an artifact named name is stored under.
func (p *Publisher) Key(name string) string {
	return path.Join(p.prefix, name) + p.codec.Ext()
}

// Publish encodes, compresses and uploads idx as name.
func (p *Publisher) Publish(ctx context.Context, name string, idx *ivf.Index) error {
	var buf bytes.Buffer
	if err := idx.Encode(&buf); err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	packed, err := p.codec.Compress(buf.Bytes())
	if err != nil {
		return err
	}
	if err := p.store.Put(ctx, p.Key(name), packed); err != nil {
		return fmt.Errorf("uploading %s: %w", p.Key(name), err)
	}
	return nil
}

// Fetch downloads and decodes the artifact published as name.
// The artifact checksum is verified.
func (p *Publisher) Fetch(ctx context.Context, name string) (*ivf.Index, error) {
	packed, err := p.store.Get(ctx, p.Key(name))
	if err != nil {
		return nil, err
	}
	raw, err := p.codec.Decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ivf.ErrIndexCorrupt, err)
	}
	return ivf.Decode(bytes.NewReader(raw))
}

// Restore fetches the artifact published as name and writes it atomically
// to the local file dst.
func (p *Publisher) Restore(ctx context.Context, name, dst string) (*ivf.Index, error) {
	idx, err := p.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := persistence.SaveToFile(dst, idx.Encode); err != nil {
		return nil, err
	}
	return idx, nil
}
