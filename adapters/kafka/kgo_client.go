package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"maps"
	"slices"

	"github.com/twmb/franz-go/pkg/kgo"

	berr "github.com/next-trace/scg-health-router/contract/errors"
)

// Config describes the franz-go client backing the mirror sink.
// Zero Acks and Compression keep the franz-go defaults.
type Config struct {
	Brokers          []string
	TLS              *tls.Config
	Acks             kgo.Acks
	Idempotent       bool
	ClientID         string
	TopicPrefix      string
	Compression      kgo.CompressionCodec
	AutoCreateTopics bool
}

type kgoWriter struct{ cl *kgo.Client }

func (w kgoWriter) Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value, Headers: recordHeaders(headers)}

	return w.cl.ProduceSync(ctx, rec).FirstErr()
}

// recordHeaders converts headers sorted by key so records are byte-stable.
func recordHeaders(headers map[string]string) []kgo.RecordHeader {
	if len(headers) == 0 {
		return nil
	}

	keys := slices.Sorted(maps.Keys(headers))
	out := make([]kgo.RecordHeader, 0, len(keys))

	for _, k := range keys {
		out = append(out, kgo.RecordHeader{Key: k, Value: []byte(headers[k])})
	}

	return out
}

// NewWithKgo builds a franz-go client based Adapter. The returned cleanup should be called to close the client.
func NewWithKgo(cfg Config) (*Adapter, func(), error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", berr.ErrInvalidConfig)
	}

	opts := []kgo.Opt{kgo.SeedBrokers(cfg.Brokers...)}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}

	if !cfg.Idempotent {
		opts = append(opts, kgo.DisableIdempotentWrite())
	}

	if cfg.Compression != (kgo.CompressionCodec{}) {
		opts = append(opts, kgo.ProducerBatchCompression(cfg.Compression))
	}

	if cfg.Acks != (kgo.Acks{}) {
		opts = append(opts, kgo.RequiredAcks(cfg.Acks))
	}

	if cfg.AutoCreateTopics {
		opts = append(opts, kgo.AllowAutoTopicCreation())
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client init: %w", berr.ErrDispatchFailed, err)
	}

	ad := New(kgoWriter{cl: cl})
	ad.TopicPrefix = cfg.TopicPrefix

	cleanup := func() { cl.Close() }

	return ad, cleanup, nil
}
