// Package publisher streams incremental backtest results onto an append-only
// bus stream.
//
// A publisher tracks a fixed set of properties of the running backtest.
// Scalar properties are snapshotted into every DATA packet; growing-list
// properties send only the tail that appeared since the previous packet, so
// a consumer rebuilds the full result by concatenating the tails. The stream
// opens with START and ends with exactly one of END, ERROR or CANCEL.
package publisher

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/pkg/types"
)

// Property is one tracked field of the result object. Scalars provide Value;
// lists provide Len and Slice over a monotonically growing sequence.
type Property struct {
	Name   string
	IsList bool

	Value func() any
	Len   func() int
	Slice func(from, to int) any
}

// Scalar builds a property snapshotted whole into every DATA packet.
func Scalar(name string, value func() any) Property {
	return Property{Name: name, Value: value}
}

// List builds a growing-list property published as tails.
func List(name string, length func() int, slice func(from, to int) any) Property {
	return Property{Name: name, IsList: true, Len: length, Slice: slice}
}

// StreamKey composes the results stream key for a result id.
func StreamKey(prefix, resultID string) string {
	return fmt.Sprintf("%s:results:%s", prefix, resultID)
}

// Config holds configuration for a results publisher.
type Config struct {
	Bus        *bus.Bus
	Prefix     string
	ResultID   string
	Properties []Property
	Logger     *zap.Logger
}

// Publisher writes one run's packets. It is driven from the single-threaded
// bar loop and is not safe for concurrent use.
type Publisher struct {
	bus      *bus.Bus
	stream   string
	resultID string
	props    []Property
	lastLen  map[string]int
	logger   *zap.Logger
}

// New creates a publisher for one result stream.
func New(cfg *Config) *Publisher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		bus:      cfg.Bus,
		stream:   StreamKey(cfg.Prefix, cfg.ResultID),
		resultID: cfg.ResultID,
		props:    cfg.Properties,
		lastLen:  make(map[string]int),
		logger:   logger,
	}
}

// Reset records the starting length of every list property and opens the
// stream with a START packet.
func (p *Publisher) Reset(ctx context.Context) error {
	for _, prop := range p.props {
		if prop.IsList {
			p.lastLen[prop.Name] = prop.Len()
		}
	}
	return p.emit(ctx, types.PacketStart, nil)
}

// SendChanges emits a DATA packet carrying every scalar property and the
// tail of every list property that grew since the previous packet. When no
// property has content, nothing is emitted.
func (p *Publisher) SendChanges(ctx context.Context) error {
	data := make(map[string]any)
	for _, prop := range p.props {
		if !prop.IsList {
			data[prop.Name] = prop.Value()
			continue
		}

		n := prop.Len()
		last := p.lastLen[prop.Name]
		switch {
		case n > last:
			data[prop.Name] = prop.Slice(last, n)
			p.lastLen[prop.Name] = n
		case n < last:
			p.logger.Warn("tracked list shrank",
				zap.String("property", prop.Name),
				zap.Int("from", last),
				zap.Int("to", n))
			p.lastLen[prop.Name] = n
		}
	}

	if len(data) == 0 {
		return nil
	}
	return p.emit(ctx, types.PacketData, data)
}

// Finish snapshots final list sizes and closes the stream with an END packet.
func (p *Publisher) Finish(ctx context.Context) error {
	for _, prop := range p.props {
		if prop.IsList {
			p.lastLen[prop.Name] = prop.Len()
		}
	}
	return p.emit(ctx, types.PacketEnd, nil)
}

// SendError emits a terminal ERROR packet. Emission failures are logged and
// swallowed so they never mask the error being reported.
func (p *Publisher) SendError(ctx context.Context, msg string, extra map[string]any) {
	data := map[string]any{"message": msg}
	for k, v := range extra {
		data[k] = v
	}
	if err := p.emit(ctx, types.PacketError, data); err != nil {
		p.logger.Error("emit error packet", zap.Error(err))
	}
}

// SendCancel emits a terminal CANCEL packet. Emission failures are logged
// and swallowed.
func (p *Publisher) SendCancel(ctx context.Context, msg string) {
	if err := p.emit(ctx, types.PacketCancel, map[string]any{"message": msg}); err != nil {
		p.logger.Error("emit cancel packet", zap.Error(err))
	}
}

func (p *Publisher) emit(ctx context.Context, typ types.PacketType, data map[string]any) error {
	fields := map[string]any{
		"type":      string(typ),
		"result_id": p.resultID,
	}
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			emitFailures.Inc()
			return fmt.Errorf("marshal %s packet: %w", typ, err)
		}
		fields["data"] = raw
	}

	id, err := p.bus.StreamAdd(ctx, p.stream, fields)
	if err != nil {
		emitFailures.Inc()
		return fmt.Errorf("emit %s packet: %w", typ, err)
	}

	packetsEmitted.WithLabelValues(string(typ)).Inc()
	p.logger.Debug("packet emitted",
		zap.String("type", string(typ)),
		zap.String("stream", p.stream),
		zap.String("id", id))
	return nil
}
