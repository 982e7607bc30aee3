package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"tradesim/internal/bus"
	"tradesim/pkg/types"
)

// Reader consumes one results stream incrementally. Multiple readers can
// follow the same stream at their own pace; TrimBefore bounds the stream by
// the slowest reader's checkpoint.
type Reader struct {
	bus    *bus.Bus
	stream string
}

// NewReader opens a reader on the result stream for resultID.
func NewReader(b *bus.Bus, prefix, resultID string) *Reader {
	return &Reader{bus: b, stream: StreamKey(prefix, resultID)}
}

// Read returns packets appended after lastID, blocking up to block when the
// stream has nothing new. An empty lastID reads from the beginning; a
// negative block returns immediately. A nil slice with a nil error means the
// wait timed out.
func (r *Reader) Read(ctx context.Context, lastID string, block time.Duration, count int64) ([]types.Packet, error) {
	msgs, err := r.bus.StreamRead(ctx, r.stream, lastID, block, count)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		return nil, nil
	}

	packets := make([]types.Packet, 0, len(msgs))
	for _, m := range msgs {
		pkt, err := parsePacket(m)
		if err != nil {
			return nil, err
		}
		packets = append(packets, pkt)
	}
	return packets, nil
}

// TrimBefore drops stream entries with ids strictly below minID.
func (r *Reader) TrimBefore(ctx context.Context, minID string) error {
	return r.bus.StreamTrimBefore(ctx, r.stream, minID)
}

func parsePacket(m redis.XMessage) (types.Packet, error) {
	pkt := types.Packet{StreamID: m.ID}
	if v, ok := m.Values["type"].(string); ok {
		pkt.Type = types.PacketType(v)
	}
	if v, ok := m.Values["result_id"].(string); ok {
		pkt.ResultID = v
	}
	if raw, ok := m.Values["data"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &pkt.Data); err != nil {
			return pkt, fmt.Errorf("decode packet %s: %w", m.ID, err)
		}
	}
	return pkt, nil
}
