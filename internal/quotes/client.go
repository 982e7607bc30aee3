package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/pkg/types"
)

// Client requests dense bar series from the quotes service over the bus.
type Client struct {
	bus         *bus.Bus
	queue       string
	replyPrefix string
	timeout     time.Duration
	logger      *zap.Logger
}

// ClientConfig holds configuration for the quotes client.
type ClientConfig struct {
	Bus         *bus.Bus
	Queue       string
	ReplyPrefix string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewClient creates a quotes client.
func NewClient(cfg *ClientConfig) *Client {
	return &Client{
		bus:         cfg.Bus,
		queue:       cfg.Queue,
		replyPrefix: cfg.ReplyPrefix,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// GetQuotes fetches the dense series covering [start, end] in milliseconds.
// An end of zero means "until now". Fails with types.ErrDataNotReceived on
// reply timeout or an error reply.
func (c *Client) GetQuotes(ctx context.Context, source, symbol string, timeframe types.Timeframe, start, end int64) (*types.Series, error) {
	req := &Request{
		RequestID:    uuid.NewString(),
		Source:       source,
		Symbol:       symbol,
		Timeframe:    timeframe,
		HistoryStart: start,
	}
	if end != 0 {
		req.HistoryEnd = &end
	}

	blob, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	err = c.bus.QueuePush(ctx, c.queue, blob)
	if err != nil {
		return nil, fmt.Errorf("enqueue request: %w", err)
	}

	c.logger.Debug("quotes-requested",
		zap.String("request-id", req.RequestID),
		zap.String("source", source),
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)))

	payload, err := c.bus.ReplyPop(ctx, c.replyPrefix+":"+req.RequestID, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("await reply: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: reply timeout after %s", types.ErrDataNotReceived, c.timeout)
	}

	reply, series, err := DecodeReply(payload)
	if err != nil {
		return nil, err
	}
	if reply.Metadata.Status != StatusOK {
		return nil, fmt.Errorf("%w: %s", types.ErrDataNotReceived, reply.Metadata.Error)
	}

	return series, nil
}
