package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradesim/internal/barstore"
	"tradesim/internal/bus"
	"tradesim/internal/fetcher"
	"tradesim/pkg/types"
)

// popInterval bounds how long the dispatcher blocks on the inbound queue
// between shutdown checks.
const popInterval = time.Second

// Service serves bar-range requests from a durable inbound queue. Requests
// are dispatched concurrently; gap-filling is serialized per
// (source, symbol, timeframe) key so concurrent requests on the same key
// never duplicate upstream fetches.
type Service struct {
	bus         *bus.Bus
	store       barstore.Store
	fetcher     *fetcher.Fetcher
	locks       *keyLock
	queue       string
	replyPrefix string
	replyTTL    time.Duration
	logger      *zap.Logger

	wg sync.WaitGroup
}

// Config holds configuration for the quotes service.
type Config struct {
	Bus         *bus.Bus
	Store       barstore.Store
	Fetcher     *fetcher.Fetcher
	Queue       string
	ReplyPrefix string
	ReplyTTL    time.Duration
	Logger      *zap.Logger
}

// New creates a quotes service.
func New(cfg *Config) *Service {
	return &Service{
		bus:         cfg.Bus,
		store:       cfg.Store,
		fetcher:     cfg.Fetcher,
		locks:       newKeyLock(),
		queue:       cfg.Queue,
		replyPrefix: cfg.ReplyPrefix,
		replyTTL:    cfg.ReplyTTL,
		logger:      cfg.Logger,
	}
}

// Run clears stale queues and serves requests until ctx is canceled.
// Dropping in-flight requests across restarts is deliberate: the service is
// at-most-once and clients own the retry.
func (s *Service) Run(ctx context.Context) error {
	err := s.clearStale(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("quotes-service-started", zap.String("queue", s.queue))

	for {
		payload, err := s.bus.QueuePop(ctx, s.queue, popInterval)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			s.logger.Error("queue-pop-failed", zap.Error(err))
			time.Sleep(popInterval)
			continue
		}
		if payload == nil {
			continue
		}

		s.wg.Add(1)
		go s.handle(ctx, payload)
	}

	s.wg.Wait()
	s.logger.Info("quotes-service-stopped")
	return nil
}

func (s *Service) clearStale(ctx context.Context) error {
	for _, pattern := range []string{s.queue, s.replyPrefix + ":*"} {
		removed, err := s.bus.ClearPattern(ctx, pattern)
		if err != nil {
			return fmt.Errorf("clear pattern %s: %w", pattern, err)
		}
		if removed > 0 {
			s.logger.Info("stale-keys-cleared",
				zap.String("pattern", pattern),
				zap.Int("count", removed))
		}
	}
	return nil
}

func (s *Service) handle(ctx context.Context, payload []byte) {
	defer s.wg.Done()

	start := time.Now()

	req, err := DecodeRequest(payload)
	if err != nil {
		// Without a request id there is no reply slot to answer on.
		RequestErrorsTotal.Inc()
		s.logger.Error("undecodable-request", zap.Error(err))
		return
	}

	series, err := s.serve(ctx, req)

	var blob []byte
	var encErr error
	if err != nil {
		RequestErrorsTotal.Inc()
		s.logger.Warn("request-failed",
			zap.String("request-id", req.RequestID),
			zap.String("symbol", req.Symbol),
			zap.Error(err))
		blob, encErr = EncodeErrorReply(err.Error())
	} else {
		RequestsTotal.Inc()
		blob, encErr = EncodeSeriesReply(series)
	}
	if encErr != nil {
		s.logger.Error("encode-reply-failed", zap.Error(encErr))
		return
	}

	err = s.bus.ReplyPush(ctx, s.replyKey(req.RequestID), blob, s.replyTTL)
	if err != nil {
		s.logger.Error("reply-push-failed",
			zap.String("request-id", req.RequestID),
			zap.Error(err))
		return
	}

	RequestDurationSeconds.Observe(time.Since(start).Seconds())
}

func (s *Service) replyKey(requestID string) string {
	return s.replyPrefix + ":" + requestID
}

func (s *Service) serve(ctx context.Context, req *Request) (*types.Series, error) {
	if !req.Timeframe.Valid() {
		return nil, fmt.Errorf("unknown timeframe %q", req.Timeframe)
	}

	step := req.Timeframe.Millis()
	t0 := req.Timeframe.Align(req.HistoryStart)

	var t1 int64
	if req.HistoryEnd != nil {
		t1 = req.Timeframe.Align(*req.HistoryEnd)
	} else {
		t1 = req.Timeframe.Align(time.Now().UnixMilli())
	}
	if t0 > t1 {
		return nil, fmt.Errorf("invalid range: %d > %d", t0, t1)
	}

	key := req.Source + ":" + req.Symbol + ":" + string(req.Timeframe)
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	bars, err := s.store.Get(ctx, req.Source, req.Symbol, req.Timeframe, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}

	times := make([]int64, len(bars))
	for i, bar := range bars {
		times[i] = bar.Time
	}

	gaps := FindGaps(times, t0, t1, step)
	for _, gap := range gaps {
		err = s.fetcher.FillRange(ctx, req.Source, req.Symbol, req.Timeframe, gap.Start, gap.End)
		if err != nil {
			return nil, err
		}
	}

	if len(gaps) > 0 {
		GapsFilledTotal.Add(float64(len(gaps)))

		bars, err = s.store.Get(ctx, req.Source, req.Symbol, req.Timeframe, t0, t1)
		if err != nil {
			return nil, fmt.Errorf("query bars: %w", err)
		}
	}

	return types.NewSeries(bars), nil
}
