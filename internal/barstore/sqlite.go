package barstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"tradesim/pkg/types"
)

// SQLiteStore implements Store using an embedded SQLite database. It serves
// single-host deployments and tests; the schema mirrors the Postgres backend.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// SQLiteConfig holds SQLite configuration.
type SQLiteConfig struct {
	Path   string // file path, or ":memory:" for an ephemeral store
	Logger *zap.Logger
}

// NewSQLiteStore opens the database file and ensures the bars table exists.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must be
	// pinned to a single connection.
	db.SetMaxOpenConns(1)

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: cfg.Logger,
	}

	err = store.ensureSchema(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("barstore-connected",
		zap.String("backend", "sqlite"),
		zap.String("path", cfg.Path))

	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS bars (
			source    TEXT    NOT NULL,
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    REAL    NOT NULL,
			PRIMARY KEY (source, symbol, timeframe, ts)
		)
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Insert persists bars, skipping rows whose key already exists.
func (s *SQLiteStore) Insert(ctx context.Context, source, symbol string, timeframe types.Timeframe, bars []types.Bar) error {
	start := time.Now()

	for offset := 0; offset < len(bars); offset += insertChunkSize {
		end := offset + insertChunkSize
		if end > len(bars) {
			end = len(bars)
		}

		err := s.insertChunk(ctx, source, symbol, timeframe, bars[offset:end])
		if err != nil {
			return err
		}
	}

	BarsInsertedTotal.Add(float64(len(bars)))
	QueryDurationSeconds.WithLabelValues("insert").Observe(time.Since(start).Seconds())

	s.logger.Debug("bars-inserted",
		zap.String("source", source),
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("count", len(bars)))

	return nil
}

func (s *SQLiteStore) insertChunk(ctx context.Context, source, symbol string, timeframe types.Timeframe, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT OR IGNORE INTO bars (source, symbol, timeframe, ts, open, high, low, close, volume) VALUES ")

	args := make([]any, 0, len(bars)*9)
	for i, bar := range bars {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			source, symbol, string(timeframe),
			bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	_, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("insert bars: %w", err)
	}

	return nil
}

// Get returns bars in [t0, t1] inclusive, ordered by time ascending.
func (s *SQLiteStore) Get(ctx context.Context, source, symbol string, timeframe types.Timeframe, t0, t1 int64) ([]types.Bar, error) {
	start := time.Now()

	query := `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE source = ? AND symbol = ? AND timeframe = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.db.QueryContext(ctx, query, source, symbol, string(timeframe), t0, t1)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		var bar types.Bar
		err = rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	BarsReadTotal.Add(float64(len(bars)))
	QueryDurationSeconds.WithLabelValues("get").Observe(time.Since(start).Seconds())

	return bars, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing-barstore", zap.String("backend", "sqlite"))
	return s.db.Close()
}
