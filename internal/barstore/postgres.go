package barstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"tradesim/pkg/types"
)

// insertChunkSize bounds the number of rows per INSERT statement so the
// parameter count stays well below the Postgres wire limit.
const insertChunkSize = 500

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and ensures the bars table exists.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}

	err = store.ensureSchema(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("barstore-connected",
		zap.String("backend", "postgres"),
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return store, nil
}

func (p *PostgresStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS bars (
			source    TEXT             NOT NULL,
			symbol    TEXT             NOT NULL,
			timeframe TEXT             NOT NULL,
			ts        BIGINT           NOT NULL,
			open      DOUBLE PRECISION NOT NULL,
			high      DOUBLE PRECISION NOT NULL,
			low       DOUBLE PRECISION NOT NULL,
			close     DOUBLE PRECISION NOT NULL,
			volume    DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (source, symbol, timeframe, ts)
		)
	`

	_, err := p.db.ExecContext(ctx, query)
	return err
}

// Insert persists bars in chunks, skipping rows whose key already exists.
func (p *PostgresStore) Insert(ctx context.Context, source, symbol string, timeframe types.Timeframe, bars []types.Bar) error {
	start := time.Now()

	for offset := 0; offset < len(bars); offset += insertChunkSize {
		end := offset + insertChunkSize
		if end > len(bars) {
			end = len(bars)
		}

		err := p.insertChunk(ctx, source, symbol, timeframe, bars[offset:end])
		if err != nil {
			return err
		}
	}

	BarsInsertedTotal.Add(float64(len(bars)))
	QueryDurationSeconds.WithLabelValues("insert").Observe(time.Since(start).Seconds())

	p.logger.Debug("bars-inserted",
		zap.String("source", source),
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("count", len(bars)))

	return nil
}

func (p *PostgresStore) insertChunk(ctx context.Context, source, symbol string, timeframe types.Timeframe, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO bars (source, symbol, timeframe, ts, open, high, low, close, volume) VALUES ")

	args := make([]any, 0, len(bars)*9)
	for i, bar := range bars {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)
		args = append(args,
			source, symbol, string(timeframe),
			bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	sb.WriteString(" ON CONFLICT DO NOTHING")

	_, err := p.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("insert bars: %w", err)
	}

	return nil
}

// Get returns bars in [t0, t1] inclusive, ordered by time ascending.
func (p *PostgresStore) Get(ctx context.Context, source, symbol string, timeframe types.Timeframe, t0, t1 int64) ([]types.Bar, error) {
	start := time.Now()

	query := `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE source = $1 AND symbol = $2 AND timeframe = $3 AND ts >= $4 AND ts <= $5
		ORDER BY ts ASC
	`

	rows, err := p.db.QueryContext(ctx, query, source, symbol, string(timeframe), t0, t1)
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
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-barstore", zap.String("backend", "postgres"))
	return p.db.Close()
}
