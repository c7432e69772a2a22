package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"x-scraper/models"
)

// PostgresWriter persists finished signal records to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id                     SERIAL PRIMARY KEY,
			post_id                TEXT UNIQUE NOT NULL,
			display_name           TEXT NOT NULL DEFAULT '',
			handle                 TEXT NOT NULL DEFAULT '',
			username               TEXT NOT NULL DEFAULT '',
			timestamp_iso          TEXT NOT NULL DEFAULT '',
			timestamp_relative     TEXT NOT NULL DEFAULT '',
			content                TEXT NOT NULL DEFAULT '',
			hashtags               TEXT[] NOT NULL DEFAULT '{}',
			mentions               TEXT[] NOT NULL DEFAULT '{}',
			reply_count            INTEGER NOT NULL DEFAULT 0,
			retweet_count          INTEGER NOT NULL DEFAULT 0,
			like_count             INTEGER NOT NULL DEFAULT 0,
			view_count             BIGINT  NOT NULL DEFAULT 0,
			queried_hashtag        TEXT NOT NULL DEFAULT '',
			seen_hashtags          TEXT[] NOT NULL DEFAULT '{}',
			sentiment_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
			engagement_signal      DOUBLE PRECISION NOT NULL DEFAULT 0,
			engagement_signal_norm DOUBLE PRECISION NOT NULL DEFAULT 0,
			sentiment_signal_norm  DOUBLE PRECISION NOT NULL DEFAULT 0,
			composite_signal       DOUBLE PRECISION NOT NULL DEFAULT 0,
			confidence             DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_signals_hashtag   ON signals(queried_hashtag);
		CREATE INDEX IF NOT EXISTS idx_signals_composite ON signals(composite_signal);
	`)
	return err
}

// Clear deletes all existing signals from the table.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM signals")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write batch-inserts the whole signal batch, clearing the previous run first.
func (pw *PostgresWriter) Write(signals []models.SignalRecord) error {
	if len(signals) == 0 {
		return nil
	}

	if err := pw.Clear(); err != nil {
		return err
	}

	const batchSize = 50
	for i := 0; i < len(signals); i += batchSize {
		end := i + batchSize
		if end > len(signals) {
			end = len(signals)
		}
		if err := pw.insertBatch(signals[i:end]); err != nil {
			return err
		}
	}
	return nil
}

const signalColumns = 21

func (pw *PostgresWriter) insertBatch(batch []models.SignalRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*signalColumns)

	for idx, s := range batch {
		base := idx * signalColumns
		ph := make([]string, signalColumns)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		valueArgs = append(valueArgs,
			s.ID, s.DisplayName, s.Handle, s.Username,
			s.TimestampISO, s.TimestampRelative, s.Content,
			pq.Array(s.Hashtags), pq.Array(s.Mentions),
			s.ReplyCount, s.RetweetCount, s.LikeCount, s.ViewCount,
			s.QueriedHashtag, pq.Array(s.SeenHashtags),
			s.SentimentScore, s.EngagementSignal,
			s.EngagementSignalNorm, s.SentimentSignalNorm,
			s.CompositeSignal, s.Confidence,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO signals (
			post_id, display_name, handle, username,
			timestamp_iso, timestamp_relative, content,
			hashtags, mentions,
			reply_count, retweet_count, like_count, view_count,
			queried_hashtag, seen_hashtags,
			sentiment_score, engagement_signal,
			engagement_signal_norm, sentiment_signal_norm,
			composite_signal, confidence
		)
		VALUES %s
		ON CONFLICT (post_id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

// FetchAll retrieves all stored signals ordered by insertion.
func (pw *PostgresWriter) FetchAll() ([]models.SignalRecord, error) {
	rows, err := pw.db.Query(`
		SELECT post_id, display_name, handle, username,
		       timestamp_iso, timestamp_relative, content,
		       hashtags, mentions,
		       reply_count, retweet_count, like_count, view_count,
		       queried_hashtag, seen_hashtags,
		       sentiment_score, engagement_signal,
		       engagement_signal_norm, sentiment_signal_norm,
		       composite_signal, confidence
		FROM signals
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var signals []models.SignalRecord
	for rows.Next() {
		var s models.SignalRecord
		if err := rows.Scan(
			&s.ID, &s.DisplayName, &s.Handle, &s.Username,
			&s.TimestampISO, &s.TimestampRelative, &s.Content,
			pq.Array(&s.Hashtags), pq.Array(&s.Mentions),
			&s.ReplyCount, &s.RetweetCount, &s.LikeCount, &s.ViewCount,
			&s.QueriedHashtag, pq.Array(&s.SeenHashtags),
			&s.SentimentScore, &s.EngagementSignal,
			&s.EngagementSignalNorm, &s.SentimentSignalNorm,
			&s.CompositeSignal, &s.Confidence,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// Close closes the database connection.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
