package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"x-scraper/models"
)

// SignalRow is the columnar layout of one SignalRecord: the post fields,
// the six signal fields and the queried hashtag.
type SignalRow struct {
	ID                string   `parquet:"id"`
	DisplayName       string   `parquet:"display_name"`
	Handle            string   `parquet:"handle"`
	Username          string   `parquet:"username"`
	TimestampISO      string   `parquet:"timestamp_iso"`
	TimestampRelative string   `parquet:"timestamp_relative"`
	Content           string   `parquet:"content"`
	Hashtags          []string `parquet:"hashtags,list"`
	Mentions          []string `parquet:"mentions,list"`
	ReplyCount        int64    `parquet:"reply_count"`
	RetweetCount      int64    `parquet:"retweet_count"`
	LikeCount         int64    `parquet:"like_count"`
	ViewCount         int64    `parquet:"view_count"`

	SentimentScore       float64 `parquet:"sentiment_score"`
	EngagementSignal     float64 `parquet:"engagement_signal"`
	EngagementSignalNorm float64 `parquet:"engagement_signal_norm"`
	SentimentSignalNorm  float64 `parquet:"sentiment_signal_norm"`
	CompositeSignal      float64 `parquet:"composite_signal"`
	Confidence           float64 `parquet:"confidence"`

	QueriedHashtag string   `parquet:"_queried_hashtag"`
	SeenHashtags   []string `parquet:"seen_hashtags,list"`
}

// ParquetWriter persists the finished signal table to one Parquet file per
// run-date, mirroring the io/<dd-mm-yyyy>/signals.parquet layout the
// downstream dashboard consumes.
type ParquetWriter struct {
	path string
}

// NewParquetWriter resolves today's output path under baseDir and creates
// the run-date directory.
func NewParquetWriter(baseDir string) (*ParquetWriter, error) {
	dir := filepath.Join(baseDir, time.Now().Format("02-01-2006"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("parquet: create output dir: %w", err)
	}
	return &ParquetWriter{path: filepath.Join(dir, "signals.parquet")}, nil
}

// Path returns the resolved output file path.
func (p *ParquetWriter) Path() string {
	return p.path
}

// Write serializes the whole batch to the Parquet file, replacing any
// previous run from the same date.
func (p *ParquetWriter) Write(signals []models.SignalRecord) error {
	f, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("parquet: create file %q: %w", p.path, err)
	}

	w := parquet.NewGenericWriter[SignalRow](f)

	rows := make([]SignalRow, len(signals))
	for i, s := range signals {
		rows[i] = SignalRow{
			ID:                s.ID,
			DisplayName:       s.DisplayName,
			Handle:            s.Handle,
			Username:          s.Username,
			TimestampISO:      s.TimestampISO,
			TimestampRelative: s.TimestampRelative,
			Content:           s.Content,
			Hashtags:          s.Hashtags,
			Mentions:          s.Mentions,
			ReplyCount:        int64(s.ReplyCount),
			RetweetCount:      int64(s.RetweetCount),
			LikeCount:         int64(s.LikeCount),
			ViewCount:         int64(s.ViewCount),

			SentimentScore:       s.SentimentScore,
			EngagementSignal:     s.EngagementSignal,
			EngagementSignalNorm: s.EngagementSignalNorm,
			SentimentSignalNorm:  s.SentimentSignalNorm,
			CompositeSignal:      s.CompositeSignal,
			Confidence:           s.Confidence,

			QueriedHashtag: s.QueriedHashtag,
			SeenHashtags:   s.SeenHashtags,
		}
	}

	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			_ = f.Close()
			return fmt.Errorf("parquet: write rows: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("parquet: close writer: %w", err)
	}
	return f.Close()
}

// Close satisfies SignalWriter; the file handle lives only inside Write.
func (p *ParquetWriter) Close() error {
	return nil
}
