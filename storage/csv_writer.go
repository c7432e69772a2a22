package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"x-scraper/models"
)

// CSVWriter dumps canonical post records to a CSV file before signal
// computation. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"id", "display_name", "handle", "username",
		"timestamp_iso", "timestamp_relative", "content",
		"hashtags", "mentions",
		"reply_count", "retweet_count", "like_count", "view_count",
		"_queried_hashtag", "seen_hashtags",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends canonical post records to the CSV file.
func (c *CSVWriter) WriteRaw(records []*models.PostRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			r.ID,
			r.DisplayName,
			r.Handle,
			r.Username,
			r.TimestampISO,
			r.TimestampRelative,
			r.Content,
			strings.Join(r.Hashtags, " "),
			strings.Join(r.Mentions, " "),
			strconv.Itoa(r.ReplyCount),
			strconv.Itoa(r.RetweetCount),
			strconv.Itoa(r.LikeCount),
			strconv.Itoa(r.ViewCount),
			r.QueriedHashtag,
			strings.Join(r.SeenHashtags, " "),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
