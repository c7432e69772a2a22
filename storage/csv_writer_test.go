package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"x-scraper/models"
)

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "raw_posts.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}

	records := []*models.PostRecord{
		{
			ID:                "1234567890",
			DisplayName:       "Trader Jane",
			Handle:            "trader_jane",
			Username:          "trader_jane",
			TimestampISO:      "2024-01-15T10:30:00.000Z",
			TimestampRelative: "2h",
			Content:           "rally incoming #bullish",
			Hashtags:          []string{"#bullish"},
			Mentions:          []string{"@guru"},
			ReplyCount:        50,
			RetweetCount:      300,
			LikeCount:         1200,
			ViewCount:         45300,
			QueriedHashtag:    "#nifty50",
			SeenHashtags:      []string{"#nifty50", "#sensex"},
		},
	}

	if err := w.WriteRaw(records); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want header + 1 record", len(rows))
	}

	header := rows[0]
	if header[0] != "id" || header[13] != "_queried_hashtag" {
		t.Errorf("unexpected header: %v", header)
	}

	row := rows[1]
	if row[0] != "1234567890" || row[11] != "1200" || row[14] != "#nifty50 #sensex" {
		t.Errorf("unexpected row: %v", row)
	}
}
