package services

import (
	"testing"
	"unicode/utf8"

	"x-scraper/config"
	"x-scraper/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"#nifty50", 22, "#nifty50"},
		{"#averyveryverylonghashtagindeed", 10, "#averyv..."},
		{"#निफ्टी५०बैंकिंगसेक्टरइंडेक्स", 10, "#निफ्टी..."},
	}

	for _, tt := range tests {
		got := truncate(tt.s, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8: %q", tt.s, tt.max, got)
		}
	}
}

func TestGenerateOverviewMetrics(t *testing.T) {
	svc := NewReportService(config.DefaultSignalConfig(), newTestLogger())

	sigs := []models.SignalRecord{
		{PostRecord: models.PostRecord{Content: "rally on", QueriedHashtag: "#a"},
			SentimentScore: 2, CompositeSignal: 0.5, Confidence: 80},
		{PostRecord: models.PostRecord{Content: "crash risk", QueriedHashtag: "#a"},
			SentimentScore: -1, CompositeSignal: -0.3, Confidence: 40},
		{PostRecord: models.PostRecord{Content: "flat day", QueriedHashtag: "#b"},
			SentimentScore: 0, CompositeSignal: 0.1, Confidence: 60},
	}

	r := svc.Generate(sigs)

	if r.TotalPosts != 3 {
		t.Errorf("total posts: got %d, want 3", r.TotalPosts)
	}
	if r.AvgSentiment != (2-1+0)/3.0 {
		t.Errorf("avg sentiment: got %v", r.AvgSentiment)
	}
	if r.BullishPct < 33.3 || r.BullishPct > 33.4 {
		t.Errorf("bullish pct: got %v, want one third", r.BullishPct)
	}
	if r.BearishPct < 33.3 || r.BearishPct > 33.4 {
		t.Errorf("bearish pct: got %v, want one third", r.BearishPct)
	}
	if len(r.SignalByHashtag) != 2 {
		t.Errorf("hashtag buckets: got %v", r.SignalByHashtag)
	}
}

func TestGenerateEmptyBatch(t *testing.T) {
	svc := NewReportService(config.DefaultSignalConfig(), newTestLogger())

	r := svc.Generate(nil)
	if r.TotalPosts != 0 || len(r.SignalByHashtag) != 0 || len(r.TopTerms) != 0 {
		t.Errorf("empty batch report: got %+v", r)
	}
}
