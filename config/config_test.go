package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseHashtags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"#nifty50,#sensex", []string{"#nifty50", "#sensex"}},
		{"nifty50, sensex", []string{"#nifty50", "#sensex"}},
		{" #banknifty ", []string{"#banknifty"}},
		{"a,,b", []string{"#a", "#b"}},
	}

	for _, tt := range tests {
		if got := parseHashtags(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseHashtags(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDefaultSignalConfig(t *testing.T) {
	sc := DefaultSignalConfig()

	if len(sc.Bullish) == 0 || len(sc.Bearish) == 0 {
		t.Fatal("default lexicon must not be empty")
	}
	if sc.EngagementWeights.Like != 1 || sc.EngagementWeights.Retweet != 2 || sc.EngagementWeights.Reply != 1.5 {
		t.Errorf("engagement weights: got %+v", sc.EngagementWeights)
	}
	if sc.CompositeWeights.Sentiment != 0.6 || sc.CompositeWeights.Engagement != 0.4 {
		t.Errorf("composite weights: got %+v", sc.CompositeWeights)
	}
	if sc.TFIDF.MaxFeatures != 50 || sc.TFIDF.MinDocFreq != 2 {
		t.Errorf("tfidf defaults: got %+v", sc.TFIDF)
	}
}

func TestLoadSignalConfigEmptyPath(t *testing.T) {
	sc, err := LoadSignalConfig("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if !reflect.DeepEqual(sc, DefaultSignalConfig()) {
		t.Error("empty path should return the defaults")
	}
}

func TestLoadSignalConfigOverridesLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	yaml := `
bullish: [breakout, squeeze]
bearish: [capitulation]
composite_weights:
  sentiment: 0.7
  engagement: 0.3
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadSignalConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !reflect.DeepEqual(sc.Bullish, []string{"breakout", "squeeze"}) {
		t.Errorf("bullish: got %v", sc.Bullish)
	}
	if !reflect.DeepEqual(sc.Bearish, []string{"capitulation"}) {
		t.Errorf("bearish: got %v", sc.Bearish)
	}
	if sc.CompositeWeights.Sentiment != 0.7 || sc.CompositeWeights.Engagement != 0.3 {
		t.Errorf("composite weights: got %+v", sc.CompositeWeights)
	}

	// Omitted sections keep the defaults.
	def := DefaultSignalConfig()
	if sc.EngagementWeights != def.EngagementWeights {
		t.Errorf("engagement weights: got %+v, want defaults", sc.EngagementWeights)
	}
	if sc.TFIDF != def.TFIDF {
		t.Errorf("tfidf: got %+v, want defaults", sc.TFIDF)
	}
}

func TestLoadSignalConfigPartialWeightsKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	yaml := `
engagement_weights:
  like: 2
composite_weights:
  sentiment: 0.8
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadSignalConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if sc.EngagementWeights.Like != 2 {
		t.Errorf("like weight: got %v, want 2", sc.EngagementWeights.Like)
	}
	if sc.EngagementWeights.Retweet != 2 || sc.EngagementWeights.Reply != 1.5 {
		t.Errorf("omitted engagement weights must keep defaults, got %+v", sc.EngagementWeights)
	}
	if sc.CompositeWeights.Sentiment != 0.8 {
		t.Errorf("sentiment weight: got %v, want 0.8", sc.CompositeWeights.Sentiment)
	}
	if sc.CompositeWeights.Engagement != 0.4 {
		t.Errorf("omitted engagement composite weight must keep default, got %v", sc.CompositeWeights.Engagement)
	}
}

func TestLoadSignalConfigMissingFile(t *testing.T) {
	if _, err := LoadSignalConfig("/nonexistent/lexicon.yaml"); err == nil {
		t.Error("missing file must return an error")
	}
}

func TestDSN(t *testing.T) {
	c := &Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "signals_db",
		PostgresSSLMode:  "disable",
	}

	want := "host=db port=5433 user=u password=p dbname=signals_db sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
