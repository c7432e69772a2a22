package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	XUsername string
	XPassword string
	Hashtags  []string

	TargetPerTag   int
	MaxScrolls     int
	ScrollPauseMs  int
	MaxConcurrency int
	MaxRetries     int

	Headless  bool
	ChromeBin string

	CSVOutputPath string
	OutputDir     string
	LexiconPath   string

	Signal SignalConfig
}

// SignalConfig holds the signal-engine parameters: the sentiment keyword
// lists, the engagement weight triple and the composite weight pair. Loaded
// from a YAML file when LEXICON_PATH is set, otherwise built-in defaults apply.
type SignalConfig struct {
	Bullish []string `yaml:"bullish"`
	Bearish []string `yaml:"bearish"`

	EngagementWeights struct {
		Like    float64 `yaml:"like"`
		Retweet float64 `yaml:"retweet"`
		Reply   float64 `yaml:"reply"`
	} `yaml:"engagement_weights"`

	CompositeWeights struct {
		Sentiment  float64 `yaml:"sentiment"`
		Engagement float64 `yaml:"engagement"`
	} `yaml:"composite_weights"`

	TFIDF struct {
		MaxFeatures int `yaml:"max_features"`
		MinDocFreq  int `yaml:"min_doc_freq"`
		TopTerms    int `yaml:"top_terms"`
	} `yaml:"tfidf"`
}

// DefaultSignalConfig returns the stock lexicon and weights.
func DefaultSignalConfig() SignalConfig {
	var sc SignalConfig
	sc.Bullish = []string{
		"bullish", "buy", "long", "moon", "pump", "rally", "surge",
		"gain", "profit", "up", "high", "rise", "bull",
	}
	sc.Bearish = []string{
		"bearish", "sell", "short", "dump", "crash", "drop",
		"loss", "down", "low", "fall", "bear",
	}
	sc.EngagementWeights.Like = 1
	sc.EngagementWeights.Retweet = 2
	sc.EngagementWeights.Reply = 1.5
	sc.CompositeWeights.Sentiment = 0.6
	sc.CompositeWeights.Engagement = 0.4
	sc.TFIDF.MaxFeatures = 50
	sc.TFIDF.MinDocFreq = 2
	sc.TFIDF.TopTerms = 20
	return sc
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "signals_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		XUsername: getEnv("X_USERNAME", ""),
		XPassword: getEnv("X_PASSWORD", ""),
		Hashtags:  parseHashtags(getEnv("HASHTAGS", "#nifty50,#sensex,#stockmarket")),

		TargetPerTag:   getEnvInt("TARGET_PER_TAG", 30),
		MaxScrolls:     getEnvInt("MAX_SCROLLS", 300),
		ScrollPauseMs:  getEnvInt("SCROLL_PAUSE_MS", 800),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		Headless:  getEnvBool("HEADLESS", true),
		ChromeBin: getEnv("CHROME_BIN", ""),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_posts.csv"),
		OutputDir:     getEnv("OUTPUT_DIR", "./io"),
		LexiconPath:   getEnv("LEXICON_PATH", ""),
	}

	sc, err := LoadSignalConfig(cfg.LexiconPath)
	if err != nil {
		log.Printf("[config] Lexicon file %q unusable (%v), using defaults", cfg.LexiconPath, err)
		sc = DefaultSignalConfig()
	}
	cfg.Signal = sc

	return cfg
}

// LoadSignalConfig reads a YAML lexicon file, filling any omitted section
// with the defaults. An empty path returns the defaults outright.
func LoadSignalConfig(path string) (SignalConfig, error) {
	sc := DefaultSignalConfig()
	if path == "" {
		return sc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}

	var loaded SignalConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return sc, err
	}

	if len(loaded.Bullish) > 0 {
		sc.Bullish = loaded.Bullish
	}
	if len(loaded.Bearish) > 0 {
		sc.Bearish = loaded.Bearish
	}
	// Weights merge per field: a section naming only some weights keeps the
	// defaults for the rest.
	if loaded.EngagementWeights.Like > 0 {
		sc.EngagementWeights.Like = loaded.EngagementWeights.Like
	}
	if loaded.EngagementWeights.Retweet > 0 {
		sc.EngagementWeights.Retweet = loaded.EngagementWeights.Retweet
	}
	if loaded.EngagementWeights.Reply > 0 {
		sc.EngagementWeights.Reply = loaded.EngagementWeights.Reply
	}
	if loaded.CompositeWeights.Sentiment > 0 {
		sc.CompositeWeights.Sentiment = loaded.CompositeWeights.Sentiment
	}
	if loaded.CompositeWeights.Engagement > 0 {
		sc.CompositeWeights.Engagement = loaded.CompositeWeights.Engagement
	}
	if loaded.TFIDF.MaxFeatures > 0 {
		sc.TFIDF.MaxFeatures = loaded.TFIDF.MaxFeatures
	}
	if loaded.TFIDF.MinDocFreq > 0 {
		sc.TFIDF.MinDocFreq = loaded.TFIDF.MinDocFreq
	}
	if loaded.TFIDF.TopTerms > 0 {
		sc.TFIDF.TopTerms = loaded.TFIDF.TopTerms
	}

	return sc, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// parseHashtags splits a comma-separated list, prefixing "#" where missing.
func parseHashtags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "#") {
			p = "#" + p
		}
		tags = append(tags, p)
	}
	return tags
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
