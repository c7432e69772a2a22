package services

import (
	"fmt"
	"sort"
	"strings"

	"x-scraper/config"
	"x-scraper/models"
	"x-scraper/utils"
)

// ReportService aggregates a finalized signal batch into the console report.
type ReportService struct {
	logger *utils.Logger
	cfg    config.SignalConfig
}

// NewReportService creates a ReportService with the given lexicon config.
func NewReportService(cfg config.SignalConfig, logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger, cfg: cfg}
}

// Generate computes the aggregate views over the batch: overview metrics,
// per-hashtag and per-hour mean composite signal, and TF-IDF top terms.
func (s *ReportService) Generate(sigs []models.SignalRecord) *models.BatchReport {
	report := &models.BatchReport{
		SignalByHashtag: make(map[string]float64),
		SignalByHour:    make(map[string]float64),
	}

	if len(sigs) == 0 {
		return report
	}

	report.TotalPosts = len(sigs)

	var sentSum, compSum, confSum float64
	bullish, bearish := 0, 0
	docs := make([]string, len(sigs))

	for i, sig := range sigs {
		sentSum += sig.SentimentScore
		compSum += sig.CompositeSignal
		confSum += sig.Confidence
		if sig.SentimentScore > 0 {
			bullish++
		} else if sig.SentimentScore < 0 {
			bearish++
		}
		docs[i] = sig.Content
	}

	n := float64(len(sigs))
	report.AvgSentiment = sentSum / n
	report.MeanComposite = compSum / n
	report.AvgConfidence = confSum / n
	report.BullishPct = 100 * float64(bullish) / n
	report.BearishPct = 100 * float64(bearish) / n

	report.SignalByHashtag = MeanCompositeByHashtag(sigs)
	report.SignalByHour = MeanCompositeByHour(sigs)

	tfidf := ComputeTFIDF(docs, s.cfg.TFIDF.MaxFeatures, s.cfg.TFIDF.MinDocFreq)
	report.TopTerms = tfidf.TopTerms(s.cfg.TFIDF.TopTerms)

	return report
}

// Print renders the report to the console.
func (s *ReportService) Print(r *models.BatchReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 TRADING SIGNAL REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Posts analyzed      : \033[1m%d\033[0m\n", r.TotalPosts)
	fmt.Printf("  Average sentiment   : \033[1m%.2f\033[0m (%s)\n", r.AvgSentiment, lean(r.AvgSentiment))
	fmt.Printf("  Bullish posts       : \033[1m%.1f%%\033[0m\n", r.BullishPct)
	fmt.Printf("  Bearish posts       : \033[1m%.1f%%\033[0m\n", r.BearishPct)
	fmt.Printf("  Mean composite      : \033[1m%.3f\033[0m (%s)\n", r.MeanComposite, verdict(r.MeanComposite))
	fmt.Printf("  Average confidence  : \033[1m%.1f%%\033[0m\n", r.AvgConfidence)
	fmt.Println()

	fmt.Printf("\033[1;33m  Composite Signal by Hashtag\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.SignalByHashtag) == 0 {
		fmt.Printf("  No hashtag data\n")
	} else {
		type tagSignal struct {
			tag    string
			signal float64
		}
		rows := make([]tagSignal, 0, len(r.SignalByHashtag))
		for tag, sig := range r.SignalByHashtag {
			rows = append(rows, tagSignal{tag, sig})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].signal > rows[j].signal })
		for _, row := range rows {
			fmt.Printf("  %-24s \033[1;32m%+.3f\033[0m  %s\n", truncate(row.tag, 22), row.signal, verdict(row.signal))
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Composite Signal by Hour (UTC)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.SignalByHour) == 0 {
		fmt.Printf("  No timestamped posts\n")
	} else {
		buckets := make([]string, 0, len(r.SignalByHour))
		for b := range r.SignalByHour {
			buckets = append(buckets, b)
		}
		sort.Strings(buckets)
		for _, b := range buckets {
			fmt.Printf("  %-20s %+.3f\n", b, r.SignalByHour[b])
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top TF-IDF Terms\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopTerms) == 0 {
		fmt.Printf("  Not enough text for term weighting\n")
	} else {
		for i, tw := range r.TopTerms {
			fmt.Printf("  \033[1m%2d.\033[0m %-24s %.3f\n", i+1, truncate(tw.Term, 22), tw.Weight)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func lean(sentiment float64) string {
	switch {
	case sentiment > 0:
		return "bullish"
	case sentiment < 0:
		return "bearish"
	default:
		return "neutral"
	}
}

func verdict(composite float64) string {
	switch {
	case composite > 0.1:
		return "Buy"
	case composite < -0.1:
		return "Sell"
	default:
		return "Neutral"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
