package services

import (
	"regexp"
	"sort"
	"time"

	"x-scraper/config"
	"x-scraper/models"
	"x-scraper/utils"
)

// BatchStatus tells the caller whether a batch produced signals.
type BatchStatus int

const (
	StatusOK BatchStatus = iota
	// StatusNoData marks a hashtag that produced zero records after
	// collection; the engine returns it instead of dividing by zero.
	StatusNoData
)

// SignalEngine computes per-record sentiment, engagement, normalized forms,
// composite signal and confidence over one canonical record set. Keyword
// lists and weights are injected at construction, never ambient state.
type SignalEngine struct {
	logger  *utils.Logger
	cfg     config.SignalConfig
	bullish []*regexp.Regexp
	bearish []*regexp.Regexp
}

// NewSignalEngine compiles the keyword lexicon into whole-word matchers.
func NewSignalEngine(cfg config.SignalConfig, logger *utils.Logger) *SignalEngine {
	return &SignalEngine{
		logger:  logger,
		cfg:     cfg,
		bullish: compileKeywords(cfg.Bullish),
		bearish: compileKeywords(cfg.Bearish),
	}
}

func compileKeywords(words []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		// Whole-word boundaries keep "bull" from matching inside "bullish".
		res = append(res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return res
}

// Analyze produces one SignalRecord per canonical PostRecord. The input is
// not mutated. An empty batch yields (nil, StatusNoData).
func (e *SignalEngine) Analyze(records []*models.PostRecord) ([]models.SignalRecord, BatchStatus) {
	if len(records) == 0 {
		return nil, StatusNoData
	}

	out := make([]models.SignalRecord, len(records))
	sentiments := make([]float64, len(records))
	engagements := make([]float64, len(records))

	for i, rec := range records {
		sentiments[i] = e.SentimentScore(rec.Content)
		engagements[i] = e.EngagementSignal(rec)
	}

	sentNorm := minMaxSigned(sentiments)
	engNorm := minMaxUnit(engagements)

	sortedEng := append([]float64(nil), engagements...)
	sort.Float64s(sortedEng)

	ws, we := e.cfg.CompositeWeights.Sentiment, e.cfg.CompositeWeights.Engagement
	for i, rec := range records {
		out[i] = models.SignalRecord{
			PostRecord:           *rec,
			SentimentScore:       sentiments[i],
			EngagementSignal:     engagements[i],
			SentimentSignalNorm:  sentNorm[i],
			EngagementSignalNorm: engNorm[i],
			CompositeSignal:      ws*sentNorm[i] + we*engNorm[i],
			Confidence:           confidence(engagements[i], sortedEng),
		}
	}

	e.logger.Info("[signal] batch finalized: %d records scored", len(out))
	return out, StatusOK
}

// SentimentScore counts whole-word bullish hits minus bearish hits in the
// content, case-insensitive; each occurrence counts.
func (e *SignalEngine) SentimentScore(content string) float64 {
	score := 0
	for _, re := range e.bullish {
		score += len(re.FindAllStringIndex(content, -1))
	}
	for _, re := range e.bearish {
		score -= len(re.FindAllStringIndex(content, -1))
	}
	return float64(score)
}

// EngagementSignal is the weighted sum of likes, retweets and replies.
// Views are informational only and never enter the formula.
func (e *SignalEngine) EngagementSignal(rec *models.PostRecord) float64 {
	w := e.cfg.EngagementWeights
	return float64(rec.LikeCount)*w.Like +
		float64(rec.RetweetCount)*w.Retweet +
		float64(rec.ReplyCount)*w.Reply
}

// minMaxUnit min-max normalizes values into [0,1]. Zero range maps every
// value to the midpoint 0.5.
func minMaxUnit(vals []float64) []float64 {
	lo, hi := bounds(vals)
	out := make([]float64, len(vals))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range vals {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// minMaxSigned min-max normalizes values into [-1,1]. Zero range maps every
// value to the midpoint 0.
func minMaxSigned(vals []float64) []float64 {
	lo, hi := bounds(vals)
	out := make([]float64, len(vals))
	if hi == lo {
		return out
	}
	for i, v := range vals {
		out[i] = 2*(v-lo)/(hi-lo) - 1
	}
	return out
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// confidence is the percentile rank of the record's engagement within the
// batch, scaled to [0,100]. Zero engagement always means zero confidence.
func confidence(engagement float64, sortedEng []float64) float64 {
	if engagement == 0 {
		return 0
	}
	n := len(sortedEng)
	atOrBelow := sort.Search(n, func(i int) bool { return sortedEng[i] > engagement })
	return 100 * float64(atOrBelow) / float64(n)
}

// MeanCompositeByHashtag averages the composite signal per queried hashtag.
func MeanCompositeByHashtag(sigs []models.SignalRecord) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range sigs {
		sums[s.QueriedHashtag] += s.CompositeSignal
		counts[s.QueriedHashtag]++
	}
	out := make(map[string]float64, len(sums))
	for tag, sum := range sums {
		out[tag] = sum / float64(counts[tag])
	}
	return out
}

// MeanCompositeByHour averages the composite signal per UTC hour bucket.
// Records without a parsable machine timestamp are excluded.
func MeanCompositeByHour(sigs []models.SignalRecord) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range sigs {
		if s.TimestampISO == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s.TimestampISO)
		if err != nil {
			continue
		}
		bucket := t.UTC().Format("2006-01-02 15:00")
		sums[bucket] += s.CompositeSignal
		counts[bucket]++
	}
	out := make(map[string]float64, len(sums))
	for bucket, sum := range sums {
		out[bucket] = sum / float64(counts[bucket])
	}
	return out
}
