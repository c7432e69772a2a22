package models

import "time"

// RawSnapshot is one captured HTML rendering of a hashtag feed at a point in
// scrolling progress. It is owned by the pipeline for the duration of one
// extraction call and never stored.
type RawSnapshot struct {
	Hashtag    string
	HTML       string
	Seq        int
	CapturedAt time.Time
}

// FieldStatus tags the outcome of extracting a single field from a post
// container, making the default-on-failure policy explicit per field.
type FieldStatus int

const (
	FieldOK FieldStatus = iota
	FieldMissing
	FieldMalformed
)

// Field is a tagged text extraction result.
type Field struct {
	Value  string
	Status FieldStatus
}

// CountField is a tagged numeric extraction result. N is always usable:
// missing or malformed counts default to 0, never nil-propagated.
type CountField struct {
	N      int
	Status FieldStatus
}

// PostRecord is the canonical unit produced by the extractor and merged by
// the deduplicator. Once a batch is finalized it is immutable input to the
// signal engine.
type PostRecord struct {
	ID                string
	DisplayName       string
	Handle            string
	Username          string
	TimestampISO      string
	TimestampRelative string
	Content           string
	Hashtags          []string
	Mentions          []string
	ReplyCount        int
	RetweetCount      int
	LikeCount         int
	ViewCount         int

	// QueriedHashtag is the first hashtag whose search surfaced this post.
	// SeenHashtags accumulates every distinct hashtag that surfaced it, in
	// first-seen order (QueriedHashtag is always SeenHashtags[0]).
	QueriedHashtag string
	SeenHashtags   []string
}

// SignalRecord is a PostRecord annotated with the computed trading signal.
// It is a new entity; the engine never mutates the underlying PostRecord.
type SignalRecord struct {
	PostRecord

	SentimentScore       float64
	EngagementSignal     float64
	EngagementSignalNorm float64
	SentimentSignalNorm  float64
	CompositeSignal      float64
	Confidence           float64
}

// ExtractStats holds per-snapshot extraction diagnostics.
type ExtractStats struct {
	Containers       int
	Extracted        int
	Skipped          int
	UnparsableCounts int
}

// Add accumulates stats across snapshots.
func (s *ExtractStats) Add(other ExtractStats) {
	s.Containers += other.Containers
	s.Extracted += other.Extracted
	s.Skipped += other.Skipped
	s.UnparsableCounts += other.UnparsableCounts
}

// BatchReport holds the computed analytics over a finalized signal batch.
type BatchReport struct {
	TotalPosts      int
	AvgSentiment    float64
	BullishPct      float64
	BearishPct      float64
	MeanComposite   float64
	AvgConfidence   float64
	SignalByHashtag map[string]float64
	SignalByHour    map[string]float64
	TopTerms        []TermWeight
}

// TermWeight is one TF-IDF vocabulary term with its batch-wide weight.
type TermWeight struct {
	Term   string
	Weight float64
}
