package services

import (
	"x-scraper/models"
	"x-scraper/utils"
)

// Merger combines records captured across overlapping snapshots into one
// canonical set keyed by post id. Identity and content fields keep their
// first-observed values; count fields keep the maximum ever observed, which
// rides out transient render truncation (counts only grow in the wild).
// Output order is insertion order of first sighting.
type Merger struct {
	logger *utils.Logger

	order []string
	byID  map[string]*models.PostRecord

	conflicts int
}

// NewMerger creates an empty Merger.
func NewMerger(logger *utils.Logger) *Merger {
	return &Merger{
		logger: logger,
		byID:   make(map[string]*models.PostRecord),
	}
}

// Merge folds a batch of freshly extracted records into the canonical set.
// Records without an id are ignored (the extractor always synthesizes one,
// so this only guards direct misuse).
func (m *Merger) Merge(records []*models.PostRecord) {
	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}

		existing, ok := m.byID[rec.ID]
		if !ok {
			cp := *rec
			cp.Hashtags = append([]string(nil), rec.Hashtags...)
			cp.Mentions = append([]string(nil), rec.Mentions...)
			cp.SeenHashtags = append([]string(nil), rec.SeenHashtags...)
			m.byID[rec.ID] = &cp
			m.order = append(m.order, rec.ID)
			continue
		}

		m.conflicts++
		m.logger.Debug("[merge] duplicate id %s: keeping first identity, max counts", rec.ID)

		existing.ReplyCount = max(existing.ReplyCount, rec.ReplyCount)
		existing.RetweetCount = max(existing.RetweetCount, rec.RetweetCount)
		existing.LikeCount = max(existing.LikeCount, rec.LikeCount)
		existing.ViewCount = max(existing.ViewCount, rec.ViewCount)

		for _, tag := range rec.SeenHashtags {
			if !contains(existing.SeenHashtags, tag) {
				existing.SeenHashtags = append(existing.SeenHashtags, tag)
			}
		}
	}
}

// Canonical returns the deduplicated set in first-sighting order.
func (m *Merger) Canonical() []*models.PostRecord {
	out := make([]*models.PostRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Conflicts reports how many duplicate-id merges were resolved.
func (m *Merger) Conflicts() int {
	return m.conflicts
}

// Size returns the number of canonical records accumulated so far.
func (m *Merger) Size() int {
	return len(m.order)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
