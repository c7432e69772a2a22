package pipeline

import (
	"errors"
	"fmt"

	"x-scraper/models"
	"x-scraper/services"
	"x-scraper/utils"
)

// State is the lifecycle stage of one hashtag's pipeline.
type State int

const (
	StatePending State = iota
	StateCollecting
	StateFinalized
	StateDelivered
	StateErrored
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateCollecting:
		return "COLLECTING"
	case StateFinalized:
		return "FINALIZED"
	case StateDelivered:
		return "DELIVERED"
	case StateErrored:
		return "ERRORED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNoSnapshots marks a hashtag for which every collection attempt failed:
// the pipeline finalized with zero snapshots ever ingested.
var ErrNoSnapshots = errors.New("no snapshots collected")

// Pipeline sequences extraction and merging over the snapshots of a single
// hashtag, then hands the canonical set to the signal engine exactly once.
// Each instance owns its working set exclusively; independent hashtags run
// in independent Pipeline instances with no shared mutable state.
type Pipeline struct {
	hashtag   string
	logger    *utils.Logger
	extractor *services.Extractor
	merger    *services.Merger

	state     State
	snapshots int
	stats     models.ExtractStats

	signals []models.SignalRecord
	status  services.BatchStatus
}

// New creates a pipeline in the PENDING state.
func New(hashtag string, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		hashtag:   hashtag,
		logger:    logger,
		extractor: services.NewExtractor(logger),
		merger:    services.NewMerger(logger),
		state:     StatePending,
	}
}

// Ingest extracts one snapshot and merges its records into the canonical
// set. The first ingest moves the pipeline to COLLECTING.
func (p *Pipeline) Ingest(snap models.RawSnapshot) error {
	if p.state != StatePending && p.state != StateCollecting {
		return fmt.Errorf("pipeline %s: ingest in state %s", p.hashtag, p.state)
	}
	p.state = StateCollecting
	p.snapshots++

	p.logger.Debug("[pipeline] %s received snapshot #%d (%d bytes)",
		p.hashtag, snap.Seq, len(snap.HTML))

	records, stats := p.extractor.Extract(snap)
	p.stats.Add(stats)
	p.merger.Merge(records)

	return nil
}

// Finalize runs the signal engine once over the canonical set. A pipeline
// that never received a snapshot transitions to ERRORED and reports
// ErrNoSnapshots; partial collection (any snapshots at all, even fewer than
// the target) is a degraded result and still finalizes.
func (p *Pipeline) Finalize(engine *services.SignalEngine) ([]models.SignalRecord, error) {
	switch p.state {
	case StateFinalized, StateDelivered:
		return p.signals, nil
	case StateErrored:
		return nil, ErrNoSnapshots
	}

	if p.snapshots == 0 {
		p.state = StateErrored
		p.logger.Error("[pipeline] %s errored: %v", p.hashtag, ErrNoSnapshots)
		return nil, ErrNoSnapshots
	}

	canonical := p.merger.Canonical()
	p.signals, p.status = engine.Analyze(canonical)
	p.state = StateFinalized

	p.logger.Info("[pipeline] %s finalized: %d snapshots → %d canonical posts (%d merge conflicts, %d skipped containers)",
		p.hashtag, p.snapshots, len(canonical), p.merger.Conflicts(), p.stats.Skipped)

	return p.signals, nil
}

// MarkDelivered records that downstream consumers received the batch.
func (p *Pipeline) MarkDelivered() error {
	if p.state != StateFinalized {
		return fmt.Errorf("pipeline %s: deliver in state %s", p.hashtag, p.state)
	}
	p.state = StateDelivered
	return nil
}

// Hashtag returns the hashtag this pipeline serves.
func (p *Pipeline) Hashtag() string { return p.hashtag }

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state }

// Status reports whether the finalized batch carried any data.
func (p *Pipeline) Status() services.BatchStatus { return p.status }

// Canonical exposes the merged record set (for the raw CSV dump).
func (p *Pipeline) Canonical() []*models.PostRecord { return p.merger.Canonical() }

// Stats returns accumulated extraction diagnostics.
func (p *Pipeline) Stats() models.ExtractStats { return p.stats }
