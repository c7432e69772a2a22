package pipeline

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"x-scraper/config"
	"x-scraper/models"
	"x-scraper/services"
	"x-scraper/utils"
)

func testEngine() *services.SignalEngine {
	return services.NewSignalEngine(config.DefaultSignalConfig(), utils.NewLogger())
}

func snapshot(hashtag string, seq, id int) models.RawSnapshot {
	html := fmt.Sprintf(`
<article data-testid="tweet">
  <div data-testid="User-Name"><a href="/trader"><span>Trader</span></a></div>
  <a href="/trader/status/%d"><time datetime="2024-01-15T10:30:00.000Z">2h</time></a>
  <div data-testid="tweetText">rally incoming, buy the dip %d</div>
  <div role="group"><div data-testid="like">%d</div></div>
</article>`, id, id, 10+seq)
	return models.RawSnapshot{Hashtag: hashtag, HTML: html, Seq: seq}
}

func TestLifecycleHappyPath(t *testing.T) {
	p := New("#nifty50", utils.NewLogger())

	if p.State() != StatePending {
		t.Fatalf("fresh pipeline state = %s, want PENDING", p.State())
	}

	if err := p.Ingest(snapshot("#nifty50", 0, 1)); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if p.State() != StateCollecting {
		t.Fatalf("state after ingest = %s, want COLLECTING", p.State())
	}
	if err := p.Ingest(snapshot("#nifty50", 1, 2)); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	sigs, err := p.Finalize(testEngine())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if p.State() != StateFinalized {
		t.Fatalf("state after finalize = %s, want FINALIZED", p.State())
	}
	if len(sigs) != 2 {
		t.Fatalf("signals: got %d, want 2", len(sigs))
	}
	if p.Status() != services.StatusOK {
		t.Errorf("status = %v, want StatusOK", p.Status())
	}

	if err := p.MarkDelivered(); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if p.State() != StateDelivered {
		t.Errorf("state after delivery = %s, want DELIVERED", p.State())
	}
}

func TestZeroSnapshotsErrors(t *testing.T) {
	p := New("#ghost", utils.NewLogger())

	sigs, err := p.Finalize(testEngine())
	if !errors.Is(err, ErrNoSnapshots) {
		t.Fatalf("error: got %v, want ErrNoSnapshots", err)
	}
	if sigs != nil {
		t.Errorf("signals: got %v, want nil", sigs)
	}
	if p.State() != StateErrored {
		t.Errorf("state = %s, want ERRORED", p.State())
	}

	// Repeat finalization keeps reporting the same terminal error.
	if _, err := p.Finalize(testEngine()); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("second finalize: got %v, want ErrNoSnapshots", err)
	}
}

func TestPartialCollectionStillFinalizes(t *testing.T) {
	p := New("#nifty50", utils.NewLogger())

	if err := p.Ingest(snapshot("#nifty50", 0, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	sigs, err := p.Finalize(testEngine())
	if err != nil {
		t.Fatalf("partial batch must finalize, got %v", err)
	}
	if len(sigs) != 1 {
		t.Errorf("signals: got %d, want 1", len(sigs))
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	p := New("#nifty50", utils.NewLogger())
	if err := p.Ingest(snapshot("#nifty50", 0, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	first, err := p.Finalize(testEngine())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	second, err := p.Finalize(testEngine())
	if err != nil {
		t.Fatalf("repeat finalize: %v", err)
	}
	if len(first) != len(second) {
		t.Errorf("repeat finalize changed result: %d vs %d", len(first), len(second))
	}
}

func TestIngestAfterFinalizeRejected(t *testing.T) {
	p := New("#nifty50", utils.NewLogger())
	if err := p.Ingest(snapshot("#nifty50", 0, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := p.Finalize(testEngine()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if err := p.Ingest(snapshot("#nifty50", 1, 2)); err == nil {
		t.Error("ingest after finalize must fail")
	}
}

func TestDeliverBeforeFinalizeRejected(t *testing.T) {
	p := New("#nifty50", utils.NewLogger())
	if err := p.MarkDelivered(); err == nil {
		t.Error("deliver before finalize must fail")
	}
}

func TestDedupAcrossSnapshots(t *testing.T) {
	p := New("#nifty50", utils.NewLogger())

	// Same post id in both snapshots, larger like count in the second.
	if err := p.Ingest(snapshot("#nifty50", 0, 7)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := p.Ingest(snapshot("#nifty50", 1, 7)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	canonical := p.Canonical()
	if len(canonical) != 1 {
		t.Fatalf("canonical: got %d records, want 1", len(canonical))
	}
	if canonical[0].LikeCount != 11 {
		t.Errorf("like count: got %d, want max across snapshots 11", canonical[0].LikeCount)
	}
}

func TestRunLevelDedupAcrossHashtags(t *testing.T) {
	logger := utils.NewLogger()
	engine := testEngine()

	// The same post id surfaces under two different hashtag queries, each
	// served by its own pipeline.
	nifty := New("#nifty50", logger)
	if err := nifty.Ingest(snapshot("#nifty50", 0, 777)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := nifty.Finalize(engine); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	sensex := New("#sensex", logger)
	if err := sensex.Ingest(snapshot("#sensex", 1, 777)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := sensex.Finalize(engine); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Folding both canonical sets through one run-level merger must keep a
	// single record carrying every surfacing hashtag.
	run := services.NewMerger(logger)
	run.Merge(nifty.Canonical())
	run.Merge(sensex.Canonical())

	canonical := run.Canonical()
	if len(canonical) != 1 {
		t.Fatalf("run-level canonical set has %d records for one id, want 1", len(canonical))
	}

	got := canonical[0]
	if got.QueriedHashtag != "#nifty50" {
		t.Errorf("queried hashtag: got %q, want first-seen #nifty50", got.QueriedHashtag)
	}
	if !reflect.DeepEqual(got.SeenHashtags, []string{"#nifty50", "#sensex"}) {
		t.Errorf("seen hashtags: got %v, want both surfacing hashtags", got.SeenHashtags)
	}
	if got.LikeCount != 11 {
		t.Errorf("like count: got %d, want max across sightings 11", got.LikeCount)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "PENDING"},
		{StateCollecting, "COLLECTING"},
		{StateFinalized, "FINALIZED"},
		{StateDelivered, "DELIVERED"},
		{StateErrored, "ERRORED"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
