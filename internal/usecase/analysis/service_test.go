package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
	"feedctl/internal/resilience/ratelimit"
	"feedctl/internal/resilience/semaphore"
	"feedctl/internal/usecase/classify"
)

type fakeItems struct {
	mu    sync.Mutex
	items map[int64]*entity.Item
}

func newFakeItems(items ...*entity.Item) *fakeItems {
	m := make(map[int64]*entity.Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return &fakeItems{items: m}
}

func (f *fakeItems) Create(ctx context.Context, item *entity.Item) error { return nil }
func (f *fakeItems) Get(ctx context.Context, id int64) (*entity.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, entity.ErrNotFound
}
func (f *fakeItems) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}
func (f *fakeItems) List(ctx context.Context, filters repository.ItemFilters) ([]*entity.Item, error) {
	return nil, nil
}
func (f *fakeItems) ListLatest(ctx context.Context, n int) ([]*entity.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}
func (f *fakeItems) ListByFeeds(ctx context.Context, feedIDs []int64, limit int) ([]*entity.Item, error) {
	return f.ListLatest(ctx, limit)
}
func (f *fakeItems) ListByTimeRange(ctx context.Context, from, to time.Time) ([]*entity.Item, error) {
	return f.ListLatest(ctx, 0)
}
func (f *fakeItems) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	return false, nil
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[int64]*entity.AnalysisRun
}

func newFakeRuns(run *entity.AnalysisRun) *fakeRuns {
	return &fakeRuns{runs: map[int64]*entity.AnalysisRun{run.ID: run}}
}

func (f *fakeRuns) Create(ctx context.Context, run *entity.AnalysisRun) error { return nil }
func (f *fakeRuns) Get(ctx context.Context, id int64) (*entity.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return r, nil
}
func (f *fakeRuns) List(ctx context.Context, activeOnly bool, limit int) ([]*entity.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.AnalysisRun
	for _, r := range f.runs {
		if activeOnly && r.Status.IsTerminal() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
func (f *fakeRuns) UpdateStatus(ctx context.Context, id int64, status entity.RunStatus, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return entity.ErrNotFound
	}
	r.Status = status
	return nil
}
func (f *fakeRuns) UpdateCounters(ctx context.Context, id int64, counters entity.RunCounters, actualCost float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return entity.ErrNotFound
	}
	r.Counters = counters
	r.ActualCost = actualCost
	return nil
}
func (f *fakeRuns) SetCancelRequested(ctx context.Context, id int64) error { return nil }
func (f *fakeRuns) CountByTriggerSince(ctx context.Context, trigger entity.RunTrigger, since time.Time) (int, error) {
	return 0, nil
}
func (f *fakeRuns) CountSince(ctx context.Context, since time.Time) (int, error) { return 0, nil }
func (f *fakeRuns) CountActive(ctx context.Context) (int, error)                 { return 0, nil }
func (f *fakeRuns) ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.AnalysisRun, error) {
	return nil, nil
}

type fakeRunItems struct {
	mu    sync.Mutex
	items map[int64]*entity.RunItem // itemID -> row, single run assumed in tests
	next  int64
}

func newFakeRunItems() *fakeRunItems {
	return &fakeRunItems{items: make(map[int64]*entity.RunItem)}
}

func (f *fakeRunItems) CreateMissing(ctx context.Context, runID int64, itemIDs []int64) ([]*entity.RunItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var created []*entity.RunItem
	for _, id := range itemIDs {
		if _, ok := f.items[id]; ok {
			continue
		}
		f.next++
		ri := &entity.RunItem{ID: f.next, RunID: runID, ItemID: id, State: entity.RunItemQueued}
		f.items[id] = ri
		created = append(created, ri)
	}
	return created, nil
}
func (f *fakeRunItems) ListByRun(ctx context.Context, runID int64) ([]*entity.RunItem, error) {
	return f.ListByRunAndStates(ctx, runID)
}
func (f *fakeRunItems) ListByRunAndStates(ctx context.Context, runID int64, states ...entity.RunItemState) ([]*entity.RunItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := make(map[entity.RunItemState]bool, len(states))
	for _, s := range states {
		set[s] = true
	}
	var out []*entity.RunItem
	for _, ri := range f.items {
		if len(states) == 0 || set[ri.State] {
			cp := *ri
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (f *fakeRunItems) Get(ctx context.Context, runID, itemID int64) (*entity.RunItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ri, ok := f.items[itemID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return ri, nil
}
func (f *fakeRunItems) TransitionTo(ctx context.Context, runID, itemID int64, item *entity.RunItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *item
	f.items[itemID] = &cp
	return nil
}
func (f *fakeRunItems) CancelQueued(ctx context.Context, runID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ri := range f.items {
		if ri.State == entity.RunItemQueued {
			ri.State = entity.RunItemCancelled
			n++
		}
	}
	return n, nil
}
func (f *fakeRunItems) CountByRunAndState(ctx context.Context, runID int64) (entity.RunCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c entity.RunCounters
	for _, ri := range f.items {
		c.TotalItems++
		switch ri.State {
		case entity.RunItemQueued:
			c.Queued++
		case entity.RunItemProcessing:
			c.Processing++
		case entity.RunItemCompleted:
			c.Completed++
		case entity.RunItemFailed:
			c.Failed++
		case entity.RunItemSkipped:
			c.Skipped++
		}
	}
	return c, nil
}

type fakeAnalyses struct {
	mu      sync.Mutex
	existing map[int64]*entity.ItemAnalysis
}

func newFakeAnalyses(existingItemIDs ...int64) *fakeAnalyses {
	m := make(map[int64]*entity.ItemAnalysis)
	for _, id := range existingItemIDs {
		m[id] = &entity.ItemAnalysis{ItemID: id}
	}
	return &fakeAnalyses{existing: m}
}

func (f *fakeAnalyses) Upsert(ctx context.Context, analysis *entity.ItemAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing[analysis.ItemID] = analysis
	return nil
}
func (f *fakeAnalyses) Get(ctx context.Context, itemID int64) (*entity.ItemAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.existing[itemID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return a, nil
}
func (f *fakeAnalyses) Exists(ctx context.Context, itemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.existing[itemID]
	return ok, nil
}
func (f *fakeAnalyses) ExistsBatch(ctx context.Context, itemIDs []int64) (map[int64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		_, ok := f.existing[id]
		out[id] = ok
	}
	return out, nil
}

type stubClassifier struct {
	mu       sync.Mutex
	calls    int
	succeed  bool
	payload  entity.AnalysisPayload
}

func (s *stubClassifier) Classify(ctx context.Context, title, summary, modelTag string) (classify.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if !s.succeed {
		return classify.Result{}, fmt.Errorf("classify: stub failure")
	}
	return classify.Result{Payload: s.payload, Usage: classify.Usage{InputTokens: 100, OutputTokens: 50, CostUSD: 0.01}}, nil
}

func (s *stubClassifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestService(t *testing.T, items *fakeItems, runs *fakeRuns, runItems *fakeRunItems, analyses *fakeAnalyses, classifier classify.Classifier) *Service {
	t.Helper()
	sem := semaphore.New(4)
	limiter := ratelimit.New(ratelimit.Config{
		Name: "test", InitialRate: 100, Burst: 100, MinRate: 1,
		ErrorThreshold: 0.9, FailureThreshold: 1000, WindowDuration: time.Hour,
		DecreasePct: 0.25, RecoveryPct: 0.10,
	})
	t.Cleanup(limiter.Stop)
	svc := New(items, runs, runItems, analyses, classifier, sem, limiter, DefaultConfig())
	svc.Config.SemaphoreTimeout = time.Second
	svc.Config.LimiterTimeout = time.Second
	svc.Config.RequeueDelay = time.Millisecond
	return svc
}

func testItem(id int64) *entity.Item {
	return &entity.Item{ID: id, FeedID: 1, Title: "t", Content: "c", Link: fmt.Sprintf("http://x/%d", id), ContentHash: fmt.Sprintf("h%d", id)}
}

func TestExecute_SmallRunCompletesAllItems(t *testing.T) {
	items := newFakeItems(testItem(1), testItem(2))
	run := &entity.AnalysisRun{ID: 1, Scope: entity.Scope{Kind: entity.ScopeLatest, Latest: 10}, Params: entity.RunParams{ModelTag: "claude-sonnet-4-5"}, Status: entity.RunStatusPending}
	runs := newFakeRuns(run)
	runItems := newFakeRunItems()
	analyses := newFakeAnalyses()
	classifier := &stubClassifier{succeed: true}

	svc := newTestService(t, items, runs, runItems, analyses, classifier)
	svc.Execute(context.Background(), run)

	if run.Status != entity.RunStatusCompleted {
		t.Fatalf("expected run COMPLETED, got %s", run.Status)
	}
	counters, _ := runItems.CountByRunAndState(context.Background(), run.ID)
	if counters.Completed != 2 || counters.TotalItems != 2 {
		t.Fatalf("expected 2/2 completed, got %+v", counters)
	}
	if classifier.callCount() != 2 {
		t.Fatalf("expected 2 classify calls, got %d", classifier.callCount())
	}
}

func TestExecute_NoItemsCompletesImmediately(t *testing.T) {
	items := newFakeItems()
	run := &entity.AnalysisRun{ID: 2, Scope: entity.Scope{Kind: entity.ScopeLatest, Latest: 10}, Params: entity.RunParams{ModelTag: "gpt-4o"}, Status: entity.RunStatusPending}
	runs := newFakeRuns(run)
	runItems := newFakeRunItems()
	analyses := newFakeAnalyses()
	classifier := &stubClassifier{succeed: true}

	svc := newTestService(t, items, runs, runItems, analyses, classifier)
	svc.Execute(context.Background(), run)

	if run.Status != entity.RunStatusCompleted {
		t.Fatalf("expected run COMPLETED with no work, got %s", run.Status)
	}
	if classifier.callCount() != 0 {
		t.Fatalf("expected zero classify calls, got %d", classifier.callCount())
	}
}

func TestExecute_AllItemsFailMarksRunFailed(t *testing.T) {
	items := newFakeItems(testItem(1))
	run := &entity.AnalysisRun{ID: 3, Scope: entity.Scope{Kind: entity.ScopeLatest, Latest: 10}, Params: entity.RunParams{ModelTag: "gpt-4o"}, Status: entity.RunStatusPending}
	runs := newFakeRuns(run)
	runItems := newFakeRunItems()
	analyses := newFakeAnalyses()
	classifier := &stubClassifier{succeed: false}

	svc := newTestService(t, items, runs, runItems, analyses, classifier)
	svc.Execute(context.Background(), run)

	if run.Status != entity.RunStatusFailed {
		t.Fatalf("expected run FAILED, got %s", run.Status)
	}
}

func TestExecute_OverrideExistingFalseSkipsAnalyzedItem(t *testing.T) {
	items := newFakeItems(testItem(1), testItem(2))
	run := &entity.AnalysisRun{ID: 4, Scope: entity.Scope{Kind: entity.ScopeLatest, Latest: 10}, Params: entity.RunParams{ModelTag: "gpt-4o", OverrideExisting: false}, Status: entity.RunStatusPending}
	runs := newFakeRuns(run)
	runItems := newFakeRunItems()
	analyses := newFakeAnalyses(1) // item 1 already analyzed
	classifier := &stubClassifier{succeed: true}

	svc := newTestService(t, items, runs, runItems, analyses, classifier)
	svc.Execute(context.Background(), run)

	if run.Status != entity.RunStatusCompleted {
		t.Fatalf("expected run COMPLETED, got %s", run.Status)
	}
	counters, _ := runItems.CountByRunAndState(context.Background(), run.ID)
	if counters.TotalItems != 1 {
		t.Fatalf("expected already-analyzed item excluded from materialization, total=%d", counters.TotalItems)
	}
	if classifier.callCount() != 1 {
		t.Fatalf("expected exactly 1 classify call, got %d", classifier.callCount())
	}
}

func TestPreview_ComputesCountsAndSample(t *testing.T) {
	items := newFakeItems(testItem(1), testItem(2), testItem(3))
	runs := newFakeRuns(&entity.AnalysisRun{ID: 99})
	runItems := newFakeRunItems()
	analyses := newFakeAnalyses(1)
	classifier := &stubClassifier{succeed: true}

	svc := newTestService(t, items, runs, runItems, analyses, classifier)
	preview, err := svc.Preview(context.Background(), entity.Scope{Kind: entity.ScopeLatest, Latest: 10}, entity.RunParams{ModelTag: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.TotalItems != 3 {
		t.Errorf("expected total_items=3, got %d", preview.TotalItems)
	}
	if preview.AlreadyAnalyzed != 1 {
		t.Errorf("expected already_analyzed=1, got %d", preview.AlreadyAnalyzed)
	}
	if preview.ToAnalyze != 2 {
		t.Errorf("expected to_analyze=2, got %d", preview.ToAnalyze)
	}
	if preview.EstimatedCostUSD <= 0 {
		t.Errorf("expected positive cost estimate, got %f", preview.EstimatedCostUSD)
	}
}
