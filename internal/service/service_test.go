package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/insight"
	"github.com/distillkb/distill/internal/llm"
	"github.com/distillkb/distill/internal/models"
)

// fakeStore is an in-memory Store for coordinator and retrieval tests.
type fakeStore struct {
	mu       sync.Mutex
	items    map[string]*models.IngestItem
	insights map[string]*models.Insight
	tags     map[string]*models.Tag
	tagged   map[string][]string // insight id -> tag ids

	vectorHits []db.VectorHit
	keywordIDs []surrealmodels.RecordID

	failCreateInsight bool
	panicOnGenerate   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:    map[string]*models.IngestItem{},
		insights: map[string]*models.Insight{},
		tags:     map[string]*models.Tag{},
		tagged:   map[string][]string{},
	}
}

func (f *fakeStore) addItem(id string, status models.ItemStatus, age time.Duration) *models.IngestItem {
	text := "captured text for " + id
	item := &models.IngestItem{
		ID:      surrealmodels.RecordID{Table: "ingest_item", ID: id},
		Owner:   "owner-1",
		Kind:    models.KindText,
		Status:  status,
		RawText: &text,
		Created: time.Now().Add(-age),
	}
	f.items[id] = item
	return item
}

func (f *fakeStore) CreateItem(ctx context.Context, id string, input models.IngestItemInput) (*models.IngestItem, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item := &models.IngestItem{
		ID:      surrealmodels.RecordID{Table: "ingest_item", ID: id},
		Owner:   input.Owner,
		Kind:    input.Kind,
		Status:  models.StatusPending,
		RawText: input.RawText,
		URL:     input.URL,
		Blob:    input.Blob,
		Created: time.Now(),
	}
	f.items[id] = item
	return item, nil
}

func (f *fakeStore) GetItem(ctx context.Context, id string) (*models.IngestItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeStore) ClaimItem(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.Status != models.StatusPending {
		return false, nil
	}
	item.Status = models.StatusProcessing
	return true, nil
}

func (f *fakeStore) ReclaimStale(ctx context.Context, id string, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.Status != models.StatusProcessing {
		return false, nil
	}
	if time.Since(item.Created) < window {
		return false, nil
	}
	item.Status = models.StatusPending
	return true, nil
}

func (f *fakeStore) ResetStaleItems(ctx context.Context, window time.Duration) ([]models.IngestItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reset []models.IngestItem
	for _, item := range f.items {
		if item.Status == models.StatusProcessing && time.Since(item.Created) >= window {
			item.Status = models.StatusPending
			reset = append(reset, *item)
		}
	}
	return reset, nil
}

func (f *fakeStore) ResetItem(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || (item.Status != models.StatusProcessing && item.Status != models.StatusError) {
		return false, nil
	}
	item.Status = models.StatusPending
	item.Error = nil
	return true, nil
}

func (f *fakeStore) MarkDone(ctx context.Context, id string, rawText string, sections []models.SectionSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	now := time.Now()
	item.Status = models.StatusDone
	item.RawText = &rawText
	item.Sections = sections
	item.Processed = &now
	item.Error = nil
	return nil
}

func (f *fakeStore) MarkError(ctx context.Context, id string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	now := time.Now()
	item.Status = models.StatusError
	item.Error = &message
	item.Processed = &now
	return nil
}

func (f *fakeStore) ListItems(ctx context.Context, owner string, status *models.ItemStatus, limit int) ([]models.IngestItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.IngestItem
	for _, item := range f.items {
		if item.Owner != owner {
			continue
		}
		if status != nil && item.Status != *status {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (f *fakeStore) ListPending(ctx context.Context, limit int) ([]models.IngestItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.IngestItem
	for _, item := range f.items {
		if item.Status == models.StatusPending {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountItemsByStatus(ctx context.Context, owner string) ([]db.StatusCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, item := range f.items {
		if item.Owner == owner {
			counts[string(item.Status)]++
		}
	}
	var out []db.StatusCount
	for status, count := range counts {
		out = append(out, db.StatusCount{Status: status, Count: count})
	}
	return out, nil
}

func (f *fakeStore) GetInsight(ctx context.Context, id string) (*models.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.insights[id]
	if !ok {
		return nil, nil
	}
	copied := *in
	return &copied, nil
}

func (f *fakeStore) InsightsByItem(ctx context.Context, itemID string) ([]models.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Insight
	for _, in := range f.insights {
		if in.Item != nil && in.Item.ID == itemID {
			out = append(out, *in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SectionIndex, out[j].SectionIndex
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})
	return out, nil
}

func (f *fakeStore) CreateInsight(ctx context.Context, id, owner, itemID string, sectionIndex int, fields models.InsightFields) (*models.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateInsight {
		return nil, fmt.Errorf("simulated insert failure")
	}
	itemRec := surrealmodels.RecordID{Table: "ingest_item", ID: itemID}
	idx := sectionIndex
	in := &models.Insight{
		ID:           surrealmodels.RecordID{Table: "insight", ID: id},
		Owner:        owner,
		Title:        fields.Title,
		Summary:      fields.Summary,
		Takeaway:     fields.Takeaway,
		Content:      fields.Content,
		Item:         &itemRec,
		SectionIndex: &idx,
		Created:      time.Now(),
		Updated:      time.Now(),
	}
	f.insights[id] = in
	copied := *in
	return &copied, nil
}

func (f *fakeStore) UpdateInsightFields(ctx context.Context, id string, sectionIndex int, fields models.InsightFields) (*models.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.insights[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	idx := sectionIndex
	in.Title = fields.Title
	in.Summary = fields.Summary
	in.Takeaway = fields.Takeaway
	in.Content = fields.Content
	in.SectionIndex = &idx
	in.Updated = time.Now()
	copied := *in
	return &copied, nil
}

func (f *fakeStore) DeleteInsightsFromIndex(ctx context.Context, itemID string, newCount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := 0
	for id, in := range f.insights {
		if in.Item == nil || in.Item.ID != itemID {
			continue
		}
		if in.SectionIndex == nil || *in.SectionIndex >= newCount {
			delete(f.insights, id)
			delete(f.tagged, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) SetInsightEmbedding(ctx context.Context, id string, embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.insights[id]; ok {
		in.Embedding = embedding
	}
	return nil
}

func (f *fakeStore) GetInsightsByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Insight
	for _, id := range ids {
		if in, ok := f.insights[id.ID.(string)]; ok {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertTag(ctx context.Context, owner, name string) (*models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := owner + ":" + models.NormalizeTag(name)
	tag, ok := f.tags[id]
	if !ok {
		tag = &models.Tag{
			ID:    surrealmodels.RecordID{Table: "tag", ID: id},
			Owner: owner,
			Name:  name,
		}
		f.tags[id] = tag
	}
	copied := *tag
	return &copied, nil
}

func (f *fakeStore) ReplaceInsightTags(ctx context.Context, insightID string, tagIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagged[insightID] = tagIDs
	return nil
}

func (f *fakeStore) TagsForInsight(ctx context.Context, insightID string) ([]models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tag
	for _, tagID := range f.tagged[insightID] {
		if tag, ok := f.tags[tagID]; ok {
			out = append(out, *tag)
		}
	}
	return out, nil
}

func (f *fakeStore) VectorSearch(ctx context.Context, owner string, embedding []float32, limit int) ([]db.VectorHit, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	hits := f.vectorHits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeStore) KeywordSearch(ctx context.Context, owner, query string, limit int) ([]surrealmodels.RecordID, error) {
	ids := f.keywordIDs
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

var _ Store = (*fakeStore)(nil)

// fakeGenerator returns a fixed section list, or panics when asked to.
type fakeGenerator struct {
	sections []insight.Section
	panics   bool
}

func (g *fakeGenerator) Generate(ctx context.Context, text, hint string) insight.Result {
	if g.panics {
		panic("generator exploded")
	}
	return insight.Result{Sections: g.sections}
}

type textExtractor struct{}

func (textExtractor) Extract(ctx context.Context, item *models.IngestItem) (string, []string) {
	if item.RawText != nil {
		return *item.RawText, nil
	}
	return "", nil
}

// fixedEmbedder returns the same vector for every input.
type fixedEmbedder struct{ vec []float32 }

func (f fixedEmbedder) Embed(ctx context.Context, text string) []float32 { return f.vec }
func (f fixedEmbedder) Dimension() int                                   { return len(f.vec) }

func sectionsN(n int) []insight.Section {
	out := make([]insight.Section, n)
	for i := range out {
		out[i] = insight.Section{
			Title:    fmt.Sprintf("Section %d", i),
			Bullets:  []string{"a", "b", "c"},
			Takeaway: fmt.Sprintf("Takeaway %d", i),
			Tags:     []string{"topic", fmt.Sprintf("t%d", i)},
		}
	}
	return out
}

func newTestService(store *fakeStore, gen InsightGenerator) *Service {
	return New(store, textExtractor{}, gen, fixedEmbedder{vec: []float32{0.1, 0.2}}, Options{
		StaleWindow: time.Hour,
	})
}

func TestProcessByIDUnknownItem(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeGenerator{sections: sectionsN(1)})

	_, err := svc.ProcessByID(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestProcessByIDHappyPath(t *testing.T) {
	store := newFakeStore()
	store.addItem("item-1", models.StatusPending, 0)
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(2)})

	res, err := svc.ProcessByID(context.Background(), "item-1")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, models.StatusDone, res.Status)
	assert.Len(t, res.InsightIDs, 2)

	item := store.items["item-1"]
	assert.Equal(t, models.StatusDone, item.Status)
	assert.NotNil(t, item.Processed)
	require.Len(t, item.Sections, 2)
	assert.Equal(t, 0, item.Sections[0].Index)
	assert.Equal(t, "Section 0", item.Sections[0].Title)

	// Embeddings and tags land on every insight.
	for _, id := range res.InsightIDs {
		in := store.insights[id]
		require.NotNil(t, in)
		assert.NotEmpty(t, in.Embedding)
		assert.NotEmpty(t, store.tagged[id])
	}
}

func TestProcessByIDTerminalNoOp(t *testing.T) {
	store := newFakeStore()
	store.addItem("done-1", models.StatusDone, 0)
	store.addItem("err-1", models.StatusError, 0)
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(1)})

	res, err := svc.ProcessByID(context.Background(), "done-1")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.True(t, res.Reused)
	assert.Equal(t, models.StatusDone, res.Status)

	res, err = svc.ProcessByID(context.Background(), "err-1")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Reused)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.StatusError, store.items["err-1"].Status, "ERROR is never auto-retried")
}

func TestProcessByIDClaimRace(t *testing.T) {
	store := newFakeStore()
	store.addItem("item-1", models.StatusProcessing, 5*time.Minute)
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(1)})

	res, err := svc.ProcessByID(context.Background(), "item-1")
	require.NoError(t, err, "a young PROCESSING item is a skip, not an error")
	assert.True(t, res.Skipped)
	assert.Equal(t, models.StatusProcessing, res.Status)
	assert.Equal(t, models.StatusProcessing, store.items["item-1"].Status)
}

func TestProcessByIDStaleReclaim(t *testing.T) {
	store := newFakeStore()
	store.addItem("item-1", models.StatusProcessing, 2*time.Hour)
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(1)})

	res, err := svc.ProcessByID(context.Background(), "item-1")
	require.NoError(t, err)
	assert.False(t, res.Skipped, "items past the staleness window are reclaimed and processed")
	assert.Equal(t, models.StatusDone, res.Status)
}

func TestProcessByIDConcurrentDuplicates(t *testing.T) {
	store := newFakeStore()
	store.addItem("item-1", models.StatusPending, 0)
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(1)})

	const callers = 8
	results := make([]*ProcessResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ProcessByID(context.Background(), "item-1")
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, res := range results {
		require.NoError(t, errs[i])
		if !res.Skipped {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one duplicate invocation may win the claim")
	assert.Equal(t, models.StatusDone, store.items["item-1"].Status)
}

func TestProcessByIDPanicLandsInError(t *testing.T) {
	store := newFakeStore()
	store.addItem("item-1", models.StatusPending, 0)
	svc := newTestService(store, &fakeGenerator{panics: true})

	_, err := svc.ProcessByID(context.Background(), "item-1")
	require.Error(t, err, "job-fatal failures are re-raised to the caller")

	item := store.items["item-1"]
	assert.Equal(t, models.StatusError, item.Status)
	require.NotNil(t, item.Error)
	assert.Contains(t, *item.Error, "generator exploded")
	assert.NotNil(t, item.Processed)
}

func TestProcessByIDPersistFailureLandsInError(t *testing.T) {
	store := newFakeStore()
	store.failCreateInsight = true
	store.addItem("item-1", models.StatusPending, 0)
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(1)})

	_, err := svc.ProcessByID(context.Background(), "item-1")
	require.Error(t, err)
	assert.Equal(t, models.StatusError, store.items["item-1"].Status)
}

func TestReconcileShrinkPreservesIDs(t *testing.T) {
	store := newFakeStore()
	store.addItem("item-1", models.StatusPending, 0)
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(3)})

	res, err := svc.ProcessByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, res.InsightIDs, 3)
	firstRun := append([]string(nil), res.InsightIDs...)

	// Reprocess with fewer sections.
	store.items["item-1"].Status = models.StatusPending

	svc2 := newTestService(store, &fakeGenerator{sections: sectionsN(2)})
	res2, err := svc2.ProcessByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, res2.InsightIDs, 2)

	assert.Equal(t, firstRun[0], res2.InsightIDs[0], "index 0 keeps its id across reprocessing")
	assert.Equal(t, firstRun[1], res2.InsightIDs[1], "index 1 keeps its id across reprocessing")
	assert.Len(t, store.insights, 2, "surplus insight at index 2 is deleted")
}

func TestReconcileGrow(t *testing.T) {
	store := newFakeStore()
	store.addItem("item-1", models.StatusPending, 0)

	res, err := newTestService(store, &fakeGenerator{sections: sectionsN(1)}).ProcessByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, res.InsightIDs, 1)

	store.items["item-1"].Status = models.StatusPending
	res2, err := newTestService(store, &fakeGenerator{sections: sectionsN(3)}).ProcessByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, res2.InsightIDs, 3)

	assert.Equal(t, res.InsightIDs[0], res2.InsightIDs[0])
	assert.Len(t, store.insights, 3)
}

func TestCaptureEnqueueFallback(t *testing.T) {
	store := newFakeStore()
	queue := NewQueue(1)
	queue.Close() // every Enqueue fails, forcing the synchronous path

	svc := New(store, textExtractor{}, &fakeGenerator{sections: sectionsN(1)}, llm.NoEmbedder{}, Options{
		Queue: queue,
	})

	item, err := svc.CaptureText(context.Background(), "owner-1", "a note")
	require.NoError(t, err)

	id := models.MustRecordIDString(item.ID)
	assert.Equal(t, models.StatusDone, store.items[id].Status,
		"failed enqueue falls back to synchronous processing")
}

func TestCaptureValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeGenerator{sections: sectionsN(1)})

	_, err := svc.Capture(context.Background(), models.IngestItemInput{
		Owner: "owner-1",
		Kind:  models.KindURL, // missing url metadata
	})
	assert.Error(t, err)
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeGenerator{})

	results, err := svc.Search(context.Background(), "owner-1", "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func seedInsight(store *fakeStore, id string, embedding []float32) {
	in := &models.Insight{
		ID:        surrealmodels.RecordID{Table: "insight", ID: id},
		Owner:     "owner-1",
		Title:     "Insight " + id,
		Takeaway:  "takeaway " + id,
		Embedding: embedding,
	}
	store.insights[id] = in
}

func rid(id string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: "insight", ID: id}
}

func TestSearchMergeVectorFirst(t *testing.T) {
	store := newFakeStore()
	seedInsight(store, "v1", []float32{1})
	seedInsight(store, "v2", []float32{1})
	seedInsight(store, "k1", nil)

	store.vectorHits = []db.VectorHit{
		{ID: rid("v1"), Dist: 0.1},
		{ID: rid("v2"), Dist: 0.3},
	}
	// v1 also keyword-matches; it must not appear twice.
	store.keywordIDs = []surrealmodels.RecordID{rid("k1"), rid("v1")}

	svc := newTestService(store, &fakeGenerator{})
	results, err := svc.Search(context.Background(), "owner-1", "insight", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "v1", results[0].Insight.ID.ID)
	assert.Equal(t, "v2", results[1].Insight.ID.ID)
	assert.Equal(t, "k1", results[2].Insight.ID.ID)

	require.NotNil(t, results[0].Score)
	assert.InDelta(t, 0.9, *results[0].Score, 1e-9)
	require.NotNil(t, results[1].Score)
	assert.InDelta(t, 0.7, *results[1].Score, 1e-9)
	assert.Nil(t, results[2].Score, "keyword-only hits carry no score")
}

func TestSearchTruncatesToLimit(t *testing.T) {
	store := newFakeStore()
	seedInsight(store, "v1", []float32{1})
	seedInsight(store, "k1", nil)
	seedInsight(store, "k2", nil)

	store.vectorHits = []db.VectorHit{{ID: rid("v1"), Dist: 0.2}}
	store.keywordIDs = []surrealmodels.RecordID{rid("k1"), rid("k2")}

	svc := newTestService(store, &fakeGenerator{})
	results, err := svc.Search(context.Background(), "owner-1", "insight", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "v1", results[0].Insight.ID.ID)
	assert.Equal(t, "k1", results[1].Insight.ID.ID)
}

func TestSearchScoreClamped(t *testing.T) {
	store := newFakeStore()
	seedInsight(store, "v1", []float32{1})
	// Cosine distance can reach 2 for opposed vectors; the score floor is 0.
	store.vectorHits = []db.VectorHit{{ID: rid("v1"), Dist: 1.8}}

	svc := newTestService(store, &fakeGenerator{})
	results, err := svc.Search(context.Background(), "owner-1", "x", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Score)
	assert.Equal(t, 0.0, *results[0].Score)
}

func TestSearchKeywordOnlyWhenNoEmbedder(t *testing.T) {
	store := newFakeStore()
	seedInsight(store, "k1", nil)
	store.keywordIDs = []surrealmodels.RecordID{rid("k1")}
	store.vectorHits = []db.VectorHit{{ID: rid("k1"), Dist: 0}} // must not be reached

	svc := New(store, textExtractor{}, &fakeGenerator{}, llm.NoEmbedder{}, Options{})
	results, err := svc.Search(context.Background(), "owner-1", "insight", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Score, "without an embedding the vector leg is skipped")
}

func TestRelatedExcludesSource(t *testing.T) {
	store := newFakeStore()
	seedInsight(store, "src", []float32{1, 0})
	seedInsight(store, "n1", []float32{1, 0})
	seedInsight(store, "n2", []float32{0.9, 0.1})

	store.vectorHits = []db.VectorHit{
		{ID: rid("src"), Dist: 0},
		{ID: rid("n1"), Dist: 0.05},
		{ID: rid("n2"), Dist: 0.2},
	}

	svc := newTestService(store, &fakeGenerator{})
	results, err := svc.Related(context.Background(), "owner-1", "src", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "n1", results[0].Insight.ID.ID)
	assert.Equal(t, "n2", results[1].Insight.ID.ID)
}

func TestRelatedWithoutEmbedding(t *testing.T) {
	store := newFakeStore()
	seedInsight(store, "src", nil)
	store.vectorHits = []db.VectorHit{{ID: rid("src"), Dist: 0}}

	svc := newTestService(store, &fakeGenerator{})
	results, err := svc.Related(context.Background(), "owner-1", "src", 5)
	require.NoError(t, err)
	assert.Empty(t, results, "no embedding means no computable neighbors")
}

func TestRelatedUnknownInsight(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeGenerator{})

	_, err := svc.Related(context.Background(), "owner-1", "missing", 5)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRelatedOtherOwnerInsight(t *testing.T) {
	store := newFakeStore()
	seedInsight(store, "src", []float32{1, 0})
	store.insights["src"].Owner = "owner-2"
	store.vectorHits = []db.VectorHit{{ID: rid("src"), Dist: 0}} // must not be reached

	svc := newTestService(store, &fakeGenerator{})
	_, err := svc.Related(context.Background(), "owner-1", "src", 5)
	assert.ErrorIs(t, err, db.ErrNotFound, "an insight owned by someone else looks missing")
}

func TestProcessPendingDrainsAll(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 7; i++ {
		store.addItem(fmt.Sprintf("item-%d", i), models.StatusPending, 0)
	}
	svc := newTestService(store, &fakeGenerator{sections: sectionsN(1)})

	var progressCalls int
	stats, err := svc.ProcessPending(context.Background(), 3, func(done, total int) {
		progressCalls++
	})
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Processed)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 7, progressCalls)

	for id, item := range store.items {
		assert.Equal(t, models.StatusDone, item.Status, "item %s", id)
	}
}

func TestResetStuckSpecificItem(t *testing.T) {
	store := newFakeStore()
	store.addItem("err-1", models.StatusError, 0)
	svc := newTestService(store, &fakeGenerator{})

	ids, err := svc.ResetStuck(context.Background(), "err-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"err-1"}, ids)
	assert.Equal(t, models.StatusPending, store.items["err-1"].Status)

	_, err = svc.ResetStuck(context.Background(), "err-1")
	assert.Error(t, err, "a PENDING item cannot be reset again")
}

func TestResetStuckStaleSweep(t *testing.T) {
	store := newFakeStore()
	store.addItem("old-1", models.StatusProcessing, 2*time.Hour)
	store.addItem("young-1", models.StatusProcessing, time.Minute)
	svc := newTestService(store, &fakeGenerator{})

	ids, err := svc.ResetStuck(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"old-1"}, ids)
	assert.Equal(t, models.StatusPending, store.items["old-1"].Status)
	assert.Equal(t, models.StatusProcessing, store.items["young-1"].Status,
		"items inside the staleness window are left alone")
}

func TestRunWorkerUsesInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	svc := New(newFakeStore(), textExtractor{}, &fakeGenerator{}, fixedEmbedder{vec: []float32{0.1}}, Options{
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queue := NewQueue(1)
	err := svc.RunWorker(ctx, queue, 1, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	out := buf.String()
	assert.Contains(t, out, "worker started")
	assert.Contains(t, out, "worker stopped")
}

func TestQueueEnqueue(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Enqueue("a"))
	assert.Error(t, q.Enqueue("b"), "full queue rejects instead of blocking")

	q.Close()
	assert.Error(t, q.Enqueue("c"))

	got := <-q.ch
	assert.Equal(t, "a", got)
}
