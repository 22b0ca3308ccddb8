package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/google/uuid"

	"github.com/clonebrain/clonebrain/internal/log"
)

// mockEmbedder implements ai.Embedder for testing
type mockEmbedder struct {
	embedErr    error     // error to return
	returnEmpty bool      // return empty embeddings
	embeddings  []float32 // custom embedding to return
	callCount   int       // number of calls
	lastInput   string    // last input text for verification
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInput = req.Input[0].Content[0].Text
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{}}}}, nil
	}
	embedding := m.embeddings
	if embedding == nil {
		embedding = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: embedding}}}, nil
}

// mockQuerier implements Querier for testing
type mockQuerier struct {
	insertErr error
	searchErr error
	listErr   error
	deleteErr error
	countErr  error

	searchResults []SearchRecordsRow
	listResults   []ListRecordsRow
	deleteRows    int64
	countResult   int64

	insertCalls  int
	searchCalls  int
	lastInsert   InsertRecordParams
	lastSearch   SearchRecordsParams
	lastListArgs struct {
		ownerID uuid.UUID
		limit   int32
	}
}

func (m *mockQuerier) InsertRecord(_ context.Context, arg InsertRecordParams) error {
	m.insertCalls++
	m.lastInsert = arg
	return m.insertErr
}

func (m *mockQuerier) SearchRecords(_ context.Context, arg SearchRecordsParams) ([]SearchRecordsRow, error) {
	m.searchCalls++
	m.lastSearch = arg
	return m.searchResults, m.searchErr
}

func (m *mockQuerier) ListRecords(_ context.Context, ownerID uuid.UUID, limit int32) ([]ListRecordsRow, error) {
	m.lastListArgs.ownerID = ownerID
	m.lastListArgs.limit = limit
	return m.listResults, m.listErr
}

func (m *mockQuerier) DeleteRecord(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return m.deleteRows, m.deleteErr
}

func (m *mockQuerier) CountRecords(context.Context, uuid.UUID) (int64, error) {
	return m.countResult, m.countErr
}

func newTestStore(q Querier, e ai.Embedder) *Store {
	return New(q, e, "text-embedding-3-small", log.NewNop())
}

func TestIngest_BlankContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &mockEmbedder{}
			querier := &mockQuerier{}
			store := newTestStore(querier, embedder)

			_, err := store.Ingest(context.Background(), uuid.New(), tt.content, nil)
			if !errors.Is(err, ErrEmptyContent) {
				t.Fatalf("Ingest() error = %v, want ErrEmptyContent", err)
			}

			// Validation must happen before any provider or storage call
			if embedder.callCount != 0 {
				t.Errorf("embedder called %d times, want 0", embedder.callCount)
			}
			if querier.insertCalls != 0 {
				t.Errorf("insert called %d times, want 0", querier.insertCalls)
			}
		})
	}
}

func TestIngest_Success(t *testing.T) {
	embedder := &mockEmbedder{}
	querier := &mockQuerier{}
	store := newTestStore(querier, embedder)

	owner := uuid.New()
	id, err := store.Ingest(context.Background(), owner, "The event is on March 5th.",
		map[string]string{"source": "note"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if id == uuid.Nil {
		t.Error("Ingest() returned nil ID")
	}

	if embedder.callCount != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.callCount)
	}
	if embedder.lastInput != "The event is on March 5th." {
		t.Errorf("embedder input = %q", embedder.lastInput)
	}

	if querier.insertCalls != 1 {
		t.Fatalf("insert called %d times, want 1", querier.insertCalls)
	}
	arg := querier.lastInsert
	if arg.OwnerID != owner {
		t.Errorf("insert owner = %v, want %v", arg.OwnerID, owner)
	}
	if arg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("insert model = %q", arg.EmbeddingModel)
	}
	var metadata map[string]string
	if err := json.Unmarshal(arg.Metadata, &metadata); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	if metadata["source"] != "note" {
		t.Errorf("metadata = %v", metadata)
	}
}

func TestIngest_NilMetadata(t *testing.T) {
	querier := &mockQuerier{}
	store := newTestStore(querier, &mockEmbedder{})

	if _, err := store.Ingest(context.Background(), uuid.New(), "hello", nil); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if string(querier.lastInsert.Metadata) != "{}" {
		t.Errorf("nil metadata stored as %q, want {}", querier.lastInsert.Metadata)
	}
}

func TestIngest_EmbedFailure(t *testing.T) {
	tests := []struct {
		name     string
		embedder *mockEmbedder
	}{
		{"embed error", &mockEmbedder{embedErr: errors.New("provider down")}},
		{"empty embedding", &mockEmbedder{returnEmpty: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &mockQuerier{}
			store := newTestStore(querier, tt.embedder)

			_, err := store.Ingest(context.Background(), uuid.New(), "content", nil)
			if err == nil {
				t.Fatal("Ingest() expected error")
			}
			// No row may be written when embedding fails
			if querier.insertCalls != 0 {
				t.Errorf("insert called %d times, want 0", querier.insertCalls)
			}
		})
	}
}

func TestIngest_InsertFailure(t *testing.T) {
	querier := &mockQuerier{insertErr: errors.New("db down")}
	store := newTestStore(querier, &mockEmbedder{})

	if _, err := store.Ingest(context.Background(), uuid.New(), "content", nil); err == nil {
		t.Fatal("Ingest() expected error")
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	embedder := &mockEmbedder{}
	querier := &mockQuerier{}
	store := newTestStore(querier, embedder)

	_, err := store.Search(context.Background(), uuid.New(), "  ")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("Search() error = %v, want ErrEmptyQuery", err)
	}
	if embedder.callCount != 0 || querier.searchCalls != 0 {
		t.Error("blank query must not reach embedder or database")
	}
}

func TestSearch_DefaultsAndOptions(t *testing.T) {
	querier := &mockQuerier{}
	store := newTestStore(querier, &mockEmbedder{})

	if _, err := store.Search(context.Background(), uuid.New(), "query"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if querier.lastSearch.ResultLimit != 5 {
		t.Errorf("default topK = %d, want 5", querier.lastSearch.ResultLimit)
	}
	if querier.lastSearch.Threshold != 0.5 {
		t.Errorf("default threshold = %v, want 0.5", querier.lastSearch.Threshold)
	}
	if querier.lastSearch.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("model = %q", querier.lastSearch.EmbeddingModel)
	}

	if _, err := store.Search(context.Background(), uuid.New(), "query",
		WithTopK(3), WithThreshold(0.7)); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if querier.lastSearch.ResultLimit != 3 {
		t.Errorf("topK = %d, want 3", querier.lastSearch.ResultLimit)
	}
	if querier.lastSearch.Threshold != 0.7 {
		t.Errorf("threshold = %v, want 0.7", querier.lastSearch.Threshold)
	}
}

func TestSearch_MapsRows(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	created := time.Now().UTC().Truncate(time.Second)
	querier := &mockQuerier{
		searchResults: []SearchRecordsRow{
			{
				ID:         id,
				Content:    "The event is on March 5th.",
				Metadata:   []byte(`{"source":"note"}`),
				CreatedAt:  created,
				Similarity: 0.91,
			},
		},
	}
	store := newTestStore(querier, &mockEmbedder{})

	results, err := store.Search(context.Background(), owner, "when is the event")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.Record.ID != id || r.Record.OwnerID != owner {
		t.Errorf("record identity mismatch: %+v", r.Record)
	}
	if r.Record.Content != "The event is on March 5th." {
		t.Errorf("content = %q", r.Record.Content)
	}
	if r.Record.Metadata["source"] != "note" {
		t.Errorf("metadata = %v", r.Record.Metadata)
	}
	if r.Similarity != 0.91 {
		t.Errorf("similarity = %v", r.Similarity)
	}
}

func TestSearch_BadMetadataTolerated(t *testing.T) {
	querier := &mockQuerier{
		searchResults: []SearchRecordsRow{
			{ID: uuid.New(), Content: "c", Metadata: []byte(`not-json`), Similarity: 0.8},
		},
	}
	store := newTestStore(querier, &mockEmbedder{})

	results, err := store.Search(context.Background(), uuid.New(), "q")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].Record.Metadata == nil || len(results[0].Record.Metadata) != 0 {
		t.Errorf("bad metadata should map to empty map, got %v", results[0].Record.Metadata)
	}
}

func TestList_LimitValidation(t *testing.T) {
	store := newTestStore(&mockQuerier{}, &mockEmbedder{})

	for _, limit := range []int32{0, -1, MaxListLimit + 1} {
		if _, err := store.List(context.Background(), uuid.New(), limit); err == nil {
			t.Errorf("List(limit=%d) expected error", limit)
		}
	}
}

func TestDelete_NotFound(t *testing.T) {
	querier := &mockQuerier{deleteRows: 0}
	store := newTestStore(querier, &mockEmbedder{})

	err := store.Delete(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_Success(t *testing.T) {
	querier := &mockQuerier{deleteRows: 1}
	store := newTestStore(querier, &mockEmbedder{})

	if err := store.Delete(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestCount(t *testing.T) {
	querier := &mockQuerier{countResult: 42}
	store := newTestStore(querier, &mockEmbedder{})

	count, err := store.Count(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 42 {
		t.Errorf("Count() = %d, want 42", count)
	}
}
