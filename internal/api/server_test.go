package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/gruwiki/internal/corpus"
	"github.com/samcharles93/gruwiki/internal/embeddings"
	"github.com/samcharles93/gruwiki/internal/tensor"
)

type testProvider struct {
	store *embeddings.Store
	err   error
}

func (p testProvider) Store(ctx context.Context, modelID string) (*embeddings.Store, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.store, nil
}

func testEmbeddings(t *testing.T) *embeddings.Store {
	t.Helper()
	vocab, err := corpus.NewVocab(map[string]int{
		"START": 0, "END": 1, "king": 2, "man": 3, "woman": 4, "queen": 5, "UNKNOWN": 6,
	})
	if err != nil {
		t.Fatalf("NewVocab: %v", err)
	}
	we := tensor.NewMatFromData(7, 2, []float64{
		-1, -1,
		-1, 1,
		5, 5,
		5, 0,
		0, 0.2,
		0.1, 5.1,
		1, -1,
	})
	s, err := embeddings.New(we, vocab)
	if err != nil {
		t.Fatalf("embeddings.New: %v", err)
	}
	return s
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	server := NewServer(testProvider{store: testEmbeddings(t)}, NewQueryStore(0))
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthAndVocabSize(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/vocab/size", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("vocab size status = %d", rec.Code)
	}
	got := decodeBody[VocabSizeResponse](t, rec)
	if got.Size != 7 || got.Dim != 2 {
		t.Fatalf("vocab size = %+v", got)
	}
}

func TestAnalogyLifecycle(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/analogy", `{"a":"King","b":"man","c":"woman","metric":"euclidean"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[AnalogyResponse](t, rec)
	if !strings.HasPrefix(created.ID, "analogy-") {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Word != "queen" || created.Metric != "euclidean" || created.A != "king" {
		t.Fatalf("unexpected analogy %+v", created)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/analogy/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decodeBody[AnalogyResponse](t, rec); got != created {
		t.Fatalf("stored analogy %+v differs from %+v", got, created)
	}

	rec = doJSON(t, e, http.MethodDelete, "/v1/analogy/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/analogy/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestAnalogyDefaultsToCosine(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/analogy", `{"a":"king","b":"man","c":"woman"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[AnalogyResponse](t, rec); got.Metric != "cosine" || got.Word != "queen" {
		t.Fatalf("unexpected analogy %+v", got)
	}
}

func TestAnalogyValidationErrors(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	tests := []struct {
		name   string
		body   string
		status int
		errTyp string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "invalid_request_error"},
		{"unknown field", `{"a":"king","b":"man","c":"woman","d":"x"}`, http.StatusBadRequest, "invalid_request_error"},
		{"missing word", `{"a":"king","b":"man"}`, http.StatusBadRequest, "invalid_request_error"},
		{"bad metric", `{"a":"king","b":"man","c":"woman","metric":"l1"}`, http.StatusBadRequest, "invalid_request_error"},
		{"unknown word", `{"a":"king","b":"man","c":"prince"}`, http.StatusNotFound, "not_found_error"},
	}
	for _, tc := range tests {
		rec := doJSON(t, e, http.MethodPost, "/v1/analogy", tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d (%s)", tc.name, rec.Code, tc.status, rec.Body.String())
		}
		var body struct {
			Error ResponseError `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode error body: %v", tc.name, err)
		}
		if body.Error.Type != tc.errTyp || body.Error.Message == "" {
			t.Fatalf("%s: unexpected error body %+v", tc.name, body.Error)
		}
	}
}

func TestNeighbors(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/v1/neighbors/king?k=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[NeighborsResponse](t, rec)
	if got.Word != "king" || len(got.Neighbors) != 2 {
		t.Fatalf("unexpected neighbours %+v", got)
	}
	if got.Neighbors[0].Distance > got.Neighbors[1].Distance {
		t.Fatalf("neighbours not sorted: %+v", got.Neighbors)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/neighbors/king", "")
	if got := decodeBody[NeighborsResponse](t, rec); len(got.Neighbors) != 6 {
		t.Fatalf("default k should cap at vocabulary size, got %d", len(got.Neighbors))
	}

	for path, want := range map[string]int{
		"/v1/neighbors/king?k=0":   http.StatusBadRequest,
		"/v1/neighbors/king?k=abc": http.StatusBadRequest,
		"/v1/neighbors/prince":     http.StatusNotFound,
	} {
		if rec := doJSON(t, e, http.MethodGet, path, ""); rec.Code != want {
			t.Fatalf("%s: status = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestProviderErrors(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		err  error
		want int
	}{
		{ErrModelNotFound, http.StatusNotFound},
		{newInvalidRequest("model is ambiguous"), http.StatusBadRequest},
		{context.Canceled, http.StatusInternalServerError},
	} {
		server := NewServer(testProvider{err: tc.err}, nil)
		e := echo.New()
		server.Register(e)
		if rec := doJSON(t, e, http.MethodGet, "/v1/vocab/size?model=x", ""); rec.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestUnknownModelWithoutModelsPath(t *testing.T) {
	t.Setenv(envModelsDir, "")
	run := filepath.Join(t.TempDir(), "run-a")
	writeRun(t, run)

	server := NewServer(NewCachedStoreProvider(StoreProviderConfig{DefaultModelPath: run}), nil)
	e := echo.New()
	server.Register(e)

	rec := doJSON(t, e, http.MethodGet, "/v1/vocab/size?model=nosuchrun", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusNotFound, rec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/vocab/size?model=run-a", ""); rec.Code != http.StatusOK {
		t.Fatalf("default run by name: status = %d", rec.Code)
	}
}

func TestQueryStoreEvictsOldest(t *testing.T) {
	t.Parallel()
	s := NewQueryStore(2)
	s.Put(AnalogyResponse{ID: "a"})
	s.Put(AnalogyResponse{ID: "b"})
	s.Put(AnalogyResponse{ID: "c"})
	if _, ok := s.Get("a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatal("newest entry missing")
	}
	if s.Delete("a") || !s.Delete("b") {
		t.Fatal("unexpected delete results")
	}
}
