package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/samcharles93/gruwiki/internal/corpus"
	"github.com/samcharles93/gruwiki/internal/embeddings"
	"github.com/samcharles93/gruwiki/internal/tensor"
)

func writeRun(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	vocab, err := corpus.NewVocab(map[string]int{"START": 0, "END": 1, "UNKNOWN": 2})
	if err != nil {
		t.Fatalf("NewVocab: %v", err)
	}
	if err := embeddings.SaveDir(dir, tensor.InitWeight(3, 4, 1), vocab); err != nil {
		t.Fatalf("SaveDir: %v", err)
	}
}

func TestCachedStoreProviderListModelsFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRun(t, filepath.Join(dir, "alpha"))
	writeRun(t, filepath.Join(dir, "beta"))
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := NewCachedStoreProvider(StoreProviderConfig{ModelsPath: dir})
	models, err := provider.ListModels()
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(models, want) {
		t.Fatalf("ListModels() = %v, want %v", models, want)
	}
}

func TestCachedStoreProviderResolves(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRun(t, filepath.Join(dir, "alpha"))
	provider := NewCachedStoreProvider(StoreProviderConfig{ModelsPath: dir})
	ctx := context.Background()

	// A single run is picked without naming it.
	a, err := provider.Store(ctx, "")
	if err != nil {
		t.Fatalf("Store(\"\"): %v", err)
	}
	b, err := provider.Store(ctx, "alpha")
	if err != nil {
		t.Fatalf("Store(alpha): %v", err)
	}
	if a != b {
		t.Fatal("expected the cached store to be reused")
	}
	if a.Vocab().Size() != 3 || a.Dim() != 4 {
		t.Fatalf("unexpected store %dx%d", a.Vocab().Size(), a.Dim())
	}

	if _, err := provider.Store(ctx, "missing"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := provider.Store(ctx, "../alpha"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for a path, got %v", err)
	}

	writeRun(t, filepath.Join(dir, "beta"))
	if _, err := provider.Store(ctx, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestCachedStoreProviderDefaultModel(t *testing.T) {
	t.Parallel()

	run := filepath.Join(t.TempDir(), "custom-run")
	writeRun(t, run)
	provider := NewCachedStoreProvider(StoreProviderConfig{DefaultModelPath: run})
	models, err := provider.ListModels()
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if want := []string{"custom-run"}; !reflect.DeepEqual(models, want) {
		t.Fatalf("ListModels() = %v, want %v", models, want)
	}
	if _, err := provider.Store(context.Background(), "custom-run"); err != nil {
		t.Fatalf("Store(custom-run): %v", err)
	}
}
