package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samcharles93/gruwiki/internal/embeddings"
)

// StoreProvider resolves a model name to its loaded embeddings.
type StoreProvider interface {
	Store(ctx context.Context, modelID string) (*embeddings.Store, error)
}

type StoreProviderConfig struct {
	// DefaultModelPath is a run directory used when no model is named.
	DefaultModelPath string
	// ModelsPath holds one run directory per model.
	ModelsPath string
}

// CachedStoreProvider loads run directories on first use and keeps them.
type CachedStoreProvider struct {
	cfg   StoreProviderConfig
	mu    sync.Mutex
	cache map[string]*embeddings.Store
	load  func(dir string) (*embeddings.Store, error)
}

const envModelsDir = "GRUWIKI_RUNS_DIR"

func NewCachedStoreProvider(cfg StoreProviderConfig) *CachedStoreProvider {
	return &CachedStoreProvider{
		cfg:   cfg,
		cache: make(map[string]*embeddings.Store),
		load:  embeddings.LoadDir,
	}
}

func (p *CachedStoreProvider) Store(ctx context.Context, modelID string) (*embeddings.Store, error) {
	dir, err := p.resolveModelPath(modelID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.getOrLoad(dir)
}

func (p *CachedStoreProvider) getOrLoad(dir string) (*embeddings.Store, error) {
	p.mu.Lock()
	store, ok := p.cache[dir]
	p.mu.Unlock()
	if ok {
		return store, nil
	}

	loaded, err := p.load(dir)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.cache[dir]; ok {
		return existing, nil
	}
	p.cache[dir] = loaded
	return loaded, nil
}

// ListModels reports the names that Store accepts.
func (p *CachedStoreProvider) ListModels() ([]string, error) {
	var names []string
	if p.cfg.DefaultModelPath != "" {
		names = append(names, filepath.Base(filepath.Clean(p.cfg.DefaultModelPath)))
	}
	if dir := p.modelsDir(); dir != "" {
		runs, err := discoverModels(dir)
		if err != nil {
			return nil, err
		}
		for _, r := range runs {
			names = append(names, filepath.Base(r))
		}
	}
	sort.Strings(names)
	return compactStrings(names), nil
}

func (p *CachedStoreProvider) resolveModelPath(modelID string) (string, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID != "" {
		if strings.Contains(modelID, string(filepath.Separator)) || strings.Contains(modelID, "..") {
			return "", newInvalidRequest(fmt.Sprintf("model %q must be a plain name", modelID))
		}
		if p.cfg.DefaultModelPath != "" && filepath.Base(filepath.Clean(p.cfg.DefaultModelPath)) == modelID {
			return filepath.Clean(p.cfg.DefaultModelPath), nil
		}
		modelsDir := p.modelsDir()
		if modelsDir == "" {
			return "", fmt.Errorf("%w: %q (no models path configured)", ErrModelNotFound, modelID)
		}
		cand := filepath.Join(modelsDir, modelID)
		if isRunDir(cand) {
			return cand, nil
		}
		return "", fmt.Errorf("%w: %q in %s", ErrModelNotFound, modelID, modelsDir)
	}

	if p.cfg.DefaultModelPath != "" {
		return filepath.Clean(p.cfg.DefaultModelPath), nil
	}
	modelsDir := p.modelsDir()
	if modelsDir == "" {
		return "", fmt.Errorf("model is required")
	}
	models, err := discoverModels(modelsDir)
	if err != nil {
		return "", err
	}
	if len(models) == 1 {
		return models[0], nil
	}
	if len(models) == 0 {
		return "", fmt.Errorf("%w: no trained embeddings in %s", ErrModelNotFound, modelsDir)
	}
	return "", newInvalidRequest(fmt.Sprintf("multiple models found in %s; specify model", modelsDir))
}

func (p *CachedStoreProvider) modelsDir() string {
	if strings.TrimSpace(p.cfg.ModelsPath) != "" {
		return strings.TrimSpace(p.cfg.ModelsPath)
	}
	return strings.TrimSpace(os.Getenv(envModelsDir))
}

// discoverModels lists subdirectories of dir that hold a weights file.
func discoverModels(dir string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(ents))
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		cand := filepath.Join(dir, e.Name())
		if isRunDir(cand) {
			models = append(models, cand)
		}
	}
	return models, nil
}

func isRunDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, embeddings.WeightsFile))
	return err == nil
}

func compactStrings(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i > 0 && v == s[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
