// Package vectorstore provides a VecLite-backed index of prompt texts used to
// catch near-duplicate questions that anchor hashing misses.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/abdul-hamid-achik/veclite"

	"github.com/paultaki/whisperprompts/internal/embedder"
	"github.com/paultaki/whisperprompts/internal/model"
)

const (
	promptsCollection = "prompts"

	// DefaultThreshold is the cosine similarity at which two prompts for the
	// same user are treated as the same question.
	DefaultThreshold = 0.92
)

// Config holds configuration for the PromptIndex.
type Config struct {
	// Path to the VecLite database file (e.g., "data/prompts.veclite").
	Path      string
	Threshold float32
}

// Match is the result of checking a prompt against the index.
type Match struct {
	Duplicate  bool
	PromptID   string // nearest stored prompt when Duplicate
	Similarity float32
	Vector     []float32
}

// PromptIndex stores one vector per saved prompt, partitioned by user.
type PromptIndex struct {
	mu        sync.Mutex
	vecdb     *veclite.DB
	coll      *veclite.Collection
	embedder  embedder.Embedder
	threshold float32
}

// New opens the index at cfg.Path. The collection is created on first insert
// because its dimension comes from the embedder.
func New(cfg Config, emb embedder.Embedder) (*PromptIndex, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	vecdb, err := veclite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open veclite db: %w", err)
	}

	ix := &PromptIndex{
		vecdb:     vecdb,
		embedder:  emb,
		threshold: threshold,
	}

	if coll, err := vecdb.GetCollection(promptsCollection); err == nil {
		ix.coll = coll
		slog.Debug("opened prompt index", "path", cfg.Path, "count", coll.Count())
	}

	return ix, nil
}

// Check embeds p's text and looks for a stored prompt of the same user at or
// above the similarity threshold. The returned vector can be passed to Add.
func (ix *PromptIndex) Check(ctx context.Context, p model.Prompt) (Match, error) {
	vec, err := ix.embedder.Embed(ctx, p.PromptText)
	if err != nil {
		return Match{}, fmt.Errorf("embed prompt: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	m := Match{Vector: vec}
	if ix.coll == nil || ix.coll.Count() == 0 {
		return m, nil
	}

	results, err := ix.coll.Search(vec,
		veclite.TopK(1),
		veclite.Threshold(ix.threshold),
		veclite.WithFilter(veclite.Equal("user_id", p.UserID)),
	)
	if err != nil {
		return Match{}, fmt.Errorf("search prompt index: %w", err)
	}
	if len(results) == 0 {
		return m, nil
	}

	m.Duplicate = true
	m.Similarity = results[0].Score
	if id, ok := results[0].Record.Payload["prompt_id"].(string); ok {
		m.PromptID = id
	}
	return m, nil
}

// Add stores a saved prompt's vector.
func (ix *PromptIndex) Add(ctx context.Context, p model.Prompt, vec []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.coll == nil {
		coll, err := ix.vecdb.CreateCollection(promptsCollection,
			veclite.WithDimension(len(vec)),
			veclite.WithDistanceType(veclite.DistanceCosine),
			veclite.WithHNSW(16, 200),
		)
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		ix.coll = coll
	}

	payload := map[string]any{
		"prompt_id":   p.ID,
		"user_id":     p.UserID,
		"tier":        string(p.Tier),
		"memory_type": string(p.MemoryType),
	}
	if _, err := ix.coll.InsertDocument(vec, p.PromptText, payload); err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

// Count returns the number of indexed prompts.
func (ix *PromptIndex) Count() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.coll == nil {
		return 0
	}
	return ix.coll.Count()
}

// Close persists pending changes and closes the VecLite database.
func (ix *PromptIndex) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.vecdb == nil {
		return nil
	}
	if err := ix.vecdb.Sync(); err != nil {
		slog.Warn("sync prompt index", "error", err)
	}
	return ix.vecdb.Close()
}
