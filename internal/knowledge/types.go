package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// Record is a stored knowledge entry.
type Record struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Content        string
	Metadata       map[string]string // optional (source, title, etc.)
	EmbeddingModel string
	CreatedAt      time.Time
}

// Result is a single retrieval hit with its cosine similarity score.
type Result struct {
	Record     Record
	Similarity float64 // 1 = identical direction, 0 = orthogonal
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK      int
	threshold float64
	timeout   time.Duration
}

// WithTopK sets the maximum number of results to return.
// Default is 5 if not specified.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithThreshold sets the minimum cosine similarity a result must exceed.
// Default is 0.5; results at or below the threshold are excluded.
func WithThreshold(threshold float64) SearchOption {
	return func(c *searchConfig) {
		c.threshold = threshold
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:      5,
		threshold: 0.5,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
