package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// PointCounter reports how many chunks the index holds.
type PointCounter interface {
	Count(ctx context.Context) (int, error)
}
