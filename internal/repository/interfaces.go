package repository

import (
	"context"

	"github.com/retainly/retention-service/internal/domain"
)

// VolumeQuery represents an event volume query parameters
type VolumeQuery struct {
	EventType string
	From      int64
	To        int64
	GroupBy   string
}

// VolumeGroupResult represents aggregated volume for a specific group
type VolumeGroupResult struct {
	GroupValue string
	TotalCount uint64
}

// VolumeResult represents the result of an event volume query
type VolumeResult struct {
	TotalCount  uint64
	UniqueUsers uint64
	Groups      []VolumeGroupResult
}

// EventArchive defines the interface for the append-only event archive
type EventArchive interface {
	// InsertBatch appends a batch of events to the archive
	InsertBatch(ctx context.Context, events []*domain.Event) (int, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the archive and releases resources
	Close() error

	// GetVolume retrieves aggregated event volume based on the query
	GetVolume(ctx context.Context, query VolumeQuery) (*VolumeResult, error)
}
