package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/repository"
)

// Repository implements EventArchive for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema initializes the ClickHouse schema. ReplacingMergeTree keyed
// by event_id makes replayed events collapse to a single row.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS retention_events (
		event_id String,
		event_type LowCardinality(String),
		user_id String,
		timestamp DateTime64(3),
		payload String,
		received_at DateTime64(3) DEFAULT now64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (event_id)
	ORDER BY (event_id, timestamp)
	PARTITION BY toYYYYMM(timestamp)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create retention_events table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch appends a batch of events to the archive
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO retention_events")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, event := range events {
		payloadJSON := "{}"
		if len(event.Payload) > 0 {
			raw, err := json.Marshal(event.Payload)
			if err != nil {
				return 0, fmt.Errorf("failed to marshal payload for event %s: %w", event.EventID, err)
			}
			payloadJSON = string(raw)
		}

		receivedAt := event.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now().UTC()
		}

		err := batch.Append(
			event.EventID,
			string(event.Type),
			event.UserID,
			event.Timestamp,
			payloadJSON,
			receivedAt,
			uint64(receivedAt.UnixNano()),
		)

		if err != nil {
			return 0, fmt.Errorf("failed to append event to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// GetVolume retrieves aggregated event volume from ClickHouse
func (r *Repository) GetVolume(ctx context.Context, query repository.VolumeQuery) (*repository.VolumeResult, error) {
	result := &repository.VolumeResult{
		Groups: []repository.VolumeGroupResult{},
	}

	// Build the WHERE clause
	whereClause := "WHERE timestamp >= fromUnixTimestamp64Milli(?) AND timestamp <= fromUnixTimestamp64Milli(?)"
	args := []interface{}{query.From, query.To}
	if query.EventType != "" {
		whereClause += " AND event_type = ?"
		args = append(args, query.EventType)
	}

	// Get overall volume
	overallQuery := fmt.Sprintf(`
		SELECT
			count() as total_count,
			uniq(user_id) as unique_users
		FROM retention_events FINAL
		%s
	`, whereClause)

	row := r.client.Conn().QueryRow(ctx, overallQuery, args...)
	if err := row.Scan(&result.TotalCount, &result.UniqueUsers); err != nil {
		return nil, fmt.Errorf("failed to query overall volume: %w", err)
	}

	// If groupBy is specified, get grouped volume
	if query.GroupBy != "" {
		validGroupBy := map[string]bool{"event_type": true, "hour": true, "day": true}
		if !validGroupBy[query.GroupBy] {
			return nil, fmt.Errorf("unsupported group_by value: %s (supported: event_type, hour, day)", query.GroupBy)
		}

		var selectField string
		var groupByClause string
		var orderBy string

		switch query.GroupBy {
		case "event_type":
			selectField = "event_type"
			groupByClause = "GROUP BY event_type"
			orderBy = "ORDER BY total_count DESC"
		case "hour":
			selectField = "formatDateTime(toStartOfHour(timestamp), '%Y-%m-%d %H:00:00')"
			groupByClause = "GROUP BY toStartOfHour(timestamp)"
			orderBy = "ORDER BY group_value ASC"
		case "day":
			selectField = "formatDateTime(toStartOfDay(timestamp), '%Y-%m-%d')"
			groupByClause = "GROUP BY toStartOfDay(timestamp)"
			orderBy = "ORDER BY group_value ASC"
		}

		groupedQuery := fmt.Sprintf(`
			SELECT
				%s as group_value,
				count() as total_count
			FROM retention_events FINAL
			%s
			%s
			%s
		`, selectField, whereClause, groupByClause, orderBy)

		rows, err := r.client.Conn().Query(ctx, groupedQuery, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query grouped volume: %w", err)
		}
		defer func(rows driver.Rows) {
			err := rows.Close()
			if err != nil {
				r.log.Error("Failed to close grouped volume rows", zap.Error(err))
			}
		}(rows)

		for rows.Next() {
			var group repository.VolumeGroupResult
			if err := rows.Scan(&group.GroupValue, &group.TotalCount); err != nil {
				return nil, fmt.Errorf("failed to scan grouped volume row: %w", err)
			}
			result.Groups = append(result.Groups, group)
		}

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating grouped volume rows: %w", err)
		}
	}

	return result, nil
}
