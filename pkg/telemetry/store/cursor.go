package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"mercator-hq/saturn/pkg/telemetry/events"
)

// Cursor streams stored events in timestamp order, one bounded page per
// Next call. Each page runs a fresh query against the store, so a cursor
// never holds a database handle between calls and re-invoking QueryRange
// always yields an independent, restartable sequence.
type Cursor struct {
	store     *TimeSeriesStore
	eventType string
	start     string
	end       string
	pageSize  int
	offset    int
	done      bool
}

// QueryRange returns a cursor over events of eventType with
// start <= timestamp < end, ordered by timestamp ascending.
func (s *TimeSeriesStore) QueryRange(eventType string, start, end time.Time, pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = s.cfg.BatchSize
	}
	return &Cursor{
		store:     s,
		eventType: eventType,
		start:     start.UTC().Format(time.RFC3339Nano),
		end:       end.UTC().Format(time.RFC3339Nano),
		pageSize:  pageSize,
	}
}

// Next returns the next page of events. It returns a nil slice once the
// range is exhausted.
func (c *Cursor) Next(ctx context.Context) ([]events.Event, error) {
	if c.done {
		return nil, nil
	}

	rows, err := c.store.db.QueryContext(ctx, `
		SELECT timestamp_utc, event_id, event_type, event_source, severity, payload
		FROM events
		WHERE event_type = ? AND timestamp_utc >= ? AND timestamp_utc < ?
		ORDER BY timestamp_utc ASC, event_id ASC
		LIMIT ? OFFSET ?`,
		c.eventType, c.start, c.end, c.pageSize, c.offset)
	if err != nil {
		return nil, newStorageError("query", err)
	}
	defer rows.Close()

	page := make([]events.Event, 0, c.pageSize)
	for rows.Next() {
		var e events.Event
		var payload sql.NullString
		if err := rows.Scan(&e.TimestampUTC, &e.EventID, &e.EventType, &e.EventSource, &e.Severity, &payload); err != nil {
			return nil, newStorageError("query", err)
		}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				// Malformed payloads surface as payload-less events; the
				// consumer decides whether to skip them.
				c.store.logger.Warn("stored payload not parseable",
					"event_id", e.EventID,
					"error", err)
			}
		}
		page = append(page, e)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("query", err)
	}

	c.offset += len(page)
	if len(page) < c.pageSize {
		c.done = true
	}
	if len(page) == 0 {
		return nil, nil
	}
	return page, nil
}
