package cdc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"forumpipe/internal/broker"
	"forumpipe/internal/events"
)

// Debezium operation codes.
const (
	OpCreate   = "c"
	OpUpdate   = "u"
	OpDelete   = "d"
	OpRead     = "r"
	OpTruncate = "t"
)

// RowImage is the part of a posts row the invalidator needs.
type RowImage struct {
	ID events.ID `json:"id"`
}

type Source struct {
	Connector string `json:"connector"`
	DB        string `json:"db"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
	LSN       int64  `json:"lsn"`
}

// ChangeRecord is one Debezium change event for the posts table.
type ChangeRecord struct {
	Op     string    `json:"op"`
	Before *RowImage `json:"before"`
	After  *RowImage `json:"after"`
	Source *Source   `json:"source,omitempty"`
	TsMs   int64     `json:"ts_ms"`

	// Tombstone is set for the empty-value record Debezium writes after a delete for log compaction.
	Tombstone bool `json:"-"`
}

// ID returns the row id, preferring the after image.
func (r ChangeRecord) ID() (int64, bool) {
	if r.After != nil && r.After.ID > 0 {
		return int64(r.After.ID), true
	}
	if r.Before != nil && r.Before.ID > 0 {
		return int64(r.Before.ID), true
	}
	return 0, false
}

// Decode accepts both the bare change record and the {schema, payload} form produced when the
// JSON converter runs with schemas enabled.
func Decode(data []byte) (ChangeRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ChangeRecord{Tombstone: true}, nil
	}

	var probe struct {
		Op      string          `json:"op"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ChangeRecord{}, fmt.Errorf("invalid change record: %w", err)
	}

	body := data
	if probe.Op == "" && len(probe.Payload) > 0 && !bytes.Equal(probe.Payload, []byte("null")) {
		body = probe.Payload
	}

	var rec ChangeRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return ChangeRecord{}, fmt.Errorf("invalid change record: %w", err)
	}
	return rec, nil
}

func DecodeMessage(m broker.Message) (ChangeRecord, error) {
	return Decode(m.Value)
}
