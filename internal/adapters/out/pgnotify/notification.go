package pgnotify

import (
	"encoding/json"
	"fmt"
	"strings"

	"cafe/internal/adapters/out/postgres/orderrepo"
	"cafe/internal/core/ports"
)

// Notification is one decoded trigger payload:
//
//	{"table": "orders", "op": "UPDATE", "record": {...row_to_json...}}
type Notification struct {
	Event  ports.PushEvent
	fields map[string]any
}

type payload struct {
	Table  string          `json:"table"`
	Op     string          `json:"op"`
	Record json.RawMessage `json:"record"`
}

// ParseNotification decodes a NOTIFY payload carrying an orders row.
func ParseNotification(extra string) (Notification, error) {
	var p payload
	if err := json.Unmarshal([]byte(extra), &p); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}

	op := ports.PushOperation(strings.ToUpper(p.Op))
	if op != ports.PushInsert && op != ports.PushUpdate {
		return Notification{}, fmt.Errorf("unsupported operation %q", p.Op)
	}

	var fields map[string]any
	if err := json.Unmarshal(p.Record, &fields); err != nil {
		return Notification{}, fmt.Errorf("decode record: %w", err)
	}

	var row orderrepo.OrderDTO
	if err := json.Unmarshal(p.Record, &row); err != nil {
		return Notification{}, fmt.Errorf("decode order row: %w", err)
	}
	snap, err := orderrepo.ToSnapshot(row)
	if err != nil {
		return Notification{}, fmt.Errorf("invalid order row: %w", err)
	}

	return Notification{
		Event: ports.PushEvent{
			Table:     p.Table,
			Operation: op,
			Order:     snap,
		},
		fields: fields,
	}, nil
}

// Matches reports whether the row satisfies filter. An empty filter matches everything.
func (n Notification) Matches(filter ports.PushFilter) bool {
	if filter.Column == "" {
		return true
	}
	v, ok := n.fields[filter.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == filter.Value
}
