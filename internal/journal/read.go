package journal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/strand/internal/trace"
)

// ReadAll returns every event in sequence order.
func (j *Journal) ReadAll(ctx context.Context) ([]trace.Event, error) {
	return j.readEvents(ctx, `
		SELECT seq, token, kind, name, detail
		FROM events
		ORDER BY seq ASC
	`)
}

// ReadToken returns the events correlated with one perform token, in
// sequence order.
func (j *Journal) ReadToken(ctx context.Context, token string) ([]trace.Event, error) {
	return j.readEvents(ctx, `
		SELECT seq, token, kind, name, detail
		FROM events
		WHERE token = ?
		ORDER BY seq ASC
	`, token)
}

// ReadKind returns the events of one kind, in sequence order.
func (j *Journal) ReadKind(ctx context.Context, kind string) ([]trace.Event, error) {
	return j.readEvents(ctx, `
		SELECT seq, token, kind, name, detail
		FROM events
		WHERE kind = ?
		ORDER BY seq ASC
	`, kind)
}

// LastSeq returns the highest stored sequence number, or 0 for an empty log.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var last sql.NullInt64
	if err := j.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM events").Scan(&last); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64, nil
}

func (j *Journal) readEvents(ctx context.Context, query string, args ...any) ([]trace.Event, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var events []trace.Event
	for rows.Next() {
		var e trace.Event
		var detail sql.NullString
		if err := rows.Scan(&e.Seq, &e.Token, &e.Kind, &e.Name, &detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if detail.Valid {
			obj, err := decodeDetail(detail.String)
			if err != nil {
				return nil, fmt.Errorf("event seq %d: %w", e.Seq, err)
			}
			e.Detail = obj
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	return events, nil
}

// decodeDetail parses a stored canonical JSON object back into the
// restricted value tree. UseNumber keeps integers out of float64, which
// ToValue would reject.
func decodeDetail(s string) (trace.Object, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}

	v, err := toValue(raw)
	if err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}
	obj, ok := v.(trace.Object)
	if !ok {
		return nil, fmt.Errorf("decode detail: not an object")
	}
	return obj, nil
}

func toValue(v any) (trace.Value, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %q", val)
		}
		return trace.Int(n), nil
	case map[string]any:
		obj := make(trace.Object, len(val))
		for k, elem := range val {
			tv, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = tv
		}
		return obj, nil
	case []any:
		arr := make(trace.Array, len(val))
		for i, elem := range val {
			tv, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = tv
		}
		return arr, nil
	default:
		return trace.ToValue(v)
	}
}
