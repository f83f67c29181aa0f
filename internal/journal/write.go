package journal

import (
	"context"
	"fmt"

	"github.com/roach88/strand/internal/trace"
)

// Append inserts a trace event. The event's content-addressed ID is the
// primary key, so appending an identical event twice is a silent no-op;
// other constraint violations still return errors.
func (j *Journal) Append(ctx context.Context, e trace.Event) error {
	id, err := e.ID()
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	var detail any
	if len(e.Detail) > 0 {
		b, err := trace.MarshalCanonical(e.Detail)
		if err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		detail = string(b)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO events (id, seq, token, kind, name, detail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		e.Seq,
		e.Token,
		e.Kind,
		e.Name,
		detail,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// AppendNext builds an event with the next sequence number and appends it.
// Returns the stored event.
func (j *Journal) AppendNext(ctx context.Context, token, kind, name string, detail trace.Object) (trace.Event, error) {
	e := trace.Event{
		Seq:    j.NextSeq(),
		Token:  token,
		Kind:   kind,
		Name:   name,
		Detail: detail,
	}
	if err := j.Append(ctx, e); err != nil {
		return trace.Event{}, err
	}
	return e, nil
}
