package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// TimelineEntry is one status transition.
type TimelineEntry struct {
	Status enums.OrderStatus `json:"status"`
	At     time.Time         `json:"at"`
}

// Timeline is the append-only status log of an order. The zero value is empty.
type Timeline struct {
	entries []TimelineEntry
}

// NewTimeline replays entries through Append so a stored log is checked on load.
func NewTimeline(entries ...TimelineEntry) (Timeline, error) {
	var t Timeline
	for _, entry := range entries {
		next, err := t.Append(entry.Status, entry.At)
		if err != nil {
			return Timeline{}, err
		}
		t = next
	}
	return t, nil
}

// TimelineFromHistory builds a timeline from persisted rows ordered by seq.
func TimelineFromHistory(rows []models.OrderStatusEntry) (Timeline, error) {
	entries := make([]TimelineEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, TimelineEntry{Status: row.Status, At: row.At})
	}
	return NewTimeline(entries...)
}

// Append returns a new timeline with the entry added. The receiver is not modified.
func (t Timeline) Append(status enums.OrderStatus, at time.Time) (Timeline, error) {
	if !status.IsValid() {
		return t, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}
	if len(t.entries) == 0 {
		if status != enums.OrderStatusPending {
			return t, pkgerrors.New(pkgerrors.CodeStateConflict, "timeline must start with pending")
		}
	} else {
		last := t.entries[len(t.entries)-1]
		if !last.Status.CanTransitionTo(status) {
			return t, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move from %s to %s", last.Status, status)
		}
		if at.Before(last.At) {
			return t, pkgerrors.New(pkgerrors.CodeStateConflict, "timeline entry precedes the previous entry")
		}
	}

	next := make([]TimelineEntry, len(t.entries), len(t.entries)+1)
	copy(next, t.entries)
	next = append(next, TimelineEntry{Status: status, At: at})
	return Timeline{entries: next}, nil
}

// Entries returns a copy of the log in insertion order.
func (t Timeline) Entries() []TimelineEntry {
	out := make([]TimelineEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t Timeline) Len() int {
	return len(t.entries)
}

// Last returns the most recent entry.
func (t Timeline) Last() (TimelineEntry, bool) {
	if len(t.entries) == 0 {
		return TimelineEntry{}, false
	}
	return t.entries[len(t.entries)-1], true
}
