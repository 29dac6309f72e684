package event

import (
	"regexp"
	"strings"
	"time"
)

// Query selects a subset of retained events. All filters are conjunctive;
// zero values mean "no filter".
type Query struct {
	// TerminalID restricts to events for one terminal (exact match).
	TerminalID string
	// Since excludes events with timestamp <= the given instant.
	Since time.Time
	// After is an exclusive sequence-number cursor for pagination.
	After uint64
	// Limit caps the number of returned events; 0 means no cap.
	Limit int
	// Types restricts to the given event kinds.
	Types []Type
	// Contains keeps events whose text contains the substring,
	// case-insensitively.
	Contains string
	// Regex keeps events whose text matches the expression.
	Regex *regexp.Regexp
}

// Result is the answer to a Query. Events are in original append order,
// truncated earliest-matching-first when Limit is set: a pager that keeps
// advancing After with NextCursor therefore sees every retained match
// exactly once.
type Result struct {
	Events []Event `json:"events"`
	Count  int     `json:"count"`
	// NextCursor is the sequence number of the last returned event, for
	// use as the next After value. Zero when no events matched.
	NextCursor uint64 `json:"nextCursor"`
	// HasMore reports whether matching events beyond Limit remain.
	HasMore bool `json:"hasMore"`
	// Truncated reports that events addressed by After have already been
	// evicted from the ring, so the page sequence has a gap.
	Truncated bool `json:"truncated"`
}

// Query filters the in-memory ring only; the durable mirror is not
// consulted.
func (l *Log) Query(q Query) Result {
	events := l.Snapshot()

	var res Result
	if len(events) > 0 && q.After > 0 && q.After+1 < events[0].Seq {
		res.Truncated = true
	}

	matched := make([]Event, 0, len(events))
	for _, e := range events {
		if !q.matches(e) {
			continue
		}
		matched = append(matched, e)
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
		res.HasMore = true
	}

	res.Events = matched
	res.Count = len(matched)
	if len(matched) > 0 {
		res.NextCursor = matched[len(matched)-1].Seq
	}
	return res
}

func (q Query) matches(e Event) bool {
	if q.TerminalID != "" && e.TerminalID != q.TerminalID {
		return false
	}
	if q.After > 0 && e.Seq <= q.After {
		return false
	}
	if !q.Since.IsZero() && !e.TS.After(q.Since) {
		return false
	}
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Contains != "" && !strings.Contains(strings.ToLower(e.Text), strings.ToLower(q.Contains)) {
		return false
	}
	if q.Regex != nil && !q.Regex.MatchString(e.Text) {
		return false
	}
	return true
}
