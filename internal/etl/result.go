package etl

import "time"

// Reason reported by single-record jobs when the view is empty.
const ReasonNoRecords = "no records"

// Result summarizes one run. It is returned to the trigger caller and never persisted.
type Result struct {
	Job      string
	RunID    string
	OK       bool
	Written  int
	Skipped  int
	Failed   int
	Slug     string
	Reason   string
	Error    string
	Err      error
	Duration time.Duration
}

// Payload renders the JSON body returned to trigger callers.
func (r Result) Payload() map[string]any {
	if !r.OK {
		out := map[string]any{"ok": false, "error": r.Error}
		if r.Written > 0 || r.Failed > 0 {
			out["wrote"] = r.Written
		}
		if r.Failed > 0 {
			out["failed"] = r.Failed
		}
		return out
	}
	out := map[string]any{
		"ok":      true,
		"wrote":   r.Written,
		"skipped": r.Skipped,
	}
	if r.Slug != "" {
		out["slug"] = r.Slug
	}
	if r.Reason != "" {
		out["reason"] = r.Reason
	}
	return out
}
