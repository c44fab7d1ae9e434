// Package etl runs one fetch -> normalize -> upsert pass for a configured job.
// A Job is pure configuration; all three content types share Normalize and Runner.
package etl

import (
	"errors"
	"fmt"
	"time"

	"curiosity-sync/internal/airtable"
	"curiosity-sync/internal/docstore"
)

// Key is the identity extracted from a record before anything is written.
// Parent is the leading document segment for nested collections (city key,
// curiosity slug) and is empty for top-level collections.
type Key struct {
	Parent string
	ID     string
}

// Job describes one sync pipeline bound to a source table/view and a target
// document-path shape.
type Job struct {
	Name        string
	Table       string
	View        string
	MaxRecords  int
	RequireAuth bool

	// SingleRecord jobs report the id of the document they wrote and answer
	// "no records" when the view is empty.
	SingleRecord bool

	// Key extracts the required identity or returns a *SkipError.
	Key func(rec airtable.Record) (Key, error)
	// Body maps the raw fields into the document body.
	Body func(rec airtable.Record, key Key) map[string]any
	// Target builds the collection path and document id.
	Target func(rec airtable.Record, key Key) (docstore.Path, string)
}

// Validate reports configuration mistakes before a run starts.
func (j Job) Validate() error {
	switch {
	case j.Name == "":
		return errors.New("job name is required")
	case j.Table == "":
		return fmt.Errorf("job %s: table is required", j.Name)
	case j.Key == nil || j.Body == nil || j.Target == nil:
		return fmt.Errorf("job %s: key, body and target mappers are required", j.Name)
	}
	return nil
}

// ListRequest is the fetch the job performs.
func (j Job) ListRequest(pageSize int) airtable.ListRequest {
	return airtable.ListRequest{
		Table:      j.Table,
		View:       j.View,
		PageSize:   pageSize,
		MaxRecords: j.MaxRecords,
	}
}

// Document is a normalized record ready for a merge-write.
type Document struct {
	Collection     docstore.Path
	ID             string
	Body           map[string]any
	SourceRecordID string
	UpdatedAt      time.Time
}

// Path returns the full document path.
func (d Document) Path() string {
	return d.Collection.DocPath(d.ID)
}

// SkipError marks a record that cannot produce a document. It never aborts a run.
// Warn flags skips that point at a schema or configuration gap.
type SkipError struct {
	RecordID string
	Reason   string
	Warn     bool
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skip record %s: %s", e.RecordID, e.Reason)
}

// Skip returns a *SkipError for reason.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// SkipWarn returns a *SkipError flagged as a configuration gap.
func SkipWarn(reason string) error {
	return &SkipError{Reason: reason, Warn: true}
}

// IsSkip reports whether err is a *SkipError.
func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}
