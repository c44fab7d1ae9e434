package etl

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"curiosity-sync/internal/airtable"
)

// Body keys every normalized document carries.
const (
	FieldSourceID  = "_airtableId"
	FieldUpdatedAt = "updatedAt"
)

// DefaultStatus is stored when the status field is absent.
const DefaultStatus = "Draft"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lower-cases s and replaces every whitespace run with a hyphen.
func Slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "-")
}

// SlugFrom prefers an explicit slug and falls back to slugifying the title.
func SlugFrom(explicit, title string) string {
	if explicit != "" {
		return explicit
	}
	return Slugify(title)
}

// Normalize applies the job's mappers to one record. It returns a *SkipError
// when the job's required key cannot be derived; optional data never fails.
func Normalize(job Job, rec airtable.Record, now time.Time) (Document, error) {
	if rec.Fields == nil {
		rec.Fields = airtable.Fields{}
	}
	key, err := job.Key(rec)
	if err != nil {
		var skip *SkipError
		if errors.As(err, &skip) {
			skip.RecordID = rec.ID
			return Document{}, skip
		}
		return Document{}, &SkipError{RecordID: rec.ID, Reason: err.Error()}
	}

	collection, docID := job.Target(rec, key)
	if docID == "" {
		return Document{}, &SkipError{RecordID: rec.ID, Reason: "empty document id"}
	}

	body := job.Body(rec, key)
	if body == nil {
		body = map[string]any{}
	}
	body[FieldSourceID] = rec.ID
	body[FieldUpdatedAt] = now

	return Document{
		Collection:     collection,
		ID:             docID,
		Body:           body,
		SourceRecordID: rec.ID,
		UpdatedAt:      now,
	}, nil
}
