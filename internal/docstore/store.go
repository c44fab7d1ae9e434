// Package docstore writes normalized documents into a hierarchical document
// database using merge semantics: fields present in the body overwrite stored
// fields, everything else on the stored document is left untouched.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store performs keyed merge-writes. Set must be idempotent for identical input.
type Store interface {
	Set(ctx context.Context, collection Path, docID string, body map[string]any) error
	Kind() string
	Close() error
}

// Path is an ordered sequence of alternating collection and document segments
// that ends in a collection, e.g. {"cities", "Austin", "local_hooks"}.
type Path []string

// Collection builds a Path from its segments.
func Collection(segments ...string) Path {
	return Path(segments)
}

// String joins the segments with "/".
func (p Path) String() string {
	return strings.Join(p, "/")
}

// DocPath returns the full document path for docID.
func (p Path) DocPath(docID string) string {
	if len(p) == 0 {
		return docID
	}
	return p.String() + "/" + docID
}

// ErrInvalidPath marks malformed collection paths or document ids.
var ErrInvalidPath = errors.New("invalid document path")

// Validate checks that the path names a collection and docID a document in it.
func (p Path) Validate(docID string) error {
	if len(p) == 0 || len(p)%2 == 0 {
		return fmt.Errorf("%w: %q does not name a collection", ErrInvalidPath, p.String())
	}
	for _, seg := range append(append([]string{}, p...), docID) {
		if err := validateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

func validateSegment(seg string) error {
	switch {
	case strings.TrimSpace(seg) == "":
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	case strings.Contains(seg, "/"):
		return fmt.Errorf("%w: segment %q contains '/'", ErrInvalidPath, seg)
	case seg == "." || seg == "..":
		return fmt.Errorf("%w: segment %q is reserved", ErrInvalidPath, seg)
	case len(seg) > 4 && strings.HasPrefix(seg, "__") && strings.HasSuffix(seg, "__"):
		return fmt.Errorf("%w: segment %q is reserved", ErrInvalidPath, seg)
	case len(seg) > 1500:
		return fmt.Errorf("%w: segment longer than 1500 bytes", ErrInvalidPath)
	}
	return nil
}

// UpsertError reports a rejected write and carries the store's message.
type UpsertError struct {
	Path string
	Err  error
}

func (e *UpsertError) Error() string {
	if e == nil || e.Err == nil {
		return "upsert failed"
	}
	return fmt.Sprintf("upsert %s: %s", e.Path, e.Err.Error())
}

func (e *UpsertError) Unwrap() error { return e.Err }

func upsertErr(collection Path, docID string, err error) error {
	return &UpsertError{Path: collection.DocPath(docID), Err: err}
}
