package etl

import (
	"testing"
	"time"

	"curiosity-sync/internal/airtable"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Lunar Halos":       "lunar-halos",
		"Two  Spaces\tTab":  "two-spaces-tab",
		"already-slugged":   "already-slugged",
		"MiXeD Case Title!": "mixed-case-title!",
		"":                  "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugFromPrefersExplicit(t *testing.T) {
	if got := SlugFrom("custom", "Some Title"); got != "custom" {
		t.Fatalf("expected explicit slug, got %q", got)
	}
	if got := SlugFrom("", "Some Title"); got != "some-title" {
		t.Fatalf("expected derived slug, got %q", got)
	}
}

func TestNormalizeSetsProvenance(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	doc, err := Normalize(itemsJob(), airtable.Record{ID: "recX", Fields: airtable.Fields{"Name": "Thing"}}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Path() != "items/thing" {
		t.Fatalf("unexpected path %q", doc.Path())
	}
	if doc.Body[FieldSourceID] != "recX" || doc.SourceRecordID != "recX" {
		t.Fatalf("source id not recorded: %#v", doc.Body)
	}
	if doc.Body[FieldUpdatedAt] != now {
		t.Fatalf("updatedAt not stamped: %#v", doc.Body[FieldUpdatedAt])
	}
}

func TestNormalizeSkipCarriesRecordID(t *testing.T) {
	_, err := Normalize(itemsJob(), airtable.Record{ID: "recEmpty"}, time.Now())
	skip, ok := err.(*SkipError)
	if !ok {
		t.Fatalf("expected *SkipError, got %T", err)
	}
	if skip.RecordID != "recEmpty" || skip.Reason != "missing Name" {
		t.Fatalf("unexpected skip: %+v", skip)
	}
	if !IsSkip(err) {
		t.Fatal("IsSkip should report true")
	}
}
