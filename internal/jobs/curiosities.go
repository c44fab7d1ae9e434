// Package jobs holds the configured sync pipelines: global curiosities,
// per-city local hooks, and per-curiosity extensions.
package jobs

import (
	"curiosity-sync/internal/airtable"
	"curiosity-sync/internal/docstore"
	"curiosity-sync/internal/etl"
)

// Job names.
const (
	NameCuriosities     = "curiosities"
	NameCuriositiesTest = "curiosities-test"
	NameHooks           = "hooks"
	NameExtensions      = "extensions"
)

// Collection roots in the document database.
const (
	CollectionCuriosities = "curiosities_global"
	CollectionCities      = "cities"
	CollectionLocalHooks  = "local_hooks"
	CollectionExtensions  = "extensions"
)

const (
	curiositiesTable = "Table: Global Curiosities"
	curiositiesView  = "Published_Curiosities"
)

// Curiosities syncs every published curiosity to curiosities_global/{slug}.
func Curiosities() etl.Job {
	return etl.Job{
		Name:        NameCuriosities,
		Table:       curiositiesTable,
		View:        curiositiesView,
		RequireAuth: true,
		Key:         curiosityKey,
		Body:        curiosityBody,
		Target:      curiosityTarget,
	}
}

// CuriositiesTest syncs only the first published curiosity and reports its slug.
func CuriositiesTest() etl.Job {
	job := Curiosities()
	job.Name = NameCuriositiesTest
	job.MaxRecords = 1
	job.SingleRecord = true
	return job
}

func curiosityKey(rec airtable.Record) (etl.Key, error) {
	title := rec.Fields.Text("Title (Spark)")
	if title == "" {
		return etl.Key{}, etl.Skip("missing Title (Spark)")
	}
	slug := etl.SlugFrom(rec.Fields.Text("Slug"), title)
	if slug == "" {
		return etl.Key{}, etl.Skip("missing Slug and Title")
	}
	return etl.Key{ID: slug}, nil
}

func curiosityBody(rec airtable.Record, key etl.Key) map[string]any {
	f := rec.Fields
	return map[string]any{
		"slug":        key.ID,
		"title":       f.Text("Title (Spark)"),
		"sparkText":   f.Text("Spark Text"),
		"categoryKey": f.Text("Category"),
		"mood":        f.Text("Mood"),
		"keywords":    f.Split("Keywords", ","),
		"image":       f.FirstAttachmentURL("Image"),
		"author":      f.Text("Author"),
		"sourceUrls":  f.Lines("Source URLs"),
		"publishDate": f.TextOrNil("Publish Date"),
		"status":      f.TextOr("Content Status", etl.DefaultStatus),
	}
}

func curiosityTarget(_ airtable.Record, key etl.Key) (docstore.Path, string) {
	return docstore.Collection(CollectionCuriosities), key.ID
}
