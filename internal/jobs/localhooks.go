package jobs

import (
	"strings"

	"curiosity-sync/internal/airtable"
	"curiosity-sync/internal/docstore"
	"curiosity-sync/internal/etl"
)

// LocalHooks syncs city-scoped hooks to cities/{cityKey}/local_hooks/{slug}.
// The endpoint is public.
func LocalHooks() etl.Job {
	return etl.Job{
		Name:   NameHooks,
		Table:  "Local Hooks",
		View:   "Published_Hooks",
		Key:    hookKey,
		Body:   hookBody,
		Target: hookTarget,
	}
}

func hookKey(rec airtable.Record) (etl.Key, error) {
	city := strings.TrimSpace(rec.Fields.Text("City"))
	if city == "" {
		return etl.Key{}, etl.Skip("missing City")
	}
	slug := etl.SlugFrom(rec.Fields.Text("Slug"), rec.Fields.Text("Title"))
	if slug == "" {
		return etl.Key{}, etl.Skip("missing Slug and Title")
	}
	return etl.Key{Parent: city, ID: slug}, nil
}

func hookBody(rec airtable.Record, key etl.Key) map[string]any {
	f := rec.Fields
	return map[string]any{
		"cityKey":    key.Parent,
		"keyword":    f.Text("Keyword"),
		"title":      f.Text("Title"),
		"actionText": f.Text("Action Text"),
		"location": map[string]any{
			"lat":          f.NumberOrNil("Lat"),
			"lng":          f.NumberOrNil("Lng"),
			"address":      f.Text("Address"),
			"neighborhood": f.Text("Neighborhood"),
			"mapsUrl":      f.Text("Maps URL"),
			"free":         f.Bool("Free"),
		},
		"type":   f.Text("Type"),
		"image":  f.FirstAttachmentURL("Image"),
		"status": f.TextOr("Content Status", etl.DefaultStatus),
		"slug":   key.ID,
	}
}

func hookTarget(_ airtable.Record, key etl.Key) (docstore.Path, string) {
	return docstore.Collection(CollectionCities, key.Parent, CollectionLocalHooks), key.ID
}
