package jobs

import (
	"strings"

	"curiosity-sync/internal/airtable"
	"curiosity-sync/internal/docstore"
	"curiosity-sync/internal/etl"
)

// Extensions syncs affiliate links and other extensions to
// curiosities_global/{curiositySlug}/extensions/{recordID}. Several extensions
// can hang off one curiosity, so the source record id is the document id.
func Extensions() etl.Job {
	return etl.Job{
		Name:        NameExtensions,
		Table:       "Curiosity Extensions",
		View:        "Published_Extensions",
		RequireAuth: true,
		Key:         extensionKey,
		Body:        extensionBody,
		Target:      extensionTarget,
	}
}

// extensionKey prefers the "Curiosity Slug" lookup. A bare "Curiosity" link
// field only helps when it holds text; a list of linked record ids cannot be
// mapped to a slug here.
func extensionKey(rec airtable.Record) (etl.Key, error) {
	f := rec.Fields
	slug := ""
	if lookup := f.Strings("Curiosity Slug"); len(lookup) > 0 {
		slug = lookup[0]
	} else if f.IsList("Curiosity") {
		if len(f.Strings("Curiosity")) > 0 {
			return etl.Key{}, etl.SkipWarn("linked Curiosity ids without a slug lookup")
		}
	} else {
		slug = f.Text("Curiosity")
	}

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return etl.Key{}, etl.Skip("missing curiositySlug")
	}
	return etl.Key{Parent: slug, ID: rec.ID}, nil
}

func extensionBody(rec airtable.Record, key etl.Key) map[string]any {
	f := rec.Fields
	return map[string]any{
		"curiositySlug":  key.Parent,
		"type":           f.Text("Type"),
		"title":          f.Text("Title"),
		"description":    f.Text("Description"),
		"displayLabel":   f.Text("Display Label"),
		"partner":        f.Text("Partner"),
		"url":            f.Text("URL"),
		"isAffiliate":    f.Bool("Is Affiliate"),
		"commissionRate": f.NumberOrNil("Commission Rate"),
		"status":         f.TextOr("Content Status", etl.DefaultStatus),
	}
}

func extensionTarget(_ airtable.Record, key etl.Key) (docstore.Path, string) {
	return docstore.Collection(CollectionCuriosities, key.Parent, CollectionExtensions), key.ID
}
