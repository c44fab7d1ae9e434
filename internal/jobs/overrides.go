package jobs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"curiosity-sync/internal/shared/telemetry"
)

// Overrides retargets jobs at a different table or view without a rebuild.
//
//	jobs:
//	  curiosities:
//	    view: Staging_Curiosities
//	  hooks:
//	    requireAuth: true
type Overrides struct {
	Jobs map[string]Override `yaml:"jobs"`
}

// Override holds the per-job fields that may be replaced. Nil means unchanged.
type Override struct {
	Table       *string `yaml:"table"`
	View        *string `yaml:"view"`
	MaxRecords  *int    `yaml:"maxRecords"`
	RequireAuth *bool   `yaml:"requireAuth"`
}

// LoadOverrides reads an overrides file. An empty path yields no overrides.
func LoadOverrides(path string) (Overrides, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Overrides{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("read job overrides: %w", err)
	}
	return ParseOverrides(raw)
}

// ParseOverrides decodes YAML overrides, rejecting unknown keys.
func ParseOverrides(raw []byte) (Overrides, error) {
	var out Overrides
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return Overrides{}, fmt.Errorf("parse job overrides: %w", err)
	}
	return out, nil
}

// Apply replaces fields on registered jobs. Unknown job names are rejected.
func (o Overrides) Apply(r *Registry) error {
	for name, ov := range o.Jobs {
		job, ok := r.Lookup(name)
		if !ok {
			return fmt.Errorf("job overrides: unknown job %q", name)
		}
		if ov.Table != nil {
			if strings.TrimSpace(*ov.Table) == "" {
				return fmt.Errorf("job overrides: %s: table cannot be empty", name)
			}
			job.Table = *ov.Table
		}
		if ov.View != nil {
			job.View = *ov.View
		}
		if ov.MaxRecords != nil {
			if *ov.MaxRecords < 0 {
				return fmt.Errorf("job overrides: %s: maxRecords must be >= 0", name)
			}
			job.MaxRecords = *ov.MaxRecords
		}
		if ov.RequireAuth != nil {
			job.RequireAuth = *ov.RequireAuth
		}
		r.set(job)
		telemetry.Info("jobs.override_applied", map[string]any{
			"job":          name,
			"table":        job.Table,
			"view":         job.View,
			"max_records":  job.MaxRecords,
			"require_auth": job.RequireAuth,
		})
	}
	return nil
}
