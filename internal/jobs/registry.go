package jobs

import (
	"fmt"
	"sort"

	"curiosity-sync/internal/etl"
)

// Registry holds the configured jobs by name.
type Registry struct {
	jobs map[string]etl.Job
}

// NewRegistry registers the given jobs. Later duplicates replace earlier ones.
func NewRegistry(list ...etl.Job) *Registry {
	r := &Registry{jobs: make(map[string]etl.Job, len(list))}
	for _, job := range list {
		r.jobs[job.Name] = job
	}
	return r
}

// Default returns the four built-in jobs.
func Default() *Registry {
	return NewRegistry(Curiosities(), CuriositiesTest(), LocalHooks(), Extensions())
}

// Lookup returns the named job.
func (r *Registry) Lookup(name string) (etl.Job, bool) {
	job, ok := r.jobs[name]
	return job, ok
}

// MustLookup is Lookup for names known at compile time.
func (r *Registry) MustLookup(name string) etl.Job {
	job, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("jobs: unknown job %q", name))
	}
	return job
}

// All returns every job sorted by name.
func (r *Registry) All() []etl.Job {
	out := make([]etl.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered job names, sorted.
func (r *Registry) Names() []string {
	all := r.All()
	out := make([]string, len(all))
	for i, job := range all {
		out[i] = job.Name
	}
	return out
}

func (r *Registry) set(job etl.Job) {
	r.jobs[job.Name] = job
}
