package models

import "maps"

// ArtifactContext is the mutable key/value substrate shared by all jobs of
// one pipeline run. Later writers overwrite earlier keys of the same name.
// Execution is serialized per run, so the context is only ever mutated by
// the currently-executing job's merge step; no internal locking is needed.
type ArtifactContext struct {
	values map[string]any
}

// NewArtifactContext creates an empty context scoped to one run.
func NewArtifactContext() *ArtifactContext {
	return &ArtifactContext{values: make(map[string]any)}
}

// Set stores one artifact value.
func (c *ArtifactContext) Set(key string, value any) {
	c.values[key] = value
}

// Get returns the artifact for key and whether it exists.
func (c *ArtifactContext) Get(key string) (any, bool) {
	v, ok := c.values[key]

	return v, ok
}

// Merge copies every entry of artifacts into the context, overwriting
// existing keys.
func (c *ArtifactContext) Merge(artifacts map[string]any) {
	maps.Copy(c.values, artifacts)
}

// Snapshot returns a copy of the current artifact map. Each job sees the
// snapshot taken immediately before it runs: every artifact produced so far
// in the run, regardless of edges.
func (c *ArtifactContext) Snapshot() map[string]any {
	snap := make(map[string]any, len(c.values))
	maps.Copy(snap, c.values)

	return snap
}

// Len returns the number of stored artifacts.
func (c *ArtifactContext) Len() int {
	return len(c.values)
}
