package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactContext_SetAndGet(t *testing.T) {
	ctx := NewArtifactContext()
	ctx.Set("repo_path", "/tmp/checkout")

	v, ok := ctx.Get("repo_path")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/checkout", v)

	_, ok = ctx.Get("missing")
	assert.False(t, ok)
}

func TestArtifactContext_MergeOverwritesSameKey(t *testing.T) {
	ctx := NewArtifactContext()
	ctx.Set("x", 1)

	ctx.Merge(map[string]any{"x": 2, "y": "two"})

	x, _ := ctx.Get("x")
	y, _ := ctx.Get("y")
	assert.Equal(t, 2, x)
	assert.Equal(t, "two", y)
	assert.Equal(t, 2, ctx.Len())
}

func TestArtifactContext_SnapshotIsACopy(t *testing.T) {
	ctx := NewArtifactContext()
	ctx.Set("x", 1)

	snap := ctx.Snapshot()
	snap["x"] = 99
	snap["injected"] = true

	x, _ := ctx.Get("x")
	assert.Equal(t, 1, x)

	_, ok := ctx.Get("injected")
	assert.False(t, ok)
}
