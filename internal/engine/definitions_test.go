package engine

import (
	"context"
	"testing"
)

func TestDefinitionCache(t *testing.T) {
	source := &stubSource{files: map[string]string{
		"/nodes/display.node": `{"id":"display","execution_mode":"frontend_only"}`,
		"/nodes/math.node":    `{"id":"math","inputs":[{"id":"value_a","type":"number"},{"id":"value_b","type":"number"}]}`,
		"/nodes/broken.node":  `{not json`,
	}}
	cache := NewDefinitionCache(source, testLogger())
	ctx := context.Background()

	t.Run("loads and parses a definition", func(t *testing.T) {
		def := cache.Get(ctx, "math")
		if def.ID != "math" || def.FrontendOnly() {
			t.Fatalf("unexpected definition: %+v", def)
		}
		if ids := def.InputPortIDs(); len(ids) != 2 || ids[0] != "value_a" || ids[1] != "value_b" {
			t.Fatalf("unexpected input ports: %v", ids)
		}
	})

	t.Run("frontend-only mode round-trips", func(t *testing.T) {
		if !cache.Get(ctx, "display").FrontendOnly() {
			t.Fatal("display should be frontend-only")
		}
	})

	t.Run("missing definition degrades to permissive default", func(t *testing.T) {
		def := cache.Get(ctx, "no_such_type")
		if def.ID != "no_such_type" || def.ExecutionMode != ModeBoth {
			t.Fatalf("unexpected default: %+v", def)
		}
		if len(def.Inputs) != 0 {
			t.Fatalf("default should declare no ports: %+v", def)
		}
	})

	t.Run("malformed definition degrades to permissive default", func(t *testing.T) {
		def := cache.Get(ctx, "broken")
		if def.ExecutionMode != ModeBoth {
			t.Fatalf("unexpected default: %+v", def)
		}
	})

	t.Run("second lookup is served from the cache", func(t *testing.T) {
		before := source.reads
		cache.Get(ctx, "math")
		cache.Get(ctx, "math")
		if source.reads != before {
			t.Fatalf("expected no further reads, got %d extra", source.reads-before)
		}
	})
}
