package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())

	r.Register("named", func(settings map[string]any) (driven.PostProcessor, error) {
		name, _ := settings["name"].(string)
		return &mockProcessor{name: name}, nil
	})

	require.True(t, r.Has("named"))
	proc, err := r.Build("named", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())
}

func TestRegistry_Build_Unknown(t *testing.T) {
	_, err := NewRegistry().Build("stemmer", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "stemmer")
}

func TestRegistry_Build_BuilderError(t *testing.T) {
	failure := errors.New("bad settings")
	r := NewRegistry()
	r.Register("broken", func(map[string]any) (driven.PostProcessor, error) { return nil, failure })

	_, err := r.Build("broken", nil)
	assert.ErrorIs(t, err, failure)
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewDefaultRegistry()
	noop := func(map[string]any) (driven.PostProcessor, error) { return &mockProcessor{}, nil }
	r.Register("zeta", noop)
	r.Register("alpha", noop)

	assert.Equal(t, []string{"alpha", domain.ChunkerName, "zeta"}, r.Names())
}

func TestDefaultRegistry_Chunker(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{name: "defaults", settings: nil},
		{name: "ints", settings: map[string]any{"chunk_size": 300, "overlap": 30}},
		{name: "toml numbers", settings: map[string]any{"chunk_size": int64(300), "overlap": int64(30)}},
		{name: "json numbers", settings: map[string]any{"chunk_size": float64(300), "overlap": float64(30)}},
		{name: "overlap equals size", settings: map[string]any{"chunk_size": 50, "overlap": 50}, wantErr: true},
		{name: "wrong type is ignored", settings: map[string]any{"chunk_size": "big"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := r.Build(domain.ChunkerName, tt.settings)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.ChunkerName, proc.Name())
		})
	}
}

func TestBuildPipeline(t *testing.T) {
	p, err := BuildPipeline(NewDefaultRegistry(), domain.ChunkingPipeline(10, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	_, err = BuildPipeline(NewDefaultRegistry(), domain.PipelineConfig{Processors: []string{"stemmer"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build stemmer")

	chunks, err := p.Process(context.Background(), &domain.Document{FileID: "f", Content: "one two"})
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}
