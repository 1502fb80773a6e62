package domain

// ChunkerName is the registry name of the word-window chunker.
const ChunkerName = "chunker"

// PipelineConfig lists the post-processors to run, in order, with
// per-processor settings keyed by processor name.
type PipelineConfig struct {
	Processors []string
	Settings   map[string]map[string]any
}

// ProcessorSettings returns the settings for name, or nil.
func (c PipelineConfig) ProcessorSettings(name string) map[string]any {
	return c.Settings[name]
}

// ChunkingPipeline returns a pipeline that only chunks documents into
// windows of size words, overlap words apart.
func ChunkingPipeline(size, overlap int) PipelineConfig {
	return PipelineConfig{
		Processors: []string{ChunkerName},
		Settings: map[string]map[string]any{
			ChunkerName: {"chunk_size": size, "overlap": overlap},
		},
	}
}
