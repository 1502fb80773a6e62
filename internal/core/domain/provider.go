package domain

// AIProvider names a service that embeds text or generates answers.
type AIProvider string

// Supported providers. Anthropic generates answers only.
const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// CanEmbed returns true if the provider offers an embeddings API.
func (p AIProvider) CanEmbed() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// DefaultEmbeddingModel is the model used when none is configured.
func (p AIProvider) DefaultEmbeddingModel() string {
	switch p {
	case AIProviderOllama:
		return "nomic-embed-text"
	case AIProviderOpenAI:
		return "text-embedding-3-small"
	default:
		return ""
	}
}

// DefaultLLMModel is the model used when none is configured.
func (p AIProvider) DefaultLLMModel() string {
	switch p {
	case AIProviderOllama:
		return "llama3.2"
	case AIProviderOpenAI:
		return "gpt-4o-mini"
	case AIProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	default:
		return ""
	}
}

// hosted providers are called with an API key.
func (p AIProvider) hosted() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

var knownDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// KnownDimensions returns the vector length of a well-known embedding
// model, or zero when the model is not in the table.
func KnownDimensions(model string) int {
	return knownDimensions[model]
}

// EmbeddingSettings selects and addresses the embedding provider.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string
	APIKey  string

	// Dimensions overrides KnownDimensions for Model.
	Dimensions int
}

// IsConfigured returns true when the provider can embed and has the
// credentials it needs.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.CanEmbed() {
		return false
	}
	return !e.Provider.hosted() || e.APIKey != ""
}

// LLMSettings selects and addresses the answer-generation provider.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true when the provider is known and has the
// credentials it needs.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	return !l.Provider.hosted() || l.APIKey != ""
}
