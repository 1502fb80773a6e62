package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

// fakeOllama answers /api/embed with one 2-d vector per input. An input of
// "empty" gets an empty vector and "short" drops the last vector.
func fakeOllama(t *testing.T, requests *[][]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Truncate)
		*requests = append(*requests, req.Input)

		resp := embedResponse{}
		for i, in := range req.Input {
			switch in {
			case "empty":
				resp.Embeddings = append(resp.Embeddings, []float64{})
			case "short":
			default:
				resp.Embeddings = append(resp.Embeddings, []float64{0.5, float64(i)})
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEmbeddingService_Embed(t *testing.T) {
	var requests [][]string
	server := fakeOllama(t, &requests)

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: "all-minilm", HTTPClient: server.Client()})
	assert.Equal(t, 384, svc.Dimensions())

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0}, vec)

	_, err = svc.Embed(context.Background(), "empty")
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	var requests [][]string
	server := fakeOllama(t, &requests)
	svc := NewEmbeddingService(Config{BaseURL: server.URL, HTTPClient: server.Client()})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{0.5, 2}, vecs[2])
	assert.Equal(t, [][]string{{"a", "b", "c"}}, requests)

	_, err = svc.EmbedBatch(context.Background(), []string{"a", "short"})
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	vecs, err = svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Len(t, requests, 2)
}

func TestEmbeddingService_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	_, err := svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Error(t, svc.Ping(context.Background()))
}
