package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for foldertalk resources.
	uriScheme = "foldertalk://"

	jobsPrefix    = uriScheme + "jobs/"
	historySuffix = "/history"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "jobs",
		Name:        "jobs",
		Description: "Indexing jobs, oldest first",
		MIMEType:    "application/json",
	}, s.handleJobsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: jobsPrefix + "{jobId}" + historySuffix,
		Name:        "job-history",
		Description: "Conversation kept for an indexing job",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)
}

// handleJobsResource lists every job the service knows about.
func (s *Server) handleJobsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	jobs, err := s.ports.Index.Jobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	outputs := make([]JobOutput, len(jobs))
	for i, job := range jobs {
		outputs[i] = newJobOutput(job)
	}
	return jsonResult(req.Params.URI, outputs)
}

// handleHistoryResource returns the conversation of one job.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	jobID := extractJobID(uri)
	if jobID == "" {
		return nil, fmt.Errorf("invalid URI: %s", uri)
	}

	turns, err := s.ports.Chat.History(ctx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	outputs := make([]TurnOutput, len(turns))
	for i, t := range turns {
		outputs[i] = TurnOutput{Role: string(t.Role), Content: t.Content}
	}
	return jsonResult(uri, outputs)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractJobID extracts the job id from foldertalk://jobs/{jobId}/history.
func extractJobID(uri string) string {
	if !strings.HasPrefix(uri, jobsPrefix) || !strings.HasSuffix(uri, historySuffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, jobsPrefix), historySuffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
