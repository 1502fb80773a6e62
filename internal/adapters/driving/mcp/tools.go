package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
)

// IndexFolderInput is the input schema for the index_folder tool.
type IndexFolderInput struct {
	AccessToken string `json:"access_token" jsonschema:"Google OAuth access token with Drive read access"`
	FolderURL   string `json:"folder_url" jsonschema:"shared Google Drive folder URL or folder id"`
}

// JobInput identifies a job.
type JobInput struct {
	JobID string `json:"job_id" jsonschema:"the job id returned by index_folder"`
}

// JobOutput describes an indexing job.
type JobOutput struct {
	JobID         string              `json:"job_id"`
	Status        string              `json:"status"`
	FolderName    string              `json:"folder_name"`
	FilesCount    int                 `json:"files_count"`
	ChunkCount    int                 `json:"chunk_count"`
	EmbeddedCount int                 `json:"embedded_count"`
	Error         string              `json:"error,omitempty"`
	FileFailures  []FileFailureOutput `json:"file_failures,omitempty"`
}

// FileFailureOutput describes a file that could not be indexed.
type FileFailureOutput struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	JobID   string `json:"job_id" jsonschema:"the job whose files to ask about"`
	Message string `json:"message" jsonschema:"the question"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	Answer    string           `json:"answer"`
	Citations []CitationOutput `json:"citations"`
	Degraded  bool             `json:"degraded,omitempty"`
}

// CitationOutput points at a chunk an answer drew on.
type CitationOutput struct {
	FileName string `json:"file_name"`
	FileID   string `json:"file_id"`
	ChunkID  string `json:"chunk_id"`
}

// HistoryInput is the input schema for the chat_history tool.
type HistoryInput struct {
	JobID string `json:"job_id" jsonschema:"the job whose conversation to read"`
	Clear bool   `json:"clear,omitempty" jsonschema:"clear the conversation instead of returning it"`
}

// HistoryOutput is the output schema for the chat_history tool.
type HistoryOutput struct {
	JobID   string       `json:"job_id"`
	Turns   []TurnOutput `json:"turns"`
	Cleared bool         `json:"cleared,omitempty"`
}

// TurnOutput is one conversation turn.
type TurnOutput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_folder",
		Description: "Index the supported files of a shared Google Drive folder so they can be chatted with",
	}, s.handleIndexFolder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the status of an indexing job",
	}, s.handleIndexStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Ask a question about an indexed folder; answers cite the files they used",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat_history",
		Description: "Read or clear the conversation kept for a job",
	}, s.handleChatHistory)
}

// handleIndexFolder indexes a folder and waits for the job to finish.
func (s *Server) handleIndexFolder(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexFolderInput,
) (*mcp.CallToolResult, JobOutput, error) {
	job, err := s.ports.Index.Index(ctx, driving.IndexRequest{
		AccessToken: input.AccessToken,
		FolderURL:   input.FolderURL,
	})
	if err != nil {
		if job != nil {
			return nil, JobOutput{}, fmt.Errorf("job %s failed: %w", job.ID, err)
		}
		return nil, JobOutput{}, err
	}
	return nil, newJobOutput(job), nil
}

func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input JobInput,
) (*mcp.CallToolResult, JobOutput, error) {
	job, err := s.ports.Index.Status(ctx, input.JobID)
	if err != nil {
		return nil, JobOutput{}, fmt.Errorf("job %s: %w", input.JobID, err)
	}
	return nil, newJobOutput(job), nil
}

func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	answer, err := s.ports.Chat.Chat(ctx, input.JobID, input.Message)
	if err != nil {
		return nil, ChatOutput{}, err
	}

	output := ChatOutput{
		Answer:    answer.Text,
		Citations: make([]CitationOutput, len(answer.Citations)),
		Degraded:  answer.Degraded,
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{FileName: c.FileName, FileID: c.FileID, ChunkID: c.ChunkID}
	}
	return nil, output, nil
}

func (s *Server) handleChatHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	output := HistoryOutput{JobID: input.JobID, Turns: []TurnOutput{}}

	if input.Clear {
		if err := s.ports.Chat.ClearHistory(ctx, input.JobID); err != nil {
			return nil, HistoryOutput{}, err
		}
		output.Cleared = true
		return nil, output, nil
	}

	turns, err := s.ports.Chat.History(ctx, input.JobID)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	for _, t := range turns {
		output.Turns = append(output.Turns, TurnOutput{Role: string(t.Role), Content: t.Content})
	}
	return nil, output, nil
}

func newJobOutput(job *domain.Job) JobOutput {
	out := JobOutput{
		JobID:         job.ID,
		Status:        job.Status.String(),
		FolderName:    job.FolderName,
		FilesCount:    len(job.Files),
		ChunkCount:    job.ChunkCount,
		EmbeddedCount: job.EmbeddedCount,
		Error:         job.Error,
	}
	for _, f := range job.FileFailures {
		out.FileFailures = append(out.FileFailures, FileFailureOutput{FileName: f.FileName, Reason: f.Reason})
	}
	return out
}
