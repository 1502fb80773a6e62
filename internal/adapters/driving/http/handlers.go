package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
)

// RootMessage is returned by GET /.
const RootMessage = "Talk to a Folder API is running"

// MessageResponse is the response body for GET /.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// AuthRequest is the request body for POST /auth/:provider.
type AuthRequest struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token,omitempty"`
}

// AuthResponse is the response body for POST /auth/:provider.
type AuthResponse struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
}

// IndexRequest is the request body for POST /index.
type IndexRequest struct {
	AccessToken string `json:"access_token"`
	FolderURL   string `json:"folder_url"`
	Async       bool   `json:"async,omitempty"`
}

// FileFailureResponse describes a file that could not be indexed.
type FileFailureResponse struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// JobResponse describes an indexing job.
type JobResponse struct {
	JobID         string                `json:"job_id"`
	Status        string                `json:"status"`
	FilesCount    int                   `json:"files_count"`
	FolderName    string                `json:"folder_name"`
	ChunkCount    int                   `json:"chunk_count"`
	EmbeddedCount int                   `json:"embedded_count"`
	Error         string                `json:"error,omitempty"`
	FileFailures  []FileFailureResponse `json:"file_failures,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	FinishedAt    *time.Time            `json:"finished_at,omitempty"`
}

// JobListResponse is the response body for GET /index.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ChatRequest is the request body for POST /chat. Either the access token
// or a session id authorises the call.
type ChatRequest struct {
	AccessToken string `json:"access_token,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	Message     string `json:"message"`
	JobID       string `json:"job_id"`
}

// CitationResponse points at a chunk an answer drew on.
type CitationResponse struct {
	FileName string `json:"file_name"`
	FileID   string `json:"file_id"`
	ChunkID  string `json:"chunk_id"`
}

// ChatResponse is the response body for POST /chat.
type ChatResponse struct {
	Answer    string             `json:"answer"`
	Citations []CitationResponse `json:"citations"`
}

// TurnResponse is one conversation turn.
type TurnResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryResponse is the response body for GET /chat/:jobId/history.
type HistoryResponse struct {
	JobID   string         `json:"job_id"`
	History []TurnResponse `json:"history"`
}

// ClearResponse is the response body for DELETE /chat/:jobId/history.
type ClearResponse struct {
	JobID   string `json:"job_id"`
	Cleared bool   `json:"cleared"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: RootMessage})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAuth validates the caller's Google tokens and opens a session.
func (s *Server) handleAuth(c echo.Context) error {
	var req AuthRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AccessToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "access_token is required")
	}

	session, err := s.services.Auth.Authenticate(c.Request().Context(), c.Param("provider"), req.AccessToken, req.IDToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AuthResponse{
		SessionID: session.ID,
		Email:     session.Identity.Email,
		Name:      session.Identity.Name,
	})
}

// handleIndex indexes a shared folder on behalf of the token holder.
func (s *Server) handleIndex(c echo.Context) error {
	var req IndexRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.FolderURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "folder_url is required")
	}

	ctx := c.Request().Context()
	if _, err := s.services.Auth.Authorize(ctx, driving.Credentials{AccessToken: req.AccessToken}); err != nil {
		return err
	}

	job, err := s.services.Index.Index(ctx, driving.IndexRequest{
		AccessToken: req.AccessToken,
		FolderURL:   req.FolderURL,
		Async:       req.Async,
	})
	if err != nil {
		if job != nil {
			s.logger.Warn("index failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return err
	}

	if !req.Async && job.Status == domain.JobFailed {
		s.logger.Warn("index failed", zap.String("job_id", job.ID), zap.String("reason", job.Error))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: job.Error})
	}

	status := http.StatusOK
	if job.Status == domain.JobPending {
		status = http.StatusAccepted
	}
	return c.JSON(status, newJobResponse(job))
}

func (s *Server) handleListJobs(c echo.Context) error {
	jobs, err := s.services.Index.Jobs(c.Request().Context())
	if err != nil {
		return err
	}
	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, newJobResponse(job))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleJobStatus(c echo.Context) error {
	job, err := s.services.Index.Status(c.Request().Context(), c.Param("jobId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newJobResponse(job))
}

// handleChat answers a question about an indexed folder.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.JobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job_id is required")
	}

	ctx := c.Request().Context()
	creds := driving.Credentials{AccessToken: req.AccessToken, SessionID: req.SessionID}
	if _, err := s.services.Auth.Authorize(ctx, creds); err != nil {
		return err
	}

	answer, err := s.services.Chat.Chat(ctx, req.JobID, req.Message)
	if err != nil {
		return err
	}

	resp := ChatResponse{Answer: answer.Text, Citations: make([]CitationResponse, 0, len(answer.Citations))}
	for _, cit := range answer.Citations {
		resp.Citations = append(resp.Citations, CitationResponse{
			FileName: cit.FileName,
			FileID:   cit.FileID,
			ChunkID:  cit.ChunkID,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c echo.Context) error {
	jobID := c.Param("jobId")
	turns, err := s.services.Chat.History(c.Request().Context(), jobID)
	if err != nil {
		return err
	}
	resp := HistoryResponse{JobID: jobID, History: make([]TurnResponse, 0, len(turns))}
	for _, turn := range turns {
		resp.History = append(resp.History, TurnResponse{Role: string(turn.Role), Content: turn.Content})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClearHistory(c echo.Context) error {
	jobID := c.Param("jobId")
	if err := s.services.Chat.ClearHistory(c.Request().Context(), jobID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ClearResponse{JobID: jobID, Cleared: true})
}

func newJobResponse(job *domain.Job) JobResponse {
	resp := JobResponse{
		JobID:         job.ID,
		Status:        job.Status.String(),
		FilesCount:    len(job.Files),
		FolderName:    job.FolderName,
		ChunkCount:    job.ChunkCount,
		EmbeddedCount: job.EmbeddedCount,
		Error:         job.Error,
		CreatedAt:     job.CreatedAt,
	}
	if !job.FinishedAt.IsZero() {
		finished := job.FinishedAt
		resp.FinishedAt = &finished
	}
	for _, f := range job.FileFailures {
		resp.FileFailures = append(resp.FileFailures, FileFailureResponse{
			FileID:   f.FileID,
			FileName: f.FileName,
			Reason:   f.Reason,
		})
	}
	return resp
}
