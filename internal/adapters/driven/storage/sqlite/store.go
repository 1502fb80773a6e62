package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/foldertalk/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// DefaultConversationWindow is the number of turns kept per job.
const DefaultConversationWindow = 20

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db  *sql.DB
	dsn string
}

// NewStore opens the database at dsn and applies pending migrations.
// An empty dsn opens an in-memory database.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	inMemory := dsn == MemoryDSN || strings.Contains(dsn, "mode=memory")

	open := dsn
	if !inMemory && !strings.Contains(dsn, "_pragma=") {
		// WAL for better concurrency on file databases
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		open = dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", open)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if inMemory {
		// Every new connection to :memory: is a fresh, empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	s := &Store{db: db, dsn: dsn}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DSN returns the data source the store was opened with.
func (s *Store) DSN() string {
	return s.dsn
}

// JobStore returns a JobStore interface backed by this store.
func (s *Store) JobStore() driven.JobStore {
	return &jobStore{store: s}
}

// DocumentIndex returns a DocumentIndex interface backed by this store.
func (s *Store) DocumentIndex() driven.DocumentIndex {
	return &documentIndex{store: s}
}

// ConversationStore returns a ConversationStore keeping window turns per job.
// A non-positive window uses DefaultConversationWindow.
func (s *Store) ConversationStore(window int) driven.ConversationStore {
	if window <= 0 {
		window = DefaultConversationWindow
	}
	return &conversationStore{store: s, window: window}
}

// SessionStore returns a SessionStore interface backed by this store.
func (s *Store) SessionStore() driven.SessionStore {
	return &sessionStore{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_init.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Job Store ====================

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

// Save inserts or replaces a job. Replacing keeps the original row so
// listing order is stable.
func (s *jobStore) Save(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	filesJSON, err := json.Marshal(orEmpty(job.Files))
	if err != nil {
		return fmt.Errorf("marshalling files: %w", err)
	}
	failuresJSON, err := json.Marshal(orEmpty(job.FileFailures))
	if err != nil {
		return fmt.Errorf("marshalling file failures: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (id, folder_id, folder_name, status, files, chunk_count,
			embedded_count, file_failures, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder_id = excluded.folder_id,
			folder_name = excluded.folder_name,
			status = excluded.status,
			files = excluded.files,
			chunk_count = excluded.chunk_count,
			embedded_count = excluded.embedded_count,
			file_failures = excluded.file_failures,
			error = excluded.error,
			created_at = excluded.created_at,
			finished_at = excluded.finished_at
	`, job.ID, job.FolderID, job.FolderName, string(job.Status), string(filesJSON),
		job.ChunkCount, job.EmbeddedCount, string(failuresJSON), job.Error,
		toUnixNano(job.CreatedAt), toUnixNano(job.FinishedAt))
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

const jobColumns = `id, folder_id, folder_name, status, files, chunk_count,
	embedded_count, file_failures, error, created_at, finished_at`

// Get retrieves a job by ID.
func (s *jobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// List returns all jobs, oldest first.
func (s *jobStore) List(ctx context.Context) ([]*domain.Job, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes a job.
func (s *jobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting job %s: %w", id, err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                  domain.Job
		status               string
		filesJSON, failsJSON string
		created, finished    int64
	)
	if err := row.Scan(&job.ID, &job.FolderID, &job.FolderName, &status, &filesJSON,
		&job.ChunkCount, &job.EmbeddedCount, &failsJSON, &job.Error, &created, &finished); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if err := json.Unmarshal([]byte(filesJSON), &job.Files); err != nil {
		return nil, fmt.Errorf("unmarshalling files of job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(failsJSON), &job.FileFailures); err != nil {
		return nil, fmt.Errorf("unmarshalling file failures of job %s: %w", job.ID, err)
	}
	if len(job.Files) == 0 {
		job.Files = nil
	}
	if len(job.FileFailures) == 0 {
		job.FileFailures = nil
	}
	job.CreatedAt = fromUnixNano(created)
	job.FinishedAt = fromUnixNano(finished)
	return &job, nil
}

// ==================== Document Index ====================

// documentIndex implements driven.DocumentIndex.
type documentIndex struct {
	store *Store
}

var _ driven.DocumentIndex = (*documentIndex)(nil)

// Add appends chunks to a job in one transaction. The batch is rejected as a
// whole if any embedding length differs from the job's dimension.
func (s *documentIndex) Add(ctx context.Context, jobID string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var dims int
	err = tx.QueryRowContext(ctx,
		"SELECT dims FROM chunks WHERE job_id = ? AND dims > 0 LIMIT 1", jobID).Scan(&dims)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading dimension of job %s: %w", jobID, err)
	}

	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		if dims == 0 {
			dims = len(c.Embedding)
			continue
		}
		if len(c.Embedding) != dims {
			return fmt.Errorf("chunk %s has %d dimensions, job %s uses %d: %w",
				c.ID, len(c.Embedding), jobID, dims, domain.ErrDimensionMismatch)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (job_id, id, file_id, file_name, mime_type, sequence, content, embedding, dims)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, jobID, c.ID, c.FileID, c.FileName, c.MIMEType,
			c.Sequence, c.Content, float32SliceToBytes(c.Embedding), len(c.Embedding)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// Search loads a job's embedded chunks in insertion order and ranks them.
func (s *documentIndex) Search(ctx context.Context, jobID string, query []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, file_id, file_name, mime_type, sequence, content, embedding
		FROM chunks WHERE job_id = ? AND dims > 0 ORDER BY rowid
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks of job %s: %w", jobID, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		c := domain.Chunk{JobID: jobID}
		var blob []byte
		if err := rows.Scan(&c.ID, &c.FileID, &c.FileName, &c.MIMEType, &c.Sequence, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return domain.RankChunks(chunks, query, k), nil
}

// Stats reports chunk counts for a job.
func (s *documentIndex) Stats(ctx context.Context, jobID string) (total, embedded int, err error) {
	err = s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN dims > 0 THEN 1 ELSE 0 END), 0)
		FROM chunks WHERE job_id = ?
	`, jobID).Scan(&total, &embedded)
	if err != nil {
		return 0, 0, fmt.Errorf("counting chunks of job %s: %w", jobID, err)
	}
	return total, embedded, nil
}

// Delete drops every chunk of a job.
func (s *documentIndex) Delete(ctx context.Context, jobID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("deleting chunks of job %s: %w", jobID, err)
	}
	return nil
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store  *Store
	window int
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Append adds a turn and trims the job's log to the window in one transaction.
func (s *conversationStore) Append(ctx context.Context, jobID string, turn domain.ConversationTurn) error {
	if !turn.Role.IsValid() {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO conversation_turns (job_id, role, content) VALUES (?, ?, ?)",
		jobID, string(turn.Role), turn.Content); err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM conversation_turns
		WHERE job_id = ? AND rowid NOT IN (
			SELECT rowid FROM conversation_turns WHERE job_id = ? ORDER BY rowid DESC LIMIT ?
		)
	`, jobID, jobID, s.window); err != nil {
		return fmt.Errorf("trimming conversation: %w", err)
	}

	return tx.Commit()
}

// History returns a job's turns, oldest first.
func (s *conversationStore) History(ctx context.Context, jobID string) ([]domain.ConversationTurn, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT role, content FROM conversation_turns WHERE job_id = ? ORDER BY rowid", jobID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	defer rows.Close()

	turns := []domain.ConversationTurn{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, domain.ConversationTurn{Role: domain.Role(role), Content: content})
	}
	return turns, rows.Err()
}

// Clear forgets a job's conversation.
func (s *conversationStore) Clear(ctx context.Context, jobID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM conversation_turns WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("clearing conversation: %w", err)
	}
	return nil
}

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// Save stores a session.
func (s *sessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, provider, subject, email, name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, session.Provider, session.Identity.Subject, session.Identity.Email,
		session.Identity.Name, toUnixNano(session.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	var created int64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT id, provider, subject, email, name, created_at FROM sessions WHERE id = ?", id,
	).Scan(&session.ID, &session.Provider, &session.Identity.Subject,
		&session.Identity.Email, &session.Identity.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	session.CreatedAt = fromUnixNano(created)
	return &session, nil
}

// ==================== Helpers ====================

// orEmpty keeps nil slices from being stored as JSON null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// toUnixNano stores the zero time as 0.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
