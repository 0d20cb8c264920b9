package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Submission is a submitted attempt at an exercise, as persisted before
// judging completes.
type Submission struct {
	ID         int64
	UserID     int64
	ExerciseID int64
	SourcePath string
	Status     string
	CreatedAt  time.Time
}

// SubmissionResult holds one submission's judged outcome, including
// the per-testcase breakdown.
type SubmissionResult struct {
	SubmissionID int64
	Verdict      string
	CPUTimeMS    *float64
	MemoryBytes  *int64
	ErrorMessage *string
	UpdatedAt    time.Time
	Cases        []SubmissionCaseResult
}

// SubmissionCaseResult is one test case's outcome within a submission.
type SubmissionCaseResult struct {
	Index     int     `json:"index"`
	Verdict   string  `json:"verdict"`
	CPUTimeMS float64 `json:"cpu_time_ms"`
	MemoryMB  float64 `json:"memory_mb"`
}

// ErrSubmissionNotPending is returned by AcquirePending when the
// submission has already left the pending state.
var ErrSubmissionNotPending = errors.New("submission not pending")

// SubmissionRepository persists submissions and their judged results.
type SubmissionRepository interface {
	FindByID(ctx context.Context, id int64) (*Submission, error)
	MarkStatus(ctx context.Context, id int64, status string) error
	SaveResult(ctx context.Context, result SubmissionResult, finalStatus string) error
	Create(ctx context.Context, userID, exerciseID int64, sourcePath string) (int64, time.Time, error)
	Delete(ctx context.Context, id int64) error
	FindWithResult(ctx context.Context, id int64) (*SubmissionResultView, error)
	AcquirePending(ctx context.Context, id int64) (*Submission, error)
	IncrementRetry(ctx context.Context, id int64) (int, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	CountSolvedExercisesByUser(ctx context.Context, userID int64) (int, error)
	ListByUser(ctx context.Context, userID int64, exerciseID *int64, page, perPage int) ([]SubmissionListItem, int, error)
	ListByExercise(ctx context.Context, exerciseID int64, page, perPage int) ([]SubmissionListItem, int, error)
}

// PgSubmissionRepository implements SubmissionRepository over a pgx
// pool. Expects the `submissions`, `submission_results`, and
// `submission_case_results` tables to exist.
type PgSubmissionRepository struct {
	db *pgxpool.Pool
}

func NewPgSubmissionRepository(db *pgxpool.Pool) *PgSubmissionRepository {
	return &PgSubmissionRepository{db: db}
}

func (r *PgSubmissionRepository) FindByID(ctx context.Context, id int64) (*Submission, error) {
	const q = `SELECT id, user_id, exercise_id, source_path, status, created_at FROM submissions WHERE id=$1`
	var s Submission
	if err := r.db.QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.ExerciseID, &s.SourcePath, &s.Status, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgSubmissionRepository) MarkStatus(ctx context.Context, id int64, status string) error {
	if status == "" {
		return errors.New("status is empty")
	}
	const q = `UPDATE submissions SET status=$1, updated_at=NOW() WHERE id=$2`
	ct, err := r.db.Exec(ctx, q, status, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("submission not found")
	}
	return nil
}

func (r *PgSubmissionRepository) SaveResult(ctx context.Context, result SubmissionResult, finalStatus string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const updStatus = `UPDATE submissions SET status=$1, updated_at=NOW() WHERE id=$2`
	if ct, err := tx.Exec(ctx, updStatus, finalStatus, result.SubmissionID); err != nil {
		return err
	} else if ct.RowsAffected() == 0 {
		return errors.New("submission not found")
	}

	const q = `INSERT INTO submission_results (submission_id, verdict, cpu_time_ms, memory_bytes, error_message, updated_at)
               VALUES ($1,$2,$3,$4,$5,NOW())
               ON CONFLICT (submission_id) DO UPDATE SET
                 verdict=EXCLUDED.verdict,
                 cpu_time_ms=EXCLUDED.cpu_time_ms,
                 memory_bytes=EXCLUDED.memory_bytes,
                 error_message=EXCLUDED.error_message,
                 updated_at=NOW()`
	if _, err := tx.Exec(ctx, q, result.SubmissionID, result.Verdict, result.CPUTimeMS, result.MemoryBytes, result.ErrorMessage); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM submission_case_results WHERE submission_id=$1`, result.SubmissionID); err != nil {
		return err
	}
	for _, c := range result.Cases {
		if _, err := tx.Exec(ctx, `INSERT INTO submission_case_results (submission_id, idx, verdict, cpu_time_ms, memory_mb)
VALUES ($1,$2,$3,$4,$5)`, result.SubmissionID, c.Index, c.Verdict, c.CPUTimeMS, c.MemoryMB); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PgSubmissionRepository) Create(ctx context.Context, userID, exerciseID int64, sourcePath string) (int64, time.Time, error) {
	const q = `INSERT INTO submissions (user_id, exercise_id, source_path, status)
			VALUES ($1,$2,$3,'pending') RETURNING id, created_at`
	var id int64
	var created time.Time
	if err := r.db.QueryRow(ctx, q, userID, exerciseID, sourcePath).Scan(&id, &created); err != nil {
		return 0, time.Time{}, err
	}
	return id, created, nil
}

func (r *PgSubmissionRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM submissions WHERE id=$1`, id)
	return err
}

// AcquirePending locks a pending submission and transitions it to
// running atomically, so a requeued job can't be picked up twice.
func (r *PgSubmissionRepository) AcquirePending(ctx context.Context, id int64) (*Submission, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const sel = `SELECT id, user_id, exercise_id, source_path, status, created_at FROM submissions WHERE id=$1 FOR UPDATE`
	var s Submission
	if err := tx.QueryRow(ctx, sel, id).Scan(&s.ID, &s.UserID, &s.ExerciseID, &s.SourcePath, &s.Status, &s.CreatedAt); err != nil {
		return nil, err
	}
	if s.Status != "pending" {
		return nil, ErrSubmissionNotPending
	}

	const upd = `UPDATE submissions SET status='running', updated_at=NOW() WHERE id=$1`
	if _, err := tx.Exec(ctx, upd, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Status = "running"
	return &s, nil
}

// IncrementRetry increments retry_count and returns the latest value.
func (r *PgSubmissionRepository) IncrementRetry(ctx context.Context, id int64) (int, error) {
	const q = `UPDATE submissions SET retry_count = retry_count + 1, updated_at=NOW() WHERE id=$1 RETURNING retry_count`
	var count int
	if err := r.db.QueryRow(ctx, q, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgSubmissionRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM submissions WHERE user_id=$1`
	var c int
	if err := r.db.QueryRow(ctx, q, userID).Scan(&c); err != nil {
		return 0, err
	}
	return c, nil
}

func (r *PgSubmissionRepository) CountSolvedExercisesByUser(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT COUNT(DISTINCT s.exercise_id) FROM submissions s
LEFT JOIN submission_results r ON r.submission_id = s.id
WHERE s.user_id=$1 AND r.verdict='Answer Correct'`
	var c int
	if err := r.db.QueryRow(ctx, q, userID).Scan(&c); err != nil {
		return 0, err
	}
	return c, nil
}

// SubmissionResultView is the full detail projection used by the
// submission detail endpoint.
type SubmissionResultView struct {
	ID            int64                   `json:"id"`
	UserID        int64                   `json:"user_id"`
	Username      string                  `json:"username"`
	ExerciseID    int64                   `json:"exercise_id"`
	ExerciseTitle string                  `json:"exercise_title"`
	Status        string                  `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Verdict       *string                 `json:"verdict"`
	CPUTimeMS     *float64                `json:"cpu_time_ms"`
	MemoryBytes   *int64                  `json:"memory_bytes"`
	ErrorMsg      *string                 `json:"error_message"`
	SourcePath    string                  `json:"-"`
	Cases         []SubmissionCaseResult  `json:"case_results"`
}

// SubmissionListItem is a flattened projection for list endpoints.
type SubmissionListItem struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	ExerciseID    int64     `json:"exercise_id"`
	ExerciseTitle string    `json:"exercise_title,omitempty"`
	Status        string    `json:"status"`
	Verdict       *string   `json:"verdict"`
	CPUTimeMS     *float64  `json:"cpu_time_ms"`
	MemoryBytes   *int64    `json:"memory_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r *PgSubmissionRepository) FindWithResult(ctx context.Context, id int64) (*SubmissionResultView, error) {
	const q = `
SELECT s.id, s.user_id, u.username, s.exercise_id, e.title, s.status, s.source_path,
       s.created_at, s.updated_at,
       sr.verdict, sr.cpu_time_ms, sr.memory_bytes, sr.error_message
FROM submissions s
JOIN users u ON u.id = s.user_id
JOIN exercises e ON e.id = s.exercise_id
LEFT JOIN submission_results sr ON sr.submission_id = s.id
WHERE s.id=$1`
	var v SubmissionResultView
	var verdict, errMsg sql.NullString
	var cpuTimeMS sql.NullFloat64
	var memoryBytes sql.NullInt64
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&v.ID, &v.UserID, &v.Username, &v.ExerciseID, &v.ExerciseTitle, &v.Status, &v.SourcePath,
		&v.CreatedAt, &v.UpdatedAt,
		&verdict, &cpuTimeMS, &memoryBytes, &errMsg,
	); err != nil {
		return nil, err
	}
	if verdict.Valid {
		v.Verdict = &verdict.String
	}
	if cpuTimeMS.Valid {
		v.CPUTimeMS = &cpuTimeMS.Float64
	}
	if memoryBytes.Valid {
		v.MemoryBytes = &memoryBytes.Int64
	}
	if errMsg.Valid {
		v.ErrorMsg = &errMsg.String
	}

	const caseQ = `SELECT idx, verdict, cpu_time_ms, memory_mb FROM submission_case_results WHERE submission_id=$1 ORDER BY idx`
	rows, err := r.db.Query(ctx, caseQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c SubmissionCaseResult
		if err := rows.Scan(&c.Index, &c.Verdict, &c.CPUTimeMS, &c.MemoryMB); err != nil {
			return nil, err
		}
		v.Cases = append(v.Cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PgSubmissionRepository) ListByUser(ctx context.Context, userID int64, exerciseID *int64, page, perPage int) ([]SubmissionListItem, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}

	filters := []string{"s.user_id=$1"}
	args := []interface{}{userID}
	if exerciseID != nil && *exerciseID > 0 {
		filters = append(filters, fmt.Sprintf("s.exercise_id=$%d", len(args)+1))
		args = append(args, *exerciseID)
	}
	where := strings.Join(filters, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM submissions s WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitPlaceholder := len(args) + 1
	offsetPlaceholder := len(args) + 2
	query := fmt.Sprintf(`
SELECT s.id, s.user_id, u.username, s.exercise_id, e.title, s.status,
       sr.verdict, sr.cpu_time_ms, sr.memory_bytes, s.created_at
FROM submissions s
JOIN users u ON u.id = s.user_id
JOIN exercises e ON e.id = s.exercise_id
LEFT JOIN submission_results sr ON sr.submission_id = s.id
WHERE %s
ORDER BY s.created_at DESC
LIMIT $%d OFFSET $%d`, where, limitPlaceholder, offsetPlaceholder)

	argsWithPage := append(append([]interface{}{}, args...), perPage, (page-1)*perPage)
	rows, err := r.db.Query(ctx, query, argsWithPage...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]SubmissionListItem, 0, perPage)
	for rows.Next() {
		var v SubmissionListItem
		if err := rows.Scan(&v.ID, &v.UserID, &v.Username, &v.ExerciseID, &v.ExerciseTitle, &v.Status, &v.Verdict, &v.CPUTimeMS, &v.MemoryBytes, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *PgSubmissionRepository) ListByExercise(ctx context.Context, exerciseID int64, page, perPage int) ([]SubmissionListItem, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}

	const countQuery = `SELECT COUNT(*) FROM submissions WHERE exercise_id=$1`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, exerciseID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
SELECT s.id, s.user_id, u.username, s.exercise_id, e.title, s.status,
       sr.verdict, sr.cpu_time_ms, sr.memory_bytes, s.created_at
FROM submissions s
JOIN users u ON u.id = s.user_id
JOIN exercises e ON e.id = s.exercise_id
LEFT JOIN submission_results sr ON sr.submission_id = s.id
WHERE s.exercise_id=$1
ORDER BY s.created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, exerciseID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]SubmissionListItem, 0, perPage)
	for rows.Next() {
		var v SubmissionListItem
		if err := rows.Scan(&v.ID, &v.UserID, &v.Username, &v.ExerciseID, &v.ExerciseTitle, &v.Status, &v.Verdict, &v.CPUTimeMS, &v.MemoryBytes, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}
