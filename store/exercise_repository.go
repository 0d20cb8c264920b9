package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtevenx/sjudge/catalog"
	"github.com/xtevenx/sjudge/judge"
)

// ExerciseRepository persists imported exercise packages and
// reconstructs judge.ExerciseSpec values for the worker.
type ExerciseRepository interface {
	ExistsAndPublic(ctx context.Context, id int64) (bool, error)
	ListPublic(ctx context.Context) ([]ExerciseMeta, error)
	FindDetail(ctx context.Context, id int64) (*ExerciseDetail, error)
	CreateFromPackage(ctx context.Context, pkg catalog.Package, isPublic bool) (int64, error)
	Spec(ctx context.Context, id int64) (judge.ExerciseSpec, error)
	ExerciseStats(ctx context.Context, id int64) (*ExerciseStats, error)
}

// PgExerciseRepository implements ExerciseRepository over a pgx pool.
type PgExerciseRepository struct {
	db *pgxpool.Pool
}

func NewPgExerciseRepository(db *pgxpool.Pool) *PgExerciseRepository {
	return &PgExerciseRepository{db: db}
}

// ExerciseMeta is the list-view projection of an exercise.
type ExerciseMeta struct {
	ID            int64   `json:"id"`
	Slug          string  `json:"slug"`
	Title         string  `json:"title"`
	TimeLimitS    float64 `json:"time_limit_s"`
	MemoryLimitMB int32   `json:"memory_limit_mb"`
}

// ExerciseDetail adds the statement and sample cases to ExerciseMeta.
type ExerciseDetail struct {
	ExerciseMeta
	StatementMD    string
	Samples        []SampleCase
	ComparatorName string
	FloatPrecision int
}

// SampleCase is a public testcase shown to users on the exercise page.
type SampleCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// ExerciseStats aggregates submission statistics for an exercise.
type ExerciseStats struct {
	ExerciseID          int64          `json:"exercise_id"`
	Title               string         `json:"title"`
	SubmissionCount     int            `json:"submission_count"`
	AcceptedCount       int            `json:"accepted_count"`
	UniqueUsers         int            `json:"unique_users"`
	UniqueAcceptedUsers int            `json:"unique_accepted_users"`
	AcceptanceRate      float64        `json:"acceptance_rate"`
	LastSubmissionAt    *time.Time     `json:"last_submission_at"`
	VerdictBreakdown    map[string]int `json:"verdict_breakdown"`
}

func (r *PgExerciseRepository) ExistsAndPublic(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT is_public FROM exercises WHERE id=$1`
	var isPublic bool
	if err := r.db.QueryRow(ctx, q, id).Scan(&isPublic); err != nil {
		return false, err
	}
	return isPublic, nil
}

func (r *PgExerciseRepository) ListPublic(ctx context.Context) ([]ExerciseMeta, error) {
	const q = `SELECT id, slug, title, time_limit_s, memory_limit_mb FROM exercises WHERE is_public = TRUE ORDER BY id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExerciseMeta
	for rows.Next() {
		var e ExerciseMeta
		if err := rows.Scan(&e.ID, &e.Slug, &e.Title, &e.TimeLimitS, &e.MemoryLimitMB); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PgExerciseRepository) FindDetail(ctx context.Context, id int64) (*ExerciseDetail, error) {
	const q = `SELECT id, slug, title, statement_md, time_limit_s, memory_limit_mb, comparator_name, float_precision
FROM exercises WHERE id=$1 AND is_public = TRUE`
	var d ExerciseDetail
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.Slug, &d.Title, &d.StatementMD, &d.TimeLimitS, &d.MemoryLimitMB, &d.ComparatorName, &d.FloatPrecision,
	); err != nil {
		return nil, err
	}

	const sampleQ = `SELECT input_text, output_text FROM exercise_testcases WHERE exercise_id=$1 AND is_sample=TRUE ORDER BY id`
	rows, err := r.db.Query(ctx, sampleQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s SampleCase
		if err := rows.Scan(&s.Input, &s.Output); err != nil {
			return nil, err
		}
		d.Samples = append(d.Samples, s)
	}
	return &d, rows.Err()
}

// CreateFromPackage inserts a parsed exercise package and all its
// testcases in a single transaction.
func (r *PgExerciseRepository) CreateFromPackage(ctx context.Context, pkg catalog.Package, isPublic bool) (int64, error) {
	if len(pkg.Testcases) == 0 {
		return 0, errors.New("exercise package has no testcases")
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exerciseID int64
	const insExercise = `INSERT INTO exercises (slug, title, statement_md, time_limit_s, memory_limit_mb, is_public, comparator_name, float_precision)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`
	if err := tx.QueryRow(ctx, insExercise,
		pkg.Slug, pkg.Title, pkg.StatementMD, pkg.TimeLimitS, pkg.MemoryLimitMB, isPublic, pkg.ComparatorName, pkg.FloatPrecision,
	).Scan(&exerciseID); err != nil {
		return 0, err
	}

	const insTestcase = `INSERT INTO exercise_testcases (exercise_id, input_text, output_text, is_sample) VALUES ($1,$2,$3,$4)`
	for _, tc := range pkg.Testcases {
		if _, err := tx.Exec(ctx, insTestcase, exerciseID, tc.InputText, tc.OutputText, tc.IsSample); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return exerciseID, nil
}

// Spec reconstructs a judge.ExerciseSpec from persisted rows, in the
// same sample-then-secret, lexicographic-within-bucket order catalog
// imports them.
func (r *PgExerciseRepository) Spec(ctx context.Context, id int64) (judge.ExerciseSpec, error) {
	const q = `SELECT slug, time_limit_s, memory_limit_mb, comparator_name, float_precision FROM exercises WHERE id=$1`
	var slug, comparatorName string
	var timeLimitS float64
	var memoryLimitMB, floatPrecision int32
	if err := r.db.QueryRow(ctx, q, id).Scan(&slug, &timeLimitS, &memoryLimitMB, &comparatorName, &floatPrecision); err != nil {
		return judge.ExerciseSpec{}, err
	}

	var cmp judge.Comparator
	var err error
	if comparatorName == "float" {
		cmp = judge.Float(int(floatPrecision))
	} else {
		cmp, err = judge.ParseComparator(comparatorName)
		if err != nil {
			return judge.ExerciseSpec{}, err
		}
	}

	const tq = `SELECT input_text, output_text FROM exercise_testcases WHERE exercise_id=$1 ORDER BY is_sample DESC, id`
	rows, err := r.db.Query(ctx, tq, id)
	if err != nil {
		return judge.ExerciseSpec{}, err
	}
	defer rows.Close()

	var testcases []judge.TestCase
	for rows.Next() {
		var in, out string
		if err := rows.Scan(&in, &out); err != nil {
			return judge.ExerciseSpec{}, err
		}
		testcases = append(testcases, judge.TestCase{
			Input:    splitLines(in),
			Expected: splitLines(out),
		})
	}
	if err := rows.Err(); err != nil {
		return judge.ExerciseSpec{}, err
	}

	return judge.ExerciseSpec{
		Name:       slug,
		Comparator: cmp,
		Limits: judge.Limits{
			TimeSeconds: timeLimitS,
			MemoryBytes: int64(memoryLimitMB) * 1024 * 1024,
		},
		Testcases: testcases,
	}, nil
}

func splitLines(s string) judge.IoBlock {
	trimmed := strings.Trim(s, "\n")
	if trimmed == "" {
		return judge.IoBlock{""}
	}
	lines := strings.Split(trimmed, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

func (r *PgExerciseRepository) ExerciseStats(ctx context.Context, id int64) (*ExerciseStats, error) {
	const summaryQ = `
SELECT e.title,
       COALESCE(COUNT(s.id),0),
       COALESCE(SUM(CASE WHEN sr.verdict='Answer Correct' THEN 1 ELSE 0 END),0),
       COALESCE(COUNT(DISTINCT s.user_id),0),
       COALESCE(COUNT(DISTINCT CASE WHEN sr.verdict='Answer Correct' THEN s.user_id END),0),
       MAX(s.created_at)
FROM exercises e
LEFT JOIN submissions s ON s.exercise_id = e.id
LEFT JOIN submission_results sr ON sr.submission_id = s.id
WHERE e.id=$1
GROUP BY e.id`
	var stats ExerciseStats
	var lastSub sql.NullTime
	if err := r.db.QueryRow(ctx, summaryQ, id).Scan(
		&stats.Title, &stats.SubmissionCount, &stats.AcceptedCount, &stats.UniqueUsers, &stats.UniqueAcceptedUsers, &lastSub,
	); err != nil {
		return nil, err
	}
	stats.ExerciseID = id
	if lastSub.Valid {
		stats.LastSubmissionAt = &lastSub.Time
	}
	if stats.SubmissionCount > 0 {
		stats.AcceptanceRate = float64(stats.AcceptedCount) / float64(stats.SubmissionCount)
	}

	const breakdownQ = `SELECT COALESCE(sr.verdict,'Pending') AS verdict, COUNT(*)
FROM submissions s LEFT JOIN submission_results sr ON sr.submission_id = s.id
WHERE s.exercise_id=$1 GROUP BY verdict`
	rows, err := r.db.Query(ctx, breakdownQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats.VerdictBreakdown = map[string]int{}
	for rows.Next() {
		var verdict string
		var count int
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, err
		}
		stats.VerdictBreakdown[verdict] = count
	}
	return &stats, rows.Err()
}
