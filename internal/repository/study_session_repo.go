package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"aprovaai-backend/internal/models"
)

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

// Record inserts a finished session and credits its hours to the subject in
// the same transaction. The increment runs server-side so concurrent sessions
// never lose progress.
func (r *StudySessionRepo) Record(ctx context.Context, s *models.StudySession, hours float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	s.ID = uuid.New()

	query := `INSERT INTO study_sessions (id, user_id, plan_id, subject_id, started_at, ended_at,
		duration_seconds, session_type, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	err = tx.QueryRow(ctx, query,
		s.ID, s.UserID, s.PlanID, s.SubjectID, s.StartedAt, s.EndedAt,
		s.DurationSeconds, s.SessionType, s.Notes,
	).Scan(&s.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		"UPDATE plan_subjects SET completed_hours = completed_hours + $1 WHERE id = $2",
		hours, s.SubjectID,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *StudySessionRepo) ListByPlan(ctx context.Context, planID uuid.UUID, limit int) ([]*models.StudySession, error) {
	query := `SELECT id, user_id, plan_id, subject_id, started_at, ended_at,
		duration_seconds, session_type, notes, created_at
		FROM study_sessions WHERE plan_id = $1 ORDER BY started_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, planID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.StudySession
	for rows.Next() {
		s := &models.StudySession{}
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.PlanID, &s.SubjectID, &s.StartedAt, &s.EndedAt,
			&s.DurationSeconds, &s.SessionType, &s.Notes, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// HoursSince sums study hours for a user from the given instant onward.
func (r *StudySessionRepo) HoursSince(ctx context.Context, userID uuid.UUID, since string) (float64, error) {
	var hours float64
	query := `SELECT COALESCE(SUM(duration_seconds), 0) / 3600.0
		FROM study_sessions
		WHERE user_id = $1 AND started_at >= date_trunc($2, NOW())`

	err := r.pool.QueryRow(ctx, query, userID, since).Scan(&hours)
	return hours, err
}
