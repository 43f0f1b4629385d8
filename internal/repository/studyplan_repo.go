package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"aprovaai-backend/internal/models"
)

type StudyPlanRepo struct {
	pool *pgxpool.Pool
}

func NewStudyPlanRepo(pool *pgxpool.Pool) *StudyPlanRepo {
	return &StudyPlanRepo{pool: pool}
}

func (r *StudyPlanRepo) CreatePlan(ctx context.Context, p *models.StudyPlan) error {
	p.ID = uuid.New()

	query := `INSERT INTO study_plans (id, user_id, title, description, exam_name, exam_date,
		total_study_hours, daily_study_hours, ai_generated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		p.ID, p.UserID, p.Title, p.Description, p.ExamName, p.ExamDate,
		p.TotalStudyHours, p.DailyStudyHours, p.AIGenerated,
	).Scan(&p.CreatedAt)
}

// CreateSubjects inserts all subjects of a plan, assigning their IDs in place
// so the caller can reference them from schedule items.
func (r *StudyPlanRepo) CreateSubjects(ctx context.Context, planID uuid.UUID, subjects []models.PlanSubject) error {
	query := `INSERT INTO plan_subjects (id, plan_id, subject_name, weight_percentage,
		estimated_hours, difficulty, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i := range subjects {
		subjects[i].ID = uuid.New()
		subjects[i].PlanID = planID

		_, err := r.pool.Exec(ctx, query,
			subjects[i].ID, planID, subjects[i].SubjectName, subjects[i].WeightPercentage,
			subjects[i].EstimatedHours, subjects[i].Difficulty, subjects[i].Priority,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *StudyPlanRepo) CreateScheduleItems(ctx context.Context, planID uuid.UUID, items []models.ScheduleItem) error {
	query := `INSERT INTO study_schedule (id, plan_id, subject_id, scheduled_date, start_time,
		end_time, duration_minutes, session_type, topic)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i := range items {
		items[i].ID = uuid.New()
		items[i].PlanID = planID

		_, err := r.pool.Exec(ctx, query,
			items[i].ID, planID, items[i].SubjectID, items[i].ScheduledDate, items[i].StartTime,
			items[i].EndTime, items[i].DurationMinutes, items[i].SessionType, items[i].Topic,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *StudyPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyPlan, error) {
	p := &models.StudyPlan{}
	query := `SELECT id, user_id, title, description, exam_name, exam_date,
		total_study_hours, daily_study_hours, ai_generated, created_at
		FROM study_plans WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Title, &p.Description, &p.ExamName, &p.ExamDate,
		&p.TotalStudyHours, &p.DailyStudyHours, &p.AIGenerated, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetFull loads a plan together with its subjects and schedule.
func (r *StudyPlanRepo) GetFull(ctx context.Context, id uuid.UUID) (*models.StudyPlan, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Subjects, err = r.SubjectsByPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Schedule, err = r.ScheduleByPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (r *StudyPlanRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyPlan, error) {
	query := `SELECT id, user_id, title, description, exam_name, exam_date,
		total_study_hours, daily_study_hours, ai_generated, created_at
		FROM study_plans WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.StudyPlan
	for rows.Next() {
		p := &models.StudyPlan{}
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Title, &p.Description, &p.ExamName, &p.ExamDate,
			&p.TotalStudyHours, &p.DailyStudyHours, &p.AIGenerated, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range plans {
		p.Subjects, err = r.SubjectsByPlan(ctx, p.ID)
		if err != nil {
			return nil, err
		}
	}

	return plans, nil
}

func (r *StudyPlanRepo) SubjectsByPlan(ctx context.Context, planID uuid.UUID) ([]models.PlanSubject, error) {
	query := `SELECT id, plan_id, subject_name, weight_percentage, estimated_hours,
		completed_hours, difficulty, priority
		FROM plan_subjects WHERE plan_id = $1 ORDER BY weight_percentage DESC, subject_name ASC`

	rows, err := r.pool.Query(ctx, query, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := []models.PlanSubject{}
	for rows.Next() {
		var s models.PlanSubject
		if err := rows.Scan(
			&s.ID, &s.PlanID, &s.SubjectName, &s.WeightPercentage, &s.EstimatedHours,
			&s.CompletedHours, &s.Difficulty, &s.Priority,
		); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *StudyPlanRepo) ScheduleByPlan(ctx context.Context, planID uuid.UUID) ([]models.ScheduleItem, error) {
	query := `SELECT id, plan_id, subject_id, scheduled_date, start_time, end_time,
		duration_minutes, session_type, topic, completed
		FROM study_schedule WHERE plan_id = $1 ORDER BY scheduled_date ASC, start_time ASC`

	rows, err := r.pool.Query(ctx, query, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ScheduleItem{}
	for rows.Next() {
		var it models.ScheduleItem
		if err := rows.Scan(
			&it.ID, &it.PlanID, &it.SubjectID, &it.ScheduledDate, &it.StartTime, &it.EndTime,
			&it.DurationMinutes, &it.SessionType, &it.Topic, &it.Completed,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *StudyPlanRepo) GetSubject(ctx context.Context, subjectID uuid.UUID) (*models.PlanSubject, error) {
	s := &models.PlanSubject{}
	query := `SELECT id, plan_id, subject_name, weight_percentage, estimated_hours,
		completed_hours, difficulty, priority
		FROM plan_subjects WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, subjectID).Scan(
		&s.ID, &s.PlanID, &s.SubjectName, &s.WeightPercentage, &s.EstimatedHours,
		&s.CompletedHours, &s.Difficulty, &s.Priority,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes a plan; subjects, schedule items and sessions go with it via
// ON DELETE CASCADE.
func (r *StudyPlanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM study_plans WHERE id = $1", id)
	return err
}

func (r *StudyPlanRepo) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM study_plans WHERE user_id = $1 AND exam_date >= CURRENT_DATE",
		userID,
	).Scan(&count)
	return count, err
}

// UpcomingItems returns the next uncompleted schedule items across all of a
// user's plans, soonest first.
func (r *StudyPlanRepo) UpcomingItems(ctx context.Context, userID uuid.UUID, from time.Time, limit int) ([]models.ScheduleItem, error) {
	query := `SELECT s.id, s.plan_id, s.subject_id, s.scheduled_date, s.start_time, s.end_time,
		s.duration_minutes, s.session_type, s.topic, s.completed
		FROM study_schedule s
		JOIN study_plans p ON p.id = s.plan_id
		WHERE p.user_id = $1 AND s.completed = FALSE AND s.scheduled_date >= $2
		ORDER BY s.scheduled_date ASC, s.start_time ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ScheduleItem{}
	for rows.Next() {
		var it models.ScheduleItem
		if err := rows.Scan(
			&it.ID, &it.PlanID, &it.SubjectID, &it.ScheduledDate, &it.StartTime, &it.EndTime,
			&it.DurationMinutes, &it.SessionType, &it.Topic, &it.Completed,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// OverallProgress returns total completed and estimated hours across every
// subject of a user's plans.
func (r *StudyPlanRepo) OverallProgress(ctx context.Context, userID uuid.UUID) (completed float64, estimated int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(ps.completed_hours), 0), COALESCE(SUM(ps.estimated_hours), 0)
		FROM plan_subjects ps
		JOIN study_plans p ON p.id = ps.plan_id
		WHERE p.user_id = $1
	`, userID).Scan(&completed, &estimated)
	return completed, estimated, err
}
