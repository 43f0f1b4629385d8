package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"aprovaai-backend/internal/models"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	d.ID = uuid.New()
	if d.Tags == nil {
		d.Tags = []string{}
	}

	query := `INSERT INTO documents (id, user_id, title, source_type, status, source_url, file_path, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		d.ID, d.UserID, d.Title, d.SourceType, d.Status, d.SourceURL, d.FilePath, d.Tags,
	).Scan(&d.CreatedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d := &models.Document{}
	query := `SELECT id, user_id, title, source_type, status, source_url, file_path,
		category, tags, content_text, summary, summary_type, word_count, is_favorite, created_at
		FROM documents WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.UserID, &d.Title, &d.SourceType, &d.Status, &d.SourceURL, &d.FilePath,
		&d.Category, &d.Tags, &d.ContentText, &d.Summary, &d.SummaryType,
		&d.WordCount, &d.IsFavorite, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID uuid.UUID, search, category, sortBy string, limit, offset int) ([]*models.Document, int, error) {
	var args []interface{}
	argIdx := 1

	where := fmt.Sprintf("WHERE user_id = $%d", argIdx)
	args = append(args, userID)
	argIdx++

	if search != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d OR summary ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}

	if category != "" {
		where += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, category)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM documents " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at DESC"
	switch sortBy {
	case "title":
		orderBy = "title ASC"
	case "oldest":
		orderBy = "created_at ASC"
	case "favorites":
		orderBy = "is_favorite DESC, created_at DESC"
	}

	query := fmt.Sprintf(`SELECT id, user_id, title, source_type, status, source_url, file_path,
		category, tags, content_text, summary, summary_type, word_count, is_favorite, created_at
		FROM documents %s ORDER BY %s LIMIT $%d OFFSET $%d`, where, orderBy, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		d := &models.Document{}
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Title, &d.SourceType, &d.Status, &d.SourceURL, &d.FilePath,
			&d.Category, &d.Tags, &d.ContentText, &d.Summary, &d.SummaryType,
			&d.WordCount, &d.IsFavorite, &d.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		documents = append(documents, d)
	}

	return documents, total, rows.Err()
}

func (r *DocumentRepo) UpdateContent(ctx context.Context, id uuid.UUID, contentText string, wordCount int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE documents SET content_text = $1, word_count = $2 WHERE id = $3",
		contentText, wordCount, id,
	)
	return err
}

func (r *DocumentRepo) UpdateSummary(ctx context.Context, id uuid.UUID, summary, summaryType string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE documents SET summary = $1, summary_type = $2 WHERE id = $3",
		summary, summaryType, id,
	)
	return err
}

func (r *DocumentRepo) UpdateClassification(ctx context.Context, id uuid.UUID, category string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	_, err := r.pool.Exec(ctx,
		"UPDATE documents SET category = $1, tags = $2 WHERE id = $3",
		category, tags, id,
	)
	return err
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE documents SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *DocumentRepo) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	_, err := r.pool.Exec(ctx, "UPDATE documents SET title = $1 WHERE id = $2", title, id)
	return err
}

func (r *DocumentRepo) ToggleFavorite(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE documents SET is_favorite = NOT is_favorite WHERE id = $1", id)
	return err
}

func (r *DocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	return err
}

func (r *DocumentRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents WHERE user_id = $1", userID).Scan(&count)
	return count, err
}
