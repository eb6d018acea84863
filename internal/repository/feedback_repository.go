package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jlkwl/supermarket/internal/domain"
)

type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO feedback (user_id, username, email, address, subject, message)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		f.UserID, f.Username, f.Email, f.Address, f.Subject, f.Message).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}
	return id, nil
}

// ListAll returns all feedback entries, newest first.
func (r *FeedbackRepository) ListAll(ctx context.Context) ([]domain.Feedback, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, username, email, address, subject, message, created_at
		 FROM feedback ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var entries []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Username, &f.Email, &f.Address, &f.Subject, &f.Message, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		entries = append(entries, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
