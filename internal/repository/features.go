package repository

import (
	"context"
	"fmt"

	"github.com/lunahq/attendant/internal/domain"
)

func (q *Queries) CreateFeatureRequest(ctx context.Context, userID, title, description string) (*domain.FeatureRequest, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO feature_requests (user_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at`,
		userID, title, description)

	fr := domain.FeatureRequest{
		UserID:      userID,
		Title:       title,
		Description: description,
	}
	if err := row.Scan(&fr.ID, &fr.Status, &fr.CreatedAt); err != nil {
		return nil, fmt.Errorf("create feature request: %w", err)
	}
	return &fr, nil
}

func (q *Queries) SetFeatureRequestIssue(ctx context.Context, id int64, issueURL string) error {
	if _, err := q.pool.Exec(ctx, `
		UPDATE feature_requests SET issue_url = $2, status = 'submitted'
		WHERE id = $1`, id, issueURL); err != nil {
		return fmt.Errorf("set feature request issue: %w", err)
	}
	return nil
}

func (q *Queries) CreateGeneratedImage(ctx context.Context, userID, imageURL, prompt string) (*domain.GeneratedImage, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO generated_images (user_id, image_url, prompt)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		userID, imageURL, prompt)

	gi := domain.GeneratedImage{
		UserID:   userID,
		ImageURL: imageURL,
		Prompt:   prompt,
	}
	if err := row.Scan(&gi.ID, &gi.CreatedAt); err != nil {
		return nil, fmt.Errorf("create generated image: %w", err)
	}
	return &gi, nil
}
