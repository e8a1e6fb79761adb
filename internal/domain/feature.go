package domain

import "time"

// FeatureRequest is a user-submitted feature captured from a submit_feature
// exchange and optionally mirrored to the code-hosting service.
type FeatureRequest struct {
	ID          int64
	UserID      string
	Title       string
	Description string
	Status      string
	IssueURL    string
	CreatedAt   time.Time
}

// GeneratedImage records an image request captured from a generate_image
// exchange. ImageURL stays empty until a generation backend fulfills it.
type GeneratedImage struct {
	ID        int64
	UserID    string
	ImageURL  string
	Prompt    string
	CreatedAt time.Time
}
