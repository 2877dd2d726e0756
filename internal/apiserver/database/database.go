package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no social post has the requested id
var ErrNotFound = errors.New("social post not found")

// Database defines the methods for database operations.
type Database interface {
	// Close closes the database connection.
	Close() error

	// Ping runs a trivial query to check the connection.
	Ping(ctx context.Context) error

	// ListActiveSocialPosts returns posts valid before now and not archived, lightest weight first.
	ListActiveSocialPosts(ctx context.Context, now time.Time) ([]*SocialPost, error)

	// GetSocialPost gets a post by id.
	GetSocialPost(ctx context.Context, id string) (*SocialPost, error)

	// CreateSocialPost stores a new post and fills in its id.
	CreateSocialPost(ctx context.Context, post *SocialPost) error

	// UpdateSocialPost applies the non-nil fields of patch and returns the stored post.
	UpdateSocialPost(ctx context.Context, id string, patch SocialPostPatch) (*SocialPost, error)

	// DeleteSocialPost removes a post.
	DeleteSocialPost(ctx context.Context, id string) error

	// Transaction runs fn inside a transaction carried by ctx.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
