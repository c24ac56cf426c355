// Package store keeps session records. The session manager is the only writer.
package store

import (
	"context"
	"errors"

	"docqa-service/models"
)

var ErrNotFound = errors.New("session not found")

// SessionStore is a keyed registry of sessions. Implementations must be safe
// for concurrent use and must never hand out references to their own state.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Put(ctx context.Context, s *models.Session) error
	// Update applies fn to the stored session and saves the result.
	Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error)
	// Remove deletes and returns the session, or ErrNotFound.
	Remove(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
	Count(ctx context.Context) (int, error)
}
