package service

import (
	"context"

	"example.com/minitweet/internal/models"
)

// ActivityLimit caps how many activity entries are returned.
const ActivityLimit = 100

// Activity returns the newest entries of userID's activity log.
func (s *Service) Activity(ctx context.Context, userID string) ([]models.Activity, error) {
	return s.store.ListActivity(ctx, userID, ActivityLimit)
}
