package store

import (
	"context"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
	"github.com/gocql/gocql"
)

// --- Activity operations ---

func (s *Store) AddActivity(ctx context.Context, a models.Activity) error {
	aid, err := gocql.ParseUUID(a.ID)
	if err != nil {
		return apperr.Internal(err, "parse activity id")
	}

	if err := s.Session.Query(`
		INSERT INTO activity_by_user (user_id, activity_id, kind, actor_id, actor_name, tweet_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, aid, a.Kind, a.ActorID, a.ActorName, a.TweetID, a.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to add activity", err)
		return apperr.Internal(err, "add activity")
	}
	return nil
}

// ListActivity returns the newest activity entries of a user.
func (s *Store) ListActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	iter := s.Session.Query(`
		SELECT activity_id, kind, actor_id, actor_name, tweet_id, created_at
		FROM activity_by_user WHERE user_id = ? LIMIT ?`,
		userID, limit,
	).WithContext(ctx).Iter()

	res := []models.Activity{}
	var a models.Activity
	var aid gocql.UUID
	for iter.Scan(&aid, &a.Kind, &a.ActorID, &a.ActorName, &a.TweetID, &a.CreatedAt) {
		a.ID = aid.String()
		a.UserID = userID
		res = append(res, a)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to retrieve activity", err)
		return nil, apperr.Internal(err, "list activity")
	}
	return res, nil
}
