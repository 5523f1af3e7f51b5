package service

import (
	"context"
	"errors"
	"strings"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
)

// Follow makes actorID follow targetID. Following someone twice is a conflict.
func (s *Service) Follow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return apperr.Validation("cannot follow yourself")
	}
	actor, err := s.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		return err
	}
	if err := s.store.CreateFollow(ctx, actorID, targetID); err != nil {
		return err
	}

	s.publish(ctx, models.Event{
		Kind:         models.EventFollow,
		ActorID:      actorID,
		ActorName:    actor.Username,
		TargetUserID: targetID,
	})
	return nil
}

// Unfollow removes the relationship; unfollowing someone not followed is a conflict.
func (s *Service) Unfollow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return apperr.Validation("cannot unfollow yourself")
	}
	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		return err
	}
	return s.store.DeleteFollow(ctx, actorID, targetID)
}

func (s *Service) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	return s.store.IsFollowing(ctx, actorID, targetID)
}

// Profile returns a user with resolved follower and followee summaries. The email is
// only included when viewerID is the user itself.
func (s *Service) Profile(ctx context.Context, userID, viewerID string) (models.UserProfile, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return models.UserProfile{}, err
	}

	followers, err := s.summaries(ctx, u.Followers)
	if err != nil {
		return models.UserProfile{}, err
	}
	following, err := s.summaries(ctx, u.Following)
	if err != nil {
		return models.UserProfile{}, err
	}

	p := models.UserProfile{
		ID:             u.ID,
		Username:       u.Username,
		Followers:      followers,
		Following:      following,
		FollowersCount: len(followers),
		FollowingCount: len(following),
		CreatedAt:      u.CreatedAt,
	}
	if viewerID != "" && viewerID == u.ID {
		p.Email = u.Email
	}
	return p, nil
}

func (s *Service) summaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		u, err := s.store.GetUserByID(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u.Summary())
	}
	return out, nil
}

// SearchUsers matches usernames case-insensitively by substring.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("username query is required")
	}
	return s.store.SearchUsers(ctx, query)
}
