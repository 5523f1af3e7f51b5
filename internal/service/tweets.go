package service

import (
	"context"
	"strings"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/metrics"
	"example.com/minitweet/internal/models"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// MaxContentLength bounds tweets and comments, counted in Unicode code points.
const MaxContentLength = 280

type tweetInput struct {
	Content string `validate:"required,max=280"`
}

type commentInput struct {
	Text string `validate:"required,max=280"`
}

// CreateTweet posts content as authorID. The author's username is denormalized onto
// the tweet.
func (s *Service) CreateTweet(ctx context.Context, authorID, content string) (models.Tweet, error) {
	in := tweetInput{Content: strings.TrimSpace(content)}
	if err := s.check(in); err != nil {
		return models.Tweet{}, err
	}

	author, err := s.store.GetUserByID(ctx, authorID)
	if err != nil {
		return models.Tweet{}, err
	}

	// Version 7 ids sort by creation time, which orders feed ties by posting order.
	id, err := uuid.NewV7()
	if err != nil {
		return models.Tweet{}, apperr.Internal(err, "tweet id")
	}
	t := models.Tweet{
		ID:        id.String(),
		UserID:    author.ID,
		Author:    author.Username,
		Content:   in.Content,
		CreatedAt: s.timestamp(),
	}
	if err := s.store.AddTweet(ctx, t); err != nil {
		return models.Tweet{}, err
	}
	t.Likes = []string{}
	t.Comments = []models.Comment{}

	metrics.RecordTweetCreated()
	logg.Info("service/tweets", "Tweet created by user_id="+authorID)
	return t, nil
}

func (s *Service) GetTweet(ctx context.Context, tweetID string) (models.Tweet, error) {
	return s.store.GetTweet(ctx, tweetID)
}

// DeleteTweet removes a tweet with its likes and comments. Only the owner may delete.
func (s *Service) DeleteTweet(ctx context.Context, tweetID, requesterID string) error {
	t, err := s.store.GetTweet(ctx, tweetID)
	if err != nil {
		return err
	}
	if t.UserID != requesterID {
		return apperr.Forbidden("only the author can delete this tweet")
	}
	return s.store.DeleteTweet(ctx, t)
}

// ToggleLike likes the tweet for userID, or removes the like if it already exists.
func (s *Service) ToggleLike(ctx context.Context, tweetID, userID string) (models.LikeResult, error) {
	res, err := s.store.ToggleLike(ctx, tweetID, userID)
	if err != nil {
		return models.LikeResult{}, err
	}
	metrics.RecordLikeToggle(res.Liked)

	if res.Liked {
		s.notifyOwner(ctx, models.EventLike, tweetID, userID)
	}
	return res, nil
}

func (s *Service) AddComment(ctx context.Context, tweetID, userID, text string) (models.Comment, error) {
	in := commentInput{Text: strings.TrimSpace(text)}
	if err := s.check(in); err != nil {
		return models.Comment{}, err
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return models.Comment{}, err
	}

	c := models.Comment{
		ID:        gocql.TimeUUID().String(),
		UserID:    u.ID,
		Username:  u.Username,
		Text:      in.Text,
		CreatedAt: s.timestamp(),
	}
	if err := s.store.AddComment(ctx, tweetID, c); err != nil {
		return models.Comment{}, err
	}

	s.notifyOwner(ctx, models.EventComment, tweetID, userID)
	return c, nil
}

// RemoveComment deletes a comment. Only the comment's author may delete it.
func (s *Service) RemoveComment(ctx context.Context, tweetID, commentID, requesterID string) error {
	c, err := s.store.GetComment(ctx, tweetID, commentID)
	if err != nil {
		return err
	}
	if c.UserID != requesterID {
		return apperr.Forbidden("only the author can delete this comment")
	}
	return s.store.DeleteComment(ctx, tweetID, commentID)
}

// ListByUser returns the user's tweets newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Tweet, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	tweets, err := s.store.ListTweetsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(tweets)
	return tweets, nil
}

func (s *Service) notifyOwner(ctx context.Context, kind, tweetID, actorID string) {
	if s.events == nil {
		return
	}
	t, err := s.store.GetTweet(ctx, tweetID)
	if err != nil {
		logg.Error("service/events", "Failed to resolve tweet owner", err)
		return
	}
	actor, err := s.store.GetUserByID(ctx, actorID)
	if err != nil {
		logg.Error("service/events", "Failed to resolve actor", err)
		return
	}
	s.publish(ctx, models.Event{
		Kind:         kind,
		ActorID:      actorID,
		ActorName:    actor.Username,
		TargetUserID: t.UserID,
		TweetID:      tweetID,
	})
}
