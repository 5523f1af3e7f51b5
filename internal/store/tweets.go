package store

import (
	"context"
	"errors"
	"time"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
	"github.com/gocql/gocql"
)

// toggleAttempts bounds the insert/delete flip when the same user toggles concurrently.
const toggleAttempts = 5

// --- Tweet operations ---

func (s *Store) AddTweet(ctx context.Context, tweet models.Tweet) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`
		INSERT INTO tweets (tweet_id, user_id, author, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		tweet.ID, tweet.UserID, tweet.Author, tweet.Content, tweet.CreatedAt)
	batch.Query(`
		INSERT INTO tweets_by_user (user_id, created_at, tweet_id, author, content)
		VALUES (?, ?, ?, ?, ?)`,
		tweet.UserID, tweet.CreatedAt, tweet.ID, tweet.Author, tweet.Content)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add tweet", err)
		return apperr.Internal(err, "add tweet")
	}

	logg.Info("store", "Tweet added (content anonymized)")
	return nil
}

func (s *Store) GetTweet(ctx context.Context, tweetID string) (models.Tweet, error) {
	t, err := s.getTweetRow(ctx, tweetID)
	if err != nil {
		return models.Tweet{}, err
	}
	if err := s.hydrate(ctx, &t); err != nil {
		return models.Tweet{}, err
	}
	return t, nil
}

func (s *Store) getTweetRow(ctx context.Context, tweetID string) (models.Tweet, error) {
	var t models.Tweet
	err := s.Session.Query(`
		SELECT tweet_id, user_id, author, content, created_at
		FROM tweets WHERE tweet_id = ?`,
		tweetID,
	).WithContext(ctx).Scan(&t.ID, &t.UserID, &t.Author, &t.Content, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return models.Tweet{}, apperr.NotFound("tweet")
		}
		logg.Error("store", "Failed to query tweet", err)
		return models.Tweet{}, apperr.Internal(err, "get tweet")
	}
	return t, nil
}

// DeleteTweet removes the tweet rows together with its likes and comments.
func (s *Store) DeleteTweet(ctx context.Context, tweet models.Tweet) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`DELETE FROM tweets WHERE tweet_id = ?`, tweet.ID)
	batch.Query(`DELETE FROM tweets_by_user WHERE user_id = ? AND created_at = ? AND tweet_id = ?`,
		tweet.UserID, tweet.CreatedAt, tweet.ID)
	batch.Query(`DELETE FROM tweet_likes WHERE tweet_id = ?`, tweet.ID)
	batch.Query(`DELETE FROM tweet_comments WHERE tweet_id = ?`, tweet.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete tweet", err)
		return apperr.Internal(err, "delete tweet")
	}

	logg.Info("store", "Tweet deleted (tweet ID anonymized)")
	return nil
}

// ListTweetsByUser returns the user's tweets newest first.
func (s *Store) ListTweetsByUser(ctx context.Context, userID string) ([]models.Tweet, error) {
	iter := s.Session.Query(`
		SELECT tweet_id, author, content, created_at
		FROM tweets_by_user WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	res := []models.Tweet{}
	var id, author, content string
	var created time.Time
	for iter.Scan(&id, &author, &content, &created) {
		res = append(res, models.Tweet{
			ID:        id,
			UserID:    userID,
			Author:    author,
			Content:   content,
			CreatedAt: created,
		})
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list user tweets", err)
		return nil, apperr.Internal(err, "list tweets")
	}

	for i := range res {
		if err := s.hydrate(ctx, &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// hydrate loads the likes and comments of a tweet.
func (s *Store) hydrate(ctx context.Context, t *models.Tweet) error {
	likes, err := s.listIDs(ctx, `SELECT user_id FROM tweet_likes WHERE tweet_id = ?`, t.ID)
	if err != nil {
		return err
	}
	t.Likes = likes
	t.LikeCount = len(likes)

	iter := s.Session.Query(`
		SELECT comment_id, user_id, username, body, created_at
		FROM tweet_comments WHERE tweet_id = ?`,
		t.ID,
	).WithContext(ctx).Iter()

	t.Comments = []models.Comment{}
	var c models.Comment
	var cid gocql.UUID
	for iter.Scan(&cid, &c.UserID, &c.Username, &c.Text, &c.CreatedAt) {
		c.ID = cid.String()
		t.Comments = append(t.Comments, c)
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list comments", err)
		return apperr.Internal(err, "list comments")
	}
	return nil
}

// --- Likes ---

// ToggleLike flips the (tweet, user) like row with a conditional write. Each user owns
// its own row, so concurrent toggles by different users never contend.
func (s *Store) ToggleLike(ctx context.Context, tweetID, userID string) (models.LikeResult, error) {
	if _, err := s.getTweetRow(ctx, tweetID); err != nil {
		return models.LikeResult{}, err
	}

	liked, err := s.flipLike(ctx, tweetID, userID)
	if err != nil {
		return models.LikeResult{}, err
	}

	var count int
	if err := s.Session.Query(
		`SELECT COUNT(*) FROM tweet_likes WHERE tweet_id = ?`, tweetID,
	).WithContext(ctx).Scan(&count); err != nil {
		logg.Error("store", "Failed to count likes", err)
		return models.LikeResult{}, apperr.Internal(err, "count likes")
	}

	return models.LikeResult{Liked: liked, LikeCount: count}, nil
}

func (s *Store) flipLike(ctx context.Context, tweetID, userID string) (bool, error) {
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		applied, err := s.Session.Query(`
			INSERT INTO tweet_likes (tweet_id, user_id, created_at)
			VALUES (?, ?, ?) IF NOT EXISTS`,
			tweetID, userID, time.Now().UTC(),
		).WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			logg.Error("store", "Failed to insert like", err)
			return false, apperr.Internal(err, "like")
		}
		if applied {
			return true, nil
		}

		applied, err = s.Session.Query(`
			DELETE FROM tweet_likes WHERE tweet_id = ? AND user_id = ? IF EXISTS`,
			tweetID, userID,
		).WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			logg.Error("store", "Failed to delete like", err)
			return false, apperr.Internal(err, "unlike")
		}
		if applied {
			return false, nil
		}
		// The row vanished between the two writes; try the insert again.
	}
	return false, apperr.Conflict("like is being toggled concurrently, retry")
}

// --- Comments ---

func (s *Store) AddComment(ctx context.Context, tweetID string, comment models.Comment) error {
	if _, err := s.getTweetRow(ctx, tweetID); err != nil {
		return err
	}

	cid, err := gocql.ParseUUID(comment.ID)
	if err != nil {
		return apperr.Internal(err, "parse comment id")
	}

	if err := s.Session.Query(`
		INSERT INTO tweet_comments (tweet_id, comment_id, user_id, username, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tweetID, cid, comment.UserID, comment.Username, comment.Text, comment.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to add comment", err)
		return apperr.Internal(err, "add comment")
	}

	logg.Info("store", "Comment added (content anonymized)")
	return nil
}

func (s *Store) GetComment(ctx context.Context, tweetID, commentID string) (models.Comment, error) {
	cid, err := gocql.ParseUUID(commentID)
	if err != nil {
		return models.Comment{}, apperr.NotFound("comment")
	}

	var c models.Comment
	var id gocql.UUID
	err = s.Session.Query(`
		SELECT comment_id, user_id, username, body, created_at
		FROM tweet_comments WHERE tweet_id = ? AND comment_id = ?`,
		tweetID, cid,
	).WithContext(ctx).Scan(&id, &c.UserID, &c.Username, &c.Text, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return models.Comment{}, apperr.NotFound("comment")
		}
		logg.Error("store", "Failed to query comment", err)
		return models.Comment{}, apperr.Internal(err, "get comment")
	}
	c.ID = id.String()
	return c, nil
}

func (s *Store) DeleteComment(ctx context.Context, tweetID, commentID string) error {
	cid, err := gocql.ParseUUID(commentID)
	if err != nil {
		return apperr.NotFound("comment")
	}

	if err := s.Session.Query(
		`DELETE FROM tweet_comments WHERE tweet_id = ? AND comment_id = ?`,
		tweetID, cid,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to delete comment", err)
		return apperr.Internal(err, "delete comment")
	}
	return nil
}
