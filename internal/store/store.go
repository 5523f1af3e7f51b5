package store

import (
	"context"
	"fmt"

	config "example.com/minitweet/internal/init"
	"example.com/minitweet/internal/logger"
	"example.com/minitweet/internal/models"
)

var logg = logger.New()

// StoreInterface is the persistence contract used by the services and the worker.
//
// Implementations return apperr.ErrNotFound for missing entities and apperr.ErrConflict
// for uniqueness and follow-state violations. CreateUser, CreateFollow, DeleteFollow and
// ToggleLike must be atomic with respect to concurrent callers.
type StoreInterface interface {
	// --- Users ---
	CreateUser(ctx context.Context, user models.User) error
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.UserSummary, error)

	// --- Social graph ---
	CreateFollow(ctx context.Context, userID, followeeID string) error
	DeleteFollow(ctx context.Context, userID, followeeID string) error
	IsFollowing(ctx context.Context, userID, followeeID string) (bool, error)
	GetFollowers(ctx context.Context, userID string) ([]string, error)
	GetFollowing(ctx context.Context, userID string) ([]string, error)

	// --- Tweets ---
	AddTweet(ctx context.Context, tweet models.Tweet) error
	GetTweet(ctx context.Context, tweetID string) (models.Tweet, error)
	DeleteTweet(ctx context.Context, tweet models.Tweet) error
	ListTweetsByUser(ctx context.Context, userID string) ([]models.Tweet, error)
	ToggleLike(ctx context.Context, tweetID, userID string) (models.LikeResult, error)
	AddComment(ctx context.Context, tweetID string, comment models.Comment) error
	GetComment(ctx context.Context, tweetID, commentID string) (models.Comment, error)
	DeleteComment(ctx context.Context, tweetID, commentID string) error

	// --- Activity ---
	AddActivity(ctx context.Context, activity models.Activity) error
	ListActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error)

	Close()
}

// Open returns the store selected by cfg.StoreDriver.
func Open(cfg *config.Config) (StoreInterface, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logg.Info("store", "Using in-memory store")
		return NewMemory(), nil
	case config.DriverCassandra, "":
		st, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

var (
	_ StoreInterface = (*Store)(nil)
	_ StoreInterface = (*MemoryStore)(nil)
	_ StoreInterface = FailingStore{}
)
