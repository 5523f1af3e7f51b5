package store

import (
	"context"
	"errors"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
)

// FailingStore always returns internal errors, for negative tests.
type FailingStore struct{}

var errFailingStore = errors.New("mock store failure")

func fail(op string) error { return apperr.Internal(errFailingStore, op) }

func (FailingStore) Close() {}

func (FailingStore) CreateUser(context.Context, models.User) error { return fail("CreateUser") }

func (FailingStore) GetUserByID(context.Context, string) (models.User, error) {
	return models.User{}, fail("GetUserByID")
}

func (FailingStore) GetUserByUsername(context.Context, string) (models.User, error) {
	return models.User{}, fail("GetUserByUsername")
}

func (FailingStore) GetUserByEmail(context.Context, string) (models.User, error) {
	return models.User{}, fail("GetUserByEmail")
}

func (FailingStore) SearchUsers(context.Context, string) ([]models.UserSummary, error) {
	return nil, fail("SearchUsers")
}

func (FailingStore) CreateFollow(context.Context, string, string) error { return fail("CreateFollow") }

func (FailingStore) DeleteFollow(context.Context, string, string) error { return fail("DeleteFollow") }

func (FailingStore) IsFollowing(context.Context, string, string) (bool, error) {
	return false, fail("IsFollowing")
}

func (FailingStore) GetFollowers(context.Context, string) ([]string, error) {
	return nil, fail("GetFollowers")
}

func (FailingStore) GetFollowing(context.Context, string) ([]string, error) {
	return nil, fail("GetFollowing")
}

func (FailingStore) AddTweet(context.Context, models.Tweet) error { return fail("AddTweet") }

func (FailingStore) GetTweet(context.Context, string) (models.Tweet, error) {
	return models.Tweet{}, fail("GetTweet")
}

func (FailingStore) DeleteTweet(context.Context, models.Tweet) error { return fail("DeleteTweet") }

func (FailingStore) ListTweetsByUser(context.Context, string) ([]models.Tweet, error) {
	return nil, fail("ListTweetsByUser")
}

func (FailingStore) ToggleLike(context.Context, string, string) (models.LikeResult, error) {
	return models.LikeResult{}, fail("ToggleLike")
}

func (FailingStore) AddComment(context.Context, string, models.Comment) error {
	return fail("AddComment")
}

func (FailingStore) GetComment(context.Context, string, string) (models.Comment, error) {
	return models.Comment{}, fail("GetComment")
}

func (FailingStore) DeleteComment(context.Context, string, string) error {
	return fail("DeleteComment")
}

func (FailingStore) AddActivity(context.Context, models.Activity) error { return fail("AddActivity") }

func (FailingStore) ListActivity(context.Context, string, int) ([]models.Activity, error) {
	return nil, fail("ListActivity")
}
