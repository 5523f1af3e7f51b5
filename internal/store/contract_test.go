package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shared behaviour checks run against every StoreInterface implementation. Each check
// namespaces its ids with pfx so it can run against a long-lived keyspace.

func contractUser(t *testing.T, st StoreInterface, pfx, name string) models.User {
	t.Helper()
	u := models.User{
		ID:        pfx + name,
		Username:  pfx + name,
		Email:     pfx + name + "@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

// countOutcomes returns the number of nil errors and requires the rest to be conflicts.
func countOutcomes(t *testing.T, errs []error) int {
	t.Helper()
	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	return ok
}

func checkUserUniqueness(t *testing.T, st StoreInterface, pfx string) {
	ctx := context.Background()
	alice := contractUser(t, st, pfx, "alice")

	byName, err := st.GetUserByUsername(ctx, alice.Username)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)
	byEmail, err := st.GetUserByEmail(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	err = st.CreateUser(ctx, models.User{ID: pfx + "2", Username: alice.Username, Email: pfx + "other@example.com"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	err = st.CreateUser(ctx, models.User{ID: pfx + "3", Username: pfx + "alice2", Email: alice.Email})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = st.GetUserByUsername(ctx, pfx+"alice2")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "a lost email reservation releases the username")

	require.NoError(t, st.CreateUser(ctx, models.User{ID: pfx + "4", Username: pfx + "alice2", Email: pfx + "alice2@example.com"}))
}

func checkConcurrentFollow(t *testing.T, st StoreInterface, pfx string) {
	ctx := context.Background()
	a := contractUser(t, st, pfx, "a")
	b := contractUser(t, st, pfx, "b")

	const n = 10
	run := func(op func() error) []error {
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = op()
			}(i)
		}
		wg.Wait()
		return errs
	}

	created := run(func() error { return st.CreateFollow(ctx, a.ID, b.ID) })
	assert.Equal(t, 1, countOutcomes(t, created), "exactly one follow wins")

	followers, err := st.GetFollowers(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, followers)
	following, err := st.GetFollowing(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, following)

	deleted := run(func() error { return st.DeleteFollow(ctx, a.ID, b.ID) })
	assert.Equal(t, 1, countOutcomes(t, deleted), "exactly one unfollow wins")

	ok, err := st.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	followers, err = st.GetFollowers(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func checkConcurrentLikes(t *testing.T, st StoreInterface, pfx string) {
	ctx := context.Background()
	tw := models.Tweet{ID: pfx + "t1", UserID: pfx + "a", Author: "a", Content: "hi", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, st.AddTweet(ctx, tw))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := st.ToggleLike(ctx, tw.ID, fmt.Sprintf("%suser-%d", pfx, i))
			assert.NoError(t, err)
			assert.True(t, res.Liked)
		}(i)
	}
	wg.Wait()

	got, err := st.GetTweet(ctx, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.LikeCount)

	res, err := st.ToggleLike(ctx, tw.ID, pfx+"user-0")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: false, LikeCount: n - 1}, res)

	_, err = st.ToggleLike(ctx, pfx+"missing", pfx+"user-0")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func checkTweetLifecycle(t *testing.T, st StoreInterface, pfx string) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	author := pfx + "author"
	for i := 0; i < 3; i++ {
		require.NoError(t, st.AddTweet(ctx, models.Tweet{
			ID: fmt.Sprintf("%st%d", pfx, i), UserID: author, Author: "author", Content: "x",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := st.ListTweetsByUser(ctx, author)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, pfx+"t2", list[0].ID)
	assert.Equal(t, pfx+"t0", list[2].ID)

	c := models.Comment{ID: gocql.TimeUUID().String(), UserID: pfx + "b", Username: "b", Text: "nice", CreatedAt: base}
	require.NoError(t, st.AddComment(ctx, pfx+"t2", c))
	got, err := st.GetComment(ctx, pfx+"t2", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "nice", got.Text)
	assert.Equal(t, c.ID, got.ID)

	tw, err := st.GetTweet(ctx, pfx+"t2")
	require.NoError(t, err)
	require.Len(t, tw.Comments, 1)

	require.NoError(t, st.DeleteComment(ctx, pfx+"t2", c.ID))
	_, err = st.GetComment(ctx, pfx+"t2", c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, st.AddComment(ctx, pfx+"missing", c), apperr.ErrNotFound)

	require.NoError(t, st.DeleteTweet(ctx, tw))
	_, err = st.GetTweet(ctx, tw.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	list, err = st.ListTweetsByUser(ctx, author)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func checkActivityNewestFirst(t *testing.T, st StoreInterface, pfx string) {
	ctx := context.Background()
	user := pfx + "bob"
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = gocql.TimeUUID().String()
		require.NoError(t, st.AddActivity(ctx, models.Activity{
			ID: ids[i], UserID: user, Kind: models.EventLike, ActorID: pfx + "a", ActorName: "a",
			TweetID: pfx + "t1", CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}))
	}

	acts, err := st.ListActivity(ctx, user, 2)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, ids[2], acts[0].ID)
	assert.Equal(t, ids[1], acts[1].ID)
	assert.Equal(t, models.EventLike, acts[0].Kind)
}

func runContract(t *testing.T, open func(t *testing.T) StoreInterface) {
	checks := map[string]func(*testing.T, StoreInterface, string){
		"UserUniqueness":      checkUserUniqueness,
		"ConcurrentFollow":    checkConcurrentFollow,
		"ConcurrentLikes":     checkConcurrentLikes,
		"TweetLifecycle":      checkTweetLifecycle,
		"ActivityNewestFirst": checkActivityNewestFirst,
	}
	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			check(t, open(t), fmt.Sprintf("%d-", time.Now().UnixNano()))
		})
	}
}

func TestMemory_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) StoreInterface { return NewMemory() })
}
