package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
)

// MemoryStore keeps everything in process memory. A single lock serializes writers, which
// gives every multi-record operation (follow pairs, uniqueness, like toggles) atomicity.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]*models.User // followers/following kept in these records
	byUsername map[string]string
	byEmail    map[string]string

	tweets     map[string]*tweetRecord
	userTweets map[string][]string // author -> tweet ids in insertion order

	activity map[string][]models.Activity // newest first
}

type tweetRecord struct {
	tweet    models.Tweet // Likes/Comments left empty; see likes and comments
	likes    []string
	comments []models.Comment
}

// NewMemory initializes an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*models.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		tweets:     make(map[string]*tweetRecord),
		userTweets: make(map[string][]string),
		activity:   make(map[string][]models.Activity),
	}
}

func (m *MemoryStore) Close() {}

// --- Users ---

func (m *MemoryStore) CreateUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUsername[user.Username]; ok {
		return apperr.Conflict("username already taken")
	}
	if _, ok := m.byEmail[user.Email]; ok {
		return apperr.Conflict("email already registered")
	}

	u := user
	u.Followers = []string{}
	u.Following = []string{}
	m.users[u.ID] = &u
	m.byUsername[u.Username] = u.ID
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userLocked(userID)
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userLocked(m.byUsername[username])
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userLocked(m.byEmail[email])
}

func (m *MemoryStore) userLocked(userID string) (models.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return models.User{}, apperr.NotFound("user")
	}
	c := *u
	c.Followers = append([]string{}, u.Followers...)
	c.Following = append([]string{}, u.Following...)
	return c, nil
}

func (m *MemoryStore) SearchUsers(ctx context.Context, query string) ([]models.UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	res := []models.UserSummary{}
	for name, id := range m.byUsername {
		if strings.Contains(strings.ToLower(name), q) {
			res = append(res, models.UserSummary{ID: id, Username: name})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Username < res[j].Username })
	return res, nil
}

// --- Social graph ---

func (m *MemoryStore) CreateFollow(ctx context.Context, userID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	actor, target, err := m.pairLocked(userID, followeeID)
	if err != nil {
		return err
	}
	if contains(actor.Following, followeeID) {
		return apperr.Conflict("already following")
	}
	actor.Following = append(actor.Following, followeeID)
	target.Followers = append(target.Followers, userID)
	return nil
}

func (m *MemoryStore) DeleteFollow(ctx context.Context, userID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	actor, target, err := m.pairLocked(userID, followeeID)
	if err != nil {
		return err
	}
	if !contains(actor.Following, followeeID) {
		return apperr.Conflict("not following")
	}
	actor.Following = remove(actor.Following, followeeID)
	target.Followers = remove(target.Followers, userID)
	return nil
}

func (m *MemoryStore) pairLocked(userID, followeeID string) (*models.User, *models.User, error) {
	actor, ok := m.users[userID]
	if !ok {
		return nil, nil, apperr.NotFound("user")
	}
	target, ok := m.users[followeeID]
	if !ok {
		return nil, nil, apperr.NotFound("user")
	}
	return actor, target, nil
}

func (m *MemoryStore) IsFollowing(ctx context.Context, userID, followeeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	return contains(u.Following, followeeID), nil
}

func (m *MemoryStore) GetFollowers(ctx context.Context, userID string) ([]string, error) {
	u, err := m.GetUserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return []string{}, nil
	}
	return u.Followers, err
}

func (m *MemoryStore) GetFollowing(ctx context.Context, userID string) ([]string, error) {
	u, err := m.GetUserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return []string{}, nil
	}
	return u.Following, err
}

// --- Tweets ---

func (m *MemoryStore) AddTweet(ctx context.Context, tweet models.Tweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := tweet
	t.Likes, t.LikeCount, t.Comments = nil, 0, nil
	m.tweets[t.ID] = &tweetRecord{tweet: t, likes: []string{}, comments: []models.Comment{}}
	m.userTweets[t.UserID] = append(m.userTweets[t.UserID], t.ID)
	return nil
}

func (m *MemoryStore) GetTweet(ctx context.Context, tweetID string) (models.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tweets[tweetID]
	if !ok {
		return models.Tweet{}, apperr.NotFound("tweet")
	}
	return rec.snapshot(), nil
}

func (m *MemoryStore) DeleteTweet(ctx context.Context, tweet models.Tweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tweets[tweet.ID]
	if !ok {
		return apperr.NotFound("tweet")
	}
	delete(m.tweets, tweet.ID)
	owner := rec.tweet.UserID
	m.userTweets[owner] = remove(m.userTweets[owner], tweet.ID)
	return nil
}

// ListTweetsByUser returns the user's tweets newest first.
func (m *MemoryStore) ListTweetsByUser(ctx context.Context, userID string) ([]models.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.userTweets[userID]
	res := make([]models.Tweet, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		res = append(res, m.tweets[ids[i]].snapshot())
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryStore) ToggleLike(ctx context.Context, tweetID, userID string) (models.LikeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tweets[tweetID]
	if !ok {
		return models.LikeResult{}, apperr.NotFound("tweet")
	}

	liked := !contains(rec.likes, userID)
	if liked {
		rec.likes = append(rec.likes, userID)
	} else {
		rec.likes = remove(rec.likes, userID)
	}
	return models.LikeResult{Liked: liked, LikeCount: len(rec.likes)}, nil
}

func (m *MemoryStore) AddComment(ctx context.Context, tweetID string, comment models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tweets[tweetID]
	if !ok {
		return apperr.NotFound("tweet")
	}
	rec.comments = append(rec.comments, comment)
	return nil
}

func (m *MemoryStore) GetComment(ctx context.Context, tweetID, commentID string) (models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tweets[tweetID]
	if !ok {
		return models.Comment{}, apperr.NotFound("tweet")
	}
	for _, c := range rec.comments {
		if c.ID == commentID {
			return c, nil
		}
	}
	return models.Comment{}, apperr.NotFound("comment")
}

func (m *MemoryStore) DeleteComment(ctx context.Context, tweetID, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tweets[tweetID]
	if !ok {
		return apperr.NotFound("tweet")
	}
	for i, c := range rec.comments {
		if c.ID == commentID {
			rec.comments = append(rec.comments[:i], rec.comments[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("comment")
}

func (r *tweetRecord) snapshot() models.Tweet {
	t := r.tweet
	t.Likes = append([]string{}, r.likes...)
	t.LikeCount = len(r.likes)
	t.Comments = append([]models.Comment{}, r.comments...)
	return t
}

// --- Activity ---

func (m *MemoryStore) AddActivity(ctx context.Context, a models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activity[a.UserID] = append([]models.Activity{a}, m.activity[a.UserID]...)
	return nil
}

func (m *MemoryStore) ListActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.activity[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]models.Activity{}, entries...), nil
}

// --- helpers ---

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
