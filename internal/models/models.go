package models

import "time"

// User is a registered account together with both sides of its follow graph.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Followers    []string  `json:"followers"`
	Following    []string  `json:"following"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary returns the public identity of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// UserProfile is the public view of a user with resolved follow lists. Email is set
// only for the user's own profile.
type UserProfile struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email,omitempty"`
	Followers      []UserSummary `json:"followers"`
	Following      []UserSummary `json:"following"`
	FollowersCount int           `json:"followersCount"`
	FollowingCount int           `json:"followingCount"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Session is returned by register and login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserSummary `json:"user"`
}

type Tweet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Likes     []string  `json:"likes"`
	LikeCount int       `json:"likeCount"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikeResult is the state of a like after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// Event kinds published on the activity topic.
const (
	EventLike    = "like"
	EventComment = "comment"
	EventFollow  = "follow"
)

// Event is a social action published to Kafka and turned into an Activity by the worker.
type Event struct {
	Kind         string    `json:"kind"`
	ActorID      string    `json:"actor_id"`
	ActorName    string    `json:"actor_name"`
	TargetUserID string    `json:"target_user_id"`
	TweetID      string    `json:"tweet_id,omitempty"`
	Created      time.Time `json:"created"`
}

// Activity is an entry in a user's activity log.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	TweetID   string    `json:"tweetId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
