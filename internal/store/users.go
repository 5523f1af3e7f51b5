package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
	"github.com/gocql/gocql"
)

// --- User operations ---

// CreateUser reserves the username and the email with lightweight transactions, then
// writes the user row. A lost email reservation releases the username again, so a
// failed registration never leaves a name taken.
func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	applied, err := s.Session.Query(`
		INSERT INTO users_by_username (username, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		user.Username, user.ID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		logg.Error("store", "Failed to reserve username", err)
		return apperr.Internal(err, "reserve username")
	}
	if !applied {
		return apperr.Conflict("username already taken")
	}

	applied, err = s.Session.Query(`
		INSERT INTO users_by_email (email, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		user.Email, user.ID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		s.releaseUsername(ctx, user)
		if err != nil {
			logg.Error("store", "Failed to reserve email", err)
			return apperr.Internal(err, "reserve email")
		}
		return apperr.Conflict("email already registered")
	}

	err = s.Session.Query(`
		INSERT INTO users (user_id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		s.releaseUsername(ctx, user)
		s.releaseEmail(ctx, user)
		return apperr.Internal(err, "create user")
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return nil
}

func (s *Store) releaseUsername(ctx context.Context, user models.User) {
	if _, err := s.Session.Query(`
		DELETE FROM users_by_username WHERE username = ? IF user_id = ?`,
		user.Username, user.ID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{}); err != nil {
		logg.Error("store", "Failed to release username reservation", err)
	}
}

func (s *Store) releaseEmail(ctx context.Context, user models.User) {
	if _, err := s.Session.Query(`
		DELETE FROM users_by_email WHERE email = ? IF user_id = ?`,
		user.Email, user.ID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{}); err != nil {
		logg.Error("store", "Failed to release email reservation", err)
	}
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	err := s.Session.Query(`
		SELECT user_id, username, email, password_hash, created_at
		FROM users WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return models.User{}, apperr.NotFound("user")
		}
		logg.Error("store", "Failed to query user by id", err)
		return models.User{}, apperr.Internal(err, "get user")
	}

	if u.Followers, err = s.listIDs(ctx, `SELECT follower_id FROM followers WHERE user_id = ?`, userID); err != nil {
		return models.User{}, err
	}
	if u.Following, err = s.listIDs(ctx, `SELECT followee_id FROM following WHERE user_id = ?`, userID); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.lookupUser(ctx, `SELECT user_id FROM users_by_username WHERE username = ?`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.lookupUser(ctx, `SELECT user_id FROM users_by_email WHERE email = ?`, email)
}

func (s *Store) lookupUser(ctx context.Context, stmt, key string) (models.User, error) {
	var id string
	if err := s.Session.Query(stmt, key).WithContext(ctx).Scan(&id); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return models.User{}, apperr.NotFound("user")
		}
		logg.Error("store", "Failed to look up user", err)
		return models.User{}, apperr.Internal(err, "lookup user")
	}
	return s.GetUserByID(ctx, id)
}

// SearchUsers scans the username index and keeps case-insensitive substring matches.
// Cassandra has no substring index; the scan is bounded by the user count.
func (s *Store) SearchUsers(ctx context.Context, query string) ([]models.UserSummary, error) {
	q := strings.ToLower(query)
	iter := s.Session.Query(`SELECT username, user_id FROM users_by_username`).WithContext(ctx).Iter()

	res := []models.UserSummary{}
	var name, id string
	for iter.Scan(&name, &id) {
		if strings.Contains(strings.ToLower(name), q) {
			res = append(res, models.UserSummary{ID: id, Username: name})
		}
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to search users", err)
		return nil, apperr.Internal(err, "search users")
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Username < res[j].Username })
	return res, nil
}

// --- Follow operations ---

// CreateFollow claims the following row with a lightweight transaction, so two racing
// requests cannot both succeed, then writes the reverse row. A failed reverse write
// releases the claim.
func (s *Store) CreateFollow(ctx context.Context, userID, followeeID string) error {
	now := time.Now().UTC()
	applied, err := s.Session.Query(`
		INSERT INTO following (user_id, followee_id, created_at)
		VALUES (?, ?, ?) IF NOT EXISTS`,
		userID, followeeID, now,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		logg.Error("store", "Failed to claim follow relationship", err)
		return apperr.Internal(err, "create follow")
	}
	if !applied {
		return apperr.Conflict("already following")
	}

	if err := s.Session.Query(
		`INSERT INTO followers (user_id, follower_id, created_at) VALUES (?, ?, ?)`,
		followeeID, userID, now,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to write follower row", err)
		s.releaseFollow(ctx, userID, followeeID)
		return apperr.Internal(err, "create follow")
	}

	logg.Debug("store", "Follow relationship created")
	return nil
}

func (s *Store) releaseFollow(ctx context.Context, userID, followeeID string) {
	if _, err := s.Session.Query(`
		DELETE FROM following WHERE user_id = ? AND followee_id = ? IF EXISTS`,
		userID, followeeID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{}); err != nil {
		logg.Error("store", "Failed to release follow claim", err)
	}
}

// DeleteFollow removes the following row conditionally, so only one of several racing
// unfollows succeeds, then drops the reverse row.
func (s *Store) DeleteFollow(ctx context.Context, userID, followeeID string) error {
	applied, err := s.Session.Query(`
		DELETE FROM following WHERE user_id = ? AND followee_id = ? IF EXISTS`,
		userID, followeeID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		logg.Error("store", "Failed to remove follow relationship", err)
		return apperr.Internal(err, "delete follow")
	}
	if !applied {
		return apperr.Conflict("not following")
	}

	if err := s.Session.Query(
		`DELETE FROM followers WHERE user_id = ? AND follower_id = ?`,
		followeeID, userID,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to remove follower row", err)
		return apperr.Internal(err, "delete follow")
	}

	logg.Debug("store", "Follow relationship removed")
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, userID, followeeID string) (bool, error) {
	var id string
	err := s.Session.Query(
		`SELECT followee_id FROM following WHERE user_id = ? AND followee_id = ?`,
		userID, followeeID,
	).WithContext(ctx).Scan(&id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return false, nil
		}
		logg.Error("store", "Failed to check follow relationship", err)
		return false, apperr.Internal(err, "is following")
	}
	return true, nil
}

func (s *Store) GetFollowers(ctx context.Context, userID string) ([]string, error) {
	return s.listIDs(ctx, `SELECT follower_id FROM followers WHERE user_id = ?`, userID)
}

func (s *Store) GetFollowing(ctx context.Context, userID string) ([]string, error) {
	return s.listIDs(ctx, `SELECT followee_id FROM following WHERE user_id = ?`, userID)
}

func (s *Store) listIDs(ctx context.Context, stmt, key string) ([]string, error) {
	iter := s.Session.Query(stmt, key).WithContext(ctx).Iter()

	var id string
	res := []string{}
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list follow ids", err)
		return nil, apperr.Internal(err, "list follow ids")
	}
	return res, nil
}
