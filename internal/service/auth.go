package service

import (
	"context"
	"errors"
	"strings"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/models"
	"github.com/alexedwards/argon2id"
	"github.com/gocql/gocql"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LoginInput struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required,max=254"`
	Password        string `json:"password" validate:"required,max=128"`
}

// Register creates an account and returns a session for it. Username and email
// uniqueness is enforced by the store at write time.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.check(in); err != nil {
		return models.Session{}, err
	}

	hash, err := argon2id.CreateHash(in.Password, s.hashParams)
	if err != nil {
		return models.Session{}, apperr.Internal(err, "hash password")
	}

	user := models.User{
		ID:           gocql.TimeUUID().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.timestamp(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return models.Session{}, err
	}

	logg.Info("service/auth", "User registered user_id="+user.ID)
	return s.session(user)
}

// Login authenticates by username or email. Unknown users and wrong passwords produce
// the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (models.Session, error) {
	in.UsernameOrEmail = strings.TrimSpace(in.UsernameOrEmail)
	if err := s.check(in); err != nil {
		return models.Session{}, err
	}

	var (
		user models.User
		err  error
	)
	if strings.Contains(in.UsernameOrEmail, "@") {
		user, err = s.store.GetUserByEmail(ctx, strings.ToLower(in.UsernameOrEmail))
	} else {
		user, err = s.store.GetUserByUsername(ctx, in.UsernameOrEmail)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Session{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, err
	}

	ok, err := argon2id.ComparePasswordAndHash(in.Password, user.PasswordHash)
	if err != nil {
		return models.Session{}, apperr.Internal(err, "compare password")
	}
	if !ok {
		return models.Session{}, apperr.ErrInvalidCredentials
	}

	return s.session(user)
}

// Authenticate resolves a bearer token to its user id.
func (s *Service) Authenticate(raw string) (string, error) {
	return s.tokens.Verify(raw)
}

func (s *Service) session(user models.User) (models.Session, error) {
	tok, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		Token:     tok,
		ExpiresAt: exp,
		User:      models.UserSummary{ID: user.ID, Username: user.Username, Email: user.Email},
	}, nil
}
