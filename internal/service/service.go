// Package service holds the MiniTweet use cases: registration and login, the follow
// graph, tweets with likes and comments, feed composition and the activity log.
//
// Every operation that acts on behalf of a user takes that user's verified id as an
// explicit argument.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/logger"
	"example.com/minitweet/internal/metrics"
	"example.com/minitweet/internal/models"
	"example.com/minitweet/internal/store"
	"example.com/minitweet/internal/token"
	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
)

var logg = logger.New()

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// EventPublisher hands social events to the activity pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Options tune a Service. Zero values select production defaults.
type Options struct {
	Events     EventPublisher   // nil disables activity events
	HashParams *argon2id.Params // defaults to argon2id.DefaultParams
	Now        func() time.Time // defaults to time.Now

	// PublishTimeout bounds how long a request waits on the event bus.
	// Defaults to DefaultPublishTimeout.
	PublishTimeout time.Duration
}

const DefaultPublishTimeout = 500 * time.Millisecond

type Service struct {
	store      store.StoreInterface
	tokens     *token.Service
	events     EventPublisher
	validate   *validator.Validate
	hashParams *argon2id.Params
	now        func() time.Time

	publishTimeout time.Duration
}

func New(st store.StoreInterface, tokens *token.Service, opts Options) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	s := &Service{
		store:      st,
		tokens:     tokens,
		events:     opts.Events,
		validate:   v,
		hashParams: opts.HashParams,
		now:        opts.Now,

		publishTimeout: opts.PublishTimeout,
	}
	if s.hashParams == nil {
		s.hashParams = argon2id.DefaultParams
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = DefaultPublishTimeout
	}
	return s
}

// timestamp returns the current time at the millisecond precision Cassandra stores.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// check validates a request struct and converts the first failure into a
// user-facing validation error.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("invalid input")
	}
	return apperr.Validation(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "username":
		return field + " may contain only letters, digits and underscores"
	default:
		return field + " is invalid"
	}
}

// publish emits an activity event. Failures are logged and counted but never fail the
// request. The write is detached from the request's cancellation and capped by
// publishTimeout, so a stalled broker costs at most that long.
func (s *Service) publish(ctx context.Context, ev models.Event) {
	if s.events == nil || ev.TargetUserID == "" || ev.TargetUserID == ev.ActorID {
		return
	}
	ev.Created = s.timestamp()

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		logg.Error("service/events", "Failed to publish "+ev.Kind+" event", err)
		metrics.RecordEventPublish(ev.Kind, false)
		return
	}
	metrics.RecordEventPublish(ev.Kind, true)
}
