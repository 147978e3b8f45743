package operations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/clients"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/notify"
)

type Notifier interface {
	Enqueue(n notify.Notification) bool
}

// Identity is the slice of the Supabase client used by the account flows.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (*clients.Session, error)
	SignIn(ctx context.Context, email, password string) (*clients.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*clients.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email, redirectTo string) error
}

type Deps struct {
	Store    Store
	Notifier Notifier
	Identity Identity
	// Redis backs the announcement cache; nil disables caching.
	Redis       *redis.Client
	FrontendURL string
	Log         logrus.FieldLogger
}

type Service struct {
	store       Store
	notifier    Notifier
	identity    Identity
	redis       *redis.Client
	frontendURL string
	log         logrus.FieldLogger
	now         func() time.Time
	newID       func() string
}

func New(deps Deps) *Service {
	return &Service{
		store:       deps.Store,
		notifier:    deps.Notifier,
		identity:    deps.Identity,
		redis:       deps.Redis,
		frontendURL: deps.FrontendURL,
		log:         deps.Log,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

func (s *Service) enqueue(n notify.Notification) {
	if s.notifier == nil {
		return
	}
	if !s.notifier.Enqueue(n) {
		s.log.WithFields(logrus.Fields{"kind": n.Kind, "dedup_key": n.DedupKey}).Warn("notification not queued")
	}
}

// storeErr maps persistence errors: missing rows become NotFound(what),
// anything else Internal. Domain errors pass through.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if db.IsNotFound(err) {
		return apperr.NotFound(what)
	}
	return apperr.Internal(what+" query failed", err)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// normalizePage clamps paging input to [1, maxLimit] with def as the default
// limit.
func normalizePage(p model.PageRequest, def, maxLimit int) model.PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
