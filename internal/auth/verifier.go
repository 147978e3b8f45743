package auth

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/clients"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
)

type AccountLookup interface {
	GetAccountByEmail(ctx context.Context, email string) (model.Account, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type RemoteIdentity interface {
	GetUser(ctx context.Context, accessToken string) (*clients.User, error)
}

// Verifier resolves a bearer credential to an active local account. With a
// JWT secret the token is verified locally; otherwise the identity provider
// is asked.
type Verifier struct {
	secret   string
	remote   RemoteIdentity
	accounts AccountLookup
	timeout  time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewVerifier(secret string, remote RemoteIdentity, accounts AccountLookup, timeout time.Duration, log logrus.FieldLogger) *Verifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Verifier{
		secret:   secret,
		remote:   remote,
		accounts: accounts,
		timeout:  timeout,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (v *Verifier) Verify(ctx context.Context, token string) (model.Account, error) {
	if token == "" {
		return model.Account{}, apperr.Unauthenticated("Access token required")
	}
	email, err := v.resolveEmail(ctx, token)
	if err != nil {
		return model.Account{}, err
	}

	account, err := v.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return model.Account{}, apperr.Unauthenticated("User not found")
		}
		return model.Account{}, apperr.Internal("load account", err)
	}
	if !account.IsActive {
		return model.Account{}, apperr.Unauthenticated("Account is deactivated")
	}

	now := v.now()
	if err := v.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		v.log.WithError(err).WithField("account_id", account.ID).Warn("last login update failed")
	} else {
		account.LastLogin = &now
	}
	return account, nil
}

func (v *Verifier) resolveEmail(ctx context.Context, token string) (string, error) {
	if v.secret != "" {
		claims, err := ParseToken(v.secret, token)
		if err != nil {
			return "", apperr.Unauthenticated("Invalid or expired token")
		}
		return claims.Email, nil
	}
	if v.remote == nil {
		return "", apperr.Unauthenticated("Token verification unavailable")
	}

	remoteCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	user, err := v.remote.GetUser(remoteCtx, token)
	if err != nil || user == nil || user.Email == "" {
		if err != nil {
			v.log.WithError(err).Debug("identity provider rejected token")
		}
		return "", apperr.Unauthenticated("Invalid or expired token")
	}
	return user.Email, nil
}
