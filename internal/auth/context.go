package auth

import (
	"context"

	"github.com/eternalist/theprintfarm/internal/model"
)

type accountKey struct{}

type tokenKey struct{}

func WithAccount(ctx context.Context, account model.Account, token string) context.Context {
	ctx = context.WithValue(ctx, accountKey{}, account)
	return context.WithValue(ctx, tokenKey{}, token)
}

func AccountFromContext(ctx context.Context) (model.Account, bool) {
	account, ok := ctx.Value(accountKey{}).(model.Account)
	return account, ok
}

// TokenFromContext returns the bearer credential the account was resolved
// from.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
