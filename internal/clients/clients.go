package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eternalist/theprintfarm/internal/config"
)

// Clients bundles the external collaborators. Identity and Redis are nil
// when not configured; Mail is never nil.
type Clients struct {
	Identity *Supabase
	Mail     *Mailer
	Redis    *redis.Client
}

func New(ctx context.Context, cfg config.Config) (*Clients, error) {
	c := &Clients{
		Mail: NewMailer(MailerConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
		}),
	}

	if cfg.IdentityConfigured() {
		identity, err := NewSupabase(SupabaseConfig{
			URL:        cfg.SupabaseURL,
			APIKey:     cfg.SupabaseAnonKey,
			HTTPClient: &http.Client{Timeout: cfg.IdentityTimeout},
		})
		if err != nil {
			return nil, err
		}
		c.Identity = identity
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		c.Redis = redisClient
	}
	return c, nil
}

func (c *Clients) Close() error {
	if c == nil || c.Redis == nil {
		return nil
	}
	return c.Redis.Close()
}
