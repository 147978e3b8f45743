package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Supabase talks to the Supabase Auth (GoTrue) REST API.
type Supabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type SupabaseConfig struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supabase{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	CreatedAt    string         `json:"created_at"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// APIError is a non-2xx answer from Supabase.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.StatusCode)
}

func (s *Supabase) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := s.post(ctx, "/auth/v1/signup", "", map[string]string{"email": email, "password": password}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Supabase) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := s.post(ctx, "/auth/v1/token?grant_type=password", "", map[string]string{"email": email, "password": password}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Supabase) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var session Session
	err := s.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", map[string]string{"refresh_token": refreshToken}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Supabase) SignOut(ctx context.Context, accessToken string) error {
	return s.post(ctx, "/auth/v1/logout", accessToken, nil, nil)
}

// Recover sends the password reset email. redirectTo is where the link in
// the email lands.
func (s *Supabase) Recover(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return s.post(ctx, path, "", map[string]string{"email": email}, nil)
}

func (s *Supabase) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req, accessToken)

	var user User
	if err := s.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Supabase) post(ctx context.Context, path, accessToken string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req, accessToken)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, out)
}

func (s *Supabase) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", s.apiKey)
	if accessToken == "" {
		accessToken = s.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
}

func (s *Supabase) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func errorMessage(body []byte, status int) string {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, candidate := range []string{payload.Msg, payload.Message, payload.ErrorDescription, payload.Error} {
			if candidate != "" {
				return candidate
			}
		}
	}
	return http.StatusText(status)
}
