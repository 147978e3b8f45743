package operations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eternalist/theprintfarm/internal/clients"
	"github.com/eternalist/theprintfarm/internal/logging"
	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/notify"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Enqueue(note notify.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return true
}

func (n *recordingNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.sent...)
}

func (n *recordingNotifier) kinds() []notify.Kind {
	var out []notify.Kind
	for _, note := range n.all() {
		out = append(out, note.Kind)
	}
	return out
}

type stubIdentity struct {
	signUpErr  error
	signInErr  error
	refreshErr error
	recovered  []string
}

func (s *stubIdentity) session(email string) *clients.Session {
	return &clients.Session{
		AccessToken:  "access-" + email,
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "refresh-" + email,
	}
}

func (s *stubIdentity) SignUp(ctx context.Context, email, password string) (*clients.Session, error) {
	if s.signUpErr != nil {
		return nil, s.signUpErr
	}
	return s.session(email), nil
}

func (s *stubIdentity) SignIn(ctx context.Context, email, password string) (*clients.Session, error) {
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return s.session(email), nil
}

func (s *stubIdentity) Refresh(ctx context.Context, refreshToken string) (*clients.Session, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.session("refreshed"), nil
}

func (s *stubIdentity) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

func (s *stubIdentity) Recover(ctx context.Context, email, redirectTo string) error {
	s.recovered = append(s.recovered, email+" "+redirectTo)
	return nil
}

type harness struct {
	svc      *Service
	store    *memStore
	notifier *recordingNotifier
	identity *stubIdentity
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    newMemStore(),
		notifier: &recordingNotifier{},
		identity: &stubIdentity{},
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.svc = New(Deps{
		Store:       h.store,
		Notifier:    h.notifier,
		Identity:    h.identity,
		FrontendURL: "https://theprintfarm.test",
		Log:         logging.Discard(),
	})
	// Every call advances the clock so orderings are strict.
	var mu sync.Mutex
	h.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		h.clock = h.clock.Add(time.Second)
		return h.clock
	}
	return h
}

func (h *harness) addAccount(name string, role model.Role) model.Account {
	now := h.svc.now()
	account := model.Account{
		ID:        uuid.NewString(),
		Email:     name + "@example.com",
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.data.accounts[account.ID] = account
	switch role {
	case model.RoleMaker:
		h.store.data.makers[account.ID] = model.MakerProfile{
			AccountID:  account.ID,
			Materials:  []string{"PLA", "PETG"},
			Status:     model.MakerOnline,
			HourlyRate: decimal.NewNullDecimal(decimal.NewFromInt(25)),
			Rating:     decimal.Zero,
		}
	case model.RoleCustomer:
		h.store.data.customers[account.ID] = model.DefaultCustomerProfile(account.ID)
	case model.RoleAdmin:
	}
	return account
}

func (h *harness) addModel(title string, tags ...string) model.ModelListing {
	source := "https://www.thingiverse.com/thing:" + title
	m := model.ModelListing{
		ID:        uuid.NewString(),
		Title:     title,
		SourceURL: &source,
		Tags:      tags,
		CreatedAt: h.svc.now(),
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.data.models[m.ID] = m
	return m
}

func (h *harness) setInactive(id string) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	a := h.store.data.accounts[id]
	a.IsActive = false
	h.store.data.accounts[id] = a
}

func (h *harness) completedPrints(makerID string) int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.data.makers[makerID].CompletedPrints
}

func (h *harness) countRequests(makerID string, status model.RequestStatus) int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	n := 0
	for _, pr := range h.store.data.requests {
		if pr.MakerID == makerID && pr.Status == status {
			n++
		}
	}
	return n
}

// market is the common cast: one model, a PLA/PETG maker, a customer, an
// admin and an unrelated maker.
type market struct {
	*harness
	model    model.ModelListing
	maker    model.Account
	other    model.Account
	customer model.Account
	admin    model.Account
}

func newMarket(t *testing.T) *market {
	h := newHarness(t)
	return &market{
		harness:  h,
		model:    h.addModel("Articulated Dragon", "dragon", "toy"),
		maker:    h.addAccount("alice", model.RoleMaker),
		other:    h.addAccount("bob", model.RoleMaker),
		customer: h.addAccount("carol", model.RoleCustomer),
		admin:    h.addAccount("root", model.RoleAdmin),
	}
}

func (m *market) request(t *testing.T) model.PrintRequest {
	t.Helper()
	pr, err := m.svc.CreatePrintRequest(context.Background(), m.customer, CreateRequestInput{
		ModelID:  m.model.ID,
		MakerID:  m.maker.ID,
		Material: "PLA",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return pr
}

// advance walks pr through the given statuses as the caller allowed to do
// each step.
func (m *market) advance(t *testing.T, id string, statuses ...model.RequestStatus) model.PrintRequest {
	t.Helper()
	var pr model.PrintRequest
	for _, status := range statuses {
		caller := m.maker
		if status == model.StatusDelivered {
			caller = m.admin
		}
		var err error
		pr, err = m.svc.TransitionPrintRequest(context.Background(), caller, id, TransitionInput{Status: status})
		if err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	return pr
}
