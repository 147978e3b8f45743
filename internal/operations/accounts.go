package operations

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/auth"
	"github.com/eternalist/theprintfarm/internal/clients"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/notify"
)

const (
	recentWorkLimit = 6
	signupWindow    = 7 * 24 * time.Hour
	minPassword     = 6
)

type AuthResult struct {
	User    model.Account    `json:"user"`
	Session *clients.Session `json:"session"`
	Message string           `json:"message,omitempty"`
}

type RegisterInput struct {
	Email         string
	Password      string
	Name          string
	Role          model.Role
	Materials     []string
	PrinterVolume string
	Resolution    string
	HasEnclosure  bool
	Availability  *string
	HourlyRate    decimal.NullDecimal
	City          *string
	State         *string
}

// ProfileInput holds optional profile changes. Maker fields apply to makers,
// customer fields to customers; city and state apply to both.
type ProfileInput struct {
	Name   *string
	Avatar *string

	Materials     []string
	PrinterVolume *string
	Resolution    *string
	HasEnclosure  *bool
	Status        *model.MakerStatus
	Availability  *string
	HourlyRate    decimal.NullDecimal
	City          *string
	State         *string

	PreferredMaterials []string
	MaxBudget          decimal.NullDecimal
}

type MakerListInput struct {
	model.PageRequest
	Material string
	Status   model.MakerStatus
	City     string
	State    string
	SortBy   string
	SortDesc bool
}

type MakerDetail struct {
	model.Account
	CompletedPrintsCount int                  `json:"completedPrintsCount"`
	RecentWork           []model.PrintRequest `json:"recentWork"`
}

type AdminUserListInput struct {
	model.PageRequest
	Search   string
	Role     model.Role
	IsActive *bool
	SortBy   string
	SortDesc bool
}

type AdminUserInput struct {
	Name     *string
	Role     *model.Role
	IsActive *bool
}

func (s *Service) requireIdentity() error {
	if s.identity == nil {
		return apperr.Internal("identity provider not configured", nil)
	}
	return nil
}

func identityMessage(err error, fallback string) string {
	var apiErr *clients.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func validName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 2 && n <= 50
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return AuthResult{}, apperr.Validation("a valid email is required")
	}
	if len(in.Password) < minPassword {
		return AuthResult{}, apperr.Validation("password must be at least 6 characters")
	}
	if !validName(in.Name) {
		return AuthResult{}, apperr.Validation("name must be between 2 and 50 characters")
	}
	switch in.Role {
	case model.RoleCustomer:
	case model.RoleMaker:
		if in.Materials == nil || in.PrinterVolume == "" || in.Resolution == "" {
			return AuthResult{}, apperr.Validation("materials, printerVolume and resolution are required for makers")
		}
	case model.RoleAdmin:
		return AuthResult{}, apperr.Validation("role must be CUSTOMER or MAKER")
	default:
		return AuthResult{}, apperr.Validation("role must be CUSTOMER or MAKER")
	}
	if negative(in.HourlyRate) {
		return AuthResult{}, apperr.Validation("hourlyRate must not be negative")
	}
	if err := s.requireIdentity(); err != nil {
		return AuthResult{}, err
	}

	q := s.store.Queries()
	if _, err := q.GetAccountByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, apperr.Validation("User already exists")
	} else if !db.IsNotFound(err) {
		return AuthResult{}, apperr.Internal("check existing account", err)
	}

	session, err := s.identity.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) {
			return AuthResult{}, apperr.Validation(identityMessage(err, "registration failed"))
		}
		return AuthResult{}, apperr.Internal("identity sign up", err)
	}

	now := s.now()
	account := model.Account{
		ID:        s.newID(),
		Email:     in.Email,
		Name:      strings.TrimSpace(in.Name),
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	country := "US"
	err = s.store.WithTx(ctx, func(q Queries) error {
		if err := q.CreateAccount(ctx, account); err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Validation("User already exists")
			}
			return apperr.Internal("create account", err)
		}
		switch account.Role {
		case model.RoleMaker:
			materials := in.Materials
			if materials == nil {
				materials = []string{}
			}
			resolution := in.Resolution
			volume := in.PrinterVolume
			profile := model.MakerProfile{
				AccountID:     account.ID,
				Materials:     materials,
				PrinterVolume: &volume,
				Resolution:    &resolution,
				HasEnclosure:  in.HasEnclosure,
				Status:        model.MakerOffline,
				Availability:  in.Availability,
				HourlyRate:    in.HourlyRate,
				City:          in.City,
				State:         in.State,
				Country:       &country,
				Rating:        decimal.Zero,
			}
			if err := q.UpsertMakerProfile(ctx, profile); err != nil {
				return apperr.Internal("create maker profile", err)
			}
			account.MakerProfile = &profile
		case model.RoleCustomer, model.RoleAdmin:
			profile := model.CustomerProfile{
				AccountID:          account.ID,
				PreferredMaterials: []string{"PLA"},
				City:               in.City,
				State:              in.State,
				Country:            &country,
			}
			if err := q.UpsertCustomerProfile(ctx, profile); err != nil {
				return apperr.Internal("create customer profile", err)
			}
			account.CustomerProfile = &profile
		}
		return nil
	})
	if err != nil {
		return AuthResult{}, err
	}

	s.enqueue(notify.Notification{
		Kind:     notify.KindAccountWelcomed,
		To:       account.Email,
		DedupKey: string(notify.KindAccountWelcomed) + ":" + account.ID,
		Data:     notify.AccountWelcomed{Name: account.Name, IsMaker: account.Role == model.RoleMaker},
	})
	return AuthResult{
		User:    account,
		Session: session,
		Message: "Registration successful. Please check your email to verify your account.",
	}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if strings.TrimSpace(email) == "" || len(password) < minPassword {
		return AuthResult{}, apperr.Validation("email and password are required")
	}
	if err := s.requireIdentity(); err != nil {
		return AuthResult{}, err
	}
	session, err := s.identity.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.log.WithError(err).Debug("sign in rejected")
		return AuthResult{}, apperr.Unauthenticated("Invalid credentials")
	}

	q := s.store.Queries()
	account, err := q.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !db.IsNotFound(err) {
		return AuthResult{}, apperr.Internal("load account", err)
	}
	if err != nil || !account.IsActive {
		return AuthResult{}, apperr.Unauthenticated("User not found or inactive")
	}

	now := s.now()
	if err := q.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.log.WithError(err).WithField("account_id", account.ID).Warn("last login update failed")
	} else {
		account.LastLogin = &now
	}
	if err := s.attachProfile(ctx, q, &account); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: account, Session: session}, nil
}

func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if err := s.requireIdentity(); err != nil {
		return err
	}
	if err := s.identity.SignOut(ctx, accessToken); err != nil {
		return apperr.Validation(identityMessage(err, "logout failed"))
	}
	return nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*clients.Session, error) {
	if refreshToken == "" {
		return nil, apperr.Validation("Refresh token required")
	}
	if err := s.requireIdentity(); err != nil {
		return nil, err
	}
	session, err := s.identity.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, apperr.Unauthenticated(identityMessage(err, "Invalid refresh token"))
	}
	return session, nil
}

func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.Validation("Email is required")
	}
	if err := s.requireIdentity(); err != nil {
		return err
	}
	if err := s.identity.Recover(ctx, strings.TrimSpace(email), s.frontendURL+"/reset-password"); err != nil {
		return apperr.Validation(identityMessage(err, "password reset failed"))
	}
	return nil
}

// attachProfile loads the role profile. A missing profile is left nil.
func (s *Service) attachProfile(ctx context.Context, q Queries, account *model.Account) error {
	switch account.Role {
	case model.RoleMaker:
		profile, err := q.GetMakerProfile(ctx, account.ID)
		if err == nil {
			account.MakerProfile = &profile
		} else if !db.IsNotFound(err) {
			return apperr.Internal("load maker profile", err)
		}
	case model.RoleCustomer:
		profile, err := q.GetCustomerProfile(ctx, account.ID)
		if err == nil {
			account.CustomerProfile = &profile
		} else if !db.IsNotFound(err) {
			return apperr.Internal("load customer profile", err)
		}
	case model.RoleAdmin:
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, caller model.Account) (model.Account, error) {
	q := s.store.Queries()
	account, err := q.GetAccount(ctx, caller.ID)
	if err != nil {
		return model.Account{}, storeErr(err, "User")
	}
	if err := s.attachProfile(ctx, q, &account); err != nil {
		return model.Account{}, err
	}
	counts, err := q.GetAccountCounts(ctx, account.ID)
	if err != nil {
		return model.Account{}, apperr.Internal("count account activity", err)
	}
	account.Counts = &counts
	return account, nil
}

// UpdateProfile writes base fields and the role profile in one transaction.
func (s *Service) UpdateProfile(ctx context.Context, caller model.Account, in ProfileInput) (model.Account, error) {
	if in.Name != nil && !validName(*in.Name) {
		return model.Account{}, apperr.Validation("name must be between 2 and 50 characters")
	}
	if in.Status != nil {
		switch *in.Status {
		case model.MakerOnline, model.MakerOffline, model.MakerBusy, model.MakerAway:
		default:
			return model.Account{}, apperr.Validation("status must be one of ONLINE, OFFLINE, BUSY, AWAY")
		}
	}
	if negative(in.HourlyRate) || negative(in.MaxBudget) {
		return model.Account{}, apperr.Validation("amounts must not be negative")
	}

	var out model.Account
	err := s.store.WithTx(ctx, func(q Queries) error {
		account, err := q.GetAccount(ctx, caller.ID)
		if err != nil {
			return storeErr(err, "User")
		}
		if in.Name != nil || in.Avatar != nil {
			if in.Name != nil {
				account.Name = strings.TrimSpace(*in.Name)
			}
			if in.Avatar != nil {
				account.Avatar = in.Avatar
			}
			account.UpdatedAt = s.now()
			if err := q.UpdateAccount(ctx, account); err != nil {
				return storeErr(err, "User")
			}
		}

		switch account.Role {
		case model.RoleMaker:
			profile, err := q.GetMakerProfile(ctx, account.ID)
			if db.IsNotFound(err) {
				profile, err = model.DefaultMakerProfile(account.ID), nil
			}
			if err != nil {
				return apperr.Internal("load maker profile", err)
			}
			applyMakerProfile(&profile, in)
			if err := q.UpsertMakerProfile(ctx, profile); err != nil {
				return apperr.Internal("update maker profile", err)
			}
		case model.RoleCustomer:
			profile, err := q.GetCustomerProfile(ctx, account.ID)
			if db.IsNotFound(err) {
				profile, err = model.DefaultCustomerProfile(account.ID), nil
			}
			if err != nil {
				return apperr.Internal("load customer profile", err)
			}
			applyCustomerProfile(&profile, in)
			if err := q.UpsertCustomerProfile(ctx, profile); err != nil {
				return apperr.Internal("update customer profile", err)
			}
		case model.RoleAdmin:
		}

		if err := s.attachProfile(ctx, q, &account); err != nil {
			return err
		}
		out = account
		return nil
	})
	return out, err
}

func applyMakerProfile(p *model.MakerProfile, in ProfileInput) {
	if in.Materials != nil {
		p.Materials = in.Materials
	}
	if in.PrinterVolume != nil {
		p.PrinterVolume = in.PrinterVolume
	}
	if in.Resolution != nil {
		p.Resolution = in.Resolution
	}
	if in.HasEnclosure != nil {
		p.HasEnclosure = *in.HasEnclosure
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Availability != nil {
		p.Availability = in.Availability
	}
	if in.HourlyRate.Valid {
		p.HourlyRate = in.HourlyRate
	}
	if in.City != nil {
		p.City = in.City
	}
	if in.State != nil {
		p.State = in.State
	}
}

func applyCustomerProfile(p *model.CustomerProfile, in ProfileInput) {
	if in.PreferredMaterials != nil {
		p.PreferredMaterials = in.PreferredMaterials
	}
	if in.MaxBudget.Valid {
		p.MaxBudget = in.MaxBudget
	}
	if in.City != nil {
		p.City = in.City
	}
	if in.State != nil {
		p.State = in.State
	}
}

func (s *Service) ListMakers(ctx context.Context, in MakerListInput) (model.Page[model.Account], error) {
	page := normalizePage(in.PageRequest, 12, 50)
	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = "rating"
	}
	items, total, err := s.store.Queries().ListMakers(ctx, db.MakerFilter{
		Material: in.Material,
		Status:   in.Status,
		City:     strings.TrimSpace(in.City),
		State:    strings.TrimSpace(in.State),
		SortBy:   sortBy,
		SortDesc: in.SortDesc,
		Limit:    page.Limit,
		Offset:   page.Offset(),
	})
	if err != nil {
		return model.Page[model.Account]{}, apperr.Internal("list makers", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}

// GetMaker returns an active maker with the six most recently completed
// prints.
func (s *Service) GetMaker(ctx context.Context, id string) (MakerDetail, error) {
	q := s.store.Queries()
	maker, _, err := s.activeMaker(ctx, q, id)
	if err != nil {
		return MakerDetail{}, err
	}
	recent, completed, err := q.ListPrintRequests(ctx, db.PrintRequestFilter{
		MakerID:  maker.ID,
		Statuses: []model.RequestStatus{model.StatusCompleted},
		Order:    db.OrderRecentlyCompleted,
		Limit:    recentWorkLimit,
	})
	if err != nil {
		return MakerDetail{}, apperr.Internal("list recent work", err)
	}
	if recent == nil {
		recent = []model.PrintRequest{}
	}
	return MakerDetail{Account: maker, CompletedPrintsCount: completed, RecentWork: recent}, nil
}

func (s *Service) AdminListUsers(ctx context.Context, caller model.Account, in AdminUserListInput) (model.Page[model.Account], error) {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return model.Page[model.Account]{}, err
	}
	page := normalizePage(in.PageRequest, 20, 100)
	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	items, total, err := s.store.Queries().ListAccounts(ctx, db.AccountFilter{
		Search:   strings.TrimSpace(in.Search),
		Role:     in.Role,
		IsActive: in.IsActive,
		SortBy:   sortBy,
		SortDesc: in.SortDesc,
		Limit:    page.Limit,
		Offset:   page.Offset(),
	})
	if err != nil {
		return model.Page[model.Account]{}, apperr.Internal("list users", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}

// AdminUpdateUser changes name, role or active flag. A role change
// provisions the matching profile and retires the other in the same
// transaction.
func (s *Service) AdminUpdateUser(ctx context.Context, caller model.Account, id string, in AdminUserInput) (model.Account, error) {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return model.Account{}, err
	}
	if in.Name != nil && !validName(*in.Name) {
		return model.Account{}, apperr.Validation("name must be between 2 and 50 characters")
	}
	if in.Role != nil && !in.Role.Valid() {
		return model.Account{}, apperr.Validation("role must be one of CUSTOMER, MAKER, ADMIN")
	}
	if id == caller.ID && in.IsActive != nil && !*in.IsActive {
		return model.Account{}, apperr.Validation("Cannot deactivate your own account")
	}
	if id == caller.ID && in.Role != nil && *in.Role != caller.Role {
		return model.Account{}, apperr.Validation("Cannot change your own role")
	}
	if !validID(id) {
		return model.Account{}, apperr.NotFound("User")
	}

	var out model.Account
	err := s.store.WithTx(ctx, func(q Queries) error {
		account, err := q.GetAccount(ctx, id)
		if err != nil {
			return storeErr(err, "User")
		}
		roleChanged := in.Role != nil && *in.Role != account.Role
		if roleChanged {
			active, err := q.CountActiveRequests(ctx, id)
			if err != nil {
				return apperr.Internal("count active requests", err)
			}
			if active > 0 {
				return apperr.Validation("Cannot change role of user with active print requests")
			}
			account.Role = *in.Role
		}
		if in.Name != nil {
			account.Name = strings.TrimSpace(*in.Name)
		}
		if in.IsActive != nil {
			account.IsActive = *in.IsActive
		}
		account.UpdatedAt = s.now()
		if err := q.UpdateAccount(ctx, account); err != nil {
			return storeErr(err, "User")
		}
		if roleChanged {
			if err := provisionProfile(ctx, q, account); err != nil {
				return err
			}
		}
		if err := s.attachProfile(ctx, q, &account); err != nil {
			return err
		}
		out = account
		return nil
	})
	return out, err
}

func provisionProfile(ctx context.Context, q Queries, account model.Account) error {
	switch account.Role {
	case model.RoleMaker:
		if _, err := q.GetMakerProfile(ctx, account.ID); db.IsNotFound(err) {
			if err := q.UpsertMakerProfile(ctx, model.DefaultMakerProfile(account.ID)); err != nil {
				return apperr.Internal("create maker profile", err)
			}
		} else if err != nil {
			return apperr.Internal("load maker profile", err)
		}
		if err := q.DeleteCustomerProfile(ctx, account.ID); err != nil {
			return apperr.Internal("retire customer profile", err)
		}
	case model.RoleCustomer:
		if _, err := q.GetCustomerProfile(ctx, account.ID); db.IsNotFound(err) {
			if err := q.UpsertCustomerProfile(ctx, model.DefaultCustomerProfile(account.ID)); err != nil {
				return apperr.Internal("create customer profile", err)
			}
		} else if err != nil {
			return apperr.Internal("load customer profile", err)
		}
		if err := q.DeleteMakerProfile(ctx, account.ID); err != nil {
			return apperr.Internal("retire maker profile", err)
		}
	case model.RoleAdmin:
		if err := q.DeleteMakerProfile(ctx, account.ID); err != nil {
			return apperr.Internal("retire maker profile", err)
		}
		if err := q.DeleteCustomerProfile(ctx, account.ID); err != nil {
			return apperr.Internal("retire customer profile", err)
		}
	}
	return nil
}

func (s *Service) AdminDeleteUser(ctx context.Context, caller model.Account, id string) error {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return err
	}
	if id == caller.ID {
		return apperr.Validation("Cannot delete your own account")
	}
	if !validID(id) {
		return apperr.NotFound("User")
	}
	q := s.store.Queries()
	active, err := q.CountActiveRequests(ctx, id)
	if err != nil {
		return apperr.Internal("count active requests", err)
	}
	if active > 0 {
		return apperr.Validation("Cannot delete user with active print requests")
	}
	return storeErr(q.DeleteAccount(ctx, id), "User")
}

func (s *Service) AdminUserStats(ctx context.Context, caller model.Account) (model.UserStats, error) {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return model.UserStats{}, err
	}
	stats, err := s.store.Queries().GetUserStats(ctx, s.now().Add(-signupWindow))
	if err != nil {
		return model.UserStats{}, apperr.Internal("user stats", err)
	}
	return stats, nil
}
