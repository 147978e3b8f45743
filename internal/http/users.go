package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/auth"
	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/operations"
)

type registerRequest struct {
	Email         string              `json:"email" validate:"required,email"`
	Password      string              `json:"password" validate:"required,min=6"`
	Name          string              `json:"name" validate:"required,min=2,max=50"`
	Role          string              `json:"role" validate:"required,oneof=CUSTOMER MAKER"`
	Materials     []string            `json:"materials" validate:"required_if=Role MAKER"`
	PrinterVolume string              `json:"printerVolume" validate:"required_if=Role MAKER"`
	Resolution    string              `json:"resolution" validate:"required_if=Role MAKER"`
	HasEnclosure  bool                `json:"hasEnclosure"`
	Availability  *string             `json:"availability"`
	HourlyRate    decimal.NullDecimal `json:"hourlyRate"`
	City          *string             `json:"city"`
	State         *string             `json:"state"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type profileRequest struct {
	Name               *string             `json:"name" validate:"omitempty,min=2,max=50"`
	Avatar             *string             `json:"avatar" validate:"omitempty,url"`
	Materials          []string            `json:"materials"`
	PrinterVolume      *string             `json:"printerVolume"`
	Resolution         *string             `json:"resolution"`
	HasEnclosure       *bool               `json:"hasEnclosure"`
	Status             *string             `json:"status" validate:"omitempty,oneof=ONLINE OFFLINE BUSY AWAY"`
	Availability       *string             `json:"availability"`
	HourlyRate         decimal.NullDecimal `json:"hourlyRate"`
	City               *string             `json:"city"`
	State              *string             `json:"state"`
	PreferredMaterials []string            `json:"preferredMaterials"`
	MaxBudget          decimal.NullDecimal `json:"maxBudget"`
}

type adminUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Role     *string `json:"role" validate:"omitempty,oneof=CUSTOMER MAKER ADMIN"`
	IsActive *bool   `json:"isActive"`
}

type makerQuery struct {
	Status    string `json:"status" validate:"omitempty,oneof=ONLINE OFFLINE BUSY AWAY"`
	SortBy    string `json:"sortBy" validate:"omitempty,oneof=rating completedPrints hourlyRate createdAt"`
	SortOrder string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type userQuery struct {
	Role      string `json:"role" validate:"omitempty,oneof=CUSTOMER MAKER ADMIN"`
	SortBy    string `json:"sortBy" validate:"omitempty,oneof=createdAt name email lastLogin role"`
	SortOrder string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// Auth

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		s.writeAppError(w, r, apperr.Validation("role must be one of CUSTOMER, MAKER"))
		return
	}
	res, err := s.ops.Register(r.Context(), operations.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		Name:          req.Name,
		Role:          role,
		Materials:     req.Materials,
		PrinterVolume: req.PrinterVolume,
		Resolution:    req.Resolution,
		HasEnclosure:  req.HasEnclosure,
		Availability:  req.Availability,
		HourlyRate:    req.HourlyRate,
		City:          req.City,
		State:         req.State,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	res, err := s.ops.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	session, err := s.ops.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.ops.ResetPassword(r.Context(), req.Email); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, "Password reset email sent")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.Logout(r.Context(), auth.TokenFromContext(r.Context())); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, "Logged out successfully")
}

// Users

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	account, err := s.ops.Profile(r.Context(), caller(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	in := operations.ProfileInput{
		Name:               req.Name,
		Avatar:             req.Avatar,
		Materials:          req.Materials,
		PrinterVolume:      req.PrinterVolume,
		Resolution:         req.Resolution,
		HasEnclosure:       req.HasEnclosure,
		Availability:       req.Availability,
		HourlyRate:         req.HourlyRate,
		City:               req.City,
		State:              req.State,
		PreferredMaterials: req.PreferredMaterials,
		MaxBudget:          req.MaxBudget,
	}
	if req.Status != nil {
		status := model.MakerStatus(*req.Status)
		in.Status = &status
	}
	account, err := s.ops.UpdateProfile(r.Context(), caller(r), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleListMakers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := makerQuery{Status: q.Get("status"), SortBy: q.Get("sortBy"), SortOrder: q.Get("sortOrder")}
	if err := validateStruct(query); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	page, err := s.ops.ListMakers(r.Context(), operations.MakerListInput{
		PageRequest: parsePage(r),
		Material:    q.Get("material"),
		Status:      model.MakerStatus(query.Status),
		City:        q.Get("city"),
		State:       q.Get("state"),
		SortBy:      query.SortBy,
		SortDesc:    sortDesc(r),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetMaker(w http.ResponseWriter, r *http.Request) {
	maker, err := s.ops.GetMaker(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, maker)
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := userQuery{Role: q.Get("role"), SortBy: q.Get("sortBy"), SortOrder: q.Get("sortOrder")}
	if err := validateStruct(query); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	in := operations.AdminUserListInput{
		PageRequest: parsePage(r),
		Search:      q.Get("search"),
		IsActive:    parseBool(q.Get("isActive")),
		SortBy:      query.SortBy,
		SortDesc:    sortDesc(r),
	}
	if query.Role != "" {
		in.Role, _ = model.ParseRole(query.Role)
	}
	page, err := s.ops.AdminListUsers(r.Context(), caller(r), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleAdminUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ops.AdminUserStats(r.Context(), caller(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req adminUserRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	in := operations.AdminUserInput{Name: req.Name, IsActive: req.IsActive}
	if req.Role != nil {
		role, err := model.ParseRole(*req.Role)
		if err != nil {
			s.writeAppError(w, r, apperr.Validation("role must be one of CUSTOMER, MAKER, ADMIN"))
			return
		}
		in.Role = &role
	}
	account, err := s.ops.AdminUpdateUser(r.Context(), caller(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.AdminDeleteUser(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, "User deleted successfully")
}
