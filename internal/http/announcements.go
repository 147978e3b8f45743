package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/operations"
)

type announcementRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=3,max=100"`
	Content  *string `json:"content" validate:"omitempty,min=10,max=2000"`
	Type     *string `json:"type" validate:"omitempty,oneof=INFO WARNING SUCCESS ERROR"`
	Priority *int    `json:"priority" validate:"omitempty,min=0,max=10"`
	IsActive *bool   `json:"isActive"`
}

func (req announcementRequest) input() operations.AnnouncementInput {
	in := operations.AnnouncementInput{
		Title:    req.Title,
		Content:  req.Content,
		Priority: req.Priority,
		IsActive: req.IsActive,
	}
	if req.Type != nil {
		kind := model.AnnouncementType(*req.Type)
		in.Type = &kind
	}
	return in
}

type announcementQuery struct {
	Type string `json:"type" validate:"omitempty,oneof=INFO WARNING SUCCESS ERROR"`
}

func (s *Server) handleActiveAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := s.ops.ActiveAnnouncements(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := s.ops.GetAnnouncement(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAdminListAnnouncements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := announcementQuery{Type: q.Get("type")}
	if err := validateStruct(query); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	page, err := s.ops.AdminListAnnouncements(r.Context(), caller(r), operations.AdminAnnouncementListInput{
		PageRequest: parsePage(r),
		IsActive:    parseBool(q.Get("isActive")),
		Type:        model.AnnouncementType(query.Type),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	a, err := s.ops.CreateAnnouncement(r.Context(), caller(r), req.input())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	a, err := s.ops.UpdateAnnouncement(r.Context(), caller(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleToggleAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := s.ops.ToggleAnnouncement(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.DeleteAnnouncement(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, "Announcement deleted successfully")
}
