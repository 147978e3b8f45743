package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/operations"
)

type createPrintRequestRequest struct {
	ModelID  string  `json:"modelId" validate:"required"`
	MakerID  string  `json:"makerId" validate:"required"`
	Quantity int     `json:"quantity" validate:"omitempty,min=1,max=10"`
	Material string  `json:"material" validate:"required"`
	Color    *string `json:"color"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
	Urgency  string  `json:"urgency" validate:"omitempty,oneof=Low Normal High"`
}

// statusRequest accepts notes for client compatibility; transitions never
// rewrite them.
type statusRequest struct {
	Status      string              `json:"status" validate:"required"`
	QuotedPrice decimal.NullDecimal `json:"quotedPrice"`
	FinalPrice  decimal.NullDecimal `json:"finalPrice"`
	Notes       *string             `json:"notes" validate:"omitempty,max=500"`
}

type printRequestQuery struct {
	Status  string `json:"status" validate:"omitempty,oneof=REQUESTED ACCEPTED PRINTING COMPLETED DELIVERED CANCELLED REJECTED"`
	Urgency string `json:"urgency" validate:"omitempty,oneof=Low Normal High"`
}

func (s *Server) handleCreatePrintRequest(w http.ResponseWriter, r *http.Request) {
	var req createPrintRequestRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	pr, err := s.ops.CreatePrintRequest(r.Context(), caller(r), operations.CreateRequestInput{
		ModelID:  req.ModelID,
		MakerID:  req.MakerID,
		Quantity: req.Quantity,
		Material: req.Material,
		Color:    req.Color,
		Notes:    req.Notes,
		Urgency:  model.Urgency(req.Urgency),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pr)
}

func (s *Server) handleListPrintRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := printRequestQuery{Status: q.Get("status"), Urgency: q.Get("urgency")}
	if err := validateStruct(query); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	page, err := s.ops.ListPrintRequests(r.Context(), caller(r), operations.RequestListInput{
		PageRequest: parsePage(r),
		Status:      model.RequestStatus(query.Status),
		Urgency:     model.Urgency(query.Urgency),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleMakerQueue(w http.ResponseWriter, r *http.Request) {
	query := printRequestQuery{Status: r.URL.Query().Get("status")}
	if err := validateStruct(query); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	items, err := s.ops.MakerQueue(r.Context(), caller(r), model.RequestStatus(query.Status))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handlePrintRequestStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ops.PrintRequestStats(r.Context(), caller(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetPrintRequest(w http.ResponseWriter, r *http.Request) {
	pr, err := s.ops.GetPrintRequest(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (s *Server) handleTransitionPrintRequest(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	pr, err := s.ops.TransitionPrintRequest(r.Context(), caller(r), chi.URLParam(r, "id"), operations.TransitionInput{
		Status:      model.RequestStatus(req.Status),
		QuotedPrice: req.QuotedPrice,
		FinalPrice:  req.FinalPrice,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (s *Server) handleDeletePrintRequest(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.DeletePrintRequest(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, "Print request deleted successfully")
}
