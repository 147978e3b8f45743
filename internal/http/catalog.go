package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/operations"
)

type modelQuery struct {
	Complexity string `json:"complexity" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	SortBy     string `json:"sortBy" validate:"omitempty,oneof=createdAt title downloadCount likeCount"`
	SortOrder  string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := modelQuery{Complexity: q.Get("complexity"), SortBy: q.Get("sortBy"), SortOrder: q.Get("sortOrder")}
	if err := validateStruct(query); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	page, err := s.ops.ListModels(r.Context(), caller(r), operations.ModelListInput{
		PageRequest: parsePage(r),
		Search:      q.Get("search"),
		Tags:        splitTags(q.Get("tags")),
		Complexity:  model.Complexity(query.Complexity),
		SortBy:      query.SortBy,
		SortDesc:    sortDesc(r),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	page, err := s.ops.ListFavorites(r.Context(), caller(r), parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTrendingModels(w http.ResponseWriter, r *http.Request) {
	items, err := s.ops.TrendingModels(r.Context(), caller(r), parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRecentModels(w http.ResponseWriter, r *http.Request) {
	items, err := s.ops.RecentModels(r.Context(), caller(r), parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.ops.ListTags(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	listing, err := s.ops.GetModel(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	favorited, err := s.ops.ToggleFavorite(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	message := "Removed from favorites"
	if favorited {
		message = "Added to favorites"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"isFavorited": favorited,
		"message":     message,
	})
}
