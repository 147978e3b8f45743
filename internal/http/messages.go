package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eternalist/theprintfarm/internal/operations"
)

// receiverId is checked by the operation so an unknown partner reads as a
// missing user rather than a malformed field.
type sendMessageRequest struct {
	ReceiverID string  `json:"receiverId" validate:"required"`
	Content    string  `json:"content"`
	ModelURL   *string `json:"modelUrl" validate:"omitempty,url"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := bind(w, r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	msg, err := s.ops.SendMessage(r.Context(), caller(r), operations.SendMessageInput{
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		ModelURL:   req.ModelURL,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	unread := parseBool(r.URL.Query().Get("unreadOnly"))
	page, err := s.ops.ListMessages(r.Context(), caller(r), operations.MessageListInput{
		PageRequest: parsePage(r),
		UnreadOnly:  unread != nil && *unread,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.ops.ListConversations(r.Context(), caller(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.ops.UnreadCount(r.Context(), caller(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

func (s *Server) handleAdminListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.ops.AdminListMessages(r.Context(), caller(r), operations.AdminMessageListInput{
		PageRequest: parsePage(r),
		UserID:      q.Get("userId"),
		Search:      q.Get("search"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.ops.GetThread(r.Context(), caller(r), chi.URLParam(r, "partnerId"), parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleMarkThreadRead(w http.ResponseWriter, r *http.Request) {
	count, err := s.ops.MarkThreadRead(r.Context(), caller(r), chi.URLParam(r, "partnerId"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Messages marked as read",
		"updatedCount": count,
	})
}

func (s *Server) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.MarkMessageRead(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, "Message marked as read")
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.DeleteMessage(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, "Message deleted successfully")
}
