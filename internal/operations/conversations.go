package operations

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/auth"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
)

const (
	maxMessageLength = 1000
	threadPageSize   = 20
)

type SendMessageInput struct {
	ReceiverID string
	Content    string
	ModelURL   *string
}

type MessageListInput struct {
	model.PageRequest
	UnreadOnly bool
}

type AdminMessageListInput struct {
	model.PageRequest
	UserID string
	Search string
}

func (s *Service) SendMessage(ctx context.Context, sender model.Account, in SendMessageInput) (model.Message, error) {
	length := utf8.RuneCountInString(in.Content)
	if length < 1 || length > maxMessageLength {
		return model.Message{}, apperr.Validation("content must be between 1 and 1000 characters")
	}
	if in.ReceiverID == sender.ID {
		return model.Message{}, apperr.SelfMessage()
	}
	if !validID(in.ReceiverID) {
		return model.Message{}, apperr.NotFound("Receiver")
	}

	q := s.store.Queries()
	receiver, err := q.GetAccount(ctx, in.ReceiverID)
	if err != nil {
		return model.Message{}, storeErr(err, "Receiver")
	}
	if !receiver.IsActive {
		return model.Message{}, apperr.NotFound("Receiver")
	}

	senderSummary := sender.Summary()
	receiverSummary := receiver.Summary()
	m := model.Message{
		ID:         s.newID(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    in.Content,
		ModelURL:   in.ModelURL,
		CreatedAt:  s.now(),
		Sender:     &senderSummary,
		Receiver:   &receiverSummary,
	}
	if err := q.CreateMessage(ctx, m); err != nil {
		return model.Message{}, apperr.Internal("create message", err)
	}
	return m, nil
}

// ListConversations returns one entry per counterpart, most recent first and
// ties broken by counterpart id.
func (s *Service) ListConversations(ctx context.Context, account model.Account) ([]model.Conversation, error) {
	q := s.store.Queries()
	heads, err := q.ListConversationHeads(ctx, account.ID)
	if err != nil {
		return nil, apperr.Internal("list conversations", err)
	}
	if len(heads) == 0 {
		return []model.Conversation{}, nil
	}

	ids := make([]string, len(heads))
	for i, head := range heads {
		ids[i] = head.PartnerID
	}
	summaries, err := q.GetAccountSummaries(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load conversation partners", err)
	}
	partners := make(map[string]model.AccountSummary, len(summaries))
	for _, summary := range summaries {
		partners[summary.ID] = summary
	}

	out := make([]model.Conversation, 0, len(heads))
	for _, head := range heads {
		partner, ok := partners[head.PartnerID]
		if !ok {
			continue
		}
		latest, err := q.GetLatestMessageBetween(ctx, account.ID, head.PartnerID)
		if err != nil {
			if db.IsNotFound(err) {
				continue
			}
			return nil, apperr.Internal("load latest message", err)
		}
		out = append(out, model.Conversation{
			PartnerID:     head.PartnerID,
			Partner:       partner,
			LastMessageAt: head.LastMessageAt,
			UnreadCount:   head.UnreadCount,
			LatestMessage: latest,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].PartnerID < out[j].PartnerID
	})
	return out, nil
}

// GetThread serves one page of the conversation oldest-first within the page
// and marks everything the partner sent to account as read.
func (s *Service) GetThread(ctx context.Context, account model.Account, partnerID string, page model.PageRequest) (model.Thread, error) {
	page = normalizePage(page, threadPageSize, 100)
	if !validID(partnerID) {
		return model.Thread{}, apperr.NotFound("User")
	}

	q := s.store.Queries()
	partner, err := q.GetAccount(ctx, partnerID)
	if err != nil {
		return model.Thread{}, storeErr(err, "User")
	}

	messages, total, err := q.ListThread(ctx, account.ID, partnerID, page.Limit, page.Offset())
	if err != nil {
		return model.Thread{}, apperr.Internal("list thread", err)
	}
	if _, err := q.MarkThreadRead(ctx, account.ID, partnerID); err != nil {
		return model.Thread{}, apperr.Internal("mark thread read", err)
	}

	ordered := make([]model.Message, len(messages))
	for i, m := range messages {
		if m.ReceiverID == account.ID {
			m.IsRead = true
		}
		ordered[len(messages)-1-i] = m
	}
	return model.Thread{
		Partner:    partner.Summary(),
		Messages:   ordered,
		Pagination: model.NewPagination(page.Page, page.Limit, total),
	}, nil
}

// MarkMessageRead only succeeds for the message's receiver.
func (s *Service) MarkMessageRead(ctx context.Context, account model.Account, messageID string) error {
	if !validID(messageID) {
		return apperr.NotFound("Message")
	}
	rows, err := s.store.Queries().MarkMessageRead(ctx, messageID, account.ID)
	if err != nil {
		return apperr.Internal("mark message read", err)
	}
	if rows == 0 {
		return apperr.NotFound("Message")
	}
	return nil
}

func (s *Service) MarkThreadRead(ctx context.Context, account model.Account, partnerID string) (int64, error) {
	if !validID(partnerID) {
		return 0, apperr.NotFound("User")
	}
	count, err := s.store.Queries().MarkThreadRead(ctx, account.ID, partnerID)
	if err != nil {
		return 0, apperr.Internal("mark thread read", err)
	}
	return count, nil
}

func (s *Service) UnreadCount(ctx context.Context, account model.Account) (int, error) {
	count, err := s.store.Queries().CountUnread(ctx, account.ID)
	if err != nil {
		return 0, apperr.Internal("count unread", err)
	}
	return count, nil
}

func (s *Service) ListMessages(ctx context.Context, account model.Account, in MessageListInput) (model.Page[model.Message], error) {
	page := normalizePage(in.PageRequest, 20, 100)
	items, total, err := s.store.Queries().ListMessages(ctx, db.MessageFilter{
		AccountID:  account.ID,
		UnreadOnly: in.UnreadOnly,
		Limit:      page.Limit,
		Offset:     page.Offset(),
	})
	if err != nil {
		return model.Page[model.Message]{}, apperr.Internal("list messages", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}

func (s *Service) DeleteMessage(ctx context.Context, caller model.Account, messageID string) error {
	if !validID(messageID) {
		return apperr.NotFound("Message")
	}
	q := s.store.Queries()
	m, err := q.GetMessage(ctx, messageID)
	if err != nil {
		return storeErr(err, "Message")
	}
	if err := auth.RequireOwnershipOrAdmin(caller, m.SenderID); err != nil {
		return err
	}
	return storeErr(q.DeleteMessage(ctx, messageID), "Message")
}

func (s *Service) AdminListMessages(ctx context.Context, caller model.Account, in AdminMessageListInput) (model.Page[model.Message], error) {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return model.Page[model.Message]{}, err
	}
	page := normalizePage(in.PageRequest, 50, 100)
	items, total, err := s.store.Queries().ListMessages(ctx, db.MessageFilter{
		UserID: in.UserID,
		Search: in.Search,
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return model.Page[model.Message]{}, apperr.Internal("list messages", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}
