package operations

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/auth"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
)

const (
	activeAnnouncementsKey = "announcements:active"
	announcementsCacheTTL  = 5 * time.Minute
)

// AnnouncementInput carries create and update fields; nil means unset.
type AnnouncementInput struct {
	Title    *string
	Content  *string
	Type     *model.AnnouncementType
	Priority *int
	IsActive *bool
}

type AdminAnnouncementListInput struct {
	model.PageRequest
	IsActive *bool
	Type     model.AnnouncementType
}

// ActiveAnnouncements is served from Redis when available and refilled from
// the database on a miss.
func (s *Service) ActiveAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	if cached, ok := s.cachedAnnouncements(ctx); ok {
		return cached, nil
	}
	items, _, err := s.store.Queries().ListAnnouncements(ctx, db.AnnouncementFilter{ActiveOnly: true})
	if err != nil {
		return nil, apperr.Internal("list announcements", err)
	}
	if items == nil {
		items = []model.Announcement{}
	}
	s.cacheAnnouncements(ctx, items)
	return items, nil
}

func (s *Service) cachedAnnouncements(ctx context.Context) ([]model.Announcement, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, activeAnnouncementsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).Warn("announcement cache read failed")
		}
		return nil, false
	}
	var items []model.Announcement
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.WithError(err).Warn("announcement cache entry unreadable")
		return nil, false
	}
	return items, true
}

func (s *Service) cacheAnnouncements(ctx context.Context, items []model.Announcement) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, activeAnnouncementsKey, raw, announcementsCacheTTL).Err(); err != nil {
		s.log.WithError(err).Warn("announcement cache write failed")
	}
}

func (s *Service) invalidateAnnouncements(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, activeAnnouncementsKey).Err(); err != nil {
		s.log.WithError(err).Warn("announcement cache invalidation failed")
	}
}

// GetAnnouncement hides inactive announcements from everyone but admins.
func (s *Service) GetAnnouncement(ctx context.Context, viewer model.Account, id string) (model.Announcement, error) {
	if !validID(id) {
		return model.Announcement{}, apperr.NotFound("Announcement")
	}
	a, err := s.store.Queries().GetAnnouncement(ctx, id)
	if err != nil {
		return model.Announcement{}, storeErr(err, "Announcement")
	}
	if !a.IsActive && !auth.IsAdmin(viewer) {
		return model.Announcement{}, apperr.NotFound("Announcement")
	}
	return a, nil
}

func (s *Service) AdminListAnnouncements(ctx context.Context, caller model.Account, in AdminAnnouncementListInput) (model.Page[model.Announcement], error) {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return model.Page[model.Announcement]{}, err
	}
	page := normalizePage(in.PageRequest, 20, 100)
	items, total, err := s.store.Queries().ListAnnouncements(ctx, db.AnnouncementFilter{
		IsActive: in.IsActive,
		Type:     in.Type,
		Limit:    page.Limit,
		Offset:   page.Offset(),
	})
	if err != nil {
		return model.Page[model.Announcement]{}, apperr.Internal("list announcements", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}

func (s *Service) CreateAnnouncement(ctx context.Context, caller model.Account, in AnnouncementInput) (model.Announcement, error) {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return model.Announcement{}, err
	}
	if in.Title == nil || in.Content == nil {
		return model.Announcement{}, apperr.Validation("title and content are required")
	}
	now := s.now()
	a := model.Announcement{
		ID:        s.newID(),
		Type:      model.AnnouncementInfo,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyAnnouncement(&a, in); err != nil {
		return model.Announcement{}, err
	}
	if err := s.store.Queries().CreateAnnouncement(ctx, a); err != nil {
		return model.Announcement{}, apperr.Internal("create announcement", err)
	}
	s.invalidateAnnouncements(ctx)
	return a, nil
}

func (s *Service) UpdateAnnouncement(ctx context.Context, caller model.Account, id string, in AnnouncementInput) (model.Announcement, error) {
	return s.mutateAnnouncement(ctx, caller, id, func(a *model.Announcement) error {
		return applyAnnouncement(a, in)
	})
}

func (s *Service) ToggleAnnouncement(ctx context.Context, caller model.Account, id string) (model.Announcement, error) {
	return s.mutateAnnouncement(ctx, caller, id, func(a *model.Announcement) error {
		a.IsActive = !a.IsActive
		return nil
	})
}

func (s *Service) mutateAnnouncement(ctx context.Context, caller model.Account, id string, change func(*model.Announcement) error) (model.Announcement, error) {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return model.Announcement{}, err
	}
	if !validID(id) {
		return model.Announcement{}, apperr.NotFound("Announcement")
	}
	var out model.Announcement
	err := s.store.WithTx(ctx, func(q Queries) error {
		a, err := q.GetAnnouncement(ctx, id)
		if err != nil {
			return storeErr(err, "Announcement")
		}
		if err := change(&a); err != nil {
			return err
		}
		a.UpdatedAt = s.now()
		if err := q.UpdateAnnouncement(ctx, a); err != nil {
			return storeErr(err, "Announcement")
		}
		out = a
		return nil
	})
	if err != nil {
		return model.Announcement{}, err
	}
	s.invalidateAnnouncements(ctx)
	return out, nil
}

func (s *Service) DeleteAnnouncement(ctx context.Context, caller model.Account, id string) error {
	if err := auth.RequireRole(caller, model.RoleAdmin); err != nil {
		return err
	}
	if !validID(id) {
		return apperr.NotFound("Announcement")
	}
	if err := s.store.Queries().DeleteAnnouncement(ctx, id); err != nil {
		return storeErr(err, "Announcement")
	}
	s.invalidateAnnouncements(ctx)
	return nil
}

func applyAnnouncement(a *model.Announcement, in AnnouncementInput) error {
	if in.Title != nil {
		if n := utf8.RuneCountInString(*in.Title); n < 3 || n > 100 {
			return apperr.Validation("title must be between 3 and 100 characters")
		}
		a.Title = *in.Title
	}
	if in.Content != nil {
		if n := utf8.RuneCountInString(*in.Content); n < 10 || n > 2000 {
			return apperr.Validation("content must be between 10 and 2000 characters")
		}
		a.Content = *in.Content
	}
	if in.Type != nil {
		switch *in.Type {
		case model.AnnouncementInfo, model.AnnouncementWarning, model.AnnouncementSuccess, model.AnnouncementError:
			a.Type = *in.Type
		default:
			return apperr.Validation("type must be one of INFO, WARNING, SUCCESS, ERROR")
		}
	}
	if in.Priority != nil {
		if *in.Priority < 0 || *in.Priority > 10 {
			return apperr.Validation("priority must be between 0 and 10")
		}
		a.Priority = *in.Priority
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	return nil
}
