package operations

import (
	"context"
	"strings"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
)

const (
	recentRequestsOnModel = 5
	maxTags               = 50
	defaultShowcaseLimit  = 6
	maxShowcaseLimit      = 50
)

type ModelListInput struct {
	model.PageRequest
	Search     string
	Tags       []string
	Complexity model.Complexity
	SortBy     string
	SortDesc   bool
}

func (s *Service) ListModels(ctx context.Context, viewer model.Account, in ModelListInput) (model.Page[model.ModelListing], error) {
	page := normalizePage(in.PageRequest, 12, 50)
	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	items, total, err := s.store.Queries().ListModels(ctx, db.ModelFilter{
		ViewerID:   viewer.ID,
		Search:     strings.TrimSpace(in.Search),
		Tags:       in.Tags,
		Complexity: in.Complexity,
		SortBy:     sortBy,
		SortDesc:   in.SortDesc,
		Limit:      page.Limit,
		Offset:     page.Offset(),
	})
	if err != nil {
		return model.Page[model.ModelListing]{}, apperr.Internal("list models", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}

// GetModel returns the listing with its most recent print requests.
func (s *Service) GetModel(ctx context.Context, viewer model.Account, id string) (model.ModelListing, error) {
	if !validID(id) {
		return model.ModelListing{}, apperr.NotFound("Model")
	}
	q := s.store.Queries()
	listing, err := q.GetModel(ctx, id, viewer.ID)
	if err != nil {
		return model.ModelListing{}, storeErr(err, "Model")
	}
	recent, _, err := q.ListPrintRequests(ctx, db.PrintRequestFilter{
		ModelID: id,
		Order:   db.OrderNewest,
		Limit:   recentRequestsOnModel,
	})
	if err != nil {
		return model.ModelListing{}, apperr.Internal("list model print requests", err)
	}
	listing.RecentRequests = recent
	return listing, nil
}

// ToggleFavorite flips the favorite and reports the new state.
func (s *Service) ToggleFavorite(ctx context.Context, account model.Account, modelID string) (bool, error) {
	if !validID(modelID) {
		return false, apperr.NotFound("Model")
	}
	var favorited bool
	err := s.store.WithTx(ctx, func(q Queries) error {
		exists, err := q.ModelExists(ctx, modelID)
		if err != nil {
			return apperr.Internal("check model", err)
		}
		if !exists {
			return apperr.NotFound("Model")
		}
		removed, err := q.RemoveFavorite(ctx, account.ID, modelID)
		if err != nil {
			return apperr.Internal("remove favorite", err)
		}
		if removed {
			favorited = false
			return nil
		}
		if err := q.AddFavorite(ctx, account.ID, modelID); err != nil {
			return apperr.Internal("add favorite", err)
		}
		favorited = true
		return nil
	})
	return favorited, err
}

func (s *Service) ListFavorites(ctx context.Context, account model.Account, page model.PageRequest) (model.Page[model.ModelListing], error) {
	page = normalizePage(page, 12, 50)
	items, total, err := s.store.Queries().ListFavoriteModels(ctx, account.ID, page.Limit, page.Offset())
	if err != nil {
		return model.Page[model.ModelListing]{}, apperr.Internal("list favorites", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}

func (s *Service) TrendingModels(ctx context.Context, viewer model.Account, limit int) ([]model.ModelListing, error) {
	return s.showcase(ctx, viewer, db.SortTrending, limit)
}

func (s *Service) RecentModels(ctx context.Context, viewer model.Account, limit int) ([]model.ModelListing, error) {
	return s.showcase(ctx, viewer, "createdAt", limit)
}

func (s *Service) showcase(ctx context.Context, viewer model.Account, sortBy string, limit int) ([]model.ModelListing, error) {
	if limit <= 0 {
		limit = defaultShowcaseLimit
	}
	if limit > maxShowcaseLimit {
		limit = maxShowcaseLimit
	}
	items, _, err := s.store.Queries().ListModels(ctx, db.ModelFilter{
		ViewerID: viewer.ID,
		SortBy:   sortBy,
		SortDesc: true,
		Limit:    limit,
	})
	if err != nil {
		return nil, apperr.Internal("list models", err)
	}
	if items == nil {
		items = []model.ModelListing{}
	}
	return items, nil
}

func (s *Service) ListTags(ctx context.Context) ([]model.TagCount, error) {
	tags, err := s.store.Queries().ListTagCounts(ctx, maxTags)
	if err != nil {
		return nil, apperr.Internal("list tags", err)
	}
	if tags == nil {
		tags = []model.TagCount{}
	}
	return tags, nil
}
