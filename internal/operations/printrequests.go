package operations

import (
	"context"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/auth"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/metrics"
	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/notify"
)

const (
	maxQuantity    = 10
	maxNotesLength = 500
)

type CreateRequestInput struct {
	ModelID  string
	MakerID  string
	Quantity int
	Material string
	Color    *string
	Notes    *string
	Urgency  model.Urgency
}

type TransitionInput struct {
	Status      model.RequestStatus
	QuotedPrice decimal.NullDecimal
	FinalPrice  decimal.NullDecimal
}

type RequestListInput struct {
	model.PageRequest
	Status  model.RequestStatus
	Urgency model.Urgency
}

func (s *Service) CreatePrintRequest(ctx context.Context, caller model.Account, in CreateRequestInput) (model.PrintRequest, error) {
	if err := auth.RequireRole(caller, model.RoleCustomer); err != nil {
		return model.PrintRequest{}, err
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 || in.Quantity > maxQuantity {
		return model.PrintRequest{}, apperr.Validation("quantity must be between 1 and 10")
	}
	if in.Material == "" {
		return model.PrintRequest{}, apperr.Validation("material is required")
	}
	if in.Notes != nil && utf8.RuneCountInString(*in.Notes) > maxNotesLength {
		return model.PrintRequest{}, apperr.Validation("notes must be at most 500 characters")
	}
	if in.Urgency == "" {
		in.Urgency = model.UrgencyNormal
	}
	if _, ok := model.ParseUrgency(string(in.Urgency)); !ok {
		return model.PrintRequest{}, apperr.Validation("urgency must be one of Low, Normal, High")
	}

	q := s.store.Queries()
	if !validID(in.ModelID) {
		return model.PrintRequest{}, apperr.NotFound("Model")
	}
	exists, err := q.ModelExists(ctx, in.ModelID)
	if err != nil {
		return model.PrintRequest{}, storeErr(err, "Model")
	}
	if !exists {
		return model.PrintRequest{}, apperr.NotFound("Model")
	}

	maker, profile, err := s.activeMaker(ctx, q, in.MakerID)
	if err != nil {
		return model.PrintRequest{}, err
	}
	if !profile.SupportsMaterial(in.Material) {
		return model.PrintRequest{}, apperr.UnsupportedMaterial(in.Material, profile.Materials)
	}

	now := s.now()
	pr := model.PrintRequest{
		ID:         s.newID(),
		ModelID:    in.ModelID,
		CustomerID: caller.ID,
		MakerID:    maker.ID,
		Quantity:   in.Quantity,
		Material:   in.Material,
		Color:      in.Color,
		Notes:      in.Notes,
		Urgency:    in.Urgency,
		Status:     model.StatusRequested,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := q.CreatePrintRequest(ctx, pr); err != nil {
		return model.PrintRequest{}, apperr.Internal("create print request", err)
	}

	detail, err := q.GetPrintRequest(ctx, pr.ID)
	if err != nil {
		return model.PrintRequest{}, storeErr(err, "Print request")
	}

	data := notify.RequestCreated{
		MakerName:    maker.Name,
		CustomerName: caller.Name,
		Quantity:     pr.Quantity,
		Material:     pr.Material,
		Color:        "Any",
		Notes:        "None",
		Urgency:      string(pr.Urgency),
	}
	if detail.Model != nil {
		data.ModelTitle = detail.Model.Title
		if detail.Model.SourceURL != nil {
			data.ModelURL = *detail.Model.SourceURL
		}
	}
	if pr.Color != nil && *pr.Color != "" {
		data.Color = *pr.Color
	}
	if pr.Notes != nil && *pr.Notes != "" {
		data.Notes = *pr.Notes
	}
	s.enqueue(notify.Notification{
		Kind:     notify.KindRequestCreated,
		To:       maker.Email,
		DedupKey: string(notify.KindRequestCreated) + ":" + pr.ID,
		Data:     data,
	})
	return detail, nil
}

// activeMaker loads an active maker account with its profile. Every failure
// to qualify is reported as NotFound.
func (s *Service) activeMaker(ctx context.Context, q Queries, id string) (model.Account, model.MakerProfile, error) {
	notFound := apperr.NotFound("Maker")
	if !validID(id) {
		return model.Account{}, model.MakerProfile{}, notFound
	}
	maker, err := q.GetAccount(ctx, id)
	if err != nil {
		return model.Account{}, model.MakerProfile{}, storeErr(err, "Maker")
	}
	if maker.Role != model.RoleMaker || !maker.IsActive {
		return model.Account{}, model.MakerProfile{}, notFound
	}
	profile, err := q.GetMakerProfile(ctx, id)
	if err != nil {
		return model.Account{}, model.MakerProfile{}, storeErr(err, "Maker")
	}
	maker.MakerProfile = &profile
	return maker, profile, nil
}

func (s *Service) TransitionPrintRequest(ctx context.Context, caller model.Account, id string, in TransitionInput) (model.PrintRequest, error) {
	target, ok := model.ParseRequestStatus(string(in.Status))
	if !ok || target == model.StatusRequested {
		return model.PrintRequest{}, apperr.Validation("status must be one of ACCEPTED, PRINTING, COMPLETED, DELIVERED, CANCELLED, REJECTED")
	}
	if negative(in.QuotedPrice) || negative(in.FinalPrice) {
		return model.PrintRequest{}, apperr.Validation("prices must not be negative")
	}
	if !validID(id) {
		return model.PrintRequest{}, apperr.NotFound("Print request")
	}

	var from model.RequestStatus
	err := s.store.WithTx(ctx, func(q Queries) error {
		current, err := q.LockPrintRequest(ctx, id)
		if err != nil {
			return storeErr(err, "Print request")
		}
		if err := authorizeTransition(caller, current, target); err != nil {
			return err
		}
		if err := checkTransition(current.Status, target); err != nil {
			return err
		}

		from = current.Status
		now := s.now()
		next := current
		next.Status = target
		next.UpdatedAt = now
		if in.QuotedPrice.Valid {
			next.QuotedPrice = in.QuotedPrice
		}
		if in.FinalPrice.Valid {
			next.FinalPrice = in.FinalPrice
		}
		switch target {
		case model.StatusAccepted:
			next.AcceptedAt = &now
		case model.StatusPrinting:
			next.StartedAt = &now
		case model.StatusCompleted:
			next.CompletedAt = &now
		case model.StatusDelivered:
			next.DeliveredAt = &now
		}

		rows, err := q.UpdatePrintRequestStatus(ctx, next, from)
		if err != nil {
			return apperr.Internal("update print request status", err)
		}
		if rows == 0 {
			return apperr.Conflict("print request was modified concurrently")
		}

		if target == model.StatusCompleted {
			if err := q.IncrementCompletedPrints(ctx, next.MakerID); err != nil {
				if db.IsNotFound(err) {
					return apperr.Internal("maker profile missing for completed print", err)
				}
				return apperr.Internal("increment completed prints", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.PrintRequest{}, err
	}
	metrics.RecordTransition(string(from), string(target))

	q := s.store.Queries()
	detail, err := q.GetPrintRequest(ctx, id)
	if err != nil {
		return model.PrintRequest{}, storeErr(err, "Print request")
	}
	s.notifyTransition(ctx, q, detail)
	return detail, nil
}

func (s *Service) notifyTransition(ctx context.Context, q Queries, pr model.PrintRequest) {
	var kind notify.Kind
	switch pr.Status {
	case model.StatusAccepted:
		kind = notify.KindRequestAccepted
	case model.StatusCompleted:
		kind = notify.KindRequestCompleted
	default:
		return
	}

	customer, err := q.GetAccount(ctx, pr.CustomerID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"request_id": pr.ID, "kind": kind}).Error("notification recipient lookup failed")
		return
	}
	var makerName, modelTitle string
	if pr.Maker != nil {
		makerName = pr.Maker.Name
	}
	if pr.Model != nil {
		modelTitle = pr.Model.Title
	}

	var data any
	if kind == notify.KindRequestAccepted {
		accepted := notify.RequestAccepted{CustomerName: customer.Name, MakerName: makerName, ModelTitle: modelTitle}
		if pr.QuotedPrice.Valid {
			accepted.QuotedPrice = pr.QuotedPrice.Decimal.StringFixed(2)
		}
		data = accepted
	} else {
		data = notify.RequestCompleted{CustomerName: customer.Name, MakerName: makerName, ModelTitle: modelTitle}
	}
	s.enqueue(notify.Notification{
		Kind:     kind,
		To:       customer.Email,
		DedupKey: string(kind) + ":" + pr.ID,
		Data:     data,
	})
}

func negative(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsNegative()
}

func (s *Service) DeletePrintRequest(ctx context.Context, caller model.Account, id string) error {
	if !validID(id) {
		return apperr.NotFound("Print request")
	}
	q := s.store.Queries()
	pr, err := q.GetPrintRequest(ctx, id)
	if err != nil {
		return storeErr(err, "Print request")
	}
	allowed := auth.IsAdmin(caller) || (pr.CustomerID == caller.ID && pr.Status == model.StatusRequested)
	if !allowed {
		return apperr.Forbidden("Cannot delete this request")
	}
	return storeErr(q.DeletePrintRequest(ctx, id), "Print request")
}

func (s *Service) GetPrintRequest(ctx context.Context, caller model.Account, id string) (model.PrintRequest, error) {
	if !validID(id) {
		return model.PrintRequest{}, apperr.NotFound("Print request")
	}
	pr, err := s.store.Queries().GetPrintRequest(ctx, id)
	if err != nil {
		return model.PrintRequest{}, storeErr(err, "Print request")
	}
	if !auth.IsAdmin(caller) && caller.ID != pr.CustomerID && caller.ID != pr.MakerID {
		return model.PrintRequest{}, apperr.Forbidden("Access denied")
	}
	return pr, nil
}

// scopeRequests restricts a filter to the caller's side of the marketplace.
func scopeRequests(caller model.Account, f *db.PrintRequestFilter) {
	switch caller.Role {
	case model.RoleCustomer:
		f.CustomerID = caller.ID
	case model.RoleMaker:
		f.MakerID = caller.ID
	case model.RoleAdmin:
	}
}

func (s *Service) ListPrintRequests(ctx context.Context, caller model.Account, in RequestListInput) (model.Page[model.PrintRequest], error) {
	page := normalizePage(in.PageRequest, 10, 50)
	filter := db.PrintRequestFilter{
		Urgency: in.Urgency,
		Order:   db.OrderNewest,
		Limit:   page.Limit,
		Offset:  page.Offset(),
	}
	if in.Status != "" {
		filter.Statuses = []model.RequestStatus{in.Status}
	}
	scopeRequests(caller, &filter)

	items, total, err := s.store.Queries().ListPrintRequests(ctx, filter)
	if err != nil {
		return model.Page[model.PrintRequest]{}, apperr.Internal("list print requests", err)
	}
	return model.NewPage(items, page.Page, page.Limit, total), nil
}

// MakerQueue lists the maker's work, most urgent first. Without a status it
// shows the active requests.
func (s *Service) MakerQueue(ctx context.Context, caller model.Account, status model.RequestStatus) ([]model.PrintRequest, error) {
	if err := auth.RequireRole(caller, model.RoleMaker); err != nil {
		return nil, err
	}
	filter := db.PrintRequestFilter{MakerID: caller.ID, Order: db.OrderQueue}
	if status != "" {
		filter.Statuses = []model.RequestStatus{status}
	} else {
		filter.Statuses = model.ActiveRequestStatuses
	}
	items, _, err := s.store.Queries().ListPrintRequests(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list maker queue", err)
	}
	if items == nil {
		items = []model.PrintRequest{}
	}
	return items, nil
}

func (s *Service) PrintRequestStats(ctx context.Context, caller model.Account) (model.RequestStats, error) {
	var filter db.PrintRequestFilter
	scopeRequests(caller, &filter)
	counts, err := s.store.Queries().CountPrintRequestsByStatus(ctx, filter)
	if err != nil {
		return model.RequestStats{}, apperr.Internal("count print requests", err)
	}
	var stats model.RequestStats
	for status, n := range counts {
		stats.Add(status, n)
	}
	return stats, nil
}
