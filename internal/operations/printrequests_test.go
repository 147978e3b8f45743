package operations

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/notify"
)

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind.String(), apperr.KindOf(err).String(), "error: %v", err)
}

// putRequest stores a request directly in the given status.
func (m *market) putRequest(status model.RequestStatus) model.PrintRequest {
	now := m.svc.now()
	pr := model.PrintRequest{
		ID:         uuid.NewString(),
		ModelID:    m.model.ID,
		CustomerID: m.customer.ID,
		MakerID:    m.maker.ID,
		Quantity:   1,
		Material:   "PLA",
		Urgency:    model.UrgencyNormal,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.data.requests[pr.ID] = pr
	return pr
}

func TestTransitionTableClosure(t *testing.T) {
	for _, from := range model.AllRequestStatuses {
		for _, to := range model.AllRequestStatuses {
			m := newMarket(t)
			pr := m.putRequest(from)
			out, err := m.svc.TransitionPrintRequest(context.Background(), m.admin, pr.ID, TransitionInput{Status: to})
			switch {
			case to == model.StatusRequested:
				requireKind(t, err, apperr.KindValidation)
			case CanTransition(from, to):
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, out.Status)
			default:
				requireKind(t, err, apperr.KindInvalidTransition)
				stored, getErr := m.svc.GetPrintRequest(context.Background(), m.admin, pr.ID)
				require.NoError(t, getErr)
				assert.Equal(t, from, stored.Status, "failed transition must not change state")
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, status := range []model.RequestStatus{model.StatusDelivered, model.StatusCancelled, model.StatusRejected} {
		assert.True(t, IsTerminal(status), status)
		assert.Empty(t, NextStatuses(status))
	}
	for _, status := range []model.RequestStatus{model.StatusRequested, model.StatusAccepted, model.StatusPrinting, model.StatusCompleted} {
		assert.False(t, IsTerminal(status), status)
	}
	assert.False(t, IsTerminal("SHIPPED"))
}

func TestTransitionRoleGating(t *testing.T) {
	ctx := context.Background()

	t.Run("unassigned maker", func(t *testing.T) {
		m := newMarket(t)
		pr := m.request(t)
		_, err := m.svc.TransitionPrintRequest(ctx, m.other, pr.ID, TransitionInput{Status: model.StatusAccepted})
		requireKind(t, err, apperr.KindForbidden)
	})

	t.Run("maker cannot cancel or deliver", func(t *testing.T) {
		m := newMarket(t)
		pr := m.request(t)
		_, err := m.svc.TransitionPrintRequest(ctx, m.maker, pr.ID, TransitionInput{Status: model.StatusCancelled})
		requireKind(t, err, apperr.KindForbidden)

		m.advance(t, pr.ID, model.StatusAccepted, model.StatusPrinting, model.StatusCompleted)
		_, err = m.svc.TransitionPrintRequest(ctx, m.maker, pr.ID, TransitionInput{Status: model.StatusDelivered})
		requireKind(t, err, apperr.KindForbidden)
	})

	t.Run("maker policy checked before table", func(t *testing.T) {
		m := newMarket(t)
		pr := m.request(t)
		_, err := m.svc.TransitionPrintRequest(ctx, m.maker, pr.ID, TransitionInput{Status: model.StatusCompleted})
		requireKind(t, err, apperr.KindInvalidTransition)
	})

	t.Run("customer may only cancel while requested", func(t *testing.T) {
		m := newMarket(t)
		pr := m.request(t)
		_, err := m.svc.TransitionPrintRequest(ctx, m.customer, pr.ID, TransitionInput{Status: model.StatusAccepted})
		requireKind(t, err, apperr.KindForbidden)

		out, err := m.svc.TransitionPrintRequest(ctx, m.customer, pr.ID, TransitionInput{Status: model.StatusCancelled})
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, out.Status)

		accepted := m.request(t)
		m.advance(t, accepted.ID, model.StatusAccepted)
		_, err = m.svc.TransitionPrintRequest(ctx, m.customer, accepted.ID, TransitionInput{Status: model.StatusCancelled})
		requireKind(t, err, apperr.KindForbidden)
	})

	t.Run("other customer", func(t *testing.T) {
		m := newMarket(t)
		pr := m.request(t)
		stranger := m.addAccount("dave", model.RoleCustomer)
		_, err := m.svc.TransitionPrintRequest(ctx, stranger, pr.ID, TransitionInput{Status: model.StatusCancelled})
		requireKind(t, err, apperr.KindForbidden)
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		m := newMarket(t)
		_, err := m.svc.TransitionPrintRequest(ctx, m.admin, uuid.NewString(), TransitionInput{Status: model.StatusAccepted})
		requireKind(t, err, apperr.KindNotFound)
		_, err = m.svc.TransitionPrintRequest(ctx, m.admin, "not-a-uuid", TransitionInput{Status: model.StatusAccepted})
		requireKind(t, err, apperr.KindNotFound)
	})
}

func TestTransitionStampsTimestampsAndPrices(t *testing.T) {
	m := newMarket(t)
	pr := m.request(t)

	quote := decimal.NewNullDecimal(decimal.RequireFromString("12.5"))
	out, err := m.svc.TransitionPrintRequest(context.Background(), m.maker, pr.ID, TransitionInput{
		Status:      model.StatusAccepted,
		QuotedPrice: quote,
	})
	require.NoError(t, err)
	require.NotNil(t, out.AcceptedAt)
	assert.Nil(t, out.StartedAt)
	assert.True(t, out.QuotedPrice.Decimal.Equal(decimal.RequireFromString("12.5")))

	out = m.advance(t, pr.ID, model.StatusPrinting, model.StatusCompleted, model.StatusDelivered)
	assert.NotNil(t, out.StartedAt)
	assert.NotNil(t, out.CompletedAt)
	assert.NotNil(t, out.DeliveredAt)
	assert.True(t, out.QuotedPrice.Valid, "later transitions keep the quote")

	_, err = m.svc.TransitionPrintRequest(context.Background(), m.admin, m.request(t).ID, TransitionInput{
		Status:     model.StatusAccepted,
		FinalPrice: decimal.NewNullDecimal(decimal.NewFromInt(-1)),
	})
	requireKind(t, err, apperr.KindValidation)
}

func TestCompletedPrintsCounter(t *testing.T) {
	m := newMarket(t)
	first := m.request(t)
	second := m.request(t)
	third := m.request(t)

	m.advance(t, first.ID, model.StatusAccepted, model.StatusPrinting, model.StatusCompleted, model.StatusDelivered)
	m.advance(t, second.ID, model.StatusAccepted, model.StatusPrinting, model.StatusCompleted)
	m.advance(t, third.ID, model.StatusAccepted, model.StatusPrinting)

	reached := m.countRequests(m.maker.ID, model.StatusCompleted) + m.countRequests(m.maker.ID, model.StatusDelivered)
	assert.Equal(t, 2, reached)
	assert.Equal(t, reached, m.completedPrints(m.maker.ID))
}

func TestCompletionRollsBackWhenCounterFails(t *testing.T) {
	m := newMarket(t)
	pr := m.request(t)
	m.advance(t, pr.ID, model.StatusAccepted, model.StatusPrinting)

	m.store.failOn("IncrementCompletedPrints", errors.New("disk full"))
	_, err := m.svc.TransitionPrintRequest(context.Background(), m.maker, pr.ID, TransitionInput{Status: model.StatusCompleted})
	requireKind(t, err, apperr.KindInternal)

	stored, err := m.svc.GetPrintRequest(context.Background(), m.customer, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPrinting, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.Equal(t, 0, m.completedPrints(m.maker.ID))
	assert.NotContains(t, m.notifier.kinds(), notify.KindRequestCompleted)
}

func TestConcurrentTransitionsSerialize(t *testing.T) {
	m := newMarket(t)
	pr := m.request(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.svc.TransitionPrintRequest(context.Background(), m.maker, pr.ID, TransitionInput{Status: model.StatusAccepted})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, apperr.KindInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCreatePrintRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and notification", func(t *testing.T) {
		m := newMarket(t)
		pr := m.request(t)
		assert.Equal(t, model.StatusRequested, pr.Status)
		assert.Equal(t, 1, pr.Quantity)
		assert.Equal(t, model.UrgencyNormal, pr.Urgency)
		require.NotNil(t, pr.Model)
		assert.Equal(t, m.model.Title, pr.Model.Title)

		sent := m.notifier.all()
		require.Len(t, sent, 1)
		assert.Equal(t, notify.KindRequestCreated, sent[0].Kind)
		assert.Equal(t, m.maker.Email, sent[0].To)
		assert.Equal(t, "request-created:"+pr.ID, sent[0].DedupKey)
		data, ok := sent[0].Data.(notify.RequestCreated)
		require.True(t, ok)
		assert.Equal(t, "Any", data.Color)
		assert.Equal(t, "None", data.Notes)
	})

	t.Run("material gate", func(t *testing.T) {
		m := newMarket(t)
		for _, material := range []string{"TPU", "pla"} {
			_, err := m.svc.CreatePrintRequest(ctx, m.customer, CreateRequestInput{ModelID: m.model.ID, MakerID: m.maker.ID, Material: material})
			requireKind(t, err, apperr.KindUnsupportedMaterial)
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, []string{"PLA", "PETG"}, appErr.SupportedMaterials)
		}
		assert.Equal(t, 0, m.countRequests(m.maker.ID, model.StatusRequested))
	})

	t.Run("validation", func(t *testing.T) {
		m := newMarket(t)
		long := string(make([]rune, 501))
		inputs := []CreateRequestInput{
			{ModelID: m.model.ID, MakerID: m.maker.ID, Material: "PLA", Quantity: 11},
			{ModelID: m.model.ID, MakerID: m.maker.ID, Material: "PLA", Quantity: -1},
			{ModelID: m.model.ID, MakerID: m.maker.ID},
			{ModelID: m.model.ID, MakerID: m.maker.ID, Material: "PLA", Notes: &long},
			{ModelID: m.model.ID, MakerID: m.maker.ID, Material: "PLA", Urgency: "Urgent"},
		}
		for _, in := range inputs {
			_, err := m.svc.CreatePrintRequest(ctx, m.customer, in)
			requireKind(t, err, apperr.KindValidation)
		}
	})

	t.Run("unknown model or maker", func(t *testing.T) {
		m := newMarket(t)
		_, err := m.svc.CreatePrintRequest(ctx, m.customer, CreateRequestInput{ModelID: uuid.NewString(), MakerID: m.maker.ID, Material: "PLA"})
		requireKind(t, err, apperr.KindNotFound)

		_, err = m.svc.CreatePrintRequest(ctx, m.customer, CreateRequestInput{ModelID: m.model.ID, MakerID: m.customer.ID, Material: "PLA"})
		requireKind(t, err, apperr.KindNotFound)

		m.setInactive(m.maker.ID)
		_, err = m.svc.CreatePrintRequest(ctx, m.customer, CreateRequestInput{ModelID: m.model.ID, MakerID: m.maker.ID, Material: "PLA"})
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("customers only", func(t *testing.T) {
		m := newMarket(t)
		_, err := m.svc.CreatePrintRequest(ctx, m.maker, CreateRequestInput{ModelID: m.model.ID, MakerID: m.other.ID, Material: "PLA"})
		requireKind(t, err, apperr.KindForbidden)
	})
}

func TestTransitionNotifications(t *testing.T) {
	m := newMarket(t)
	pr := m.request(t)

	_, err := m.svc.TransitionPrintRequest(context.Background(), m.maker, pr.ID, TransitionInput{
		Status:      model.StatusAccepted,
		QuotedPrice: decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
	})
	require.NoError(t, err)
	m.advance(t, pr.ID, model.StatusPrinting, model.StatusCompleted)

	assert.Equal(t, []notify.Kind{notify.KindRequestCreated, notify.KindRequestAccepted, notify.KindRequestCompleted}, m.notifier.kinds())
	accepted := m.notifier.all()[1]
	assert.Equal(t, m.customer.Email, accepted.To)
	assert.Equal(t, "request-accepted:"+pr.ID, accepted.DedupKey)
	data, ok := accepted.Data.(notify.RequestAccepted)
	require.True(t, ok)
	assert.Equal(t, "12.50", data.QuotedPrice)
	assert.Equal(t, m.maker.Name, data.MakerName)
}

func TestPrintRequestVisibilityAndDeletion(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	pr := m.request(t)

	_, err := m.svc.GetPrintRequest(ctx, m.other, pr.ID)
	requireKind(t, err, apperr.KindForbidden)
	for _, caller := range []model.Account{m.customer, m.maker, m.admin} {
		_, err := m.svc.GetPrintRequest(ctx, caller, pr.ID)
		require.NoError(t, err)
	}

	err = m.svc.DeletePrintRequest(ctx, m.maker, pr.ID)
	requireKind(t, err, apperr.KindForbidden)

	accepted := m.request(t)
	m.advance(t, accepted.ID, model.StatusAccepted)
	err = m.svc.DeletePrintRequest(ctx, m.customer, accepted.ID)
	requireKind(t, err, apperr.KindForbidden)
	require.NoError(t, m.svc.DeletePrintRequest(ctx, m.admin, accepted.ID))

	require.NoError(t, m.svc.DeletePrintRequest(ctx, m.customer, pr.ID))
	_, err = m.svc.GetPrintRequest(ctx, m.customer, pr.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestListingsAreScopedToTheCaller(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	m.request(t)
	m.request(t)
	otherCustomer := m.addAccount("erin", model.RoleCustomer)
	_, err := m.svc.CreatePrintRequest(ctx, otherCustomer, CreateRequestInput{ModelID: m.model.ID, MakerID: m.other.ID, Material: "PLA"})
	require.NoError(t, err)

	page, err := m.svc.ListPrintRequests(ctx, m.customer, RequestListInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 10, page.Pagination.Limit)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))

	page, err = m.svc.ListPrintRequests(ctx, m.other, RequestListInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)

	page, err = m.svc.ListPrintRequests(ctx, m.admin, RequestListInput{PageRequest: model.PageRequest{Limit: 500}})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 50, page.Pagination.Limit)

	stats, err := m.svc.PrintRequestStats(ctx, m.maker)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Requested)
	assert.Equal(t, 2, stats.Count(model.StatusRequested))
	assert.Equal(t, 0, stats.Delivered)
}

func TestMakerQueueOrdersByUrgency(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	create := func(urgency model.Urgency) model.PrintRequest {
		pr, err := m.svc.CreatePrintRequest(ctx, m.customer, CreateRequestInput{
			ModelID: m.model.ID, MakerID: m.maker.ID, Material: "PETG", Urgency: urgency,
		})
		require.NoError(t, err)
		return pr
	}
	low := create(model.UrgencyLow)
	normal := create(model.UrgencyNormal)
	high := create(model.UrgencyHigh)
	done := create(model.UrgencyHigh)
	m.advance(t, done.ID, model.StatusAccepted, model.StatusPrinting, model.StatusCompleted)

	queue, err := m.svc.MakerQueue(ctx, m.maker, "")
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []string{high.ID, normal.ID, low.ID}, []string{queue[0].ID, queue[1].ID, queue[2].ID})

	queue, err = m.svc.MakerQueue(ctx, m.other, "")
	require.NoError(t, err)
	assert.NotNil(t, queue)
	assert.Empty(t, queue)

	_, err = m.svc.MakerQueue(ctx, m.customer, "")
	requireKind(t, err, apperr.KindForbidden)
}

func TestLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	before := m.completedPrints(m.maker.ID)

	pr := m.request(t)
	require.Equal(t, model.StatusRequested, pr.Status)

	out, err := m.svc.TransitionPrintRequest(ctx, m.maker, pr.ID, TransitionInput{
		Status:      model.StatusAccepted,
		QuotedPrice: decimal.NewNullDecimal(decimal.NewFromInt(20)),
	})
	require.NoError(t, err)
	require.NotNil(t, out.AcceptedAt)
	assert.True(t, out.QuotedPrice.Decimal.Equal(decimal.NewFromInt(20)))

	out = m.advance(t, pr.ID, model.StatusPrinting)
	require.NotNil(t, out.StartedAt)

	out = m.advance(t, pr.ID, model.StatusCompleted)
	require.NotNil(t, out.CompletedAt)
	assert.Equal(t, before+1, m.completedPrints(m.maker.ID))
	assert.Equal(t, []notify.Kind{notify.KindRequestCreated, notify.KindRequestAccepted, notify.KindRequestCompleted}, m.notifier.kinds())
	assert.Equal(t, m.customer.Email, m.notifier.all()[2].To)

	// The customer is stopped by the role policy before the table is read;
	// the maker, who may ask for Accepted, hits the table.
	_, err = m.svc.TransitionPrintRequest(ctx, m.customer, pr.ID, TransitionInput{Status: model.StatusAccepted})
	requireKind(t, err, apperr.KindForbidden)
	_, err = m.svc.TransitionPrintRequest(ctx, m.maker, pr.ID, TransitionInput{Status: model.StatusAccepted})
	requireKind(t, err, apperr.KindInvalidTransition)

	stored, err := m.svc.GetPrintRequest(ctx, m.customer, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, before+1, m.completedPrints(m.maker.ID))
}
