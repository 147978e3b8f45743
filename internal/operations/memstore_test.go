package operations

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
)

type favoriteKey struct {
	account string
	model   string
}

type memData struct {
	accounts      map[string]model.Account
	makers        map[string]model.MakerProfile
	customers     map[string]model.CustomerProfile
	models        map[string]model.ModelListing
	favorites     map[favoriteKey]time.Time
	requests      map[string]model.PrintRequest
	messages      map[string]model.Message
	announcements map[string]model.Announcement
}

func newMemData() *memData {
	return &memData{
		accounts:      map[string]model.Account{},
		makers:        map[string]model.MakerProfile{},
		customers:     map[string]model.CustomerProfile{},
		models:        map[string]model.ModelListing{},
		favorites:     map[favoriteKey]time.Time{},
		requests:      map[string]model.PrintRequest{},
		messages:      map[string]model.Message{},
		announcements: map[string]model.Announcement{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		accounts:      cloneMap(d.accounts),
		makers:        cloneMap(d.makers),
		customers:     cloneMap(d.customers),
		models:        cloneMap(d.models),
		favorites:     cloneMap(d.favorites),
		requests:      cloneMap(d.requests),
		messages:      cloneMap(d.messages),
		announcements: cloneMap(d.announcements),
	}
}

// memStore is an in-memory Store. Transactions work on a snapshot that is
// published on success and discarded on error.
type memStore struct {
	mu       sync.Mutex
	data     *memData
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{data: newMemData(), failures: map[string]error{}}
}

func (s *memStore) Queries() Queries {
	return &memQueries{store: s}
}

func (s *memStore) WithTx(ctx context.Context, fn func(Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(&memQueries{store: s, tx: snapshot}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *memStore) failOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

type memQueries struct {
	store *memStore
	tx    *memData
}

// use returns the data to operate on and a release func.
func (q *memQueries) use() (*memData, func()) {
	if q.tx != nil {
		return q.tx, func() {}
	}
	q.store.mu.Lock()
	return q.store.data, q.store.mu.Unlock
}

func (q *memQueries) fail(method string) error {
	return q.store.failures[method]
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (q *memQueries) GetAccount(_ context.Context, id string) (model.Account, error) {
	d, done := q.use()
	defer done()
	a, ok := d.accounts[id]
	if !ok {
		return model.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (q *memQueries) GetAccountByEmail(_ context.Context, email string) (model.Account, error) {
	d, done := q.use()
	defer done()
	for _, a := range d.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return model.Account{}, pgx.ErrNoRows
}

func (q *memQueries) CreateAccount(_ context.Context, account model.Account) error {
	d, done := q.use()
	defer done()
	if err := q.fail("CreateAccount"); err != nil {
		return err
	}
	for _, a := range d.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	account.MakerProfile, account.CustomerProfile, account.Counts = nil, nil, nil
	d.accounts[account.ID] = account
	return nil
}

func (q *memQueries) UpdateAccount(_ context.Context, account model.Account) error {
	d, done := q.use()
	defer done()
	existing, ok := d.accounts[account.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Name = account.Name
	existing.Avatar = account.Avatar
	existing.Role = account.Role
	existing.IsActive = account.IsActive
	existing.UpdatedAt = account.UpdatedAt
	d.accounts[account.ID] = existing
	return nil
}

func (q *memQueries) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	d, done := q.use()
	defer done()
	if err := q.fail("TouchLastLogin"); err != nil {
		return err
	}
	if a, ok := d.accounts[id]; ok {
		a.LastLogin = &at
		d.accounts[id] = a
	}
	return nil
}

func (q *memQueries) DeleteAccount(_ context.Context, id string) error {
	d, done := q.use()
	defer done()
	if _, ok := d.accounts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(d.accounts, id)
	delete(d.makers, id)
	delete(d.customers, id)
	for k := range d.favorites {
		if k.account == id {
			delete(d.favorites, k)
		}
	}
	for rid, pr := range d.requests {
		if pr.CustomerID == id || pr.MakerID == id {
			delete(d.requests, rid)
		}
	}
	for mid, m := range d.messages {
		if m.SenderID == id || m.ReceiverID == id {
			delete(d.messages, mid)
		}
	}
	return nil
}

func (q *memQueries) GetAccountSummaries(_ context.Context, ids []string) ([]model.AccountSummary, error) {
	d, done := q.use()
	defer done()
	var out []model.AccountSummary
	for _, id := range ids {
		if a, ok := d.accounts[id]; ok {
			out = append(out, a.Summary())
		}
	}
	return out, nil
}

func isActiveStatus(status model.RequestStatus) bool {
	for _, s := range model.ActiveRequestStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (q *memQueries) CountActiveRequests(_ context.Context, accountID string) (int, error) {
	d, done := q.use()
	defer done()
	count := 0
	for _, pr := range d.requests {
		if (pr.CustomerID == accountID || pr.MakerID == accountID) && isActiveStatus(pr.Status) {
			count++
		}
	}
	return count, nil
}

func (q *memQueries) GetAccountCounts(_ context.Context, accountID string) (model.AccountCounts, error) {
	d, done := q.use()
	defer done()
	var c model.AccountCounts
	for k := range d.favorites {
		if k.account == accountID {
			c.Favorites++
		}
	}
	for _, pr := range d.requests {
		if pr.CustomerID == accountID {
			c.PrintRequests++
		}
		if pr.MakerID == accountID {
			c.AssignedPrints++
		}
	}
	for _, m := range d.messages {
		if m.SenderID == accountID {
			c.MessagesSent++
		}
		if m.ReceiverID == accountID {
			c.MessagesReceived++
		}
	}
	return c, nil
}

func (q *memQueries) ListAccounts(_ context.Context, params db.AccountFilter) ([]model.Account, int, error) {
	d, done := q.use()
	defer done()
	var out []model.Account
	for _, a := range d.accounts {
		if params.Role != 0 && a.Role != params.Role {
			continue
		}
		if params.IsActive != nil && a.IsActive != *params.IsActive {
			continue
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(a.Name), needle) && !strings.Contains(strings.ToLower(a.Email), needle) {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if params.SortDesc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, params.Limit, params.Offset), len(out), nil
}

func (q *memQueries) GetUserStats(_ context.Context, since time.Time) (model.UserStats, error) {
	d, done := q.use()
	defer done()
	var st model.UserStats
	for _, a := range d.accounts {
		st.TotalUsers++
		switch a.Role {
		case model.RoleCustomer:
			st.TotalCustomers++
		case model.RoleMaker:
			st.TotalMakers++
		case model.RoleAdmin:
		}
		if a.IsActive {
			st.ActiveUsers++
		}
		if !a.CreatedAt.Before(since) {
			st.RecentSignups++
		}
	}
	st.InactiveUsers = st.TotalUsers - st.ActiveUsers
	return st, nil
}

func (q *memQueries) GetMakerProfile(_ context.Context, accountID string) (model.MakerProfile, error) {
	d, done := q.use()
	defer done()
	p, ok := d.makers[accountID]
	if !ok {
		return model.MakerProfile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (q *memQueries) GetCustomerProfile(_ context.Context, accountID string) (model.CustomerProfile, error) {
	d, done := q.use()
	defer done()
	p, ok := d.customers[accountID]
	if !ok {
		return model.CustomerProfile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (q *memQueries) UpsertMakerProfile(_ context.Context, profile model.MakerProfile) error {
	d, done := q.use()
	defer done()
	if err := q.fail("UpsertMakerProfile"); err != nil {
		return err
	}
	if existing, ok := d.makers[profile.AccountID]; ok {
		profile.CompletedPrints = existing.CompletedPrints
		profile.Rating = existing.Rating
		profile.TotalRatings = existing.TotalRatings
	}
	d.makers[profile.AccountID] = profile
	return nil
}

func (q *memQueries) UpsertCustomerProfile(_ context.Context, profile model.CustomerProfile) error {
	d, done := q.use()
	defer done()
	d.customers[profile.AccountID] = profile
	return nil
}

func (q *memQueries) DeleteMakerProfile(_ context.Context, accountID string) error {
	d, done := q.use()
	defer done()
	delete(d.makers, accountID)
	return nil
}

func (q *memQueries) DeleteCustomerProfile(_ context.Context, accountID string) error {
	d, done := q.use()
	defer done()
	delete(d.customers, accountID)
	return nil
}

func (q *memQueries) IncrementCompletedPrints(_ context.Context, makerID string) error {
	d, done := q.use()
	defer done()
	if err := q.fail("IncrementCompletedPrints"); err != nil {
		return err
	}
	p, ok := d.makers[makerID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.CompletedPrints++
	d.makers[makerID] = p
	return nil
}

func (q *memQueries) ListMakers(_ context.Context, params db.MakerFilter) ([]model.Account, int, error) {
	d, done := q.use()
	defer done()
	var out []model.Account
	for id, p := range d.makers {
		a, ok := d.accounts[id]
		if !ok || a.Role != model.RoleMaker || !a.IsActive {
			continue
		}
		if params.Material != "" && !p.SupportsMaterial(params.Material) {
			continue
		}
		if params.Status != "" && p.Status != params.Status {
			continue
		}
		profile := p
		a.MakerProfile = &profile
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].MakerProfile.Rating, out[j].MakerProfile.Rating
		if !ri.Equal(rj) {
			return ri.GreaterThan(rj) == params.SortDesc
		}
		return out[i].ID < out[j].ID
	})
	return page(out, params.Limit, params.Offset), len(out), nil
}

func (q *memQueries) decorateModel(d *memData, m model.ModelListing, viewerID string) model.ModelListing {
	m.FavoritesCount, m.PrintRequestsCount, m.IsFavorited = 0, 0, false
	for k := range d.favorites {
		if k.model == m.ID {
			m.FavoritesCount++
			if k.account == viewerID {
				m.IsFavorited = true
			}
		}
	}
	for _, pr := range d.requests {
		if pr.ModelID == m.ID {
			m.PrintRequestsCount++
		}
	}
	return m
}

func (q *memQueries) ListModels(_ context.Context, params db.ModelFilter) ([]model.ModelListing, int, error) {
	d, done := q.use()
	defer done()
	var out []model.ModelListing
	for _, m := range d.models {
		if params.Search != "" && !strings.Contains(strings.ToLower(m.Title), strings.ToLower(params.Search)) {
			continue
		}
		if params.Complexity != "" && (m.Complexity == nil || *m.Complexity != params.Complexity) {
			continue
		}
		if len(params.Tags) > 0 && !anyTag(m.Tags, params.Tags) {
			continue
		}
		out = append(out, q.decorateModel(d, m, params.ViewerID))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch params.SortBy {
		case db.SortTrending:
			if a.LikeCount != b.LikeCount {
				return a.LikeCount > b.LikeCount
			}
			if a.DownloadCount != b.DownloadCount {
				return a.DownloadCount > b.DownloadCount
			}
		case "title":
			if a.Title != b.Title {
				return (a.Title < b.Title) != params.SortDesc
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt) != params.SortDesc
			}
		}
		return a.ID < b.ID
	})
	return page(out, params.Limit, params.Offset), len(out), nil
}

func anyTag(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func (q *memQueries) GetModel(_ context.Context, id, viewerID string) (model.ModelListing, error) {
	d, done := q.use()
	defer done()
	m, ok := d.models[id]
	if !ok {
		return model.ModelListing{}, pgx.ErrNoRows
	}
	return q.decorateModel(d, m, viewerID), nil
}

func (q *memQueries) ModelExists(_ context.Context, id string) (bool, error) {
	d, done := q.use()
	defer done()
	_, ok := d.models[id]
	return ok, nil
}

func (q *memQueries) ListFavoriteModels(_ context.Context, accountID string, limit, offset int) ([]model.ModelListing, int, error) {
	d, done := q.use()
	defer done()
	type fav struct {
		at time.Time
		m  model.ModelListing
	}
	var favs []fav
	for k, at := range d.favorites {
		if k.account == accountID {
			favs = append(favs, fav{at, q.decorateModel(d, d.models[k.model], accountID)})
		}
	}
	sort.Slice(favs, func(i, j int) bool {
		if !favs[i].at.Equal(favs[j].at) {
			return favs[i].at.After(favs[j].at)
		}
		return favs[i].m.ID < favs[j].m.ID
	})
	out := make([]model.ModelListing, len(favs))
	for i, f := range favs {
		out[i] = f.m
	}
	return page(out, limit, offset), len(out), nil
}

func (q *memQueries) AddFavorite(_ context.Context, accountID, modelID string) error {
	d, done := q.use()
	defer done()
	key := favoriteKey{accountID, modelID}
	if _, ok := d.favorites[key]; !ok {
		d.favorites[key] = time.Now()
	}
	return nil
}

func (q *memQueries) RemoveFavorite(_ context.Context, accountID, modelID string) (bool, error) {
	d, done := q.use()
	defer done()
	key := favoriteKey{accountID, modelID}
	_, ok := d.favorites[key]
	delete(d.favorites, key)
	return ok, nil
}

func (q *memQueries) ListTagCounts(_ context.Context, limit int) ([]model.TagCount, error) {
	d, done := q.use()
	defer done()
	counts := map[string]int{}
	for _, m := range d.models {
		for _, tag := range m.Tags {
			counts[tag]++
		}
	}
	var out []model.TagCount
	for tag, count := range counts {
		out = append(out, model.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return page(out, limit, 0), nil
}

func (q *memQueries) CreatePrintRequest(_ context.Context, pr model.PrintRequest) error {
	d, done := q.use()
	defer done()
	d.requests[pr.ID] = pr
	return nil
}

func (q *memQueries) detail(d *memData, pr model.PrintRequest) model.PrintRequest {
	if m, ok := d.models[pr.ModelID]; ok {
		pr.Model = &model.ModelSummary{ID: m.ID, Title: m.Title, ImageURL: m.ImageURL, SourceURL: m.SourceURL}
	}
	if a, ok := d.accounts[pr.CustomerID]; ok {
		summary := a.Summary()
		pr.Customer = &summary
	}
	if a, ok := d.accounts[pr.MakerID]; ok {
		summary := a.Summary()
		pr.Maker = &summary
	}
	return pr
}

func (q *memQueries) GetPrintRequest(_ context.Context, id string) (model.PrintRequest, error) {
	d, done := q.use()
	defer done()
	pr, ok := d.requests[id]
	if !ok {
		return model.PrintRequest{}, pgx.ErrNoRows
	}
	return q.detail(d, pr), nil
}

func (q *memQueries) LockPrintRequest(_ context.Context, id string) (model.PrintRequest, error) {
	d, done := q.use()
	defer done()
	pr, ok := d.requests[id]
	if !ok {
		return model.PrintRequest{}, pgx.ErrNoRows
	}
	return pr, nil
}

func (q *memQueries) UpdatePrintRequestStatus(_ context.Context, pr model.PrintRequest, from model.RequestStatus) (int64, error) {
	d, done := q.use()
	defer done()
	current, ok := d.requests[pr.ID]
	if !ok || current.Status != from {
		return 0, nil
	}
	current.Status = pr.Status
	current.QuotedPrice = pr.QuotedPrice
	current.FinalPrice = pr.FinalPrice
	current.AcceptedAt = pr.AcceptedAt
	current.StartedAt = pr.StartedAt
	current.CompletedAt = pr.CompletedAt
	current.DeliveredAt = pr.DeliveredAt
	current.UpdatedAt = pr.UpdatedAt
	d.requests[pr.ID] = current
	return 1, nil
}

func (q *memQueries) DeletePrintRequest(_ context.Context, id string) error {
	d, done := q.use()
	defer done()
	if _, ok := d.requests[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(d.requests, id)
	return nil
}

func matchRequest(pr model.PrintRequest, params db.PrintRequestFilter) bool {
	if params.CustomerID != "" && pr.CustomerID != params.CustomerID {
		return false
	}
	if params.MakerID != "" && pr.MakerID != params.MakerID {
		return false
	}
	if params.ModelID != "" && pr.ModelID != params.ModelID {
		return false
	}
	if params.Urgency != "" && pr.Urgency != params.Urgency {
		return false
	}
	if len(params.Statuses) > 0 {
		found := false
		for _, s := range params.Statuses {
			if s == pr.Status {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (q *memQueries) ListPrintRequests(_ context.Context, params db.PrintRequestFilter) ([]model.PrintRequest, int, error) {
	d, done := q.use()
	defer done()
	var out []model.PrintRequest
	for _, pr := range d.requests {
		if matchRequest(pr, params) {
			out = append(out, q.detail(d, pr))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch params.Order {
		case db.OrderQueue:
			if a.Urgency.Rank() != b.Urgency.Rank() {
				return a.Urgency.Rank() > b.Urgency.Rank()
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case db.OrderRecentlyCompleted:
			if a.CompletedAt != nil && b.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt) {
				return a.CompletedAt.After(*b.CompletedAt)
			}
		case db.OrderNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
	return page(out, params.Limit, params.Offset), len(out), nil
}

func (q *memQueries) CountPrintRequestsByStatus(_ context.Context, params db.PrintRequestFilter) (map[model.RequestStatus]int, error) {
	d, done := q.use()
	defer done()
	out := map[model.RequestStatus]int{}
	for _, pr := range d.requests {
		if matchRequest(pr, params) {
			out[pr.Status]++
		}
	}
	return out, nil
}

func (q *memQueries) CreateMessage(_ context.Context, m model.Message) error {
	d, done := q.use()
	defer done()
	m.Sender, m.Receiver = nil, nil
	d.messages[m.ID] = m
	return nil
}

func (q *memQueries) GetMessage(_ context.Context, id string) (model.Message, error) {
	d, done := q.use()
	defer done()
	m, ok := d.messages[id]
	if !ok {
		return model.Message{}, pgx.ErrNoRows
	}
	return m, nil
}

func (q *memQueries) DeleteMessage(_ context.Context, id string) error {
	d, done := q.use()
	defer done()
	if _, ok := d.messages[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(d.messages, id)
	return nil
}

func (q *memQueries) ListConversationHeads(_ context.Context, accountID string) ([]model.ConversationHead, error) {
	d, done := q.use()
	defer done()
	heads := map[string]*model.ConversationHead{}
	for _, m := range d.messages {
		var partner string
		switch accountID {
		case m.SenderID:
			partner = m.ReceiverID
		case m.ReceiverID:
			partner = m.SenderID
		default:
			continue
		}
		head, ok := heads[partner]
		if !ok {
			head = &model.ConversationHead{PartnerID: partner}
			heads[partner] = head
		}
		if m.CreatedAt.After(head.LastMessageAt) {
			head.LastMessageAt = m.CreatedAt
		}
		if m.ReceiverID == accountID && !m.IsRead {
			head.UnreadCount++
		}
	}
	var out []model.ConversationHead
	for _, head := range heads {
		out = append(out, *head)
	}
	return out, nil
}

func pairMessages(d *memData, a, b string) []model.Message {
	var out []model.Message
	for _, m := range d.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (q *memQueries) GetLatestMessageBetween(_ context.Context, a, b string) (model.Message, error) {
	d, done := q.use()
	defer done()
	msgs := pairMessages(d, a, b)
	if len(msgs) == 0 {
		return model.Message{}, pgx.ErrNoRows
	}
	return msgs[0], nil
}

func (q *memQueries) ListThread(_ context.Context, a, b string, limit, offset int) ([]model.Message, int, error) {
	d, done := q.use()
	defer done()
	msgs := pairMessages(d, a, b)
	return page(msgs, limit, offset), len(msgs), nil
}

func (q *memQueries) MarkThreadRead(_ context.Context, receiverID, senderID string) (int64, error) {
	d, done := q.use()
	defer done()
	var n int64
	for id, m := range d.messages {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			m.IsRead = true
			d.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (q *memQueries) MarkMessageRead(_ context.Context, id, receiverID string) (int64, error) {
	d, done := q.use()
	defer done()
	m, ok := d.messages[id]
	if !ok || m.ReceiverID != receiverID {
		return 0, nil
	}
	m.IsRead = true
	d.messages[id] = m
	return 1, nil
}

func (q *memQueries) CountUnread(_ context.Context, accountID string) (int, error) {
	d, done := q.use()
	defer done()
	n := 0
	for _, m := range d.messages {
		if m.ReceiverID == accountID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (q *memQueries) ListMessages(_ context.Context, params db.MessageFilter) ([]model.Message, int, error) {
	d, done := q.use()
	defer done()
	var out []model.Message
	for _, m := range d.messages {
		if params.AccountID != "" {
			if params.UnreadOnly {
				if m.ReceiverID != params.AccountID || m.IsRead {
					continue
				}
			} else if m.SenderID != params.AccountID && m.ReceiverID != params.AccountID {
				continue
			}
		}
		if params.UserID != "" && m.SenderID != params.UserID && m.ReceiverID != params.UserID {
			continue
		}
		if params.Search != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(params.Search)) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, params.Limit, params.Offset), len(out), nil
}

func (q *memQueries) ListAnnouncements(_ context.Context, params db.AnnouncementFilter) ([]model.Announcement, int, error) {
	d, done := q.use()
	defer done()
	if err := q.fail("ListAnnouncements"); err != nil {
		return nil, 0, err
	}
	var out []model.Announcement
	for _, a := range d.announcements {
		if params.ActiveOnly && !a.IsActive {
			continue
		}
		if params.IsActive != nil && a.IsActive != *params.IsActive {
			continue
		}
		if params.Type != "" && a.Type != params.Type {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, params.Limit, params.Offset), len(out), nil
}

func (q *memQueries) GetAnnouncement(_ context.Context, id string) (model.Announcement, error) {
	d, done := q.use()
	defer done()
	a, ok := d.announcements[id]
	if !ok {
		return model.Announcement{}, pgx.ErrNoRows
	}
	return a, nil
}

func (q *memQueries) CreateAnnouncement(_ context.Context, a model.Announcement) error {
	d, done := q.use()
	defer done()
	d.announcements[a.ID] = a
	return nil
}

func (q *memQueries) UpdateAnnouncement(_ context.Context, a model.Announcement) error {
	d, done := q.use()
	defer done()
	if _, ok := d.announcements[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	d.announcements[a.ID] = a
	return nil
}

func (q *memQueries) DeleteAnnouncement(_ context.Context, id string) error {
	d, done := q.use()
	defer done()
	if _, ok := d.announcements[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(d.announcements, id)
	return nil
}

var _ Queries = (*memQueries)(nil)
