package operations

import (
	"context"
	"time"

	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/model"
)

// Queries is the persistence surface the operations need. *db.Queries
// implements it.
type Queries interface {
	GetAccount(ctx context.Context, id string) (model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (model.Account, error)
	CreateAccount(ctx context.Context, account model.Account) error
	UpdateAccount(ctx context.Context, account model.Account) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	DeleteAccount(ctx context.Context, id string) error
	GetAccountSummaries(ctx context.Context, ids []string) ([]model.AccountSummary, error)
	CountActiveRequests(ctx context.Context, accountID string) (int, error)
	GetAccountCounts(ctx context.Context, accountID string) (model.AccountCounts, error)
	ListAccounts(ctx context.Context, params db.AccountFilter) ([]model.Account, int, error)
	GetUserStats(ctx context.Context, since time.Time) (model.UserStats, error)

	GetMakerProfile(ctx context.Context, accountID string) (model.MakerProfile, error)
	GetCustomerProfile(ctx context.Context, accountID string) (model.CustomerProfile, error)
	UpsertMakerProfile(ctx context.Context, profile model.MakerProfile) error
	UpsertCustomerProfile(ctx context.Context, profile model.CustomerProfile) error
	DeleteMakerProfile(ctx context.Context, accountID string) error
	DeleteCustomerProfile(ctx context.Context, accountID string) error
	IncrementCompletedPrints(ctx context.Context, makerID string) error
	ListMakers(ctx context.Context, params db.MakerFilter) ([]model.Account, int, error)

	ListModels(ctx context.Context, params db.ModelFilter) ([]model.ModelListing, int, error)
	GetModel(ctx context.Context, id, viewerID string) (model.ModelListing, error)
	ModelExists(ctx context.Context, id string) (bool, error)
	ListFavoriteModels(ctx context.Context, accountID string, limit, offset int) ([]model.ModelListing, int, error)
	AddFavorite(ctx context.Context, accountID, modelID string) error
	RemoveFavorite(ctx context.Context, accountID, modelID string) (bool, error)
	ListTagCounts(ctx context.Context, limit int) ([]model.TagCount, error)

	CreatePrintRequest(ctx context.Context, pr model.PrintRequest) error
	GetPrintRequest(ctx context.Context, id string) (model.PrintRequest, error)
	LockPrintRequest(ctx context.Context, id string) (model.PrintRequest, error)
	UpdatePrintRequestStatus(ctx context.Context, pr model.PrintRequest, from model.RequestStatus) (int64, error)
	DeletePrintRequest(ctx context.Context, id string) error
	ListPrintRequests(ctx context.Context, params db.PrintRequestFilter) ([]model.PrintRequest, int, error)
	CountPrintRequestsByStatus(ctx context.Context, params db.PrintRequestFilter) (map[model.RequestStatus]int, error)

	CreateMessage(ctx context.Context, m model.Message) error
	GetMessage(ctx context.Context, id string) (model.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ListConversationHeads(ctx context.Context, accountID string) ([]model.ConversationHead, error)
	GetLatestMessageBetween(ctx context.Context, a, b string) (model.Message, error)
	ListThread(ctx context.Context, a, b string, limit, offset int) ([]model.Message, int, error)
	MarkThreadRead(ctx context.Context, receiverID, senderID string) (int64, error)
	MarkMessageRead(ctx context.Context, id, receiverID string) (int64, error)
	CountUnread(ctx context.Context, accountID string) (int, error)
	ListMessages(ctx context.Context, params db.MessageFilter) ([]model.Message, int, error)

	ListAnnouncements(ctx context.Context, params db.AnnouncementFilter) ([]model.Announcement, int, error)
	GetAnnouncement(ctx context.Context, id string) (model.Announcement, error)
	CreateAnnouncement(ctx context.Context, a model.Announcement) error
	UpdateAnnouncement(ctx context.Context, a model.Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) error
}

type Store interface {
	Queries() Queries
	WithTx(ctx context.Context, fn func(Queries) error) error
}

type pgStore struct {
	store *db.Store
}

// NewStore adapts the pgx-backed store.
func NewStore(store *db.Store) Store {
	return pgStore{store: store}
}

func (s pgStore) Queries() Queries {
	return s.store.Queries
}

func (s pgStore) WithTx(ctx context.Context, fn func(Queries) error) error {
	return s.store.WithTx(ctx, func(q *db.Queries) error {
		return fn(q)
	})
}

var _ Queries = (*db.Queries)(nil)
