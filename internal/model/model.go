package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Account struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	Name            string           `json:"name"`
	Avatar          *string          `json:"avatar"`
	Role            Role             `json:"role"`
	IsActive        bool             `json:"isActive"`
	LastLogin       *time.Time       `json:"lastLogin"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	MakerProfile    *MakerProfile    `json:"makerProfile,omitempty"`
	CustomerProfile *CustomerProfile `json:"customerProfile,omitempty"`
	Counts          *AccountCounts   `json:"counts,omitempty"`
}

func (a Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name, Avatar: a.Avatar, Role: a.Role}
}

type AccountSummary struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
	Role   Role    `json:"role"`
}

type AccountCounts struct {
	Favorites        int `json:"favorites"`
	PrintRequests    int `json:"printRequests"`
	AssignedPrints   int `json:"assignedPrints"`
	MessagesSent     int `json:"messagesSent"`
	MessagesReceived int `json:"messagesReceived"`
}

type MakerProfile struct {
	AccountID       string              `json:"userId"`
	Materials       []string            `json:"materials"`
	PrinterVolume   *string             `json:"printerVolume"`
	Resolution      *string             `json:"resolution"`
	HasEnclosure    bool                `json:"hasEnclosure"`
	Status          MakerStatus         `json:"status"`
	Availability    *string             `json:"availability"`
	HourlyRate      decimal.NullDecimal `json:"hourlyRate"`
	City            *string             `json:"city"`
	State           *string             `json:"state"`
	Country         *string             `json:"country"`
	CompletedPrints int                 `json:"completedPrints"`
	Rating          decimal.Decimal     `json:"rating"`
	TotalRatings    int                 `json:"totalRatings"`
}

// SupportsMaterial is an exact, case-sensitive membership check.
func (p MakerProfile) SupportsMaterial(material string) bool {
	for _, m := range p.Materials {
		if m == material {
			return true
		}
	}
	return false
}

type CustomerProfile struct {
	AccountID          string              `json:"userId"`
	PreferredMaterials []string            `json:"preferredMaterials"`
	MaxBudget          decimal.NullDecimal `json:"maxBudget"`
	City               *string             `json:"city"`
	State              *string             `json:"state"`
	Country            *string             `json:"country"`
}

// DefaultMakerProfile is provisioned when an account becomes a maker.
func DefaultMakerProfile(accountID string) MakerProfile {
	volume := "220x220x250mm"
	resolution := "0.2mm"
	country := "US"
	return MakerProfile{
		AccountID:     accountID,
		Materials:     []string{"PLA"},
		PrinterVolume: &volume,
		Resolution:    &resolution,
		Status:        MakerOffline,
		Country:       &country,
		Rating:        decimal.Zero,
	}
}

// DefaultCustomerProfile is provisioned when an account becomes a customer.
func DefaultCustomerProfile(accountID string) CustomerProfile {
	country := "US"
	return CustomerProfile{
		AccountID:          accountID,
		PreferredMaterials: []string{"PLA"},
		Country:            &country,
	}
}

type ModelListing struct {
	ID                 string      `json:"id"`
	ThingID            *string     `json:"thingId"`
	Title              string      `json:"title"`
	Description        *string     `json:"description"`
	ImageURL           *string     `json:"imageUrl"`
	SourceURL          *string     `json:"sourceUrl"`
	Tags               []string    `json:"tags"`
	License            *string     `json:"license"`
	AuthorName         *string     `json:"authorName"`
	PublishedAt        *time.Time  `json:"publishedAt"`
	Complexity         *Complexity `json:"complexity"`
	LikeCount          int         `json:"likeCount"`
	DownloadCount      int         `json:"downloadCount"`
	PrintTime          *string     `json:"printTime"`
	FilamentUsed       *string     `json:"filamentUsed"`
	CreatedAt          time.Time   `json:"createdAt"`
	FavoritesCount     int         `json:"favoritesCount"`
	PrintRequestsCount int         `json:"printRequestsCount"`
	IsFavorited        bool        `json:"isFavorited"`

	RecentRequests []PrintRequest `json:"printRequests,omitempty"`
}

type ModelSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	ImageURL  *string `json:"imageUrl"`
	SourceURL *string `json:"sourceUrl"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type PrintRequest struct {
	ID          string              `json:"id"`
	ModelID     string              `json:"modelId"`
	CustomerID  string              `json:"customerId"`
	MakerID     string              `json:"makerId"`
	Quantity    int                 `json:"quantity"`
	Material    string              `json:"material"`
	Color       *string             `json:"color"`
	Notes       *string             `json:"notes"`
	Urgency     Urgency             `json:"urgency"`
	Status      RequestStatus       `json:"status"`
	QuotedPrice decimal.NullDecimal `json:"quotedPrice"`
	FinalPrice  decimal.NullDecimal `json:"finalPrice"`
	AcceptedAt  *time.Time          `json:"acceptedAt"`
	StartedAt   *time.Time          `json:"startedAt"`
	CompletedAt *time.Time          `json:"completedAt"`
	DeliveredAt *time.Time          `json:"deliveredAt"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`

	Model    *ModelSummary   `json:"model,omitempty"`
	Customer *AccountSummary `json:"customer,omitempty"`
	Maker    *AccountSummary `json:"maker,omitempty"`
}

// RequestStats carries one lowercase key per status, the shape the
// dashboard reads.
type RequestStats struct {
	Total     int `json:"total"`
	Requested int `json:"requested"`
	Accepted  int `json:"accepted"`
	Printing  int `json:"printing"`
	Completed int `json:"completed"`
	Delivered int `json:"delivered"`
	Cancelled int `json:"cancelled"`
	Rejected  int `json:"rejected"`
}

func (s *RequestStats) counter(status RequestStatus) *int {
	switch status {
	case StatusRequested:
		return &s.Requested
	case StatusAccepted:
		return &s.Accepted
	case StatusPrinting:
		return &s.Printing
	case StatusCompleted:
		return &s.Completed
	case StatusDelivered:
		return &s.Delivered
	case StatusCancelled:
		return &s.Cancelled
	case StatusRejected:
		return &s.Rejected
	}
	return nil
}

// Add records n requests in status. Unknown statuses are ignored.
func (s *RequestStats) Add(status RequestStatus, n int) {
	if c := s.counter(status); c != nil {
		*c += n
		s.Total += n
	}
}

func (s RequestStats) Count(status RequestStatus) int {
	if c := s.counter(status); c != nil {
		return *c
	}
	return 0
}

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	ModelURL   *string   `json:"modelUrl"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`

	Sender   *AccountSummary `json:"sender,omitempty"`
	Receiver *AccountSummary `json:"receiver,omitempty"`
}

// ConversationHead is one row of the grouped conversation query.
type ConversationHead struct {
	PartnerID     string
	LastMessageAt time.Time
	UnreadCount   int
}

type Conversation struct {
	PartnerID     string         `json:"partnerId"`
	Partner       AccountSummary `json:"partner"`
	LastMessageAt time.Time      `json:"lastMessageAt"`
	UnreadCount   int            `json:"unreadCount"`
	LatestMessage Message        `json:"latestMessage"`
}

type Thread struct {
	Partner    AccountSummary `json:"partner"`
	Messages   []Message      `json:"messages"`
	Pagination Pagination     `json:"pagination"`
}

type Announcement struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Type      AnnouncementType `json:"type"`
	Priority  int              `json:"priority"`
	IsActive  bool             `json:"isActive"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type UserStats struct {
	TotalUsers     int `json:"totalUsers"`
	TotalCustomers int `json:"totalCustomers"`
	TotalMakers    int `json:"totalMakers"`
	ActiveUsers    int `json:"activeUsers"`
	InactiveUsers  int `json:"inactiveUsers"`
	RecentSignups  int `json:"recentSignups"`
}
