package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles. The zero value is invalid.
type Role int

const (
	RoleCustomer Role = iota + 1
	RoleMaker
	RoleAdmin
)

func ParseRole(value string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "CUSTOMER":
		return RoleCustomer, nil
	case "MAKER":
		return RoleMaker, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", value)
	}
}

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "CUSTOMER"
	case RoleMaker:
		return "MAKER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return ""
	}
}

func (r Role) Valid() bool {
	return r.String() != ""
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type RequestStatus string

const (
	StatusRequested RequestStatus = "REQUESTED"
	StatusAccepted  RequestStatus = "ACCEPTED"
	StatusPrinting  RequestStatus = "PRINTING"
	StatusCompleted RequestStatus = "COMPLETED"
	StatusDelivered RequestStatus = "DELIVERED"
	StatusCancelled RequestStatus = "CANCELLED"
	StatusRejected  RequestStatus = "REJECTED"
)

var AllRequestStatuses = []RequestStatus{
	StatusRequested,
	StatusAccepted,
	StatusPrinting,
	StatusCompleted,
	StatusDelivered,
	StatusCancelled,
	StatusRejected,
}

// ActiveRequestStatuses are the statuses that block account deletion and
// fill a maker's queue.
var ActiveRequestStatuses = []RequestStatus{StatusRequested, StatusAccepted, StatusPrinting}

func ParseRequestStatus(value string) (RequestStatus, bool) {
	candidate := RequestStatus(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range AllRequestStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyNormal Urgency = "Normal"
	UrgencyHigh   Urgency = "High"
)

func ParseUrgency(value string) (Urgency, bool) {
	switch Urgency(strings.TrimSpace(value)) {
	case UrgencyLow:
		return UrgencyLow, true
	case UrgencyNormal:
		return UrgencyNormal, true
	case UrgencyHigh:
		return UrgencyHigh, true
	}
	return "", false
}

// Rank orders urgencies for the maker queue; higher is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 3
	case UrgencyNormal:
		return 2
	case UrgencyLow:
		return 1
	}
	return 0
}

type MakerStatus string

const (
	MakerOnline  MakerStatus = "ONLINE"
	MakerOffline MakerStatus = "OFFLINE"
	MakerBusy    MakerStatus = "BUSY"
	MakerAway    MakerStatus = "AWAY"
)

type Complexity string

const (
	ComplexityBeginner     Complexity = "Beginner"
	ComplexityIntermediate Complexity = "Intermediate"
	ComplexityAdvanced     Complexity = "Advanced"
)

type AnnouncementType string

const (
	AnnouncementInfo    AnnouncementType = "INFO"
	AnnouncementWarning AnnouncementType = "WARNING"
	AnnouncementSuccess AnnouncementType = "SUCCESS"
	AnnouncementError   AnnouncementType = "ERROR"
)
