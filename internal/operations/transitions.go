package operations

import (
	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/model"
)

var transitionTable = map[model.RequestStatus][]model.RequestStatus{
	model.StatusRequested: {model.StatusAccepted, model.StatusRejected, model.StatusCancelled},
	model.StatusAccepted:  {model.StatusPrinting, model.StatusCancelled},
	model.StatusPrinting:  {model.StatusCompleted, model.StatusCancelled},
	model.StatusCompleted: {model.StatusDelivered},
	model.StatusDelivered: {},
	model.StatusCancelled: {},
	model.StatusRejected:  {},
}

var makerTargets = map[model.RequestStatus]bool{
	model.StatusAccepted:  true,
	model.StatusPrinting:  true,
	model.StatusCompleted: true,
	model.StatusRejected:  true,
}

func CanTransition(from, to model.RequestStatus) bool {
	for _, next := range transitionTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from from in one step.
func NextStatuses(from model.RequestStatus) []model.RequestStatus {
	return append([]model.RequestStatus(nil), transitionTable[from]...)
}

func IsTerminal(status model.RequestStatus) bool {
	next, ok := transitionTable[status]
	return ok && len(next) == 0
}

// authorizeTransition decides whether caller may ask for target on pr. It
// does not consult the transition table.
func authorizeTransition(caller model.Account, pr model.PrintRequest, target model.RequestStatus) error {
	switch caller.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleMaker:
		if caller.ID == pr.MakerID && makerTargets[target] {
			return nil
		}
	case model.RoleCustomer:
		if caller.ID == pr.CustomerID && target == model.StatusCancelled && pr.Status == model.StatusRequested {
			return nil
		}
	}
	return apperr.Forbidden("Not authorized to update this request")
}

func checkTransition(from, to model.RequestStatus) error {
	if !CanTransition(from, to) {
		return apperr.InvalidTransition(string(from), string(to))
	}
	return nil
}
