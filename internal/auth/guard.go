package auth

import (
	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/model"
)

func RequireRole(account model.Account, roles ...model.Role) error {
	for _, role := range roles {
		if account.Role == role {
			return nil
		}
	}
	return apperr.Forbidden("Insufficient permissions")
}

func RequireOwnershipOrAdmin(account model.Account, ownerID string) error {
	if IsAdmin(account) || account.ID == ownerID {
		return nil
	}
	return apperr.Forbidden("Access denied")
}

func IsAdmin(account model.Account) bool {
	switch account.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCustomer, model.RoleMaker:
		return false
	default:
		return false
	}
}
