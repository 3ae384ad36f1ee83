package app

import "sneaker_hub/internal/domain"

// IsOwner reports whether callerID is the identity that owns l.
func IsOwner(callerID string, l domain.Listing) bool {
	return callerID != "" && callerID == l.OwnerID
}
