package services

import "github.com/brighterbites/backend/models"

// Authorize is the single ownership check run before any read or mutation of
// child data. Every resource must be accessible by the actor.
func Authorize(actor models.Actor, resources ...models.Resource) error {
	if actor.ID == 0 {
		return ErrNotAuthorized
	}
	for _, r := range resources {
		if r == nil || !r.AccessibleBy(actor) {
			return ErrNotAuthorized
		}
	}
	return nil
}

// AuthorizeParent is Authorize restricted to parent actors, for mutations.
func AuthorizeParent(actor models.Actor, resources ...models.Resource) error {
	if !actor.IsParent() {
		return ErrNotAuthorized
	}
	return Authorize(actor, resources...)
}
