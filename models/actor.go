package models

// Account types carried in tokens.
const (
	ActorParent = "parent"
	ActorChild  = "child"
)

// Actor is the verified identity behind a request.
type Actor struct {
	ID   uint
	Type string
}

// IsParent reports whether the actor is a parent account.
func (a Actor) IsParent() bool { return a.Type == ActorParent }

// IsChild reports whether the actor is a child account.
func (a Actor) IsChild() bool { return a.Type == ActorChild }

// Resource is anything an actor may or may not touch.
type Resource interface {
	AccessibleBy(a Actor) bool
}

// AccessibleBy grants the owning parent and the child itself.
func (c Child) AccessibleBy(a Actor) bool {
	switch a.Type {
	case ActorParent:
		return c.ParentID == a.ID
	case ActorChild:
		return c.ID == a.ID
	}
	return false
}

// AccessibleBy grants the owning parent. The assigned child may read it but
// every habit mutation goes through a parent-only route.
func (h Habit) AccessibleBy(a Actor) bool {
	switch a.Type {
	case ActorParent:
		return h.ParentID == a.ID
	case ActorChild:
		return h.ChildID == a.ID
	}
	return false
}
