package identity

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks UserStore,OrganizationStore

import "context"

// UserStore is the persistence contract for users. Implementations return
// sentinel.ErrNotFound for missing records.
type UserStore interface {
	Save(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	TouchLastSeen(ctx context.Context, id string) error
}

// OrganizationStore is the persistence contract for organizations.
type OrganizationStore interface {
	Save(ctx context.Context, org Organization) error
	FindByID(ctx context.Context, id string) (Organization, error)
}
