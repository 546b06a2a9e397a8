package repositories

import (
	"context"

	domain "github.com/hanko-field/naming/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}

// CharacterQuery narrows a character lookup. Empty fields do not filter.
type CharacterQuery struct {
	Elements domain.ElementSet
	Style    string
	Source   string
	Gender   domain.Gender
}

// CharacterListFilter selects a page of characters for browsing.
type CharacterListFilter struct {
	CharacterQuery
	Pagination domain.Pagination
}

// CharacterRepository is the read-only character and surname store consumed by the naming engine.
type CharacterRepository interface {
	// QueryByElements returns characters whose element is in the query set, in a stable order.
	// An empty element set matches every element.
	QueryByElements(ctx context.Context, query CharacterQuery) ([]domain.Character, error)
	// StrokeCountOf returns the Kangxi stroke count of a single character.
	StrokeCountOf(ctx context.Context, char string) (int, error)
	FindByChar(ctx context.Context, char string) (domain.Character, error)
	FindSurname(ctx context.Context, surname string) (domain.Surname, error)
	List(ctx context.Context, filter CharacterListFilter) (domain.CursorPage[domain.Character], error)
}

// HealthRepository reports dependency health for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
