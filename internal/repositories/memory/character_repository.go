// Package memory serves reference data from an in-process snapshot. It is the
// store the generator reads synchronously on every request.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hanko-field/naming/internal/dataset"
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/platform/pagination"
	"github.com/hanko-field/naming/internal/repositories"
)

var _ repositories.CharacterRepository = (*CharacterRepository)(nil)

type snapshot struct {
	version    string
	characters []domain.Character
	index      map[string]int
	surnames   map[string]domain.Surname
}

// CharacterRepository answers character and surname lookups from a dataset snapshot.
// Replace swaps the snapshot atomically so readers never observe a partial dataset.
type CharacterRepository struct {
	current atomic.Pointer[snapshot]
}

// NewCharacterRepository builds a repository over the supplied dataset.
func NewCharacterRepository(ds dataset.Dataset) (*CharacterRepository, error) {
	repo := &CharacterRepository{}
	if err := repo.Replace(ds); err != nil {
		return nil, err
	}
	return repo, nil
}

// Replace installs a new dataset snapshot.
func (r *CharacterRepository) Replace(ds dataset.Dataset) error {
	if r == nil {
		return errors.New("character repository not initialised")
	}
	if len(ds.Characters) == 0 {
		return errors.New("character repository: dataset has no characters")
	}

	characters := append([]domain.Character(nil), ds.Characters...)
	// Most common characters first so bounded pair sampling sees them before rare ones.
	sort.SliceStable(characters, func(i, j int) bool {
		if characters[i].Frequency != characters[j].Frequency {
			return characters[i].Frequency > characters[j].Frequency
		}
		return characters[i].Char < characters[j].Char
	})

	snap := &snapshot{
		version:    ds.Version,
		characters: characters,
		index:      make(map[string]int, len(characters)),
		surnames:   make(map[string]domain.Surname, len(ds.Surnames)),
	}
	for idx, c := range characters {
		snap.index[c.Char] = idx
	}
	for _, s := range ds.Surnames {
		snap.surnames[s.Surname] = s
	}
	r.current.Store(snap)
	return nil
}

// Version returns the dataset version currently served.
func (r *CharacterRepository) Version() string {
	snap := r.load()
	if snap == nil {
		return ""
	}
	return snap.version
}

// Len returns the number of characters currently served.
func (r *CharacterRepository) Len() int {
	snap := r.load()
	if snap == nil {
		return 0
	}
	return len(snap.characters)
}

// QueryByElements implements repositories.CharacterRepository.
func (r *CharacterRepository) QueryByElements(ctx context.Context, query repositories.CharacterQuery) ([]domain.Character, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Character, 0, len(snap.characters))
	for _, c := range snap.characters {
		if matches(c, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

// StrokeCountOf implements repositories.CharacterRepository.
func (r *CharacterRepository) StrokeCountOf(ctx context.Context, char string) (int, error) {
	character, err := r.FindByChar(ctx, char)
	if err != nil {
		return 0, err
	}
	return character.StrokeCount, nil
}

// FindByChar implements repositories.CharacterRepository.
func (r *CharacterRepository) FindByChar(ctx context.Context, char string) (domain.Character, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return domain.Character{}, err
	}
	char = strings.TrimSpace(char)
	idx, ok := snap.index[char]
	if !ok {
		return domain.Character{}, &repositories.NotFoundError{Kind: "character", Key: char}
	}
	return snap.characters[idx], nil
}

// FindSurname implements repositories.CharacterRepository.
func (r *CharacterRepository) FindSurname(ctx context.Context, surname string) (domain.Surname, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return domain.Surname{}, err
	}
	surname = strings.TrimSpace(surname)
	found, ok := snap.surnames[surname]
	if !ok {
		return domain.Surname{}, &repositories.NotFoundError{Kind: "surname", Key: surname}
	}
	return found, nil
}

// List implements repositories.CharacterRepository. Pages follow the QueryByElements order.
func (r *CharacterRepository) List(ctx context.Context, filter repositories.CharacterListFilter) (domain.CursorPage[domain.Character], error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return domain.CursorPage[domain.Character]{}, err
	}

	limit := filter.Pagination.PageSize
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	start := 0
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeToken(token)
		if err != nil {
			return domain.CursorPage[domain.Character]{}, fmt.Errorf("character repository: %w", err)
		}
		idx, ok := snap.index[cursor.After]
		if !ok {
			return domain.CursorPage[domain.Character]{}, fmt.Errorf("character repository: %w: unknown cursor", pagination.ErrInvalidPageToken)
		}
		start = idx + 1
	}

	items := make([]domain.Character, 0, limit)
	nextToken := ""
	for idx := start; idx < len(snap.characters); idx++ {
		c := snap.characters[idx]
		if !matches(c, filter.CharacterQuery) {
			continue
		}
		if len(items) == limit {
			nextToken, err = pagination.EncodeToken(pagination.Cursor{After: items[len(items)-1].Char})
			if err != nil {
				return domain.CursorPage[domain.Character]{}, err
			}
			break
		}
		items = append(items, c)
	}

	return domain.CursorPage[domain.Character]{Items: items, NextPageToken: nextToken}, nil
}

func (r *CharacterRepository) load() *snapshot {
	if r == nil {
		return nil
	}
	return r.current.Load()
}

func (r *CharacterRepository) snapshot(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := r.load()
	if snap == nil {
		return nil, errors.New("character repository not initialised")
	}
	return snap, nil
}

func matches(c domain.Character, query repositories.CharacterQuery) bool {
	if len(query.Elements) > 0 && !query.Elements.Contains(c.Element) {
		return false
	}
	if query.Style != "" && !c.HasStyle(query.Style) {
		return false
	}
	if query.Source != "" && !c.HasSource(query.Source) {
		return false
	}
	return query.Gender.Accepts(c.Gender)
}
