package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/platform/pagination"
	"github.com/hanko-field/naming/internal/platform/textutil"
	"github.com/hanko-field/naming/internal/repositories"
)

var (
	// ErrCharacterCatalogInvalidInput indicates malformed lookup text or filters.
	ErrCharacterCatalogInvalidInput = errors.New("character_catalog: invalid input")
	// ErrCharacterCatalogNotFound indicates a character missing from the dataset.
	ErrCharacterCatalogNotFound = errors.New("character_catalog: character not found")
	// ErrCharacterCatalogUnavailable indicates the character store could not be read.
	ErrCharacterCatalogUnavailable = errors.New("character_catalog: service unavailable")
)

const maxCatalogPageSize = 100

// CharacterCatalogServiceDeps wires the character browser.
type CharacterCatalogServiceDeps struct {
	Characters repositories.CharacterRepository
	Logger     func(context.Context, string, map[string]any)
}

type characterCatalogService struct {
	characters repositories.CharacterRepository
	logger     func(context.Context, string, map[string]any)
}

var _ CharacterCatalogService = (*characterCatalogService)(nil)

// NewCharacterCatalogService constructs the read-only character catalog.
func NewCharacterCatalogService(deps CharacterCatalogServiceDeps) (CharacterCatalogService, error) {
	if deps.Characters == nil {
		return nil, errors.New("character_catalog: character repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &characterCatalogService{characters: deps.Characters, logger: logger}, nil
}

func (s *characterCatalogService) ListCharacters(ctx context.Context, filter CharacterListFilter) (domain.CursorPage[Character], error) {
	if _, ok := domain.ParseGender(string(filter.Gender)); !ok {
		return domain.CursorPage[Character]{}, fmt.Errorf("%w: unknown gender %q", ErrCharacterCatalogInvalidInput, filter.Gender)
	}
	page := filter.Pagination
	if page.PageSize < 0 {
		return domain.CursorPage[Character]{}, fmt.Errorf("%w: page size must be positive", ErrCharacterCatalogInvalidInput)
	}
	page.PageSize = min(page.PageSize, maxCatalogPageSize)

	result, err := s.characters.List(ctx, repositories.CharacterListFilter{
		CharacterQuery: repositories.CharacterQuery{
			Elements: domain.NewElementSet(filter.Elements...),
			Style:    textutil.NormalizeTag(filter.Style),
			Source:   textutil.NormalizeTag(filter.Source),
			Gender:   filter.Gender,
		},
		Pagination: page,
	})
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.CursorPage[Character]{}, fmt.Errorf("%w: %v", ErrCharacterCatalogInvalidInput, err)
		}
		return domain.CursorPage[Character]{}, s.translate(ctx, err)
	}
	return result, nil
}

func (s *characterCatalogService) StrokeCounts(ctx context.Context, text string) ([]int, error) {
	text = strings.TrimSpace(text)
	if !isHanText(text, 1, 4) {
		return nil, fmt.Errorf("%w: %q must be one to four Han characters", ErrCharacterCatalogInvalidInput, text)
	}
	if surname, err := s.characters.FindSurname(ctx, text); err == nil {
		return append([]int(nil), surname.Strokes...), nil
	}
	counts := make([]int, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		count, err := s.characters.StrokeCountOf(ctx, string(r))
		if err != nil {
			return nil, s.translate(ctx, err)
		}
		counts = append(counts, count)
	}
	return counts, nil
}

func (s *characterCatalogService) Pinyin(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if !isHanText(text, 1, 4) {
		return nil, fmt.Errorf("%w: %q must be one to four Han characters", ErrCharacterCatalogInvalidInput, text)
	}
	if surname, err := s.characters.FindSurname(ctx, text); err == nil {
		return append([]string(nil), surname.Pinyin...), nil
	}
	readings := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		character, err := s.characters.FindByChar(ctx, string(r))
		if err != nil {
			return nil, s.translate(ctx, err)
		}
		readings = append(readings, character.Pinyin)
	}
	return readings, nil
}

func (s *characterCatalogService) translate(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrCharacterCatalogNotFound, err)
	}
	s.logger(ctx, "character_catalog.repository_error", map[string]any{"error": err.Error()})
	return fmt.Errorf("%w: %v", ErrCharacterCatalogUnavailable, err)
}
