package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/hanko-field/naming/internal/dataset"
	"github.com/hanko-field/naming/internal/platform/config"
	pfirestore "github.com/hanko-field/naming/internal/platform/firestore"
)

var _ dataset.Source = (*CharacterRepository)(nil)

// CharacterRepository stores the reference dataset in two collections keyed by the
// character and the surname. It is read in full at startup and served from memory.
type CharacterRepository struct {
	characters *pfirestore.BaseRepository[dataset.CharacterRecord]
	surnames   *pfirestore.BaseRepository[dataset.SurnameRecord]
}

// NewCharacterRepository constructs a Firestore-backed character repository.
func NewCharacterRepository(provider *pfirestore.Provider, cfg config.FirestoreConfig) (*CharacterRepository, error) {
	if provider == nil {
		return nil, errors.New("character repository: firestore provider is required")
	}
	if cfg.CharactersCollection == "" || cfg.SurnamesCollection == "" {
		return nil, errors.New("character repository: collection names are required")
	}
	return &CharacterRepository{
		characters: pfirestore.NewBaseRepository[dataset.CharacterRecord](provider, cfg.CharactersCollection, nil),
		surnames:   pfirestore.NewBaseRepository[dataset.SurnameRecord](provider, cfg.SurnamesCollection, nil),
	}, nil
}

// Name implements dataset.Source.
func (r *CharacterRepository) Name() string {
	if r == nil || r.characters == nil {
		return "firestore"
	}
	return "firestore:" + r.characters.Collection()
}

// Load implements dataset.Source. The version is the latest document update time.
func (r *CharacterRepository) Load(ctx context.Context) (dataset.Dataset, error) {
	if r == nil || r.characters == nil {
		return dataset.Dataset{}, errors.New("character repository not initialised")
	}

	charDocs, err := r.characters.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return dataset.Dataset{}, err
	}
	surnameDocs, err := r.surnames.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return dataset.Dataset{}, err
	}

	var latest time.Time
	characters := make([]dataset.CharacterRecord, 0, len(charDocs))
	for _, doc := range charDocs {
		record := doc.Data
		if record.Char == "" {
			record.Char = doc.ID
		}
		characters = append(characters, record)
		if doc.UpdateTime.After(latest) {
			latest = doc.UpdateTime
		}
	}
	surnames := make([]dataset.SurnameRecord, 0, len(surnameDocs))
	for _, doc := range surnameDocs {
		record := doc.Data
		if record.Surname == "" {
			record.Surname = doc.ID
		}
		surnames = append(surnames, record)
		if doc.UpdateTime.After(latest) {
			latest = doc.UpdateTime
		}
	}

	version := "firestore"
	if !latest.IsZero() {
		version = "firestore@" + latest.UTC().Format(time.RFC3339)
	}
	return dataset.Build(version, characters, surnames)
}

// Seed upserts every record of ds. Existing documents for other characters are left untouched.
func (r *CharacterRepository) Seed(ctx context.Context, ds dataset.Dataset) (int, int, error) {
	if r == nil || r.characters == nil {
		return 0, 0, errors.New("character repository not initialised")
	}
	characters, surnames := ds.Records()

	charValues := make(map[string]dataset.CharacterRecord, len(characters))
	for _, record := range characters {
		charValues[record.Char] = record
	}
	surnameValues := make(map[string]dataset.SurnameRecord, len(surnames))
	for _, record := range surnames {
		surnameValues[record.Surname] = record
	}

	writtenChars, err := r.characters.SetAll(ctx, charValues)
	if err != nil {
		return writtenChars, 0, fmt.Errorf("character repository: seed characters: %w", err)
	}
	writtenSurnames, err := r.surnames.SetAll(ctx, surnameValues)
	if err != nil {
		return writtenChars, writtenSurnames, fmt.Errorf("character repository: seed surnames: %w", err)
	}
	return writtenChars, writtenSurnames, nil
}
