package queue

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-field/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
)

// Repository persists the full entry list under a single named key. There is
// no partial-write support: callers read the whole document, mutate it, and
// write the whole document back.
type Repository interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

type repository struct {
	db  *gorm.DB
	key string
}

// NewRepository wires the sqlite-backed document repository.
func NewRepository(db *gorm.DB, key string) (Repository, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "queue database required")
	}
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "queue storage key required")
	}
	return &repository{db: db, key: key}, nil
}

func (r *repository) Load(ctx context.Context) ([]Entry, error) {
	var row models.QueueDocument
	err := r.db.WithContext(ctx).First(&row, "key = ?", r.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading queue document")
	}

	var doc document
	if err := json.Unmarshal(row.Value, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decoding queue document")
	}
	return doc.Entries, nil
}

func (r *repository) Save(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	value, err := json.Marshal(newDocument(entries))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encoding queue document")
	}

	row := models.QueueDocument{Key: r.key, Value: value}
	err = r.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "writing queue document")
	}
	return nil
}
