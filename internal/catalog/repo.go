package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swanstudios/training-storefront/pkg/db/models"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
)

// Loader resolves catalog entries by id. The DB repository and the redis
// read-through cache both satisfy it, so services take the interface and
// tests inject fixtures.
type Loader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogEntry, error)
}

// Repository exposes persistence operations for catalog entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID loads a single catalog entry.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found")
		}
		return nil, err
	}
	return &entry, nil
}

// Create validates and inserts a catalog entry. Validation here is the
// write-time half of the defense against inconsistent session fields.
func (r *Repository) Create(ctx context.Context, entry *models.CatalogEntry) (*models.CatalogEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// Update validates and saves a catalog entry.
func (r *Repository) Update(ctx context.Context, entry *models.CatalogEntry) (*models.CatalogEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}
