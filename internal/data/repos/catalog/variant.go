package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/okaimono/marketplace-backend/internal/domain"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

type VariantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, variants []*types.ProductVariant) ([]*types.ProductVariant, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, variantIDs []uuid.UUID) ([]*types.ProductVariant, error)
}

type variantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	repoLog := baseLog.With("repo", "VariantRepo")
	return &variantRepo{db: db, log: repoLog}
}

func (vr *variantRepo) Create(ctx context.Context, tx *gorm.DB, variants []*types.ProductVariant) ([]*types.ProductVariant, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}
	if len(variants) == 0 {
		return []*types.ProductVariant{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (vr *variantRepo) GetByIDs(ctx context.Context, tx *gorm.DB, variantIDs []uuid.UUID) ([]*types.ProductVariant, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var results []*types.ProductVariant
	if len(variantIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", variantIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
