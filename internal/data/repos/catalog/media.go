package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/okaimono/marketplace-backend/internal/domain"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

type MediaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, media []*types.ProductMedia) ([]*types.ProductMedia, error)
	ListByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductMedia, error)
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	repoLog := baseLog.With("repo", "MediaRepo")
	return &mediaRepo{db: db, log: repoLog}
}

func (mr *mediaRepo) Create(ctx context.Context, tx *gorm.DB, media []*types.ProductMedia) ([]*types.ProductMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if len(media) == 0 {
		return []*types.ProductMedia{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

func (mr *mediaRepo) ListByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*types.ProductMedia
	if err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
