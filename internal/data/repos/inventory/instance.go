package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/okaimono/marketplace-backend/internal/domain"
	apperrors "github.com/okaimono/marketplace-backend/internal/pkg/errors"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

type InstanceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, instance *types.ProductInstance) (*types.ProductInstance, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, instanceIDs []uuid.UUID) ([]*types.ProductInstance, error)
	GetByLineItemID(ctx context.Context, tx *gorm.DB, lineItemID uuid.UUID) (*types.ProductInstance, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.ProductInstance, error)
	Save(ctx context.Context, tx *gorm.DB, instance *types.ProductInstance) error
	SaveBatch(ctx context.Context, tx *gorm.DB, instances []*types.ProductInstance) error
}

type instanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstanceRepo(db *gorm.DB, baseLog *logger.Logger) InstanceRepo {
	repoLog := baseLog.With("repo", "InstanceRepo")
	return &instanceRepo{db: db, log: repoLog}
}

// Create inserts one instance. A unique violation on
// source_order_line_item_id is reported as errors.ErrDuplicateKey so
// fulfillment can recover by re-fetching the existing row.
func (ir *instanceRepo) Create(ctx context.Context, tx *gorm.DB, instance *types.ProductInstance) (*types.ProductInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if err := transaction.WithContext(ctx).Create(instance).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("instance for line item %s: %w", instance.SourceOrderLineItemID, apperrors.ErrDuplicateKey)
		}
		return nil, err
	}
	return instance, nil
}

func (ir *instanceRepo) GetByIDs(ctx context.Context, tx *gorm.DB, instanceIDs []uuid.UUID) ([]*types.ProductInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.ProductInstance
	if len(instanceIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", instanceIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *instanceRepo) GetByLineItemID(ctx context.Context, tx *gorm.DB, lineItemID uuid.UUID) (*types.ProductInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var result types.ProductInstance
	if err := transaction.WithContext(ctx).
		Where("source_order_line_item_id = ?", lineItemID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("instance for line item %s: %w", lineItemID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &result, nil
}

func (ir *instanceRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.ProductInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.ProductInstance
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *instanceRepo) Save(ctx context.Context, tx *gorm.DB, instance *types.ProductInstance) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	return transaction.WithContext(ctx).Save(instance).Error
}

// SaveBatch persists the given instances inside one DB transaction so a
// batch either fully succeeds or reports failure.
func (ir *instanceRepo) SaveBatch(ctx context.Context, tx *gorm.DB, instances []*types.ProductInstance) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if len(instances) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		for _, instance := range instances {
			if err := inner.Save(instance).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
