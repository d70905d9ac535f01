package trade

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

type OrderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, order *types.PurchaseOrder) (*types.PurchaseOrder, error)
	// GetForUser fetches an order only when userID is its creator or
	// receiver; anything else is reported as not-found.
	GetForUser(ctx context.Context, tx *gorm.DB, orderID, userID uuid.UUID) (*types.PurchaseOrder, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PurchaseOrder, error)
	Save(ctx context.Context, tx *gorm.DB, order *types.PurchaseOrder) error
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	repoLog := baseLog.With("repo", "OrderRepo")
	return &orderRepo{db: db, log: repoLog}
}

func (or *orderRepo) Create(ctx context.Context, tx *gorm.DB, order *types.PurchaseOrder) (*types.PurchaseOrder, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	if err := transaction.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (or *orderRepo) GetForUser(ctx context.Context, tx *gorm.DB, orderID, userID uuid.UUID) (*types.PurchaseOrder, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var order types.PurchaseOrder
	if err := transaction.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_order_item.position ASC")
		}).
		Preload("Items.LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_order_line_item.position ASC")
		}).
		Where("id = ? AND (creator_id = ? OR receiver_id = ?)", orderID, userID, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

func (or *orderRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PurchaseOrder, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.PurchaseOrder
	if err := transaction.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_order_item.position ASC")
		}).
		Preload("Items.LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_order_line_item.position ASC")
		}).
		Where("creator_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Save persists the order together with its items and line items.
func (or *orderRepo) Save(ctx context.Context, tx *gorm.DB, order *types.PurchaseOrder) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	return transaction.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(order).Error
}
