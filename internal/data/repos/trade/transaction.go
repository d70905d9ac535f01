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

type TransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, txn *types.UserTransaction) (*types.UserTransaction, error)
	CreateBatch(ctx context.Context, tx *gorm.DB, txns []*types.UserTransaction) ([]*types.UserTransaction, error)
	GetByID(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) (*types.UserTransaction, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserTransaction, error)
	Save(ctx context.Context, tx *gorm.DB, txn *types.UserTransaction) error
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	repoLog := baseLog.With("repo", "TransactionRepo")
	return &transactionRepo{db: db, log: repoLog}
}

func (tr *transactionRepo) Create(ctx context.Context, tx *gorm.DB, txn *types.UserTransaction) (*types.UserTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if err := transaction.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (tr *transactionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, txns []*types.UserTransaction) ([]*types.UserTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if len(txns) == 0 {
		return txns, nil
	}
	if err := transaction.WithContext(ctx).Create(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (tr *transactionRepo) GetByID(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) (*types.UserTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.UserTransaction
	if err := transaction.WithContext(ctx).
		Where("id = ?", txnID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", txnID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.UserTransaction
	if err := transaction.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *transactionRepo) Save(ctx context.Context, tx *gorm.DB, txn *types.UserTransaction) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).Save(txn).Error
}
