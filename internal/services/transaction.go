package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/okaimono/marketplace-backend/internal/data/repos"
	types "github.com/okaimono/marketplace-backend/internal/domain"
	"github.com/okaimono/marketplace-backend/internal/domain/inventory"
	"github.com/okaimono/marketplace-backend/internal/domain/trade"
	apperrors "github.com/okaimono/marketplace-backend/internal/pkg/errors"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
	"github.com/okaimono/marketplace-backend/internal/realtime"
)

type CreateTransactionRequest struct {
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	ItemIDs    []uuid.UUID
}

type CompleteTransactionRequest struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
}

type CancelTransactionRequest struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
}

type TransactionService interface {
	Create(ctx context.Context, req CreateTransactionRequest) (*types.UserTransaction, error)
	Get(ctx context.Context, transactionID, userID uuid.UUID) (*types.UserTransaction, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.UserTransaction, error)
	Complete(ctx context.Context, req CompleteTransactionRequest) (*types.UserTransaction, error)
	Cancel(ctx context.Context, req CancelTransactionRequest) (*types.UserTransaction, error)
}

// transactionService drives the peer transfer lock protocol. A Pending
// transaction holds every referenced instance in Locked status; complete
// hands ownership and possession to the receiver, cancel releases the lock
// with ownership unchanged.
//
// The instance batch and the transaction row live in different aggregates
// and are written by separate calls. Each mutating operation therefore
// carries an explicit compensation block: forward write, and on failure of
// the second write, best-effort reversal of the first before surfacing the
// original error. A failed reversal write is logged and swallowed.
type transactionService struct {
	log             *logger.Logger
	transactionRepo repos.TransactionRepo
	instanceRepo    repos.InstanceRepo
	notifier        Notifier
}

func NewTransactionService(
	log *logger.Logger,
	transactionRepo repos.TransactionRepo,
	instanceRepo repos.InstanceRepo,
	notifier Notifier,
) TransactionService {
	return &transactionService{
		log:             log.With("service", "TransactionService"),
		transactionRepo: transactionRepo,
		instanceRepo:    instanceRepo,
		notifier:        notifier,
	}
}

// Create locks the sender's instances and records a Pending transaction.
// Every item must exist, belong to the sender and be Active; a single
// offender fails the whole call before anything is written.
func (ts *transactionService) Create(ctx context.Context, req CreateTransactionRequest) (*types.UserTransaction, error) {
	if req.FromUserID == uuid.Nil || req.ToUserID == uuid.Nil {
		return nil, fmt.Errorf("both parties required: %w", apperrors.ErrInvalidArgument)
	}
	if req.FromUserID == req.ToUserID {
		return nil, fmt.Errorf("cannot transfer to yourself: %w", apperrors.ErrInvalidArgument)
	}
	if len(req.ItemIDs) == 0 {
		return nil, fmt.Errorf("at least one item required: %w", apperrors.ErrInvalidArgument)
	}

	instances, err := ts.instanceRepo.GetByIDs(ctx, nil, req.ItemIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch instances: %w", err)
	}
	byID := make(map[uuid.UUID]*types.ProductInstance, len(instances))
	for _, instance := range instances {
		byID[instance.ID] = instance
	}

	ordered := make([]*types.ProductInstance, 0, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		instance, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("instance %s: %w", id, apperrors.ErrNotFound)
		}
		if instance.OwnerID != req.FromUserID {
			return nil, fmt.Errorf("instance %s: %w", id, inventory.ErrNotOwned)
		}
		if instance.Status != inventory.InstanceStatusActive {
			return nil, fmt.Errorf("instance %s: %w", id, inventory.ErrNotActive)
		}
		ordered = append(ordered, instance)
	}

	now := time.Now().UTC()
	for _, instance := range ordered {
		if err := instance.Transition(inventory.InstanceStatusLocked, "pending transfer", now); err != nil {
			return nil, err
		}
	}
	if err := ts.instanceRepo.SaveBatch(ctx, nil, ordered); err != nil {
		return nil, fmt.Errorf("lock instances: %w", err)
	}

	txn := &types.UserTransaction{
		ID:         uuid.New(),
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		ItemIDs:    datatypes.JSONSlice[uuid.UUID](req.ItemIDs),
		Status:     trade.TransactionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := ts.transactionRepo.Create(ctx, nil, txn)
	if err != nil {
		// best-effort unlock; no real atomic transaction covers both writes
		ts.unlockInstances(ctx, ordered, "transfer creation failed", time.Now().UTC())
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	ts.publishEvent(ctx, realtime.EventTransactionCreated, created)
	return created, nil
}

func (ts *transactionService) Get(ctx context.Context, transactionID, userID uuid.UUID) (*types.UserTransaction, error) {
	txn, err := ts.transactionRepo.GetByID(ctx, nil, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.FromUserID != userID && txn.ToUserID != userID {
		// existence is not leaked to third parties
		return nil, fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	return txn, nil
}

func (ts *transactionService) List(ctx context.Context, userID uuid.UUID) ([]*types.UserTransaction, error) {
	return ts.transactionRepo.ListForUser(ctx, nil, userID)
}

// Complete hands every referenced instance to the receiver and unlocks it,
// then marks the transaction Completed. Only the receiver may accept.
// Instances that can no longer be found are skipped rather than failing
// the whole operation.
func (ts *transactionService) Complete(ctx context.Context, req CompleteTransactionRequest) (*types.UserTransaction, error) {
	txn, err := ts.transactionRepo.GetByID(ctx, nil, req.TransactionID)
	if err != nil {
		return nil, err
	}
	switch txn.Status {
	case trade.TransactionStatusCompleted:
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, trade.ErrTransactionCompleted)
	case trade.TransactionStatusCancelled:
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, trade.ErrTransactionCancelled)
	}
	if req.UserID != txn.ToUserID {
		return nil, fmt.Errorf("only the receiver may accept transaction %s: %w", txn.ID, apperrors.ErrPermissionDenied)
	}

	instances, err := ts.instanceRepo.GetByIDs(ctx, nil, txn.ItemIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch instances: %w", err)
	}

	now := time.Now().UTC()
	for _, instance := range instances {
		reason := inventory.TransferReasonTrade
		if instance.OwnerID == txn.ToUserID {
			// receiver already owns it; only possession moves
			reason = inventory.TransferReasonDelivery
		}
		instance.TransferTo(txn.ToUserID, txn.ToUserID, reason, now)
		// fulfillment-minted transfers reference instances never locked
		if instance.Status == inventory.InstanceStatusLocked {
			if err := instance.Transition(inventory.InstanceStatusActive, "transfer completed", now); err != nil {
				return nil, err
			}
		}
	}
	if err := ts.instanceRepo.SaveBatch(ctx, nil, instances); err != nil {
		return nil, fmt.Errorf("release instances: %w", err)
	}

	completedAt := time.Now().UTC()
	txn.Status = trade.TransactionStatusCompleted
	txn.CompletedAt = &completedAt
	txn.UpdatedAt = completedAt
	if err := ts.transactionRepo.Save(ctx, nil, txn); err != nil {
		ts.revertCompletion(ctx, txn, instances, time.Now().UTC())
		return nil, fmt.Errorf("save completed transaction: %w", err)
	}

	ts.publishEvent(ctx, realtime.EventTransactionCompleted, txn)
	return txn, nil
}

// Cancel releases the lock on every referenced instance with ownership
// unchanged and marks the transaction Cancelled. Either party may cancel;
// cancelling twice is a no-op returning the transaction unchanged.
func (ts *transactionService) Cancel(ctx context.Context, req CancelTransactionRequest) (*types.UserTransaction, error) {
	txn, err := ts.transactionRepo.GetByID(ctx, nil, req.TransactionID)
	if err != nil {
		return nil, err
	}
	switch txn.Status {
	case trade.TransactionStatusCancelled:
		return txn, nil
	case trade.TransactionStatusCompleted:
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, trade.ErrTransactionCompleted)
	}
	if req.UserID != txn.FromUserID && req.UserID != txn.ToUserID {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, apperrors.ErrPermissionDenied)
	}

	instances, err := ts.instanceRepo.GetByIDs(ctx, nil, txn.ItemIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch instances: %w", err)
	}

	now := time.Now().UTC()
	for _, instance := range instances {
		if instance.Status != inventory.InstanceStatusLocked {
			continue
		}
		if err := instance.Transition(inventory.InstanceStatusActive, "transfer cancelled", now); err != nil {
			return nil, err
		}
	}
	if err := ts.instanceRepo.SaveBatch(ctx, nil, instances); err != nil {
		return nil, fmt.Errorf("unlock instances: %w", err)
	}

	cancelledAt := time.Now().UTC()
	txn.Status = trade.TransactionStatusCancelled
	txn.CancelledAt = &cancelledAt
	txn.UpdatedAt = cancelledAt
	if err := ts.transactionRepo.Save(ctx, nil, txn); err != nil {
		ts.relockInstances(ctx, instances, time.Now().UTC())
		return nil, fmt.Errorf("save cancelled transaction: %w", err)
	}

	ts.publishEvent(ctx, realtime.EventTransactionCancelled, txn)
	return txn, nil
}

// unlockInstances reverses a create that could not record its transaction.
// Reversal failures are logged and swallowed: the instances stay Locked
// with no transaction referencing them, a known consistency risk that
// requires administrative repair.
func (ts *transactionService) unlockInstances(ctx context.Context, instances []*types.ProductInstance, reason string, at time.Time) {
	for _, instance := range instances {
		if err := instance.Transition(inventory.InstanceStatusActive, reason, at); err != nil {
			ts.log.Error("rollback transition failed", "instance_id", instance.ID, "error", err)
		}
	}
	if err := ts.instanceRepo.SaveBatch(ctx, nil, instances); err != nil {
		ts.log.Error("rollback save failed, instances left locked", "error", err)
	}
}

// revertCompletion puts instances back to the sender, Locked, after the
// transaction row could not be marked Completed.
func (ts *transactionService) revertCompletion(ctx context.Context, txn *types.UserTransaction, instances []*types.ProductInstance, at time.Time) {
	for _, instance := range instances {
		instance.TransferTo(txn.FromUserID, txn.FromUserID, inventory.TransferReasonAdminTransfer, at)
		if err := instance.Transition(inventory.InstanceStatusLocked, "transfer completion failed", at); err != nil {
			ts.log.Error("rollback transition failed", "instance_id", instance.ID, "error", err)
		}
	}
	if err := ts.instanceRepo.SaveBatch(ctx, nil, instances); err != nil {
		ts.log.Error("rollback save failed, instances left released", "error", err)
	}
}

// relockInstances reverses a cancel that could not record its transaction
// update.
func (ts *transactionService) relockInstances(ctx context.Context, instances []*types.ProductInstance, at time.Time) {
	for _, instance := range instances {
		if err := instance.Transition(inventory.InstanceStatusLocked, "transfer cancellation failed", at); err != nil {
			ts.log.Error("rollback transition failed", "instance_id", instance.ID, "error", err)
		}
	}
	if err := ts.instanceRepo.SaveBatch(ctx, nil, instances); err != nil {
		ts.log.Error("rollback save failed, instances left unlocked", "error", err)
	}
}

func (ts *transactionService) publishEvent(ctx context.Context, event string, txn *types.UserTransaction) {
	if ts.notifier == nil {
		return
	}
	data := map[string]any{
		"transaction_id": txn.ID.String(),
		"status":         string(txn.Status),
		"item_count":     len(txn.ItemIDs),
	}
	ts.notifier.Publish(ctx, realtime.Message{UserID: txn.FromUserID.String(), Event: event, Data: data})
	ts.notifier.Publish(ctx, realtime.Message{UserID: txn.ToUserID.String(), Event: event, Data: data})
}
