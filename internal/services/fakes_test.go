package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/okaimono/marketplace-backend/internal/domain"
	apperrors "github.com/okaimono/marketplace-backend/internal/pkg/errors"
)

// fakeStore is shared in-memory state backing the fake repos. Repos hand
// out deep copies so service-side mutation is only visible after a save,
// mirroring a real store.
type fakeStore struct {
	mu           sync.Mutex
	orders       map[uuid.UUID]*types.PurchaseOrder
	instances    map[uuid.UUID]*types.ProductInstance
	transactions map[uuid.UUID]*types.UserTransaction
	variants     map[uuid.UUID]*types.ProductVariant
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:       make(map[uuid.UUID]*types.PurchaseOrder),
		instances:    make(map[uuid.UUID]*types.ProductInstance),
		transactions: make(map[uuid.UUID]*types.UserTransaction),
		variants:     make(map[uuid.UUID]*types.ProductVariant),
	}
}

func (s *fakeStore) putOrder(order *types.PurchaseOrder)          { s.orders[order.ID] = cloneOrder(order) }
func (s *fakeStore) putInstance(in *types.ProductInstance)        { s.instances[in.ID] = cloneInstance(in) }
func (s *fakeStore) putTransaction(txn *types.UserTransaction)    { s.transactions[txn.ID] = cloneTransaction(txn) }
func (s *fakeStore) putVariant(variant *types.ProductVariant)     { v := *variant; s.variants[variant.ID] = &v }

func cloneOrder(order *types.PurchaseOrder) *types.PurchaseOrder {
	c := *order
	c.Items = make([]types.PurchaseOrderItem, len(order.Items))
	for i, item := range order.Items {
		ci := item
		ci.LineItems = make([]types.PurchaseOrderLineItem, len(item.LineItems))
		copy(ci.LineItems, item.LineItems)
		c.Items[i] = ci
	}
	return &c
}

func cloneInstance(in *types.ProductInstance) *types.ProductInstance {
	c := *in
	c.TransferHistory = append(c.TransferHistory[:0:0], in.TransferHistory...)
	c.StatusHistory = append(c.StatusHistory[:0:0], in.StatusHistory...)
	return &c
}

func cloneTransaction(txn *types.UserTransaction) *types.UserTransaction {
	c := *txn
	c.ItemIDs = append(c.ItemIDs[:0:0], txn.ItemIDs...)
	return &c
}

type fakeOrderRepo struct {
	store *fakeStore

	saveCalls    int
	failSaveCall int // 1-based call index to fail on; 0 fails every call
	saveErr      error
}

func (r *fakeOrderRepo) Create(_ context.Context, _ *gorm.DB, order *types.PurchaseOrder) (*types.PurchaseOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.putOrder(order)
	return order, nil
}

func (r *fakeOrderRepo) GetForUser(_ context.Context, _ *gorm.DB, orderID, userID uuid.UUID) (*types.PurchaseOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[orderID]
	if !ok || (order.CreatorID != userID && order.ReceiverID != userID) {
		return nil, fmt.Errorf("order %s: %w", orderID, apperrors.ErrNotFound)
	}
	return cloneOrder(order), nil
}

func (r *fakeOrderRepo) ListForUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.PurchaseOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var results []*types.PurchaseOrder
	for _, order := range r.store.orders {
		if order.CreatorID == userID || order.ReceiverID == userID {
			results = append(results, cloneOrder(order))
		}
	}
	return results, nil
}

func (r *fakeOrderRepo) Save(_ context.Context, _ *gorm.DB, order *types.PurchaseOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.saveCalls++
	if r.saveErr != nil && (r.failSaveCall == 0 || r.saveCalls == r.failSaveCall) {
		return r.saveErr
	}
	r.store.putOrder(order)
	return nil
}

type fakeInstanceRepo struct {
	store *fakeStore

	createErr error

	saveBatchCalls    int
	failSaveBatchCall int
	saveBatchErr      error
}

func (r *fakeInstanceRepo) Create(_ context.Context, _ *gorm.DB, instance *types.ProductInstance) (*types.ProductInstance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.store.instances {
		if existing.SourceOrderLineItemID == instance.SourceOrderLineItemID {
			return nil, fmt.Errorf("instance for line item %s: %w", instance.SourceOrderLineItemID, apperrors.ErrDuplicateKey)
		}
	}
	r.store.putInstance(instance)
	return instance, nil
}

func (r *fakeInstanceRepo) GetByIDs(_ context.Context, _ *gorm.DB, instanceIDs []uuid.UUID) ([]*types.ProductInstance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var results []*types.ProductInstance
	for _, id := range instanceIDs {
		if instance, ok := r.store.instances[id]; ok {
			results = append(results, cloneInstance(instance))
		}
	}
	return results, nil
}

func (r *fakeInstanceRepo) GetByLineItemID(_ context.Context, _ *gorm.DB, lineItemID uuid.UUID) (*types.ProductInstance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, instance := range r.store.instances {
		if instance.SourceOrderLineItemID == lineItemID {
			return cloneInstance(instance), nil
		}
	}
	return nil, fmt.Errorf("instance for line item %s: %w", lineItemID, apperrors.ErrNotFound)
}

func (r *fakeInstanceRepo) ListByOwner(_ context.Context, _ *gorm.DB, ownerID uuid.UUID) ([]*types.ProductInstance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var results []*types.ProductInstance
	for _, instance := range r.store.instances {
		if instance.OwnerID == ownerID {
			results = append(results, cloneInstance(instance))
		}
	}
	return results, nil
}

func (r *fakeInstanceRepo) Save(_ context.Context, _ *gorm.DB, instance *types.ProductInstance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.putInstance(instance)
	return nil
}

func (r *fakeInstanceRepo) SaveBatch(_ context.Context, _ *gorm.DB, instances []*types.ProductInstance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.saveBatchCalls++
	if r.saveBatchErr != nil && (r.failSaveBatchCall == 0 || r.saveBatchCalls == r.failSaveBatchCall) {
		return r.saveBatchErr
	}
	for _, instance := range instances {
		r.store.putInstance(instance)
	}
	return nil
}

type fakeTransactionRepo struct {
	store *fakeStore

	createErr      error
	createBatchErr error
	saveErr        error
}

func (r *fakeTransactionRepo) Create(_ context.Context, _ *gorm.DB, txn *types.UserTransaction) (*types.UserTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.store.putTransaction(txn)
	return txn, nil
}

func (r *fakeTransactionRepo) CreateBatch(_ context.Context, _ *gorm.DB, txns []*types.UserTransaction) ([]*types.UserTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.createBatchErr != nil {
		return nil, r.createBatchErr
	}
	for _, txn := range txns {
		r.store.putTransaction(txn)
	}
	return txns, nil
}

func (r *fakeTransactionRepo) GetByID(_ context.Context, _ *gorm.DB, txnID uuid.UUID) (*types.UserTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	txn, ok := r.store.transactions[txnID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txnID, apperrors.ErrNotFound)
	}
	return cloneTransaction(txn), nil
}

func (r *fakeTransactionRepo) ListForUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.UserTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var results []*types.UserTransaction
	for _, txn := range r.store.transactions {
		if txn.FromUserID == userID || txn.ToUserID == userID {
			results = append(results, cloneTransaction(txn))
		}
	}
	return results, nil
}

func (r *fakeTransactionRepo) Save(_ context.Context, _ *gorm.DB, txn *types.UserTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.store.putTransaction(txn)
	return nil
}

type fakeVariantRepo struct {
	store *fakeStore
}

func (r *fakeVariantRepo) Create(_ context.Context, _ *gorm.DB, variants []*types.ProductVariant) ([]*types.ProductVariant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, variant := range variants {
		r.store.putVariant(variant)
	}
	return variants, nil
}

func (r *fakeVariantRepo) GetByIDs(_ context.Context, _ *gorm.DB, variantIDs []uuid.UUID) ([]*types.ProductVariant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var results []*types.ProductVariant
	for _, id := range variantIDs {
		if variant, ok := r.store.variants[id]; ok {
			v := *variant
			results = append(results, &v)
		}
	}
	return results, nil
}
