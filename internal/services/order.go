package services

import (
	"context"
	"errors"
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

type CreateOrderRequest struct {
	UserID          uuid.UUID
	ReceiverID      uuid.UUID // uuid.Nil means the creator receives
	ShippingAddress datatypes.JSON
}

type AddOrderItemRequest struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	VariantID uuid.UUID
	Quantity  int
	// Owners optionally designates, per unit, who the minted instance will
	// belong to (group buys). Empty means every unit belongs to the creator.
	// When set, its length must equal Quantity.
	Owners []uuid.UUID
}

// MysteryBoxContent declares one concrete unit pulled out of a mystery box.
type MysteryBoxContent struct {
	VariantID uuid.UUID
	OwnerID   uuid.UUID // uuid.Nil means the order's creator
}

type SubmitMysteryBoxRequest struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	UserID   uuid.UUID
	Contents []MysteryBoxContent
}

type FulfillOrderRequest struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
}

type CancelOrderRequest struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Reason  string
}

type OrderService interface {
	Create(ctx context.Context, req CreateOrderRequest) (*types.PurchaseOrder, error)
	Get(ctx context.Context, orderID, userID uuid.UUID) (*types.PurchaseOrder, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.PurchaseOrder, error)
	AddItem(ctx context.Context, req AddOrderItemRequest) (*types.PurchaseOrder, error)
	SubmitMysteryBoxContents(ctx context.Context, req SubmitMysteryBoxRequest) (*types.PurchaseOrder, error)
	Fulfill(ctx context.Context, req FulfillOrderRequest) (*types.PurchaseOrder, error)
	Cancel(ctx context.Context, req CancelOrderRequest) (*types.PurchaseOrder, error)
}

// orderService owns the order lifecycle: assembly, mystery-box resolution,
// fulfillment into owned instances, transfer grouping and cancellation.
//
// Fulfillment spans three aggregates (order, instances, transactions) with
// no cross-aggregate DB transaction; consistency comes from the unique
// source_order_line_item_id constraint plus re-entrancy (every step skips
// work that is already done), so a failed call can simply be retried.
type orderService struct {
	log             *logger.Logger
	orderRepo       repos.OrderRepo
	instanceRepo    repos.InstanceRepo
	transactionRepo repos.TransactionRepo
	variantRepo     repos.VariantRepo
	notifier        Notifier
}

func NewOrderService(
	log *logger.Logger,
	orderRepo repos.OrderRepo,
	instanceRepo repos.InstanceRepo,
	transactionRepo repos.TransactionRepo,
	variantRepo repos.VariantRepo,
	notifier Notifier,
) OrderService {
	return &orderService{
		log:             log.With("service", "OrderService"),
		orderRepo:       orderRepo,
		instanceRepo:    instanceRepo,
		transactionRepo: transactionRepo,
		variantRepo:     variantRepo,
		notifier:        notifier,
	}
}

func (os *orderService) Create(ctx context.Context, req CreateOrderRequest) (*types.PurchaseOrder, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("creator required: %w", apperrors.ErrInvalidArgument)
	}
	receiver := req.ReceiverID
	if receiver == uuid.Nil {
		receiver = req.UserID
	}

	now := time.Now().UTC()
	order := &types.PurchaseOrder{
		ID:              uuid.New(),
		CreatorID:       req.UserID,
		ReceiverID:      receiver,
		ShippingAddress: req.ShippingAddress,
		Status:          trade.OrderStatusIncomplete,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return os.orderRepo.Create(ctx, nil, order)
}

func (os *orderService) Get(ctx context.Context, orderID, userID uuid.UUID) (*types.PurchaseOrder, error) {
	return os.orderRepo.GetForUser(ctx, nil, orderID, userID)
}

func (os *orderService) List(ctx context.Context, userID uuid.UUID) ([]*types.PurchaseOrder, error) {
	return os.orderRepo.ListForUser(ctx, nil, userID)
}

func (os *orderService) AddItem(ctx context.Context, req AddOrderItemRequest) (*types.PurchaseOrder, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("quantity must be positive: %w", apperrors.ErrInvalidArgument)
	}
	if len(req.Owners) > 0 && len(req.Owners) != req.Quantity {
		return nil, fmt.Errorf("owners must match quantity: %w", apperrors.ErrInvalidArgument)
	}

	order, err := os.orderRepo.GetForUser(ctx, nil, req.OrderID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireIncomplete(order); err != nil {
		return nil, err
	}

	variant, err := os.getVariant(ctx, req.VariantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := types.PurchaseOrderItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		VariantID: variant.ID,
		Position:  len(order.Items),
		Quantity:  req.Quantity,
		UnitPrice: &variant.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if variant.IsMysteryBox {
		// contents unknown until declared; no line items yet
		item.Status = trade.OrderItemStatusAwaitingInput
	} else {
		item.Status = trade.OrderItemStatusPending
		for i := 0; i < req.Quantity; i++ {
			owner := order.CreatorID
			if len(req.Owners) > 0 {
				owner = req.Owners[i]
			}
			item.LineItems = append(item.LineItems, types.PurchaseOrderLineItem{
				ID:          uuid.New(),
				OrderItemID: item.ID,
				VariantID:   variant.ID,
				OwnerID:     owner,
				Position:    i,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
	}

	order.Items = append(order.Items, item)
	order.TotalPrice = order.TotalPrice.AddUnits(variant.Price, req.Quantity)
	order.UpdatedAt = now

	if err := os.orderRepo.Save(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	return order, nil
}

func (os *orderService) SubmitMysteryBoxContents(ctx context.Context, req SubmitMysteryBoxRequest) (*types.PurchaseOrder, error) {
	order, err := os.orderRepo.GetForUser(ctx, nil, req.OrderID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireIncomplete(order); err != nil {
		return nil, err
	}

	var item *types.PurchaseOrderItem
	for i := range order.Items {
		if order.Items[i].ID == req.ItemID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("order item %s: %w", req.ItemID, apperrors.ErrNotFound)
	}
	if item.Status != trade.OrderItemStatusAwaitingInput {
		return nil, fmt.Errorf("order item %s: %w", item.ID, trade.ErrItemNotAwaitingInput)
	}

	variant, err := os.getVariant(ctx, item.VariantID)
	if err != nil {
		return nil, err
	}
	if !variant.IsMysteryBox {
		return nil, fmt.Errorf("variant %s is not a mystery box: %w", variant.ID, apperrors.ErrInvalidArgument)
	}
	expected := item.Quantity * variant.ItemsPerBox
	if len(req.Contents) != expected {
		return nil, fmt.Errorf("mystery box contents: want %d units got %d: %w", expected, len(req.Contents), apperrors.ErrInvalidArgument)
	}

	declared := make([]uuid.UUID, 0, len(req.Contents))
	for _, c := range req.Contents {
		declared = append(declared, c.VariantID)
	}
	if err := os.requireVariants(ctx, declared); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i, c := range req.Contents {
		owner := c.OwnerID
		if owner == uuid.Nil {
			owner = order.CreatorID
		}
		item.LineItems = append(item.LineItems, types.PurchaseOrderLineItem{
			ID:          uuid.New(),
			OrderItemID: item.ID,
			VariantID:   c.VariantID,
			OwnerID:     owner,
			Position:    i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	item.Status = trade.OrderItemStatusPending
	item.UpdatedAt = now
	order.UpdatedAt = now

	if err := os.orderRepo.Save(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	return order, nil
}

// Fulfill turns every unfulfilled line item into an owned instance exactly
// once, then groups pending hand-offs into peer transactions. The operation
// is idempotent at every level: a Fulfilled order is returned as-is,
// fulfilled line items are skipped, and a concurrent or retried mint is
// recovered through the line-item unique key.
func (os *orderService) Fulfill(ctx context.Context, req FulfillOrderRequest) (*types.PurchaseOrder, error) {
	order, err := os.orderRepo.GetForUser(ctx, nil, req.OrderID, req.UserID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case trade.OrderStatusFulfilled:
		return order, nil
	case trade.OrderStatusCancelled:
		return nil, fmt.Errorf("order %s: %w", order.ID, trade.ErrOrderCancelled)
	}

	// Fulfilled items are tolerated: a retry after a partial failure finds
	// the items it already processed. Anything still AwaitingInput (or
	// Cancelled) blocks the whole order.
	for i := range order.Items {
		status := order.Items[i].Status
		if status != trade.OrderItemStatusPending && status != trade.OrderItemStatusFulfilled {
			return nil, fmt.Errorf("order item %s in status %s: %w", order.Items[i].ID, status, trade.ErrItemNotPending)
		}
	}

	now := time.Now().UTC()
	for i := range order.Items {
		item := &order.Items[i]
		for j := range item.LineItems {
			li := &item.LineItems[j]
			if li.IsFulfilled() {
				continue
			}

			candidate := inventory.NewInstance(li.VariantID, li.OwnerID, order.ReceiverID, li.ID, now)
			instance, err := os.instanceRepo.Create(ctx, nil, candidate)
			if err != nil {
				if errors.Is(err, apperrors.ErrDuplicateKey) {
					// a concurrent or retried fulfillment minted it first
					instance, err = os.instanceRepo.GetByLineItemID(ctx, nil, li.ID)
					if err != nil {
						return nil, fmt.Errorf("recover instance for line item %s: %w", li.ID, err)
					}
				} else {
					return nil, fmt.Errorf("create instance for line item %s: %w", li.ID, err)
				}
			}

			instanceID := instance.ID
			fulfilledAt := instance.CreatedAt
			li.InstanceID = &instanceID
			li.FulfilledAt = &fulfilledAt
			li.UpdatedAt = now
		}
		item.Status = trade.OrderItemStatusFulfilled
		item.UpdatedAt = now
	}

	// Checkpoint fulfillment progress before creating transactions so a
	// crash between the two steps cannot lose minted instances.
	order.UpdatedAt = now
	if err := os.orderRepo.Save(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("save fulfilled items: %w", err)
	}

	transactions := groupTransfers(order, now)
	if len(transactions) > 0 {
		if _, err := os.transactionRepo.CreateBatch(ctx, nil, transactions); err != nil {
			return nil, fmt.Errorf("create transfer transactions: %w", err)
		}
		assignTransactionIDs(order, transactions, now)
	}

	completedAt := time.Now().UTC()
	order.Status = trade.OrderStatusFulfilled
	order.CompletedAt = &completedAt
	order.UpdatedAt = completedAt
	if err := os.orderRepo.Save(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("save fulfilled order: %w", err)
	}

	os.publishOrderEvent(ctx, realtime.EventOrderFulfilled, order)
	for _, txn := range transactions {
		os.publishTransactionEvent(ctx, realtime.EventTransactionCreated, txn)
	}
	return order, nil
}

// Cancel rejects anything but an Incomplete order, except that cancelling
// twice is a no-op returning the already-cancelled order unchanged.
func (os *orderService) Cancel(ctx context.Context, req CancelOrderRequest) (*types.PurchaseOrder, error) {
	order, err := os.orderRepo.GetForUser(ctx, nil, req.OrderID, req.UserID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case trade.OrderStatusCancelled:
		return order, nil
	case trade.OrderStatusFulfilled:
		return nil, fmt.Errorf("order %s: %w", order.ID, trade.ErrOrderCompleted)
	}

	now := time.Now().UTC()
	order.Status = trade.OrderStatusCancelled
	order.CancelReason = req.Reason
	order.CancelledAt = &now
	order.UpdatedAt = now
	for i := range order.Items {
		// Incomplete orders cannot hold Fulfilled items; skip defensively
		// if one ever appears.
		if order.Items[i].Status == trade.OrderItemStatusFulfilled {
			continue
		}
		order.Items[i].Status = trade.OrderItemStatusCancelled
		order.Items[i].UpdatedAt = now
	}

	if err := os.orderRepo.Save(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("save cancelled order: %w", err)
	}

	os.publishOrderEvent(ctx, realtime.EventOrderCancelled, order)
	return order, nil
}

// groupTransfers partitions fulfilled line items by their designated owner
// and emits one Pending transaction per owner that is not the receiver:
// the receiver is physically holding items it does not own, and the
// transaction formalizes the pending hand-off. Group order follows first
// encounter, item order follows line-item order, so output is
// deterministic for a deterministic input.
func groupTransfers(order *types.PurchaseOrder, now time.Time) []*types.UserTransaction {
	grouped := make(map[uuid.UUID][]uuid.UUID)
	var owners []uuid.UUID

	for i := range order.Items {
		for j := range order.Items[i].LineItems {
			li := &order.Items[i].LineItems[j]
			if !li.IsFulfilled() {
				continue
			}
			if li.OwnerID == order.ReceiverID {
				continue
			}
			if _, seen := grouped[li.OwnerID]; !seen {
				owners = append(owners, li.OwnerID)
			}
			grouped[li.OwnerID] = append(grouped[li.OwnerID], *li.InstanceID)
		}
	}

	transactions := make([]*types.UserTransaction, 0, len(owners))
	for _, owner := range owners {
		transactions = append(transactions, &types.UserTransaction{
			ID:         uuid.New(),
			FromUserID: order.ReceiverID,
			ToUserID:   owner,
			ItemIDs:    grouped[owner],
			Status:     trade.TransactionStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return transactions
}

func assignTransactionIDs(order *types.PurchaseOrder, transactions []*types.UserTransaction, now time.Time) {
	byOwner := make(map[uuid.UUID]uuid.UUID, len(transactions))
	for _, txn := range transactions {
		byOwner[txn.ToUserID] = txn.ID
	}
	for i := range order.Items {
		for j := range order.Items[i].LineItems {
			li := &order.Items[i].LineItems[j]
			if !li.IsFulfilled() || li.OwnerID == order.ReceiverID {
				continue
			}
			if txnID, ok := byOwner[li.OwnerID]; ok {
				id := txnID
				li.TransactionID = &id
				li.UpdatedAt = now
			}
		}
	}
}

func requireIncomplete(order *types.PurchaseOrder) error {
	switch order.Status {
	case trade.OrderStatusCancelled:
		return fmt.Errorf("order %s: %w", order.ID, trade.ErrOrderCancelled)
	case trade.OrderStatusFulfilled:
		return fmt.Errorf("order %s: %w", order.ID, trade.ErrOrderCompleted)
	}
	return nil
}

func (os *orderService) getVariant(ctx context.Context, variantID uuid.UUID) (*types.ProductVariant, error) {
	variants, err := os.variantRepo.GetByIDs(ctx, nil, []uuid.UUID{variantID})
	if err != nil {
		return nil, fmt.Errorf("fetch variant: %w", err)
	}
	if len(variants) == 0 || variants[0] == nil {
		return nil, fmt.Errorf("variant %s: %w", variantID, apperrors.ErrNotFound)
	}
	return variants[0], nil
}

func (os *orderService) requireVariants(ctx context.Context, variantIDs []uuid.UUID) error {
	unique := make(map[uuid.UUID]struct{}, len(variantIDs))
	distinct := make([]uuid.UUID, 0, len(variantIDs))
	for _, id := range variantIDs {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		distinct = append(distinct, id)
	}
	variants, err := os.variantRepo.GetByIDs(ctx, nil, distinct)
	if err != nil {
		return fmt.Errorf("fetch declared variants: %w", err)
	}
	found := make(map[uuid.UUID]struct{}, len(variants))
	for _, v := range variants {
		found[v.ID] = struct{}{}
	}
	for _, id := range distinct {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("declared variant %s: %w", id, apperrors.ErrNotFound)
		}
	}
	return nil
}

func (os *orderService) publishOrderEvent(ctx context.Context, event string, order *types.PurchaseOrder) {
	if os.notifier == nil {
		return
	}
	data := map[string]any{"order_id": order.ID.String(), "status": string(order.Status)}
	os.notifier.Publish(ctx, realtime.Message{UserID: order.CreatorID.String(), Event: event, Data: data})
	if order.ReceiverID != order.CreatorID {
		os.notifier.Publish(ctx, realtime.Message{UserID: order.ReceiverID.String(), Event: event, Data: data})
	}
}

func (os *orderService) publishTransactionEvent(ctx context.Context, event string, txn *types.UserTransaction) {
	if os.notifier == nil {
		return
	}
	data := map[string]any{
		"transaction_id": txn.ID.String(),
		"status":         string(txn.Status),
		"item_count":     len(txn.ItemIDs),
	}
	os.notifier.Publish(ctx, realtime.Message{UserID: txn.FromUserID.String(), Event: event, Data: data})
	os.notifier.Publish(ctx, realtime.Message{UserID: txn.ToUserID.String(), Event: event, Data: data})
}
