package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	types "github.com/okaimono/marketplace-backend/internal/domain"
	"github.com/okaimono/marketplace-backend/internal/domain/catalog"
	"github.com/okaimono/marketplace-backend/internal/domain/inventory"
	"github.com/okaimono/marketplace-backend/internal/domain/trade"
	apperrors "github.com/okaimono/marketplace-backend/internal/pkg/errors"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

type orderEnv struct {
	store     *fakeStore
	orders    *fakeOrderRepo
	instances *fakeInstanceRepo
	txns      *fakeTransactionRepo
	variants  *fakeVariantRepo
	svc       OrderService
}

func newOrderEnv(t *testing.T) *orderEnv {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	store := newFakeStore()
	env := &orderEnv{
		store:     store,
		orders:    &fakeOrderRepo{store: store},
		instances: &fakeInstanceRepo{store: store},
		txns:      &fakeTransactionRepo{store: store},
		variants:  &fakeVariantRepo{store: store},
	}
	env.svc = NewOrderService(log, env.orders, env.instances, env.txns, env.variants, nil)
	return env
}

func (env *orderEnv) seedVariant(t *testing.T, amount int32, mysteryBox bool, itemsPerBox int) *types.ProductVariant {
	t.Helper()
	variant := &types.ProductVariant{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		Name:         fmt.Sprintf("variant-%s", uuid.NewString()[:8]),
		Price:        catalog.Price{Amount: amount, Currency: "JPY"},
		IsMysteryBox: mysteryBox,
		ItemsPerBox:  itemsPerBox,
	}
	env.store.putVariant(variant)
	return variant
}

func TestCreateOrderDefaultsReceiverToCreator(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.ReceiverID != creator {
		t.Fatalf("receiver: want=%s got=%s", creator, order.ReceiverID)
	}
	if order.Status != trade.OrderStatusIncomplete {
		t.Fatalf("status: want=%s got=%s", trade.OrderStatusIncomplete, order.Status)
	}
}

func TestAddItemExpandsLineItemsAndTotals(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if len(order.Items) != 1 {
		t.Fatalf("items: want=1 got=%d", len(order.Items))
	}
	item := order.Items[0]
	if item.Status != trade.OrderItemStatusPending {
		t.Fatalf("item status: want=%s got=%s", trade.OrderItemStatusPending, item.Status)
	}
	if len(item.LineItems) != 2 {
		t.Fatalf("line items: want=2 got=%d", len(item.LineItems))
	}
	for _, li := range item.LineItems {
		if li.OwnerID != creator {
			t.Fatalf("line item owner: want=%s got=%s", creator, li.OwnerID)
		}
	}
	if order.TotalPrice.Amount != 2000 {
		t.Fatalf("total: want=2000 got=%d", order.TotalPrice.Amount)
	}
}

func TestAddItemMysteryBoxAwaitsInput(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	box := env.seedVariant(t, 500, true, 3)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: box.ID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	item := order.Items[0]
	if item.Status != trade.OrderItemStatusAwaitingInput {
		t.Fatalf("item status: want=%s got=%s", trade.OrderItemStatusAwaitingInput, item.Status)
	}
	if len(item.LineItems) != 0 {
		t.Fatalf("line items before declaration: want=0 got=%d", len(item.LineItems))
	}
}

func TestSubmitMysteryBoxContents(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	box := env.seedVariant(t, 500, true, 2)
	inner := env.seedVariant(t, 0, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: box.ID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	itemID := order.Items[0].ID

	// quantity 2 boxes x 2 per box = 4 declared units required
	_, err = env.svc.SubmitMysteryBoxContents(context.Background(), SubmitMysteryBoxRequest{
		OrderID: order.ID, ItemID: itemID, UserID: creator,
		Contents: []MysteryBoxContent{{VariantID: inner.ID}},
	})
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("short declaration: want ErrInvalidArgument got %v", err)
	}

	contents := make([]MysteryBoxContent, 4)
	for i := range contents {
		contents[i] = MysteryBoxContent{VariantID: inner.ID}
	}
	order, err = env.svc.SubmitMysteryBoxContents(context.Background(), SubmitMysteryBoxRequest{
		OrderID: order.ID, ItemID: itemID, UserID: creator, Contents: contents,
	})
	if err != nil {
		t.Fatalf("SubmitMysteryBoxContents: %v", err)
	}

	item := order.Items[0]
	if item.Status != trade.OrderItemStatusPending {
		t.Fatalf("item status: want=%s got=%s", trade.OrderItemStatusPending, item.Status)
	}
	if len(item.LineItems) != 4 {
		t.Fatalf("line items: want=4 got=%d", len(item.LineItems))
	}
	for _, li := range item.LineItems {
		if li.VariantID != inner.ID {
			t.Fatalf("line item variant: want=%s got=%s", inner.ID, li.VariantID)
		}
		if li.OwnerID != creator {
			t.Fatalf("line item owner: want=%s got=%s", creator, li.OwnerID)
		}
	}

	// declaring twice must fail: the item is no longer awaiting input
	_, err = env.svc.SubmitMysteryBoxContents(context.Background(), SubmitMysteryBoxRequest{
		OrderID: order.ID, ItemID: itemID, UserID: creator, Contents: contents,
	})
	if !errors.Is(err, trade.ErrItemNotAwaitingInput) {
		t.Fatalf("second declaration: want ErrItemNotAwaitingInput got %v", err)
	}
}

func TestFulfillMintsInstancesIdempotently(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	totalBefore := order.TotalPrice.Amount

	first, err := env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator})
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if first.Status != trade.OrderStatusFulfilled {
		t.Fatalf("status: want=%s got=%s", trade.OrderStatusFulfilled, first.Status)
	}
	if first.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
	if first.TotalPrice.Amount != totalBefore {
		t.Fatalf("fulfillment must not change total: want=%d got=%d", totalBefore, first.TotalPrice.Amount)
	}
	if len(env.store.instances) != 2 {
		t.Fatalf("instances: want=2 got=%d", len(env.store.instances))
	}
	for _, instance := range env.store.instances {
		if instance.OwnerID != creator || instance.HolderID != creator {
			t.Fatalf("owner/holder: want=%s got owner=%s holder=%s", creator, instance.OwnerID, instance.HolderID)
		}
		if instance.Status != inventory.InstanceStatusActive {
			t.Fatalf("instance status: want=%s got=%s", inventory.InstanceStatusActive, instance.Status)
		}
	}

	firstIDs := make(map[uuid.UUID]bool)
	for _, item := range first.Items {
		for _, li := range item.LineItems {
			if !li.IsFulfilled() {
				t.Fatalf("line item %s not fulfilled", li.ID)
			}
			firstIDs[*li.InstanceID] = true
		}
	}

	second, err := env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator})
	if err != nil {
		t.Fatalf("second Fulfill: %v", err)
	}
	if second.Status != trade.OrderStatusFulfilled {
		t.Fatalf("second status: want=%s got=%s", trade.OrderStatusFulfilled, second.Status)
	}
	if len(env.store.instances) != 2 {
		t.Fatalf("instances after retry: want=2 got=%d", len(env.store.instances))
	}
	for _, item := range second.Items {
		for _, li := range item.LineItems {
			if !firstIDs[*li.InstanceID] {
				t.Fatalf("retry produced a different instance %s", *li.InstanceID)
			}
		}
	}
}

func TestFulfillRejectsUnresolvedMysteryBox(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)
	box := env.seedVariant(t, 500, true, 2)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 1,
	}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: box.ID, Quantity: 1,
	}); err != nil {
		t.Fatalf("AddItem box: %v", err)
	}

	_, err = env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator})
	if !errors.Is(err, trade.ErrItemNotPending) {
		t.Fatalf("want ErrItemNotPending got %v", err)
	}

	stored := env.store.orders[order.ID]
	if stored.Status != trade.OrderStatusIncomplete {
		t.Fatalf("order must stay incomplete, got %s", stored.Status)
	}
	if len(env.store.instances) != 0 {
		t.Fatalf("no instances may be minted, got %d", len(env.store.instances))
	}
}

func TestFulfillRecoversFromDuplicateInstance(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	// a concurrent fulfillment already minted the first line item
	li := order.Items[0].LineItems[0]
	prior := inventory.NewInstance(li.VariantID, li.OwnerID, order.ReceiverID, li.ID, order.CreatedAt)
	env.store.putInstance(prior)

	fulfilled, err := env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator})
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if len(env.store.instances) != 2 {
		t.Fatalf("instances: want=2 got=%d", len(env.store.instances))
	}
	got := fulfilled.Items[0].LineItems[0]
	if got.InstanceID == nil || *got.InstanceID != prior.ID {
		t.Fatalf("line item must adopt the existing instance %s, got %v", prior.ID, got.InstanceID)
	}
}

func TestFulfillGroupsTransfersByOwner(t *testing.T) {
	env := newOrderEnv(t)
	receiver := uuid.New()
	ownerA := uuid.New()
	ownerB := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: receiver})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: receiver, VariantID: variant.ID, Quantity: 4,
		Owners: []uuid.UUID{ownerA, ownerA, ownerB, receiver},
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	fulfilled, err := env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: receiver})
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	if len(env.store.transactions) != 2 {
		t.Fatalf("transactions: want=2 got=%d", len(env.store.transactions))
	}
	counts := make(map[uuid.UUID]int)
	for _, txn := range env.store.transactions {
		if txn.FromUserID != receiver {
			t.Fatalf("from: want=%s got=%s", receiver, txn.FromUserID)
		}
		if txn.Status != trade.TransactionStatusPending {
			t.Fatalf("txn status: want=%s got=%s", trade.TransactionStatusPending, txn.Status)
		}
		counts[txn.ToUserID] = len(txn.ItemIDs)
	}
	if counts[ownerA] != 2 || counts[ownerB] != 1 {
		t.Fatalf("grouping: want A=2 B=1 got %v", counts)
	}

	for _, li := range fulfilled.Items[0].LineItems {
		if li.OwnerID == receiver {
			if li.TransactionID != nil {
				t.Fatalf("receiver-owned line item must not join a transaction")
			}
			continue
		}
		if li.TransactionID == nil {
			t.Fatalf("line item for owner %s missing transaction id", li.OwnerID)
		}
	}
}

func TestFulfillSeparateReceiver(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	receiver := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator, ReceiverID: receiver})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	// the receiver fulfills on arrival
	if _, err = env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: receiver}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	if len(env.store.instances) != 1 {
		t.Fatalf("instances: want=1 got=%d", len(env.store.instances))
	}
	for _, instance := range env.store.instances {
		if instance.OwnerID != creator {
			t.Fatalf("owner: want=%s got=%s", creator, instance.OwnerID)
		}
		if instance.HolderID != receiver {
			t.Fatalf("holder: want=%s got=%s", receiver, instance.HolderID)
		}
	}
	if len(env.store.transactions) != 1 {
		t.Fatalf("transactions: want=1 got=%d", len(env.store.transactions))
	}
	for _, txn := range env.store.transactions {
		if txn.FromUserID != receiver || txn.ToUserID != creator {
			t.Fatalf("transaction parties: want %s->%s got %s->%s", receiver, creator, txn.FromUserID, txn.ToUserID)
		}
		if len(txn.ItemIDs) != 1 {
			t.Fatalf("transaction items: want=1 got=%d", len(txn.ItemIDs))
		}
	}
}

func TestFulfillRetryAfterTransactionBatchFailure(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	owner := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 2,
		Owners: []uuid.UUID{owner, owner},
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	env.txns.createBatchErr = errors.New("store down")
	if _, err = env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator}); err == nil {
		t.Fatalf("expected failure while transaction store is down")
	}

	// minted instances survived the checkpoint save, order stays retryable
	stored := env.store.orders[order.ID]
	if stored.Status != trade.OrderStatusIncomplete {
		t.Fatalf("order status after failure: want=%s got=%s", trade.OrderStatusIncomplete, stored.Status)
	}
	if len(env.store.instances) != 2 {
		t.Fatalf("instances after failure: want=2 got=%d", len(env.store.instances))
	}

	env.txns.createBatchErr = nil
	retried, err := env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator})
	if err != nil {
		t.Fatalf("retry Fulfill: %v", err)
	}
	if retried.Status != trade.OrderStatusFulfilled {
		t.Fatalf("retry status: want=%s got=%s", trade.OrderStatusFulfilled, retried.Status)
	}
	if len(env.store.instances) != 2 {
		t.Fatalf("retry minted duplicates: want=2 got=%d", len(env.store.instances))
	}
	if len(env.store.transactions) != 1 {
		t.Fatalf("transactions after retry: want=1 got=%d", len(env.store.transactions))
	}
}

func TestCancelThenFulfillFails(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 1,
	}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	cancelled, err := env.svc.Cancel(context.Background(), CancelOrderRequest{OrderID: order.ID, UserID: creator, Reason: "changed my mind"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != trade.OrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("cancelled order: status=%s cancelled_at=%v", cancelled.Status, cancelled.CancelledAt)
	}
	for _, item := range cancelled.Items {
		if item.Status != trade.OrderItemStatusCancelled {
			t.Fatalf("item status: want=%s got=%s", trade.OrderItemStatusCancelled, item.Status)
		}
	}

	if _, err = env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator}); !errors.Is(err, trade.ErrOrderCancelled) {
		t.Fatalf("fulfill after cancel: want ErrOrderCancelled got %v", err)
	}
}

func TestFulfillThenCancelFails(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 1,
	}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err = env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: creator}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	if _, err = env.svc.Cancel(context.Background(), CancelOrderRequest{OrderID: order.ID, UserID: creator}); !errors.Is(err, trade.ErrOrderCompleted) {
		t.Fatalf("cancel after fulfill: want ErrOrderCompleted got %v", err)
	}
}

func TestCancelTwiceKeepsTimestamp(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := env.svc.Cancel(context.Background(), CancelOrderRequest{OrderID: order.ID, UserID: creator, Reason: "first"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	second, err := env.svc.Cancel(context.Background(), CancelOrderRequest{OrderID: order.ID, UserID: creator, Reason: "second"})
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if !second.CancelledAt.Equal(*first.CancelledAt) {
		t.Fatalf("second cancel overwrote cancelled_at: %v vs %v", second.CancelledAt, first.CancelledAt)
	}
	if second.CancelReason != "first" {
		t.Fatalf("second cancel overwrote reason: %q", second.CancelReason)
	}
}

func TestAddItemAfterCancelFails(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	variant := env.seedVariant(t, 1000, false, 1)

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err = env.svc.Cancel(context.Background(), CancelOrderRequest{OrderID: order.ID, UserID: creator}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err = env.svc.AddItem(context.Background(), AddOrderItemRequest{
		OrderID: order.ID, UserID: creator, VariantID: variant.ID, Quantity: 1,
	}); !errors.Is(err, trade.ErrOrderCancelled) {
		t.Fatalf("add to cancelled order: want ErrOrderCancelled got %v", err)
	}
}

func TestOrderVisibilityScopedToParties(t *testing.T) {
	env := newOrderEnv(t)
	creator := uuid.New()
	stranger := uuid.New()

	order, err := env.svc.Create(context.Background(), CreateOrderRequest{UserID: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err = env.svc.Fulfill(context.Background(), FulfillOrderRequest{OrderID: order.ID, UserID: stranger}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("stranger fulfill: want ErrNotFound got %v", err)
	}
	if _, err = env.svc.Cancel(context.Background(), CancelOrderRequest{OrderID: order.ID, UserID: stranger}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("stranger cancel: want ErrNotFound got %v", err)
	}
}
