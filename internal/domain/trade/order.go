package trade

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/okaimono/marketplace-backend/internal/domain/catalog"
)

type OrderStatus string

const (
	OrderStatusIncomplete OrderStatus = "incomplete"
	OrderStatusFulfilled  OrderStatus = "fulfilled"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type OrderItemStatus string

const (
	OrderItemStatusAwaitingInput OrderItemStatus = "awaiting_input"
	OrderItemStatusPending       OrderItemStatus = "pending"
	OrderItemStatusFulfilled     OrderItemStatus = "fulfilled"
	OrderItemStatusCancelled     OrderItemStatus = "cancelled"
)

var (
	ErrOrderCancelled = errors.New("order is cancelled")
	ErrOrderCompleted = errors.New("order is already completed")
	// ErrItemNotPending: fulfillment requires every item to have reached
	// Pending (mystery boxes must have their contents declared first).
	ErrItemNotPending       = errors.New("order item is not pending")
	ErrItemNotAwaitingInput = errors.New("order item is not awaiting input")
)

// PurchaseOrder is the aggregate root for a purchase. ReceiverID defaults to
// the creator; a different receiver means the receiver will physically hold
// fulfilled items destined for other owners (group buys).
type PurchaseOrder struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CreatorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"creator_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;index" json:"receiver_id"`

	Items []PurchaseOrderItem `gorm:"foreignKey:OrderID" json:"items"`

	ShippingAddress datatypes.JSON `gorm:"column:shipping_address" json:"shipping_address,omitempty"`

	TotalPrice catalog.Price `gorm:"embedded;embeddedPrefix:total_price_" json:"total_price"`

	Status       OrderStatus `gorm:"not null;column:status" json:"status"`
	CancelReason string      `gorm:"column:cancel_reason" json:"cancel_reason,omitempty"`

	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
}

func (PurchaseOrder) TableName() string { return "purchase_order" }

// PurchaseOrderItem is one purchased line: a variant times a quantity.
// Regular items are created Pending with their line items pre-expanded;
// mystery-box items stay AwaitingInput, with zero line items, until their
// contents are declared.
type PurchaseOrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	VariantID uuid.UUID `gorm:"type:uuid;not null;index" json:"variant_id"`

	// Position keeps item iteration deterministic across fetches.
	Position int `gorm:"not null;default:0;column:position" json:"position"`

	Status   OrderItemStatus `gorm:"not null;column:status" json:"status"`
	Quantity int             `gorm:"not null;column:quantity" json:"quantity"`

	UnitPrice *catalog.Price `gorm:"serializer:json;column:unit_price" json:"unit_price,omitempty"`

	LineItems []PurchaseOrderLineItem `gorm:"foreignKey:OrderItemID" json:"line_items"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PurchaseOrderItem) TableName() string { return "purchase_order_item" }

// PurchaseOrderLineItem is one unit of ownership pending instantiation. The
// target variant may differ from the item's purchased variant when the line
// item came out of a mystery box.
type PurchaseOrderLineItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrderItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"order_item_id"`
	VariantID   uuid.UUID `gorm:"type:uuid;not null" json:"variant_id"`

	// OwnerID is who the minted instance will belong to. For group buys this
	// can differ from both the creator and the receiver.
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	Position int `gorm:"not null;default:0;column:position" json:"position"`

	InstanceID    *uuid.UUID `gorm:"type:uuid;column:instance_id" json:"instance_id,omitempty"`
	FulfilledAt   *time.Time `gorm:"column:fulfilled_at" json:"fulfilled_at,omitempty"`
	TransactionID *uuid.UUID `gorm:"type:uuid;column:transaction_id" json:"transaction_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PurchaseOrderLineItem) TableName() string { return "purchase_order_line_item" }

// IsFulfilled holds iff the instance id and fulfillment timestamp are both
// set; fulfillment always sets them together.
func (li *PurchaseOrderLineItem) IsFulfilled() bool {
	return li.InstanceID != nil && li.FulfilledAt != nil
}
