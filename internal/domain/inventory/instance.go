package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusLocked    InstanceStatus = "locked"
	InstanceStatusConsumed  InstanceStatus = "consumed"
	InstanceStatusNotFound  InstanceStatus = "not_found"
	InstanceStatusDestroyed InstanceStatus = "destroyed"
)

type TransferReason string

const (
	TransferReasonPurchase      TransferReason = "purchase"
	TransferReasonDelivery      TransferReason = "delivery"
	TransferReasonTrade         TransferReason = "trade"
	TransferReasonGift          TransferReason = "gift"
	TransferReasonAdminTransfer TransferReason = "admin_transfer"
)

var (
	ErrNotActive      = errors.New("instance is not active")
	ErrNotOwned       = errors.New("instance is not owned by the requester")
	ErrNotHeldByOwner = errors.New("instance is not held by its owner")
)

// instanceTransitions enumerates the legal status edges. Consumed, NotFound
// and Destroyed are terminal; Locked only ever returns to Active (either on
// transaction cancel, or on completion after ownership moved).
var instanceTransitions = map[InstanceStatus][]InstanceStatus{
	InstanceStatusActive: {
		InstanceStatusLocked,
		InstanceStatusConsumed,
		InstanceStatusNotFound,
		InstanceStatusDestroyed,
	},
	InstanceStatusLocked: {
		InstanceStatusActive,
	},
}

func (s InstanceStatus) CanTransitionTo(to InstanceStatus) bool {
	for _, allowed := range instanceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransferRecord is one append-only entry in an instance's ownership history.
type TransferRecord struct {
	FromOwnerID  *uuid.UUID     `json:"from_owner_id,omitempty"`
	ToOwnerID    uuid.UUID      `json:"to_owner_id"`
	FromHolderID *uuid.UUID     `json:"from_holder_id,omitempty"`
	ToHolderID   uuid.UUID      `json:"to_holder_id"`
	Reason       TransferReason `json:"reason"`
	At           time.Time      `json:"at"`
}

// StatusRecord is one append-only entry in an instance's status history.
type StatusRecord struct {
	Status InstanceStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
	At     time.Time      `json:"at"`
}

// ProductInstance is one physically or logically distinct unit of a product
// variant. OwnerID is the legal owner; HolderID is whoever physically has the
// item right now. The two diverge during shipment and pending peer transfers.
type ProductInstance struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VariantID uuid.UUID `gorm:"type:uuid;not null;index" json:"variant_id"`

	OwnerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	HolderID uuid.UUID `gorm:"type:uuid;not null;index" json:"holder_id"`

	Status InstanceStatus `gorm:"not null;column:status" json:"status"`

	// SourceOrderLineItemID is the natural key of fulfillment: at most one
	// instance may ever be minted per order line item.
	SourceOrderLineItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:source_order_line_item_id" json:"source_order_line_item_id"`

	TransferHistory datatypes.JSONSlice[TransferRecord] `gorm:"column:transfer_history" json:"transfer_history"`
	StatusHistory   datatypes.JSONSlice[StatusRecord]   `gorm:"column:status_history" json:"status_history"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProductInstance) TableName() string { return "product_instance" }

// NewInstance mints an instance for a fulfilled order line item, seeding the
// purchase transfer entry and the initial Active status entry.
func NewInstance(variantID, ownerID, holderID, sourceLineItemID uuid.UUID, at time.Time) *ProductInstance {
	return &ProductInstance{
		ID:                    uuid.New(),
		VariantID:             variantID,
		OwnerID:               ownerID,
		HolderID:              holderID,
		Status:                InstanceStatusActive,
		SourceOrderLineItemID: sourceLineItemID,
		TransferHistory: datatypes.JSONSlice[TransferRecord]{{
			ToOwnerID:  ownerID,
			ToHolderID: holderID,
			Reason:     TransferReasonPurchase,
			At:         at,
		}},
		StatusHistory: datatypes.JSONSlice[StatusRecord]{{
			Status: InstanceStatusActive,
			At:     at,
		}},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Transition moves the instance to a new status and appends the status
// history entry. Illegal edges (including any move out of a terminal
// status) are rejected.
func (pi *ProductInstance) Transition(to InstanceStatus, reason string, at time.Time) error {
	if !pi.Status.CanTransitionTo(to) {
		return fmt.Errorf("instance %s: illegal transition %s -> %s", pi.ID, pi.Status, to)
	}
	pi.Status = to
	pi.StatusHistory = append(pi.StatusHistory, StatusRecord{Status: to, Reason: reason, At: at})
	pi.UpdatedAt = at
	return nil
}

// TransferTo reassigns owner and holder, appending the transfer history
// entry with the prior values.
func (pi *ProductInstance) TransferTo(ownerID, holderID uuid.UUID, reason TransferReason, at time.Time) {
	prevOwner := pi.OwnerID
	prevHolder := pi.HolderID
	pi.TransferHistory = append(pi.TransferHistory, TransferRecord{
		FromOwnerID:  &prevOwner,
		ToOwnerID:    ownerID,
		FromHolderID: &prevHolder,
		ToHolderID:   holderID,
		Reason:       reason,
		At:           at,
	})
	pi.OwnerID = ownerID
	pi.HolderID = holderID
	pi.UpdatedAt = at
}

// HeldByOwner reports whether the legal owner currently physically holds the
// item. Consuming, loss-reporting and destruction all require this.
func (pi *ProductInstance) HeldByOwner() bool {
	return pi.OwnerID == pi.HolderID
}
