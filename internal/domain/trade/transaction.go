package trade

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

var (
	ErrTransactionCompleted = errors.New("transaction is already completed")
	ErrTransactionCancelled = errors.New("transaction is cancelled")
)

// UserTransaction is a peer-to-peer transfer of already-existing instances.
// While Pending, every referenced instance is held in Locked status.
type UserTransaction struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FromUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"from_user_id"`
	ToUserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"to_user_id"`

	ItemIDs datatypes.JSONSlice[uuid.UUID] `gorm:"column:item_ids" json:"item_ids"`

	Status TransactionStatus `gorm:"not null;column:status" json:"status"`

	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
}

func (UserTransaction) TableName() string { return "user_transaction" }
