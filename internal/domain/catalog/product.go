package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Tags     []Tag            `gorm:"many2many:product_tag;" json:"tags,omitempty"`
	Media    []ProductMedia   `gorm:"foreignKey:ProductID" json:"media,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Product) TableName() string { return "product" }

// ProductVariant is one purchasable configuration of a product. A mystery-box
// variant sells sealed boxes whose concrete contents are declared after
// purchase; ItemsPerBox says how many instances one box resolves into.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string    `gorm:"not null;column:name" json:"name"`

	Price Price `gorm:"embedded;embeddedPrefix:price_" json:"price"`

	IsMysteryBox bool `gorm:"not null;default:false;column:is_mystery_box" json:"is_mystery_box"`
	ItemsPerBox  int  `gorm:"not null;default:1;column:items_per_box" json:"items_per_box"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProductVariant) TableName() string { return "product_variant" }

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;not null;column:name" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Tag) TableName() string { return "tag" }

type ProductMedia struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	URL       string    `gorm:"not null;column:url" json:"url"`
	Position  int       `gorm:"not null;default:0;column:position" json:"position"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ProductMedia) TableName() string { return "product_media" }
