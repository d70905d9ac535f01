package db

import (
	types "github.com/okaimono/marketplace-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity
		// =========================
		&types.User{},

		// =========================
		// Catalog
		// =========================
		&types.Product{},
		&types.ProductVariant{},
		&types.Tag{},
		&types.ProductMedia{},

		// =========================
		// Instance ledger
		// =========================
		&types.ProductInstance{},

		// =========================
		// Orders + peer transfers
		// =========================
		&types.PurchaseOrder{},
		&types.PurchaseOrderItem{},
		&types.PurchaseOrderLineItem{},
		&types.UserTransaction{},
	)
}
