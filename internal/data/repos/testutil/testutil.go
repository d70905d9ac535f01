package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbmigrate "github.com/okaimono/marketplace-backend/internal/data/db"
	types "github.com/okaimono/marketplace-backend/internal/domain"
	"github.com/okaimono/marketplace-backend/internal/domain/catalog"
	"github.com/okaimono/marketplace-backend/internal/domain/trade"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			TranslateError:                           true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := dbmigrate.AutoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		Password:    "pw",
		DisplayName: "seed",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Product {
	tb.Helper()
	p := &types.Product{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedVariant(tb testing.TB, ctx context.Context, tx *gorm.DB, productID uuid.UUID, amount int32) *types.ProductVariant {
	tb.Helper()
	v := &types.ProductVariant{
		ID:          uuid.New(),
		ProductID:   productID,
		Name:        "variant",
		Price:       catalog.Price{Amount: amount, Currency: "JPY"},
		ItemsPerBox: 1,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed variant: %v", err)
	}
	return v
}

// SeedOrder creates an Incomplete order with one Pending item of the given
// quantity; each line item is owned by the creator.
func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, creatorID, receiverID, variantID uuid.UUID, quantity int) *types.PurchaseOrder {
	tb.Helper()
	now := time.Now().UTC()
	item := types.PurchaseOrderItem{
		ID:        uuid.New(),
		VariantID: variantID,
		Status:    trade.OrderItemStatusPending,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := 0; i < quantity; i++ {
		item.LineItems = append(item.LineItems, types.PurchaseOrderLineItem{
			ID:        uuid.New(),
			VariantID: variantID,
			OwnerID:   creatorID,
			Position:  i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	o := &types.PurchaseOrder{
		ID:         uuid.New(),
		CreatorID:  creatorID,
		ReceiverID: receiverID,
		Items:      []types.PurchaseOrderItem{item},
		Status:     trade.OrderStatusIncomplete,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return o
}
