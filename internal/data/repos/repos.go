package repos

import (
	"gorm.io/gorm"

	"github.com/okaimono/marketplace-backend/internal/data/repos/catalog"
	"github.com/okaimono/marketplace-backend/internal/data/repos/inventory"
	"github.com/okaimono/marketplace-backend/internal/data/repos/trade"
	"github.com/okaimono/marketplace-backend/internal/data/repos/user"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo

type ProductRepo = catalog.ProductRepo
type VariantRepo = catalog.VariantRepo
type TagRepo = catalog.TagRepo
type MediaRepo = catalog.MediaRepo

type InstanceRepo = inventory.InstanceRepo

type OrderRepo = trade.OrderRepo
type TransactionRepo = trade.TransactionRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return catalog.NewProductRepo(db, baseLog)
}
func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	return catalog.NewVariantRepo(db, baseLog)
}
func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo { return catalog.NewTagRepo(db, baseLog) }
func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return catalog.NewMediaRepo(db, baseLog)
}

func NewInstanceRepo(db *gorm.DB, baseLog *logger.Logger) InstanceRepo {
	return inventory.NewInstanceRepo(db, baseLog)
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return trade.NewOrderRepo(db, baseLog)
}
func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return trade.NewTransactionRepo(db, baseLog)
}
