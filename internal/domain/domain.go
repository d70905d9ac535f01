// Package domain re-exports the aggregate types so call sites can keep a
// single `types` import.
package domain

import (
	"github.com/okaimono/marketplace-backend/internal/domain/catalog"
	"github.com/okaimono/marketplace-backend/internal/domain/inventory"
	"github.com/okaimono/marketplace-backend/internal/domain/trade"
	"github.com/okaimono/marketplace-backend/internal/domain/user"
)

type User = user.User

type Product = catalog.Product
type ProductVariant = catalog.ProductVariant
type Tag = catalog.Tag
type ProductMedia = catalog.ProductMedia
type Price = catalog.Price

type ProductInstance = inventory.ProductInstance
type InstanceStatus = inventory.InstanceStatus
type TransferRecord = inventory.TransferRecord
type StatusRecord = inventory.StatusRecord
type TransferReason = inventory.TransferReason

type PurchaseOrder = trade.PurchaseOrder
type PurchaseOrderItem = trade.PurchaseOrderItem
type PurchaseOrderLineItem = trade.PurchaseOrderLineItem
type OrderStatus = trade.OrderStatus
type OrderItemStatus = trade.OrderItemStatus

type UserTransaction = trade.UserTransaction
type TransactionStatus = trade.TransactionStatus
