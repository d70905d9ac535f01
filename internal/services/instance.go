package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okaimono/marketplace-backend/internal/data/repos"
	types "github.com/okaimono/marketplace-backend/internal/domain"
	"github.com/okaimono/marketplace-backend/internal/domain/inventory"
	apperrors "github.com/okaimono/marketplace-backend/internal/pkg/errors"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

type InstanceActionRequest struct {
	InstanceID uuid.UUID
	UserID     uuid.UUID
	Reason     string
}

type InstanceService interface {
	Get(ctx context.Context, instanceID, userID uuid.UUID) (*types.ProductInstance, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*types.ProductInstance, error)
	Consume(ctx context.Context, req InstanceActionRequest) (*types.ProductInstance, error)
	ReportLost(ctx context.Context, req InstanceActionRequest) (*types.ProductInstance, error)
	Destroy(ctx context.Context, req InstanceActionRequest) (*types.ProductInstance, error)
}

type instanceService struct {
	log          *logger.Logger
	instanceRepo repos.InstanceRepo
}

func NewInstanceService(log *logger.Logger, instanceRepo repos.InstanceRepo) InstanceService {
	return &instanceService{
		log:          log.With("service", "InstanceService"),
		instanceRepo: instanceRepo,
	}
}

func (is *instanceService) Get(ctx context.Context, instanceID, userID uuid.UUID) (*types.ProductInstance, error) {
	instance, err := is.fetch(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.OwnerID != userID && instance.HolderID != userID {
		return nil, fmt.Errorf("instance %s: %w", instanceID, apperrors.ErrNotFound)
	}
	return instance, nil
}

func (is *instanceService) ListMine(ctx context.Context, userID uuid.UUID) ([]*types.ProductInstance, error) {
	return is.instanceRepo.ListByOwner(ctx, nil, userID)
}

func (is *instanceService) Consume(ctx context.Context, req InstanceActionRequest) (*types.ProductInstance, error) {
	return is.retire(ctx, req, inventory.InstanceStatusConsumed)
}

func (is *instanceService) ReportLost(ctx context.Context, req InstanceActionRequest) (*types.ProductInstance, error) {
	return is.retire(ctx, req, inventory.InstanceStatusNotFound)
}

func (is *instanceService) Destroy(ctx context.Context, req InstanceActionRequest) (*types.ProductInstance, error) {
	return is.retire(ctx, req, inventory.InstanceStatusDestroyed)
}

// retire moves an instance into one of the terminal statuses. The owner
// must be the requester, must currently hold the item, and the instance
// must be Active (a Locked instance belongs to a pending transfer).
func (is *instanceService) retire(ctx context.Context, req InstanceActionRequest, to inventory.InstanceStatus) (*types.ProductInstance, error) {
	instance, err := is.fetch(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}
	if instance.OwnerID != req.UserID {
		return nil, fmt.Errorf("instance %s: %w", instance.ID, inventory.ErrNotOwned)
	}
	if instance.Status != inventory.InstanceStatusActive {
		return nil, fmt.Errorf("instance %s: %w", instance.ID, inventory.ErrNotActive)
	}
	if !instance.HeldByOwner() {
		return nil, fmt.Errorf("instance %s: %w", instance.ID, inventory.ErrNotHeldByOwner)
	}

	if err := instance.Transition(to, req.Reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := is.instanceRepo.Save(ctx, nil, instance); err != nil {
		return nil, fmt.Errorf("save instance: %w", err)
	}
	return instance, nil
}

func (is *instanceService) fetch(ctx context.Context, instanceID uuid.UUID) (*types.ProductInstance, error) {
	instances, err := is.instanceRepo.GetByIDs(ctx, nil, []uuid.UUID{instanceID})
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("instance %s: %w", instanceID, apperrors.ErrNotFound)
	}
	return instances[0], nil
}
