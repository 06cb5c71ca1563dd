package shipping

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
)

// Service manages the one-to-one shipping record of an order. Records are
// created on confirmation and removed on cancellation by the order flow.
type Service struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewService(db *gorm.DB, logg *logger.Logger) *Service {
	return &Service{db: db, logg: logg}
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// CreateTx inserts an empty shipping record for orderID.
func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Shipping, error) {
	record := models.Shipping{OrderID: orderID}
	if err := s.conn(tx).WithContext(ctx).Create(&record).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipping record")
	}
	return &record, nil
}

// DeleteTx removes the order's shipping record when it exists.
func (s *Service) DeleteTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if err := s.conn(tx).WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Shipping{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete shipping record")
	}
	return nil
}

// FindByOrder returns (nil, nil) when the order has no shipping record.
func (s *Service) FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Shipping, error) {
	var record models.Shipping
	err := s.conn(tx).WithContext(ctx).Where("order_id = ?", orderID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping record")
	}
	return &record, nil
}

// TrackingUpdate carries optional tracking data; nil fields are left as is.
type TrackingUpdate struct {
	TrackingNumber    *string
	EstimatedDelivery *time.Time
}

// UpdateTracking sets tracking data on an existing shipping record.
func (s *Service) UpdateTracking(ctx context.Context, orderID uuid.UUID, update TrackingUpdate) (*models.Shipping, error) {
	if update.TrackingNumber == nil && update.EstimatedDelivery == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number or estimated delivery required")
	}
	record, err := s.FindByOrder(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping record not found")
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if update.TrackingNumber != nil {
		tracking := strings.TrimSpace(*update.TrackingNumber)
		if tracking == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number cannot be blank")
		}
		updates["tracking_number"] = tracking
		record.TrackingNumber = &tracking
	}
	if update.EstimatedDelivery != nil {
		day := update.EstimatedDelivery.UTC().Truncate(24 * time.Hour)
		updates["estimated_delivery"] = day
		record.EstimatedDelivery = &day
	}
	if err := s.db.WithContext(ctx).Model(&models.Shipping{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipping record")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "shipping tracking updated")
	}
	return record, nil
}
