package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/logger"
)

const defaultCartExpiration = 30 * 24 * time.Hour

type staleCartDeleter interface {
	DeleteStale(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type CartCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Carts      staleCartDeleter
	Expiration time.Duration
}

// NewCartCleanupJob builds the job deleting abandoned carts. A cart that
// ever produced an order is kept so its order history stays reachable.
func NewCartCleanupJob(params CartCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	expiration := params.Expiration
	if expiration <= 0 {
		expiration = defaultCartExpiration
	}
	return &cartCleanupJob{
		logg:       params.Logger,
		db:         params.DB,
		carts:      params.Carts,
		expiration: expiration,
		now:        time.Now,
	}, nil
}

type cartCleanupJob struct {
	logg       *logger.Logger
	db         txRunner
	carts      staleCartDeleter
	expiration time.Duration
	now        func() time.Time
}

func (j *cartCleanupJob) Name() string { return "cart-cleanup" }

func (j *cartCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.expiration)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.carts.DeleteStale(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("delete stale carts: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"carts_deleted": deleted,
	}), "stale carts removed")
	return nil
}
