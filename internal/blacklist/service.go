package blacklist

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/phone"
)

// Service answers whether a phone number may place or move orders. The
// order flow never writes to the blacklist.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// IsBlacklisted normalizes number before the lookup so national and
// international spellings of the same phone match.
func (s *Service) IsBlacklisted(ctx context.Context, number string) (bool, error) {
	return s.IsBlacklistedTx(ctx, nil, number)
}

// IsBlacklistedTx performs the lookup on tx when it is set.
func (s *Service) IsBlacklistedTx(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	normalized, err := phone.Normalize(number)
	if err != nil {
		normalized = number
	}
	conn := s.db
	if tx != nil {
		conn = tx
	}
	var row models.BlacklistedPhone
	err = conn.WithContext(ctx).Select("id").Where("phone_number = ?", normalized).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check blacklist")
	}
	return true, nil
}

// Guard returns a BLACKLISTED error when number is on the blacklist.
func (s *Service) Guard(ctx context.Context, tx *gorm.DB, number string) error {
	listed, err := s.IsBlacklistedTx(ctx, tx, number)
	if err != nil {
		return err
	}
	if listed {
		return pkgerrors.New(pkgerrors.CodeBlacklisted, "phone number is blacklisted")
	}
	return nil
}
