package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
)

type variantLister interface {
	ListVariants(ctx context.Context, itemType string) ([]inventory.Availability, error)
}

// Service serves catalog reads and admin item removal.
type Service struct {
	repo      *Repository
	inventory variantLister
	logg      *logger.Logger
}

func NewService(repo *Repository, inv variantLister, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory lister required")
	}
	return &Service{repo: repo, inventory: inv, logg: logg}, nil
}

func (s *Service) ListTypes(ctx context.Context) ([]models.ItemType, error) {
	rows, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item types")
	}
	return rows, nil
}

// ListItems lists every item, or only those of itemType when it is set.
func (s *Service) ListItems(ctx context.Context, itemType string) ([]ItemDTO, error) {
	rows, err := s.repo.ListItems(ctx, itemType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	out := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewItemDTO(row))
	}
	return out, nil
}

func (s *Service) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}

// GetItemDetail returns the item together with SizesWithStatus.
func (s *Service) GetItemDetail(ctx context.Context, itemID uuid.UUID) (*ItemDetailDTO, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	sizes, err := s.sizesFor(ctx, item.ItemType)
	if err != nil {
		return nil, err
	}
	return &ItemDetailDTO{ItemDTO: NewItemDTO(*item), Sizes: sizes}, nil
}

// SizesWithStatus lists every size of the item's type with its sellable
// availability.
func (s *Service) SizesWithStatus(ctx context.Context, itemID uuid.UUID) ([]SizeStatus, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.sizesFor(ctx, item.ItemType)
}

func (s *Service) sizesFor(ctx context.Context, itemType string) ([]SizeStatus, error) {
	variants, err := s.inventory.ListVariants(ctx, itemType)
	if err != nil {
		return nil, err
	}
	out := make([]SizeStatus, 0, len(variants))
	for _, v := range variants {
		out = append(out, SizeStatus{
			Size:      v.Size,
			VariantID: v.VariantID,
			Available: v.Sellable(),
			InStock:   v.InStock(),
		})
	}
	return out, nil
}

// DeleteItem removes an item; existing cart and order lines become
// archived references that keep the item name.
func (s *Service) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	deleted, err := s.repo.DeleteItem(ctx, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "item_id", itemID.String()), "item deleted")
	}
	return nil
}
