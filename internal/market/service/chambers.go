package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/pkg/idx"
	"github.com/cpf-camaras/market/pkg/slogx"
)

var (
	ErrChamberExists      = errors.New("a chamber with that name already exists")
	ErrChamberNotFound    = errors.New("chamber not found")
	ErrInvalidChamberName = errors.New("chamber name is required")
)

type ChamberService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *ChamberService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create adds a chamber. location is "City / Province", "City - Province" or
// just a city.
func (s *ChamberService) Create(ctx context.Context, name, location string) (domain.Chamber, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Chamber{}, ErrInvalidChamberName
	}
	city, province := domain.SplitLocation(location)

	now := s.now()
	c := domain.Chamber{
		ID:        idx.New().String(),
		Name:      name,
		City:      city,
		Province:  province,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Chambers().CreateChamber(ctx, c); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Chamber{}, ErrChamberExists
		}
		return domain.Chamber{}, err
	}

	slogx.FromContext(ctx).Info("chamber created", slog.String("chamber_id", c.ID))
	return c, nil
}

func (s *ChamberService) List(ctx context.Context) ([]domain.Chamber, error) {
	return s.Store.Chambers().ListChambers(ctx)
}

func (s *ChamberService) Get(ctx context.Context, id string) (domain.Chamber, error) {
	c, err := s.Store.Chambers().GetChamber(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Chamber{}, ErrChamberNotFound
	}
	return c, err
}

// Update replaces the chamber's name and location.
func (s *ChamberService) Update(ctx context.Context, id, name, city, province string) (domain.Chamber, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return domain.Chamber{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Chamber{}, ErrInvalidChamberName
	}
	c.Name = name
	c.City = strings.TrimSpace(city)
	c.Province = strings.TrimSpace(province)
	c.UpdatedAt = s.now()

	if err := s.Store.Chambers().UpdateChamber(ctx, c); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.Chamber{}, ErrChamberExists
		case errors.Is(err, store.ErrNotFound):
			return domain.Chamber{}, ErrChamberNotFound
		}
		return domain.Chamber{}, err
	}
	return c, nil
}
