package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/store"
	"github.com/cppla/gympoints/utils"
)

// PrizeInput is the admin form for creating or editing a prize. A nil
// Available keeps the current value (true for new prizes).
type PrizeInput struct {
	Name        string
	Description string
	Points      int
	Available   *bool
}

func (in PrizeInput) validate() (PrizeInput, error) {
	in.Name = utils.Sanitize(in.Name)
	in.Description = utils.Sanitize(in.Description)
	if in.Name == "" {
		return in, invalid("prize name is required")
	}
	if in.Points <= 0 {
		return in, invalid("prize points must be positive, got %d", in.Points)
	}
	return in, nil
}

// CreatePrize adds a prize to the catalogue.
func (s *RewardsService) CreatePrize(ctx context.Context, in PrizeInput) (*models.Prize, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	p := &models.Prize{Name: in.Name, Description: in.Description, Points: in.Points, Available: true}
	if in.Available != nil {
		p.Available = *in.Available
	}
	if err := s.store.CreatePrize(ctx, p); err != nil {
		return nil, storageErr("create prize", err)
	}
	s.log.Info("prize created", zap.Uint("prize_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdatePrize edits a prize. Existing redemptions keep their PointsSpent snapshot.
func (s *RewardsService) UpdatePrize(ctx context.Context, id uint, in PrizeInput) (*models.Prize, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	var p *models.Prize
	err = s.store.Transaction(ctx, func(tx store.RecordStore) error {
		cur, err := tx.PrizeByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrPrizeNotFound, id)
		}
		if err != nil {
			return storageErr("load prize", err)
		}
		cur.Name = in.Name
		cur.Description = in.Description
		cur.Points = in.Points
		if in.Available != nil {
			cur.Available = *in.Available
		}
		if err := tx.SavePrize(ctx, cur); err != nil {
			return storageErr("save prize", err)
		}
		p = cur
		return nil
	})
	if err != nil {
		return nil, asKind("update prize", err)
	}
	s.log.Info("prize updated", zap.Uint("prize_id", p.ID), zap.Bool("available", p.Available))
	return p, nil
}

// Prizes lists the redeemable catalogue, cheapest first.
func (s *RewardsService) Prizes(ctx context.Context) ([]models.Prize, error) {
	prizes, err := s.store.ListPrizes(ctx, true)
	if err != nil {
		return nil, storageErr("list prizes", err)
	}
	return prizes, nil
}

// AllPrizes lists every prize including unavailable ones, for admins.
func (s *RewardsService) AllPrizes(ctx context.Context) ([]models.Prize, error) {
	prizes, err := s.store.ListPrizes(ctx, false)
	if err != nil {
		return nil, storageErr("list prizes", err)
	}
	return prizes, nil
}
