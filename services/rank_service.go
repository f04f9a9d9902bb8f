package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/models"
	"milorg-admin/repositories"
)

type RankService interface {
	ListRanks(ctx context.Context) ([]RankResponse, error)
	CreateRank(ctx context.Context, input *RankInput) (*RankResponse, error)
	DeleteRank(ctx context.Context, id uint) error
}

type RankInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Acronym string `json:"acronym" validate:"required,max=20"`
	Order   int    `json:"order" validate:"gte=0"`
}

type RankResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
	Order   int    `json:"order"`
}

type rankService struct {
	repo   repositories.RankRepository
	logger *zap.Logger
}

var _ RankService = (*rankService)(nil)

func NewRankService(repo repositories.RankRepository, logger *zap.Logger) RankService {
	return &rankService{repo: repo, logger: logger}
}

func (s *rankService) ListRanks(ctx context.Context) ([]RankResponse, error) {
	ranks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, dbError(err, "rank")
	}
	out := make([]RankResponse, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, mapRank(r))
	}
	return out, nil
}

func (s *rankService) CreateRank(ctx context.Context, input *RankInput) (*RankResponse, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	rank := models.Rank{
		Name:    strings.TrimSpace(input.Name),
		Acronym: strings.ToUpper(strings.TrimSpace(input.Acronym)),
		Order:   input.Order,
	}
	if err := s.repo.Create(ctx, &rank); err != nil {
		return nil, dbError(err, "rank")
	}
	resp := mapRank(rank)
	return &resp, nil
}

// DeleteRank refuses ranks still held by active users.
func (s *rankService) DeleteRank(ctx context.Context, id uint) error {
	rank, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dbError(err, "rank")
	}
	holders, err := s.repo.CountUsers(ctx, id)
	if err != nil {
		return dbError(err, "rank")
	}
	if holders > 0 {
		return apperr.ErrInUse.WithMessage("rank is assigned to users").WithDetail("users", holders)
	}
	if err := s.repo.Delete(ctx, rank); err != nil {
		return dbError(err, "rank")
	}
	s.logger.Info("Rank deleted", zap.Uint("rank_id", id))
	return nil
}

func mapRank(r models.Rank) RankResponse {
	return RankResponse{ID: r.ID, Name: r.Name, Acronym: r.Acronym, Order: r.Order}
}
