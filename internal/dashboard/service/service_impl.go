package service

import (
	"context"

	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/dashboard/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	ProjectRepo  projectdomain.Repository
	ContractRepo contractdomain.Repository
	PaymentRepo  paymentdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	projectRepo  projectdomain.Repository
	contractRepo contractdomain.Repository
	paymentRepo  paymentdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("dashboard.service"),
		clock:        p.Clock,
		projectRepo:  p.ProjectRepo,
		contractRepo: p.ContractRepo,
		paymentRepo:  p.PaymentRepo,
	}
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	projects, err := s.projectRepo.List(ctx, s.db, projectdomain.ListProjectFilter{})
	if err != nil {
		return domain.Summary{}, err
	}
	contracts, err := s.contractRepo.List(ctx, s.db, contractdomain.ListContractFilter{})
	if err != nil {
		return domain.Summary{}, err
	}
	payments, err := s.paymentRepo.ListAll(ctx, s.db)
	if err != nil {
		return domain.Summary{}, err
	}

	return Summarize(deref(projects), deref(contracts), payments, clock.Today(s.clock)), nil
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
