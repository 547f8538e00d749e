package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/clock"
	"github.com/smallbiznis/milestone/internal/config"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"github.com/smallbiznis/milestone/internal/worklist/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	PaymentRepo  paymentdomain.Repository
	ContractRepo contractdomain.Repository
	ProjectRepo  projectdomain.Repository
	CustomerRepo customerdomain.Repository
	Triage       *config.TriageConfigHolder `optional:"true"`
	Reconcile    *metrics.ReconcileMetrics  `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	paymentRepo  paymentdomain.Repository
	contractRepo contractdomain.Repository
	projectRepo  projectdomain.Repository
	customerRepo customerdomain.Repository
	triage       *config.TriageConfigHolder
	reconcile    *metrics.ReconcileMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("worklist.service"),
		clock:        p.Clock,
		paymentRepo:  p.PaymentRepo,
		contractRepo: p.ContractRepo,
		projectRepo:  p.ProjectRepo,
		customerRepo: p.CustomerRepo,
		triage:       p.Triage,
		reconcile:    p.Reconcile,
	}
}

// Build triages every open payment. Payments whose contract no longer exists
// are skipped. The bucket gauges are only published for the unfiltered board.
func (s *Service) Build(ctx context.Context, req domain.WorklistRequest) (domain.Worklist, error) {
	direction, err := parseDirection(req.Direction)
	if err != nil {
		return domain.Worklist{}, err
	}

	inputs, err := s.loadInputs(ctx)
	if err != nil {
		return domain.Worklist{}, err
	}
	if direction != "" {
		filtered := inputs[:0]
		for _, in := range inputs {
			if in.Direction == direction {
				filtered = append(filtered, in)
			}
		}
		inputs = filtered
	}

	today := clock.Today(s.clock)
	policy := policyOf(s.triage.Get())
	board := reconcile.Triage(inputs, today, policy)
	list := domain.Worklist{
		Board:        board,
		Today:        today,
		UrgentAmount: reconcile.Sum(board.Urgent),
		Policy:       policy,
	}

	if direction == "" {
		s.reconcile.SetWorklist(map[string]int{
			string(reconcile.BucketUrgent):    len(board.Urgent),
			string(reconcile.BucketImportant): len(board.Important),
			string(reconcile.BucketUpcoming):  len(board.Upcoming),
		}, list.UrgentAmount)
	}
	s.log.Debug("worklist built",
		zap.Int("open", board.OpenCount),
		zap.Int("urgent", len(board.Urgent)),
		zap.Int64("urgent_amount", list.UrgentAmount),
	)
	return list, nil
}

func (s *Service) loadInputs(ctx context.Context) ([]reconcile.TriageInput, error) {
	payments, err := s.paymentRepo.ListAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	contracts, err := s.contractRepo.List(ctx, s.db, contractdomain.ListContractFilter{})
	if err != nil {
		return nil, err
	}
	projects, err := s.projectRepo.List(ctx, s.db, projectdomain.ListProjectFilter{})
	if err != nil {
		return nil, err
	}
	customers, err := s.customerRepo.List(ctx, s.db, customerdomain.ListCustomerFilter{})
	if err != nil {
		return nil, err
	}

	contractByID := make(map[snowflake.ID]*contractdomain.Contract, len(contracts))
	for _, c := range contracts {
		contractByID[c.ID] = c
	}
	projectNames := make(map[snowflake.ID]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}
	customerNames := make(map[snowflake.ID]string, len(customers))
	for _, c := range customers {
		customerNames[c.ID] = c.Name
	}

	inputs := make([]reconcile.TriageInput, 0, len(payments))
	for _, p := range payments {
		contract, ok := contractByID[p.ContractID]
		if !ok {
			continue
		}
		inputs = append(inputs, reconcile.TriageInput{
			Payment:      p,
			Direction:    reconcile.DirectionOf(contract.Category),
			ContractName: contract.Name,
			ProjectName:  projectNames[contract.ProjectID],
			CustomerName: customerNames[contract.CustomerID],
		})
	}
	return inputs, nil
}

// parseDirection accepts a direction or the contract category it derives
// from, so "sales" filters receivables and "purchase" payables.
func parseDirection(value string) (reconcile.Direction, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	switch direction := reconcile.Direction(value); direction {
	case reconcile.DirectionReceivable, reconcile.DirectionPayable:
		return direction, nil
	}
	if category := contractdomain.Category(value); category.Valid() {
		return reconcile.DirectionOf(category), nil
	}
	return "", domain.ErrInvalidDirection
}

func policyOf(cfg config.TriageConfig) reconcile.TriagePolicy {
	return reconcile.TriagePolicy{
		UrgentDays:         cfg.UrgentDays,
		ImportantDays:      cfg.ImportantDays,
		UpcomingDays:       cfg.UpcomingDays,
		HighValueThreshold: cfg.HighValueThreshold,
	}
}
