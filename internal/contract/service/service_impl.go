package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/clock"
	"github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/lock"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ProjectRepo projectdomain.Repository
	PaymentRepo paymentdomain.Repository
	Activity    activitydomain.Service `optional:"true"`
	Metrics     *metrics.Metrics       `optional:"true"`
	Lock        *lock.ContractLock     `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	projectRepo projectdomain.Repository
	paymentRepo paymentdomain.Repository
	activity    activitydomain.Service
	metrics     *metrics.Metrics
	lock        *lock.ContractLock
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("contract.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		projectRepo: p.ProjectRepo,
		paymentRepo: p.PaymentRepo,
		activity:    p.Activity,
		metrics:     p.Metrics,
		lock:        p.Lock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContractRequest) (domain.Contract, error) {
	fields, projectID, err := normalizeFields(req.ContractFields)
	if err != nil {
		return domain.Contract{}, err
	}

	project, err := s.projectRepo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return domain.Contract{}, err
	}
	if project == nil {
		return domain.Contract{}, domain.ErrProjectNotFound
	}

	now := s.clock.Now().UTC()
	contract := domain.Contract{
		ID:         s.genID.Generate(),
		Name:       fields.Name,
		ProjectID:  project.ID,
		CustomerID: project.CustomerID,
		Category:   fields.Category,
		Type:       fields.Type,
		Amount:     fields.Amount,
		SignedDate: fields.SignedDate,
		StartDate:  fields.StartDate,
		EndDate:    fields.EndDate,
		Notes:      fields.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	contract = reconcile.Recompute(contract, nil, clock.Today(s.clock))

	if err := s.repo.Insert(ctx, s.db, &contract); err != nil {
		return domain.Contract{}, err
	}

	s.metrics.RecordMutation(ctx, "contract", "create")
	s.record(ctx, activitydomain.TypeCreate, contract, "signed a new contract")
	return contract, nil
}

// Update rewrites the contract terms and re-aggregates its payments. The
// read, the capacity check and the writes run under the contract's edit lock
// in one transaction, so a concurrent milestone edit cannot be overwritten
// with stale metrics.
func (s *Service) Update(ctx context.Context, req domain.UpdateContractRequest) (domain.Contract, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Contract{}, err
	}
	fields, projectID, err := normalizeFields(req.ContractFields)
	if err != nil {
		return domain.Contract{}, err
	}

	var updated domain.Contract
	err = s.lock.WithContract(ctx, id, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			contract, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			if contract == nil {
				return domain.ErrNotFound
			}

			if projectID != contract.ProjectID {
				project, err := s.projectRepo.FindByID(ctx, tx, projectID)
				if err != nil {
					return err
				}
				if project == nil {
					return domain.ErrProjectNotFound
				}
				contract.ProjectID = project.ID
				contract.CustomerID = project.CustomerID
			}

			payments, err := s.paymentRepo.ListByContract(ctx, tx, contract.ID)
			if err != nil {
				return err
			}
			var registered int64
			for _, p := range payments {
				registered += p.Amount
			}
			if fields.Amount < registered {
				return domain.ErrAmountBelowRegistered
			}

			now := s.clock.Now().UTC()
			contract.Name = fields.Name
			contract.Category = fields.Category
			contract.Type = fields.Type
			contract.Amount = fields.Amount
			contract.SignedDate = fields.SignedDate
			contract.StartDate = fields.StartDate
			contract.EndDate = fields.EndDate
			contract.Notes = fields.Notes
			contract.UpdatedAt = now

			aggregated := reconcile.AggregateContract(*contract, payments, clock.Today(s.clock))
			aggregated.Apply(contract)
			if err := s.repo.UpdateTerms(ctx, tx, contract); err != nil {
				return fmt.Errorf("update contract terms: %w", err)
			}
			if err := s.repo.UpdateMetrics(ctx, tx, contract); err != nil {
				return fmt.Errorf("update contract metrics: %w", err)
			}
			for _, p := range driftedPayments(payments, aggregated.Payments) {
				p.UpdatedAt = now
				if err := s.paymentRepo.Update(ctx, tx, &p); err != nil {
					return fmt.Errorf("update payment status: %w", err)
				}
			}
			updated = *contract
			return nil
		})
	})
	if err != nil {
		return domain.Contract{}, err
	}

	s.metrics.RecordMutation(ctx, "contract", "update")
	s.record(ctx, activitydomain.TypeUpdate, updated, "changed the contract terms")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	contractID, err := parseID(id)
	if err != nil {
		return err
	}

	contract, err := s.repo.FindByID(ctx, s.db, contractID)
	if err != nil {
		return err
	}
	if contract == nil {
		return domain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.DeleteByContracts(ctx, tx, []snowflake.ID{contract.ID}); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, contract.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("contract deleted", zap.String("contract_id", contract.ID.String()))

	s.metrics.RecordMutation(ctx, "contract", "delete")
	s.record(ctx, activitydomain.TypeDelete, *contract, "cancelled the contract")
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Contract, error) {
	contractID, err := parseID(id)
	if err != nil {
		return domain.Contract{}, err
	}

	contract, err := s.repo.FindByID(ctx, s.db, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if contract == nil {
		return domain.Contract{}, domain.ErrNotFound
	}

	payments, err := s.paymentRepo.ListByContract(ctx, s.db, contract.ID)
	if err != nil {
		return domain.Contract{}, err
	}
	return reconcile.Recompute(*contract, payments, clock.Today(s.clock)), nil
}

func (s *Service) List(ctx context.Context, req domain.ListContractRequest) ([]domain.Contract, error) {
	var filter domain.ListContractFilter
	if value := strings.TrimSpace(req.ProjectID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil {
			return nil, domain.ErrInvalidProject
		}
		filter.ProjectID = id
	}
	if value := strings.TrimSpace(req.CustomerID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.CustomerID = id
	}
	if value := strings.TrimSpace(req.Category); value != "" {
		filter.Category = domain.Category(value)
		if !filter.Category.Valid() {
			return nil, domain.ErrInvalidCategory
		}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	contracts := make([]domain.Contract, 0, len(items))
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contracts = append(contracts, *item)
		ids = append(ids, item.ID)
	}

	payments, err := s.paymentRepo.ListByContracts(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	return reconcile.RecomputeContracts(contracts, payments, clock.Today(s.clock)), nil
}

func (s *Service) record(ctx context.Context, typ activitydomain.Type, contract domain.Contract, description string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activitydomain.RecordRequest{
		Type:        typ,
		Category:    activitydomain.CategoryContract,
		TargetName:  contract.Name,
		Description: description,
		Metadata: map[string]any{
			"contract_id": contract.ID.String(),
			"project_id":  contract.ProjectID.String(),
		},
	})
}

func normalizeFields(in domain.ContractFields) (domain.ContractFields, snowflake.ID, error) {
	out := in
	out.Name = strings.TrimSpace(in.Name)
	if out.Name == "" {
		return out, 0, domain.ErrInvalidName
	}

	projectID, err := snowflake.ParseString(strings.TrimSpace(in.ProjectID))
	if err != nil || projectID == 0 {
		return out, 0, domain.ErrInvalidProject
	}
	if !out.Category.Valid() {
		return out, 0, domain.ErrInvalidCategory
	}
	if !out.Type.Valid() {
		return out, 0, domain.ErrInvalidType
	}
	if out.Amount <= 0 {
		return out, 0, domain.ErrInvalidAmount
	}

	out.SignedDate = dateOnly(in.SignedDate)
	out.StartDate = dateOnly(in.StartDate)
	out.EndDate = dateOnly(in.EndDate)
	if out.StartDate != nil && out.EndDate != nil && out.EndDate.Before(*out.StartDate) {
		return out, 0, domain.ErrInvalidPeriod
	}
	out.Notes = strings.TrimSpace(in.Notes)
	return out, projectID, nil
}

// driftedPayments returns the recomputed payments whose status differs from
// the stored one.
func driftedPayments(stored, recomputed []paymentdomain.Payment) []paymentdomain.Payment {
	before := make(map[snowflake.ID]paymentdomain.Status, len(stored))
	for _, p := range stored {
		before[p.ID] = p.Status
	}
	var out []paymentdomain.Payment
	for _, p := range recomputed {
		if status, ok := before[p.ID]; ok && status != p.Status {
			out = append(out, p)
		}
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := clock.DateOf(*t)
	return &d
}
