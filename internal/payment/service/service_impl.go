package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/lock"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	"github.com/smallbiznis/milestone/internal/observability/tracing"
	"github.com/smallbiznis/milestone/internal/payment/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	ContractRepo contractdomain.Repository
	Lock         *lock.ContractLock        `optional:"true"`
	Activity     activitydomain.Service    `optional:"true"`
	Metrics      *metrics.Metrics          `optional:"true"`
	Reconcile    *metrics.ReconcileMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	contractRepo contractdomain.Repository
	lock         *lock.ContractLock
	activity     activitydomain.Service
	metrics      *metrics.Metrics
	reconcile    *metrics.ReconcileMetrics
	tracer       trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		contractRepo: p.ContractRepo,
		lock:         p.Lock,
		activity:     p.Activity,
		metrics:      p.Metrics,
		reconcile:    p.Reconcile,
		tracer:       otel.Tracer(tracing.TracerName + "/payment"),
	}
}

// editPlan is the set of writes that commits one milestone mutation.
type editPlan struct {
	contract contractdomain.Contract
	insert   *domain.Payment
	remove   snowflake.ID
	save     []domain.Payment
}

func (s *Service) Create(ctx context.Context, req domain.CreatePaymentRequest) (domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payment.create")
	defer span.End()

	contractID, err := snowflake.ParseString(strings.TrimSpace(req.ContractID))
	if err != nil || contractID == 0 {
		return domain.Payment{}, s.fail(span, domain.ErrInvalidContract)
	}
	fields, err := normalizeFields(req.PaymentFields)
	if err != nil {
		return domain.Payment{}, s.fail(span, err)
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("contract_id", contractID.String()),
		attribute.String("payment.item", string(fields.Item)),
	)...)

	var created domain.Payment
	err = s.lock.WithContract(ctx, contractID, func(ctx context.Context) error {
		contract, stored, err := s.loadContract(ctx, contractID)
		if err != nil {
			return err
		}

		if fields.Item == domain.ItemDeposit && reconcile.HasItem(stored, domain.ItemDeposit, 0) {
			return domain.ErrDuplicateDeposit
		}
		if fields.Amount > registeredBalance(contract, stored) {
			return domain.ErrExceedsRegisteredBalance
		}

		now := s.clock.Now().UTC()
		pending := domain.Payment{
			ID:            s.genID.Generate(),
			ContractID:    contract.ID,
			Item:          fields.Item,
			Amount:        fields.Amount,
			ScheduledDate: *fields.ScheduledDate,
			InvoiceDate:   fields.InvoiceDate,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		edited := pending
		edited.CompletionDate = fields.CompletionDate
		edited.Status = fields.Status

		// The new milestone joins uncompleted, so completing it on creation
		// goes through the same sequencing guard as an edit.
		today := clock.Today(s.clock)
		result, err := reconcile.ApplyMilestoneEdit(append(stored, pending), edited, today)
		if err != nil {
			return err
		}

		created = result.Changed[0]
		aggregated := reconcile.AggregateContract(contract, result.Payments, today)
		plan := editPlan{
			contract: contract,
			insert:   &created,
			save:     pendingWrites(stored, aggregated.Payments, result.Changed),
		}
		aggregated.Apply(&plan.contract)
		return s.commit(ctx, plan)
	})
	if err != nil {
		s.observeFailure(err)
		return domain.Payment{}, s.fail(span, err)
	}
	span.SetAttributes(tracing.SafeAttributes(attribute.String("payment_id", created.ID.String()))...)

	s.metrics.RecordMutation(ctx, "payment", "create")
	s.record(ctx, activitydomain.TypeCreate, created, "added a payment milestone")
	return created, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePaymentRequest) (domain.EditResponse, error) {
	ctx, span := s.tracer.Start(ctx, "payment.update")
	defer span.End()
	started := time.Now()

	id, err := parseID(req.ID)
	if err != nil {
		return domain.EditResponse{}, s.fail(span, err)
	}
	fields, err := normalizeFields(req.PaymentFields)
	if err != nil {
		return domain.EditResponse{}, s.fail(span, err)
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.EditResponse{}, s.fail(span, err)
	}
	if current == nil {
		return domain.EditResponse{}, s.fail(span, domain.ErrNotFound)
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("payment_id", current.ID.String()),
		attribute.String("contract_id", current.ContractID.String()),
		attribute.String("payment.item", string(fields.Item)),
	)...)

	var resp domain.EditResponse
	err = s.lock.WithContract(ctx, current.ContractID, func(ctx context.Context) error {
		contract, stored, err := s.loadContract(ctx, current.ContractID)
		if err != nil {
			return err
		}

		var original *domain.Payment
		for i := range stored {
			if stored[i].ID == id {
				original = &stored[i]
				break
			}
		}
		if original == nil {
			return domain.ErrNotFound
		}

		if fields.Item == domain.ItemDeposit && reconcile.HasItem(stored, domain.ItemDeposit, id) {
			return domain.ErrDuplicateDeposit
		}
		if fields.Amount > registeredBalance(contract, stored)+original.Amount {
			return domain.ErrExceedsRegisteredBalance
		}

		edited := *original
		edited.Item = fields.Item
		edited.Amount = fields.Amount
		edited.ScheduledDate = *fields.ScheduledDate
		edited.InvoiceDate = fields.InvoiceDate
		edited.CompletionDate = fields.CompletionDate
		edited.Status = fields.Status

		today := clock.Today(s.clock)
		result, err := reconcile.ApplyMilestoneEdit(stored, edited, today)
		if err != nil {
			return err
		}

		aggregated := reconcile.AggregateContract(contract, result.Payments, today)
		plan := editPlan{
			contract: contract,
			save:     pendingWrites(stored, aggregated.Payments, result.Changed),
		}
		aggregated.Apply(&plan.contract)
		if err := s.commit(ctx, plan); err != nil {
			return err
		}

		resp = domain.EditResponse{
			Payment:  plan.save[0],
			Changed:  plan.save[:len(result.Changed)],
			Reverted: result.Reverted,
		}
		return nil
	})
	if err != nil {
		var violation *reconcile.SequenceViolationError
		if errors.As(err, &violation) {
			s.reconcile.IncSequenceViolation(string(violation.Blocking))
			s.log.Info("milestone completion rejected",
				zap.String("payment_id", id.String()),
				zap.String("blocking_item", string(violation.Blocking)),
				zap.String("blocking_id", violation.BlockingID.String()),
			)
			span.SetAttributes(tracing.SafeAttributes(attribute.String("edit.outcome", metrics.EditOutcomeRejected))...)
		} else {
			s.observeFailure(err)
		}
		return domain.EditResponse{}, s.fail(span, err)
	}

	outcome := metrics.EditOutcomeApplied
	if resp.Reverted {
		outcome = metrics.EditOutcomeReverted
	}
	s.reconcile.IncPaymentEdit(outcome)
	s.reconcile.ObserveEdit(time.Since(started), len(resp.Changed))
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("edit.outcome", outcome),
		attribute.Int("edit.changed", len(resp.Changed)),
	)...)

	s.metrics.RecordMutation(ctx, "payment", "update")
	s.record(ctx, activitydomain.TypeUpdate, resp.Payment,
		fmt.Sprintf("updated the payment status to [%s]", resp.Payment.Status))
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "payment.delete")
	defer span.End()

	paymentID, err := parseID(id)
	if err != nil {
		return s.fail(span, err)
	}
	current, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return s.fail(span, err)
	}
	if current == nil {
		return s.fail(span, domain.ErrNotFound)
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("payment_id", current.ID.String()),
		attribute.String("contract_id", current.ContractID.String()),
	)...)

	err = s.lock.WithContract(ctx, current.ContractID, func(ctx context.Context) error {
		contract, stored, err := s.loadContract(ctx, current.ContractID)
		if errors.Is(err, domain.ErrContractNotFound) {
			// Orphaned milestone: nothing to re-aggregate.
			return s.repo.Delete(ctx, s.db, current.ID)
		}
		if err != nil {
			return err
		}

		remaining, found := reconcile.RemoveMilestone(stored, current.ID)
		if !found {
			return domain.ErrNotFound
		}

		aggregated := reconcile.AggregateContract(contract, remaining, clock.Today(s.clock))
		plan := editPlan{
			contract: contract,
			remove:   current.ID,
			save:     pendingWrites(stored, aggregated.Payments, nil),
		}
		aggregated.Apply(&plan.contract)
		return s.commit(ctx, plan)
	})
	if err != nil {
		s.observeFailure(err)
		return s.fail(span, err)
	}

	s.metrics.RecordMutation(ctx, "payment", "delete")
	s.record(ctx, activitydomain.TypeDelete, *current, "deleted the payment")
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, err
	}
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	payment.Status = reconcile.PaymentStatus(*payment, clock.Today(s.clock))
	return *payment, nil
}

func (s *Service) ListByContract(ctx context.Context, contractID string) ([]domain.Payment, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(contractID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidContract
	}
	_, payments, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}

	today := clock.Today(s.clock)
	for i := range payments {
		payments[i].Status = reconcile.PaymentStatus(payments[i], today)
	}
	return reconcile.SortMilestones(payments), nil
}

func (s *Service) loadContract(ctx context.Context, id snowflake.ID) (contractdomain.Contract, []domain.Payment, error) {
	contract, err := s.contractRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return contractdomain.Contract{}, nil, err
	}
	if contract == nil {
		return contractdomain.Contract{}, nil, domain.ErrContractNotFound
	}
	payments, err := s.repo.ListByContract(ctx, s.db, id)
	if err != nil {
		return contractdomain.Contract{}, nil, err
	}
	return *contract, payments, nil
}

// commit writes plan in one transaction. Only tx is used inside so the
// writes are atomic with the contract metrics.
func (s *Service) commit(ctx context.Context, plan editPlan) error {
	now := s.clock.Now().UTC()
	plan.contract.UpdatedAt = now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if plan.remove != 0 {
			if err := s.repo.Delete(ctx, tx, plan.remove); err != nil {
				return fmt.Errorf("delete payment: %w", err)
			}
		}
		for i := range plan.save {
			p := &plan.save[i]
			p.UpdatedAt = now
			if plan.insert != nil && p.ID == plan.insert.ID {
				p.CreatedAt = plan.insert.CreatedAt
				if err := s.repo.Insert(ctx, tx, p); err != nil {
					return fmt.Errorf("insert payment: %w", err)
				}
				*plan.insert = *p
				continue
			}
			if err := s.repo.Update(ctx, tx, p); err != nil {
				return fmt.Errorf("update payment: %w", err)
			}
		}
		if err := s.contractRepo.UpdateMetrics(ctx, tx, &plan.contract); err != nil {
			return fmt.Errorf("update contract metrics: %w", err)
		}
		return nil
	})
}

func (s *Service) observeFailure(err error) {
	if isValidationErr(err) {
		return
	}
	s.reconcile.IncEditError(err)
	s.log.Warn("payment mutation failed", zap.Error(err))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(tracing.SafeError(err))
	span.SetStatus(codes.Error, "payment mutation failed")
	return err
}

func (s *Service) record(ctx context.Context, typ activitydomain.Type, payment domain.Payment, description string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activitydomain.RecordRequest{
		Type:        typ,
		Category:    activitydomain.CategoryPayment,
		TargetName:  string(payment.Item),
		Description: description,
		Metadata: map[string]any{
			"payment_id":  payment.ID.String(),
			"contract_id": payment.ContractID.String(),
		},
	})
}

// pendingWrites returns changed followed by every other milestone whose
// derived status drifted from the stored one.
func pendingWrites(stored, next, changed []domain.Payment) []domain.Payment {
	before := make(map[snowflake.ID]domain.Status, len(stored))
	for _, p := range stored {
		before[p.ID] = p.Status
	}

	writes := make([]domain.Payment, 0, len(changed))
	seen := make(map[snowflake.ID]struct{}, len(changed))
	for _, p := range changed {
		seen[p.ID] = struct{}{}
	}
	for _, p := range changed {
		for _, n := range next {
			if n.ID == p.ID {
				p = n
				break
			}
		}
		writes = append(writes, p)
	}
	for _, p := range next {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		if status, ok := before[p.ID]; ok && status != p.Status {
			writes = append(writes, p)
		}
	}
	return writes
}

func registeredBalance(contract contractdomain.Contract, payments []domain.Payment) int64 {
	balance := contract.Amount
	for _, p := range payments {
		balance -= p.Amount
	}
	return balance
}

func normalizeFields(in domain.PaymentFields) (domain.PaymentFields, error) {
	out := in
	if !out.Item.Valid() {
		return out, domain.ErrInvalidItem
	}
	if out.Amount <= 0 {
		return out, domain.ErrInvalidAmount
	}
	if in.ScheduledDate == nil || in.ScheduledDate.IsZero() {
		return out, domain.ErrInvalidScheduledDate
	}
	out.ScheduledDate = dateOnly(in.ScheduledDate)
	out.InvoiceDate = dateOnly(in.InvoiceDate)
	out.CompletionDate = dateOnly(in.CompletionDate)
	if out.Status != domain.StatusCompleted {
		out.Status = ""
	}
	return out, nil
}

func isValidationErr(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidID,
		domain.ErrInvalidContract,
		domain.ErrInvalidItem,
		domain.ErrInvalidAmount,
		domain.ErrInvalidScheduledDate,
		domain.ErrDuplicateDeposit,
		domain.ErrExceedsRegisteredBalance,
		domain.ErrContractNotFound,
		domain.ErrNotFound,
		reconcile.ErrSequenceViolation,
		reconcile.ErrMilestoneNotFound,
		lock.ErrContractBusy,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := clock.DateOf(*t)
	return &d
}
