package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"github.com/smallbiznis/milestone/internal/store/domain"
	userdomain "github.com/smallbiznis/milestone/internal/user/domain"
	"github.com/smallbiznis/milestone/internal/user/password"
	"github.com/smallbiznis/milestone/pkg/db/option"
	"github.com/smallbiznis/milestone/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	restoreOutcomeSuccess = "success"
	restoreOutcomeFailed  = "failed"
	restoreOutcomeInvalid = "invalid"
)

var byCreatedAt = option.WithSortBy(option.WithQuerySortBy("created_at", "asc", map[string]bool{"created_at": true}))

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Activity activitydomain.Service `optional:"true"`
	Metrics  *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	activity activitydomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("store.service"),
		clock:    p.Clock,
		activity: p.Activity,
		metrics:  p.Metrics,
	}
}

// tables bundles the generic stores bound to one connection or transaction.
type tables struct {
	customers repository.Repository[customerdomain.Customer]
	projects  repository.Repository[projectdomain.Project]
	contracts repository.Repository[contractdomain.Contract]
	payments  repository.Repository[paymentdomain.Payment]
	users     repository.Repository[userdomain.User]
}

func tablesOf(db *gorm.DB) tables {
	return tables{
		customers: repository.ProvideStore[customerdomain.Customer](db),
		projects:  repository.ProvideStore[projectdomain.Project](db),
		contracts: repository.ProvideStore[contractdomain.Contract](db),
		payments:  repository.ProvideStore[paymentdomain.Payment](db),
		users:     repository.ProvideStore[userdomain.User](db),
	}
}

// FetchAll exports every entity. Contract metrics and payment statuses are
// recomputed so the export never carries stale derived values.
func (s *Service) FetchAll(ctx context.Context) (domain.Snapshot, error) {
	t := tablesOf(s.db)

	customers, err := t.customers.Find(ctx, nil, byCreatedAt)
	if err != nil {
		return domain.Snapshot{}, err
	}
	projects, err := t.projects.Find(ctx, nil, byCreatedAt)
	if err != nil {
		return domain.Snapshot{}, err
	}
	contracts, err := t.contracts.Find(ctx, nil, byCreatedAt)
	if err != nil {
		return domain.Snapshot{}, err
	}
	payments, err := t.payments.Find(ctx, nil, byCreatedAt)
	if err != nil {
		return domain.Snapshot{}, err
	}
	users, err := t.users.Find(ctx, nil, byCreatedAt)
	if err != nil {
		return domain.Snapshot{}, err
	}

	today := clock.Today(s.clock)
	snap := domain.Snapshot{
		Version:    domain.SnapshotVersion,
		ExportedAt: s.clock.Now().UTC(),
		Customers:  values(customers),
		Projects:   values(projects),
		Payments:   values(payments),
		Users:      make([]domain.BackupUser, 0, len(users)),
	}
	for i := range snap.Payments {
		snap.Payments[i].Status = reconcile.PaymentStatus(snap.Payments[i], today)
	}
	snap.Contracts = reconcile.RecomputeContracts(values(contracts), snap.Payments, today)
	for _, u := range users {
		user := *u
		user.PasswordHash = ""
		snap.Users = append(snap.Users, domain.BackupUser{User: user})
	}
	return snap, nil
}

// ReplaceAll deletes every customer, project, contract and payment and
// inserts the snapshot instead. Contracts of unknown projects and payments of
// unknown contracts are dropped; derived contract fields are recomputed. Users
// are replaced only when the snapshot carries at least one, so a restore
// cannot lock every operator out.
func (s *Service) ReplaceAll(ctx context.Context, snap domain.Snapshot) (domain.RestoreResult, error) {
	if snap.Version > domain.SnapshotVersion {
		s.metrics.RecordRestore(ctx, restoreOutcomeInvalid)
		return domain.RestoreResult{}, domain.ErrUnsupportedVersion
	}
	if err := validate(snap); err != nil {
		s.metrics.RecordRestore(ctx, restoreOutcomeInvalid)
		return domain.RestoreResult{}, err
	}

	today := clock.Today(s.clock)
	now := s.clock.Now().UTC()
	result := domain.RestoreResult{UsersKept: len(snap.Users) == 0}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t := tablesOf(tx)

		var users []*userdomain.User
		if !result.UsersKept {
			existing, err := t.users.Find(ctx, nil, option.ApplyOperator(option.Condition{
				Field:    "username",
				Operator: option.IN,
				Value:    usernames(snap.Users),
			}))
			if err != nil {
				return err
			}
			users, err = restoreUsers(snap.Users, existing, now)
			if err != nil {
				return err
			}
		}

		projectIDs := make(map[snowflake.ID]struct{}, len(snap.Projects))
		for _, p := range snap.Projects {
			projectIDs[p.ID] = struct{}{}
		}
		contracts := make([]contractdomain.Contract, 0, len(snap.Contracts))
		for _, c := range snap.Contracts {
			if _, ok := projectIDs[c.ProjectID]; !ok {
				result.DroppedContracts++
				continue
			}
			contracts = append(contracts, c)
		}

		contractIDs := make(map[snowflake.ID]struct{}, len(contracts))
		for _, c := range contracts {
			contractIDs[c.ID] = struct{}{}
		}
		payments := make([]paymentdomain.Payment, 0, len(snap.Payments))
		for _, p := range snap.Payments {
			if _, ok := contractIDs[p.ContractID]; !ok {
				result.DroppedPayments++
				continue
			}
			p.Status = reconcile.PaymentStatus(p, today)
			payments = append(payments, p)
		}
		contracts = reconcile.RecomputeContracts(contracts, payments, today)

		if err := t.payments.DeleteAll(ctx); err != nil {
			return err
		}
		if err := t.contracts.DeleteAll(ctx); err != nil {
			return err
		}
		if err := t.projects.DeleteAll(ctx); err != nil {
			return err
		}
		if err := t.customers.DeleteAll(ctx); err != nil {
			return err
		}
		if !result.UsersKept {
			if err := t.users.DeleteAll(ctx); err != nil {
				return err
			}
			if err := t.users.BatchCreate(ctx, users); err != nil {
				return fmt.Errorf("restore users: %w", err)
			}
		}

		if err := t.customers.BatchCreate(ctx, pointers(snap.Customers)); err != nil {
			return fmt.Errorf("restore customers: %w", err)
		}
		if err := t.projects.BatchCreate(ctx, pointers(snap.Projects)); err != nil {
			return fmt.Errorf("restore projects: %w", err)
		}
		if err := t.contracts.BatchCreate(ctx, pointers(contracts)); err != nil {
			return fmt.Errorf("restore contracts: %w", err)
		}
		if err := t.payments.BatchCreate(ctx, pointers(payments)); err != nil {
			return fmt.Errorf("restore payments: %w", err)
		}

		result.Customers = len(snap.Customers)
		result.Projects = len(snap.Projects)
		result.Contracts = len(contracts)
		result.Payments = len(payments)
		result.Users = len(users)
		return nil
	})
	if err != nil {
		s.metrics.RecordRestore(ctx, restoreOutcomeFailed)
		s.log.Error("restore failed", zap.Error(err))
		return domain.RestoreResult{}, err
	}

	s.metrics.RecordRestore(ctx, restoreOutcomeSuccess)
	s.log.Info("database restored",
		zap.Int("customers", result.Customers),
		zap.Int("projects", result.Projects),
		zap.Int("contracts", result.Contracts),
		zap.Int("payments", result.Payments),
		zap.Int("dropped_contracts", result.DroppedContracts),
		zap.Int("dropped_payments", result.DroppedPayments),
	)
	s.record(ctx, result)
	return result, nil
}

func (s *Service) record(ctx context.Context, result domain.RestoreResult) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activitydomain.RecordRequest{
		Type:        activitydomain.TypeSystem,
		Category:    activitydomain.CategoryUser,
		TargetName:  "Database",
		Description: "restored the database from a backup",
		Metadata: map[string]any{
			"contracts":         result.Contracts,
			"payments":          result.Payments,
			"dropped_contracts": result.DroppedContracts,
			"dropped_payments":  result.DroppedPayments,
		},
	})
}

// restoreUsers hashes plaintext passwords. A user restored without one keeps
// the hash of the existing account with the same username, if any.
func usernames(in []domain.BackupUser) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		out = append(out, u.Username)
	}
	return out
}

func restoreUsers(in []domain.BackupUser, existing []*userdomain.User, now time.Time) ([]*userdomain.User, error) {
	hashes := make(map[string]string, len(existing))
	for _, u := range existing {
		hashes[u.Username] = u.PasswordHash
	}

	out := make([]*userdomain.User, 0, len(in))
	for _, bu := range in {
		user := bu.User
		switch {
		case bu.Password != "":
			hashed, err := password.Hash(bu.Password)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = hashed
		default:
			user.PasswordHash = hashes[user.Username]
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		if user.UpdatedAt.IsZero() {
			user.UpdatedAt = now
		}
		out = append(out, &user)
	}
	return out, nil
}

func validate(snap domain.Snapshot) error {
	for _, c := range snap.Customers {
		if c.ID == 0 || c.Name == "" {
			return fmt.Errorf("%w: customer without id or name", domain.ErrInvalidSnapshot)
		}
	}
	for _, p := range snap.Projects {
		if p.ID == 0 {
			return fmt.Errorf("%w: project without id", domain.ErrInvalidSnapshot)
		}
	}
	for _, c := range snap.Contracts {
		if c.ID == 0 {
			return fmt.Errorf("%w: contract without id", domain.ErrInvalidSnapshot)
		}
	}
	for _, p := range snap.Payments {
		if p.ID == 0 || !p.Item.Valid() {
			return fmt.Errorf("%w: payment without id or item", domain.ErrInvalidSnapshot)
		}
	}
	for _, u := range snap.Users {
		if u.ID == 0 || u.Username == "" {
			return fmt.Errorf("%w: user without id or username", domain.ErrInvalidSnapshot)
		}
	}
	return nil
}

func values[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func pointers[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
