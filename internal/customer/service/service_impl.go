package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/customer/domain"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	pkgdb "github.com/smallbiznis/milestone/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const regNoDigits = 10

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	ProjectRepo  projectdomain.Repository
	ContractRepo contractdomain.Repository
	PaymentRepo  paymentdomain.Repository
	Activity     activitydomain.Service `optional:"true"`
	Metrics      *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	projectRepo  projectdomain.Repository
	contractRepo contractdomain.Repository
	paymentRepo  paymentdomain.Repository
	activity     activitydomain.Service
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("customer.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		projectRepo:  p.ProjectRepo,
		contractRepo: p.ContractRepo,
		paymentRepo:  p.PaymentRepo,
		activity:     p.Activity,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	fields, err := normalizeFields(req.CustomerFields)
	if err != nil {
		return domain.Customer{}, err
	}
	if err := s.ensureUnique(ctx, fields, 0); err != nil {
		return domain.Customer{}, err
	}

	now := s.clock.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyFields(&customer, fields)

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, duplicateErr(err)
	}

	s.metrics.RecordMutation(ctx, "customer", "create")
	s.record(ctx, activitydomain.TypeCreate, customer, "registered a new customer")
	return customer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}
	fields, err := normalizeFields(req.CustomerFields)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if err := s.ensureUnique(ctx, fields, customer.ID); err != nil {
		return domain.Customer{}, err
	}

	applyFields(customer, fields)
	customer.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return domain.Customer{}, duplicateErr(err)
	}

	s.metrics.RecordMutation(ctx, "customer", "update")
	s.record(ctx, activitydomain.TypeUpdate, *customer, "updated the customer details")
	return *customer, nil
}

// Delete removes the customer together with its projects, their contracts and
// the contracts' payments.
func (s *Service) Delete(ctx context.Context, id string) error {
	customerID, err := parseID(id)
	if err != nil {
		return err
	}

	customer, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return domain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projectIDs, err := s.projectRepo.ListIDsByCustomer(ctx, tx, customer.ID)
		if err != nil {
			return err
		}
		contractIDs, err := s.contractRepo.ListIDsByProjects(ctx, tx, projectIDs)
		if err != nil {
			return err
		}
		if err := s.paymentRepo.DeleteByContracts(ctx, tx, contractIDs); err != nil {
			return err
		}
		if err := s.contractRepo.DeleteByProjects(ctx, tx, projectIDs); err != nil {
			return err
		}
		if err := s.projectRepo.DeleteByCustomer(ctx, tx, customer.ID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, customer.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("customer deleted", zap.String("customer_id", customer.ID.String()))

	s.metrics.RecordMutation(ctx, "customer", "delete")
	s.record(ctx, activitydomain.TypeDelete, *customer, "deleted the customer and its related data")
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := parseID(id)
	if err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) ([]domain.Customer, error) {
	filter := domain.ListCustomerFilter{Name: strings.TrimSpace(req.Name)}
	if value := strings.TrimSpace(req.Type); value != "" {
		filter.Type = domain.Type(value)
		if !filter.Type.Valid() {
			return nil, domain.ErrInvalidType
		}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}
	return customers, nil
}

func (s *Service) ensureUnique(ctx context.Context, fields domain.CustomerFields, exceptID snowflake.ID) error {
	taken, err := s.repo.ExistsByName(ctx, s.db, fields.Name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateName
	}
	taken, err = s.repo.ExistsByRegNo(ctx, s.db, fields.RegNo, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateRegNo
	}
	return nil
}

func (s *Service) record(ctx context.Context, typ activitydomain.Type, customer domain.Customer, description string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activitydomain.RecordRequest{
		Type:        typ,
		Category:    activitydomain.CategoryCustomer,
		TargetName:  customer.Name,
		Description: description,
		Metadata:    map[string]any{"customer_id": customer.ID.String()},
	})
}

func normalizeFields(in domain.CustomerFields) (domain.CustomerFields, error) {
	out := domain.CustomerFields{
		Name:          strings.TrimSpace(in.Name),
		RegNo:         domain.FormatRegNumber(in.RegNo),
		Type:          in.Type,
		CEOName:       strings.TrimSpace(in.CEOName),
		BizType:       strings.TrimSpace(in.BizType),
		BizItem:       strings.TrimSpace(in.BizItem),
		FinanceDept:   strings.TrimSpace(in.FinanceDept),
		ManagerName:   strings.TrimSpace(in.ManagerName),
		Phone:         domain.FormatPhoneNumber(in.Phone),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		BankName:      strings.TrimSpace(in.BankName),
		AccountNo:     strings.TrimSpace(in.AccountNo),
		AccountHolder: strings.TrimSpace(in.AccountHolder),
		ZipCode:       strings.TrimSpace(in.ZipCode),
		Address:       strings.TrimSpace(in.Address),
		Notes:         strings.TrimSpace(in.Notes),
	}

	if out.Name == "" {
		return out, domain.ErrInvalidName
	}
	if len(domain.Digits(out.RegNo)) != regNoDigits {
		return out, domain.ErrInvalidRegNo
	}
	if out.Type == "" {
		out.Type = domain.TypeCommercial
	}
	if !out.Type.Valid() {
		return out, domain.ErrInvalidType
	}
	if out.Email != "" {
		addr, err := mail.ParseAddress(out.Email)
		if err != nil || addr.Address != out.Email {
			return out, domain.ErrInvalidEmail
		}
	}
	return out, nil
}

func applyFields(c *domain.Customer, f domain.CustomerFields) {
	c.Name = f.Name
	c.RegNo = f.RegNo
	c.Type = f.Type
	c.CEOName = f.CEOName
	c.BizType = f.BizType
	c.BizItem = f.BizItem
	c.FinanceDept = f.FinanceDept
	c.ManagerName = f.ManagerName
	c.Phone = f.Phone
	c.Email = f.Email
	c.BankName = f.BankName
	c.AccountNo = f.AccountNo
	c.AccountHolder = f.AccountHolder
	c.ZipCode = f.ZipCode
	c.Address = f.Address
	c.Notes = f.Notes
}

// duplicateErr maps a unique-index violation that slipped past the
// pre-checks to the matching sentinel.
func duplicateErr(err error) error {
	if !pkgdb.IsDuplicateKeyErr(err) {
		return err
	}
	if strings.Contains(err.Error(), "reg_no") {
		return domain.ErrDuplicateRegNo
	}
	return domain.ErrDuplicateName
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
