package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	"github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
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
	customerRepo customerdomain.Repository
	contractRepo contractdomain.Repository
	paymentRepo  paymentdomain.Repository
	activity     activitydomain.Service
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("project.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		contractRepo: p.ContractRepo,
		paymentRepo:  p.PaymentRepo,
		activity:     p.Activity,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProjectRequest) (domain.Project, error) {
	fields, customerID, err := s.normalizeFields(ctx, req.ProjectFields)
	if err != nil {
		return domain.Project{}, err
	}

	now := s.clock.Now().UTC()
	project := domain.Project{
		ID:         s.genID.Generate(),
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyFields(&project, fields)

	if err := s.repo.Insert(ctx, s.db, &project); err != nil {
		return domain.Project{}, err
	}
	project.Status = reconcile.ProjectStatus(project, nil, clock.Today(s.clock))

	s.metrics.RecordMutation(ctx, "project", "create")
	s.record(ctx, activitydomain.TypeCreate, project, "created a new project")
	return project, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProjectRequest) (domain.Project, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Project{}, err
	}
	fields, customerID, err := s.normalizeFields(ctx, req.ProjectFields)
	if err != nil {
		return domain.Project{}, err
	}

	project, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Project{}, err
	}
	if project == nil {
		return domain.Project{}, domain.ErrNotFound
	}

	project.CustomerID = customerID
	applyFields(project, fields)
	project.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, project); err != nil {
		return domain.Project{}, err
	}
	if err := s.withStatus(ctx, []*domain.Project{project}); err != nil {
		return domain.Project{}, err
	}

	s.metrics.RecordMutation(ctx, "project", "update")
	s.record(ctx, activitydomain.TypeUpdate, *project, "changed the project settings")
	return *project, nil
}

// Delete removes the project with its contracts and their payments.
func (s *Service) Delete(ctx context.Context, id string) error {
	projectID, err := parseID(id)
	if err != nil {
		return err
	}

	project, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return domain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projectIDs := []snowflake.ID{project.ID}
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
		return s.repo.Delete(ctx, tx, project.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("project deleted", zap.String("project_id", project.ID.String()))

	s.metrics.RecordMutation(ctx, "project", "delete")
	s.record(ctx, activitydomain.TypeDelete, *project, "deleted the project")
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Project, error) {
	projectID, err := parseID(id)
	if err != nil {
		return domain.Project{}, err
	}

	project, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if project == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	if err := s.withStatus(ctx, []*domain.Project{project}); err != nil {
		return domain.Project{}, err
	}
	return *project, nil
}

// List returns projects with derived statuses. Completed projects sort last,
// the rest by start date, newest first.
func (s *Service) List(ctx context.Context, req domain.ListProjectRequest) ([]domain.Project, error) {
	var filter domain.ListProjectFilter
	if value := strings.TrimSpace(req.CustomerID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil {
			return nil, domain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}
	filter.Name = strings.TrimSpace(req.Name)

	var status domain.Status
	if value := strings.TrimSpace(req.Status); value != "" {
		status = domain.Status(value)
		if !validStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if err := s.withStatus(ctx, items); err != nil {
		return nil, err
	}

	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		projects = append(projects, *item)
	}
	slices.SortStableFunc(projects, compareProjects)
	return projects, nil
}

// withStatus derives the status of every project from its recomputed
// contracts.
func (s *Service) withStatus(ctx context.Context, projects []*domain.Project) error {
	ids := make([]snowflake.ID, 0, len(projects))
	for _, p := range projects {
		if p != nil {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	contracts, err := s.contractRepo.ListByProjects(ctx, s.db, ids)
	if err != nil {
		return err
	}
	contractIDs := make([]snowflake.ID, 0, len(contracts))
	for _, c := range contracts {
		contractIDs = append(contractIDs, c.ID)
	}
	payments, err := s.paymentRepo.ListByContracts(ctx, s.db, contractIDs)
	if err != nil {
		return err
	}

	today := clock.Today(s.clock)
	byProject := make(map[snowflake.ID][]contractdomain.Contract)
	for _, c := range reconcile.RecomputeContracts(contracts, payments, today) {
		byProject[c.ProjectID] = append(byProject[c.ProjectID], c)
	}
	for _, p := range projects {
		if p != nil {
			p.Status = reconcile.ProjectStatus(*p, byProject[p.ID], today)
		}
	}
	return nil
}

func (s *Service) normalizeFields(ctx context.Context, in domain.ProjectFields) (domain.ProjectFields, snowflake.ID, error) {
	out := in
	out.Name = strings.TrimSpace(in.Name)
	if out.Name == "" {
		return out, 0, domain.ErrInvalidName
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(in.CustomerID))
	if err != nil || customerID == 0 {
		return out, 0, domain.ErrInvalidCustomer
	}
	if out.Budget < 0 {
		return out, 0, domain.ErrInvalidBudget
	}
	out.StartDate = dateOnly(in.StartDate)
	out.EndDate = dateOnly(in.EndDate)
	if out.StartDate != nil && out.EndDate != nil && out.EndDate.Before(*out.StartDate) {
		return out, 0, domain.ErrInvalidPeriod
	}
	out.DeptName = strings.TrimSpace(in.DeptName)
	out.ManagerName = strings.TrimSpace(in.ManagerName)
	out.ManagerPhone = customerdomain.FormatPhoneNumber(in.ManagerPhone)
	out.Notes = strings.TrimSpace(in.Notes)

	customer, err := s.customerRepo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return out, 0, err
	}
	if customer == nil {
		return out, 0, domain.ErrCustomerNotFound
	}
	return out, customerID, nil
}

func (s *Service) record(ctx context.Context, typ activitydomain.Type, project domain.Project, description string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activitydomain.RecordRequest{
		Type:        typ,
		Category:    activitydomain.CategoryProject,
		TargetName:  project.Name,
		Description: description,
		Metadata: map[string]any{
			"project_id":  project.ID.String(),
			"customer_id": project.CustomerID.String(),
		},
	})
}

func applyFields(p *domain.Project, fields domain.ProjectFields) {
	p.Name = fields.Name
	p.StartDate = fields.StartDate
	p.EndDate = fields.EndDate
	p.Budget = fields.Budget
	p.DeptName = fields.DeptName
	p.ManagerName = fields.ManagerName
	p.ManagerPhone = fields.ManagerPhone
	p.Notes = fields.Notes
	p.Metadata = nil
	if len(fields.Metadata) > 0 {
		p.Metadata = datatypes.JSONMap(fields.Metadata)
	}
}

func compareProjects(a, b domain.Project) int {
	ra, rb := completedRank(a.Status), completedRank(b.Status)
	if ra != rb {
		return ra - rb
	}
	switch {
	case a.StartDate == nil && b.StartDate == nil:
	case a.StartDate == nil:
		return 1
	case b.StartDate == nil:
		return -1
	default:
		if c := b.StartDate.Compare(*a.StartDate); c != 0 {
			return c
		}
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

func completedRank(status domain.Status) int {
	if status == domain.StatusCompleted {
		return 1
	}
	return 0
}

func validStatus(status domain.Status) bool {
	switch status {
	case domain.StatusPreparing, domain.StatusInProgress, domain.StatusDelayed, domain.StatusCompleted:
		return true
	default:
		return false
	}
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
