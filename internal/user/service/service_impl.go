package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/clock"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	"github.com/smallbiznis/milestone/internal/user/domain"
	"github.com/smallbiznis/milestone/internal/user/password"
	pkgdb "github.com/smallbiznis/milestone/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Activity activitydomain.Service `optional:"true"`
	Metrics  *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	activity activitydomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		activity: p.Activity,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	fields, err := normalizeFields(req.UserFields)
	if err != nil {
		return domain.User{}, err
	}
	if req.Password == "" {
		return domain.User{}, domain.ErrInvalidPassword
	}
	if err := s.ensureUnique(ctx, fields.Username, 0); err != nil {
		return domain.User{}, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clock.Now().UTC()
	user := domain.User{
		ID:           s.genID.Generate(),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyFields(&user, fields)

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrDuplicateUsername
		}
		return domain.User{}, err
	}

	s.metrics.RecordMutation(ctx, "user", "create")
	s.record(ctx, activitydomain.TypeCreate, user, "registered a new user")
	return user, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateUserRequest) (domain.User, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}
	fields, err := normalizeFields(req.UserFields)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	if err := s.ensureUnique(ctx, fields.Username, user.ID); err != nil {
		return domain.User{}, err
	}

	if req.Password != "" {
		hash, err := password.Hash(req.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.PasswordHash = hash
	}
	applyFields(user, fields)
	user.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, user); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrDuplicateUsername
		}
		return domain.User{}, err
	}

	s.metrics.RecordMutation(ctx, "user", "update")
	s.record(ctx, activitydomain.TypeUpdate, *user, "updated the user details")
	return *user, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, s.db, user.ID); err != nil {
		return err
	}

	s.metrics.RecordMutation(ctx, "user", "delete")
	s.record(ctx, activitydomain.TypeDelete, *user, "revoked the user's access")
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item != nil {
			users = append(users, *item)
		}
	}
	return users, nil
}

func (s *Service) Authenticate(ctx context.Context, req domain.LoginRequest) (domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		s.log.Info("login rejected", zap.String("username", username))
		return domain.User{}, domain.ErrInvalidCredentials
	}

	if password.NeedsRehash(user.PasswordHash) {
		if hash, err := password.Hash(req.Password); err == nil {
			user.PasswordHash = hash
			if err := s.repo.Update(ctx, s.db, user); err != nil {
				s.log.Warn("failed to upgrade password hash", zap.String("user_id", user.ID.String()), zap.Error(err))
			}
		}
	}

	s.record(ctx, activitydomain.TypeLogin, *user, "signed in")
	return *user, nil
}

func (s *Service) ensureUnique(ctx context.Context, username string, exceptID snowflake.ID) error {
	existing, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != exceptID {
		return domain.ErrDuplicateUsername
	}
	return nil
}

func (s *Service) record(ctx context.Context, typ activitydomain.Type, user domain.User, description string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activitydomain.RecordRequest{
		Type:        typ,
		Category:    activitydomain.CategoryUser,
		TargetName:  user.Name,
		Description: description,
		Metadata:    map[string]any{"user_id": user.ID.String()},
	})
}

func normalizeFields(in domain.UserFields) (domain.UserFields, error) {
	out := domain.UserFields{
		Username: strings.TrimSpace(in.Username),
		Name:     strings.TrimSpace(in.Name),
		Position: strings.TrimSpace(in.Position),
		Phone:    customerdomain.FormatPhoneNumber(in.Phone),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Notes:    strings.TrimSpace(in.Notes),
	}
	if out.Username == "" || strings.ContainsAny(out.Username, " \t\n") {
		return out, domain.ErrInvalidUsername
	}
	if out.Name == "" {
		return out, domain.ErrInvalidName
	}
	if out.Email != "" {
		addr, err := mail.ParseAddress(out.Email)
		if err != nil || addr.Address != out.Email {
			return out, domain.ErrInvalidEmail
		}
	}
	return out, nil
}

func applyFields(u *domain.User, f domain.UserFields) {
	u.Username = f.Username
	u.Name = f.Name
	u.Position = f.Position
	u.Phone = f.Phone
	u.Email = f.Email
	u.Notes = f.Notes
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
