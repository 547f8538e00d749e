package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/milestone/internal/activity"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/config"
	"github.com/smallbiznis/milestone/internal/contract"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/customer"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	"github.com/smallbiznis/milestone/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/milestone/internal/dashboard/domain"
	"github.com/smallbiznis/milestone/internal/observability"
	obslogger "github.com/smallbiznis/milestone/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/milestone/internal/observability/metrics"
	obstracing "github.com/smallbiznis/milestone/internal/observability/tracing"
	"github.com/smallbiznis/milestone/internal/payment"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	"github.com/smallbiznis/milestone/internal/project"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/smallbiznis/milestone/internal/store"
	storedomain "github.com/smallbiznis/milestone/internal/store/domain"
	"github.com/smallbiznis/milestone/internal/user"
	userdomain "github.com/smallbiznis/milestone/internal/user/domain"
	"github.com/smallbiznis/milestone/internal/worklist"
	worklistdomain "github.com/smallbiznis/milestone/internal/worklist/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	activity.Module,
	customer.Module,
	project.Module,
	contract.Module,
	payment.Module,
	user.Module,
	store.Module,
	worklist.Module,
	dashboard.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if httpMetrics != nil {
		r.GET("/metrics", httpMetrics.Handler())
	}

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	customerSvc  customerdomain.Service
	projectSvc   projectdomain.Service
	contractSvc  contractdomain.Service
	paymentSvc   paymentdomain.Service
	userSvc      userdomain.Service
	activitySvc  activitydomain.Service
	storeSvc     storedomain.Service
	worklistSvc  worklistdomain.Service
	dashboardSvc dashboarddomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	CustomerSvc  customerdomain.Service
	ProjectSvc   projectdomain.Service
	ContractSvc  contractdomain.Service
	PaymentSvc   paymentdomain.Service
	UserSvc      userdomain.Service
	ActivitySvc  activitydomain.Service
	StoreSvc     storedomain.Service
	WorklistSvc  worklistdomain.Service
	DashboardSvc dashboarddomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		customerSvc:  p.CustomerSvc,
		projectSvc:   p.ProjectSvc,
		contractSvc:  p.ContractSvc,
		paymentSvc:   p.PaymentSvc,
		userSvc:      p.UserSvc,
		activitySvc:  p.ActivitySvc,
		storeSvc:     p.StoreSvc,
		worklistSvc:  p.WorklistSvc,
		dashboardSvc: p.DashboardSvc,
	}
	svc.RegisterRoutes()
	return svc
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	api.POST("/auth/login", s.Login)

	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PUT("/customers/:id", s.UpdateCustomer)
	api.DELETE("/customers/:id", s.DeleteCustomer)

	api.GET("/projects", s.ListProjects)
	api.POST("/projects", s.CreateProject)
	api.GET("/projects/:id", s.GetProjectByID)
	api.PUT("/projects/:id", s.UpdateProject)
	api.DELETE("/projects/:id", s.DeleteProject)

	api.GET("/contracts", s.ListContracts)
	api.POST("/contracts", s.CreateContract)
	api.GET("/contracts/:id", s.GetContractByID)
	api.PUT("/contracts/:id", s.UpdateContract)
	api.DELETE("/contracts/:id", s.DeleteContract)
	api.GET("/contracts/:id/payments", s.ListContractPayments)

	api.POST("/payments", s.CreatePayment)
	api.GET("/payments/:id", s.GetPaymentByID)
	api.PUT("/payments/:id", s.UpdatePayment)
	api.DELETE("/payments/:id", s.DeletePayment)

	api.GET("/users", s.ListUsers)
	api.POST("/users", s.CreateUser)
	api.GET("/users/:id", s.GetUserByID)
	api.PUT("/users/:id", s.UpdateUser)
	api.DELETE("/users/:id", s.DeleteUser)

	api.GET("/activities", s.ListActivities)
	api.GET("/worklist", s.GetWorklist)
	api.GET("/dashboard", s.GetDashboard)

	api.GET("/backup", s.ExportBackup)
	api.POST("/backup/restore", s.RestoreBackup)

	if !s.cfg.IsProduction() {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}
