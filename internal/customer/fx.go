package customer

import (
	"github.com/smallbiznis/milestone/internal/customer/repository"
	"github.com/smallbiznis/milestone/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
