package payment

import (
	"github.com/smallbiznis/milestone/internal/payment/repository"
	"github.com/smallbiznis/milestone/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
