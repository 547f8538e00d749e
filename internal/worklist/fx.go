package worklist

import (
	"github.com/smallbiznis/milestone/internal/worklist/service"
	"go.uber.org/fx"
)

var Module = fx.Module("worklist.service",
	fx.Provide(service.New),
)
