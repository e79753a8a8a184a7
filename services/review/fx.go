package review

import (
	"go.uber.org/fx"
)

var Module = fx.Module("review.service",
	fx.Provide(NewPointsPolicy, NewService),
)

var Routes = fx.Module("review.routes",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)
