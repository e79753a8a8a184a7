package ranking

import "go.uber.org/fx"

var Module = fx.Module("ranking.service",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(registerRoutes),
)
