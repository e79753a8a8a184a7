package ledger

import (
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(NewService),
)

var Routes = fx.Module("ledger.routes",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)

var Worker = fx.Module("ledger.worker",
	fx.Provide(NewTaskHandler, NewScheduler),
	fx.Invoke(registerTaskHandlers, StartScheduler),
)
