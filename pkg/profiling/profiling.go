package profiling

import (
	"context"

	"contest-review/pkg/config"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module starts continuous profiling when PYROSCOPE.ADDR is configured.
var Module = fx.Module("profiling", fx.Invoke(Start))

func profileTypes(env string) []pyroscope.ProfileType {
	types := []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if env != "production" {
		types = append(types,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockDuration,
		)
	}
	return types
}

func Start(lc fx.Lifecycle, c *config.Config) error {
	if c.Pyroscope.Addr == "" {
		zap.L().Info("pyroscope disabled, no address configured")
		return nil
	}

	var profiler *pyroscope.Profiler
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			profiler, err = pyroscope.Start(pyroscope.Config{
				ApplicationName: c.AppName,
				ServerAddress:   c.Pyroscope.Addr,
				ProfileTypes:    profileTypes(c.AppEnv),
				Tags: map[string]string{
					"service_name": c.AppName,
					"version":      c.AppVersion,
					"env":          c.AppEnv,
				},
			})
			if err != nil {
				zap.L().Error("failed to start pyroscope", zap.Error(err))
				return err
			}
			zap.L().Info("pyroscope started", zap.String("addr", c.Pyroscope.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if profiler == nil {
				return nil
			}
			return profiler.Stop()
		},
	})
	return nil
}
