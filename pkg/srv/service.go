package srv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/stridemem/pkg/log"
)

// ShutdownTimeout bounds the whole shutdown sequence.
var ShutdownTimeout = 10 * time.Second

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices runs each service in its own goroutine. A start error is
// fatal.
func StartServices(ctx context.Context, services []Service) {
	for _, service := range services {
		go func(service Service) {
			logger := log.FromCtx(ctx).With().Str("service", serviceName(service)).Logger()
			if err := service.Start(ctx); err != nil {
				logger.Fatal().Err(err).Msg("service failed")
			}
			logger.Debug().Msg("service stopped")
		}(service)
	}
}

// ShutdownServices blocks until ctx is done, then shuts services down in
// reverse order on a fresh deadline. Resources registered first are
// released last.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		service := services[i]
		if err := service.Shutdown(sctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Str("service", serviceName(service)).Msg("shutdown failed")
		}
	}
}

func serviceName(s Service) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", s), "*")
}
