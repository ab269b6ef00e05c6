package srv

import (
	"context"
	"errors"
)

// cleanupService runs resource release functions on shutdown.
type cleanupService struct {
	cleanups []func() error
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

// Shutdown runs cleanups in reverse registration order and reports every
// failure.
func (c *cleanupService) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		if fn := c.cleanups[i]; fn != nil {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func NewCleanup(fns ...func() error) Service {
	return &cleanupService{cleanups: fns}
}
