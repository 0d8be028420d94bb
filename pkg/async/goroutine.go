// Package async provides safe goroutine execution for background tasks such
// as audit event writes. SafeGo adds panic recovery, a per-task timeout and
// error logging on top of a bare `go func()`.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/folderguard/folderguard/pkg/observability"
)

// SafeGo executes fn in a goroutine with context cancellation, panic
// recovery and timeout enforcement. Errors are logged, never fatal; the
// caller has already answered the request by the time fn runs.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	logger := observability.FromContext(parentCtx)
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("Background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
