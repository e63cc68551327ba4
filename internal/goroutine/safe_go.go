package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/propelhq/propel-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic. Используется для
// побочных эффектов типа "fire-and-forget": уведомления, письма, инвойсы.
// Паника в фоне не должна уронить процесс после успешного расчёта.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.Errorf("panic in goroutine: %v\nstack:\n%s", r, debug.Stack())
				}
			}
		}()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.Errorf("panic in goroutine: %v\nstack:\n%s", r, debug.Stack())
				}
			}
		}()
		fn(ctx)
	}()
}
