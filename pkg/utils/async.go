package utils

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// EnsureRunGoroutine runs f on a new goroutine, recovering and logging a panic
// instead of crashing the process. The goroutine is tracked by wg when given.
func EnsureRunGoroutine(logger *zap.Logger, wg *sync.WaitGroup, f func()) {
	if wg != nil {
		wg.Add(1)
	}

	go func() {
		defer func() {
			if wg != nil {
				wg.Done()
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("recovered panic in background task",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
			}
		}()

		f()
	}()
}
