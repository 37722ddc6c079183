// Package goroutine provides panic recovery helpers for background work and
// request-scoped handlers.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/infusio/infusio/internal/shared/logger"
)

// SafeGo launches fn in a goroutine. A panic is logged with its stack trace
// instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(log, name, r)
			}
		}()
		fn()
	}()
}

// RecoverInto is deferred by callers that must turn a panic into an ordinary
// error return. It logs the panic and stores it in *errp.
//
//	defer goroutine.RecoverInto(log, "inbound-email", &err)
func RecoverInto(log logger.Interface, name string, errp *error) {
	if r := recover(); r != nil {
		logPanic(log, name, r)
		if errp != nil {
			*errp = fmt.Errorf("%s panicked: %v", name, r)
		}
	}
}

func logPanic(log logger.Interface, name string, r any) {
	log.Errorw("goroutine panicked",
		"goroutine", name,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()),
	)
}
