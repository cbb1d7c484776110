package httpapi

import (
	"context"
)

// joinContexts derives from b and also cancels when a is done. An a that is
// already done cancels the result before it is returned.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(b)
	if a.Err() != nil {
		cancel()
		return ctx, cancel
	}
	stop := context.AfterFunc(a, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
