package wrap

import (
	"context"
	"errors"
)

// Error wraps err with the current LogCtx from the context.
// When ctx carries no LogCtx the one already attached to err is kept.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	c, ok := ctx.Value(LogCtxKey).(LogCtx)
	if !ok {
		var e *errorWithLogCtx
		if errors.As(err, &e) {
			c = e.logCtx
		}
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: c,
	}
}
