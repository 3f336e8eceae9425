package stage

import (
	"context"
	"runtime/debug"
)

// Run executes a stage with panic recovery.
//
// Any panic inside the stage body is logged with its stack trace and
// converted to an error Result, so an unexpected fault inside a stage is
// indistinguishable from an ordinary stage failure at the controller level.
func Run(ctx context.Context, logger Logger, s Stage) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			if logger != nil {
				logger.Error("stage_panic_recovered",
					"stage", s.Name(),
					"panic", r,
					"stack", stack,
				)
			}
			result = Errorf("%s failed: internal fault: %v", s.Name(), r)
		}
	}()

	result = s.Execute(ctx)
	if result == nil {
		result = Errorf("%s failed: stage returned no result", s.Name())
	}
	return result
}
