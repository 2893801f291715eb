package sim

import (
	"fmt"
	"io"
)

// LogHook prints one line per hook invocation; it's the simplest possible
// tracer, used for debugging small scenarios by eye.
type LogHook struct {
	writer io.Writer
}

// NewLogHook creates a LogHook writing to w.
func NewLogHook(w io.Writer) *LogHook {
	return &LogHook{writer: w}
}

// Func implements Hook.
func (h *LogHook) Func(ctx HookCtx) {
	fmt.Fprintf(h.writer, "[%s] %s: %v\n",
		ctx.Pos.Name, ctx.Domain.(Named).Name(), ctx.Item)
}
