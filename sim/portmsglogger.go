package sim

import (
	"fmt"
	"io"
)

// PortMsgLogger is a Hook meant to be attached to Ports; it logs only
// send/receive events, skipping the noisier buffer-level positions.
type PortMsgLogger struct {
	writer io.Writer
}

// NewPortMsgLogger creates a PortMsgLogger writing to w.
func NewPortMsgLogger(w io.Writer) *PortMsgLogger {
	return &PortMsgLogger{writer: w}
}

// Func implements Hook.
func (l *PortMsgLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosPortMsgSend && ctx.Pos != HookPosPortMsgRecv {
		return
	}

	msg, ok := ctx.Item.(Msg)
	if !ok {
		return
	}

	fmt.Fprintf(l.writer, "[%s] %s -> %s: %T (id=%s)\n",
		ctx.Pos.Name, msg.Meta().Src, msg.Meta().Dst, msg, msg.Meta().ID)
}
