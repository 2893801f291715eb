package sim

import "fmt"

// HookPosPortMsgSend marks when a message is pushed into a port's outgoing
// buffer.
var HookPosPortMsgSend = &HookPos{Name: "Port Msg Send"}

// HookPosPortMsgRecv marks when a message is delivered into a port's
// incoming buffer.
var HookPosPortMsgRecv = &HookPos{Name: "Port Msg Recv"}

// A Port is the plug-in point through which a Component exchanges messages
// with a Connection. Queue depth is entirely a property of the port's
// buffers: a port with capacity N is the bounded FIFO of that capacity.
type Port interface {
	Named
	Hookable

	AsRemote() RemotePort
	SetConnection(conn Connection)
	Component() Component

	// Used by the Connection plugged into this port.
	Deliver(msg Msg) *SendError
	CanDeliver() bool
	NotifyAvailable()
	RetrieveOutgoing() Msg
	PeekOutgoing() Msg

	// Used by the Component that owns this port.
	CanSend() bool
	Send(msg Msg) *SendError
	RetrieveIncoming() Msg
	PeekIncoming() Msg
}

// NewPort creates a Port owned by comp with the given incoming/outgoing
// buffer depths.
func NewPort(comp Component, incomingCap, outgoingCap int, name string) Port {
	return &defaultPort{
		HookableBase: NewHookableBase(),
		comp:         comp,
		name:         name,
		incomingBuf:  NewBuffer(name+".Incoming", incomingCap),
		outgoingBuf:  NewBuffer(name+".Outgoing", outgoingCap),
	}
}

type defaultPort struct {
	*HookableBase

	name string
	comp Component
	conn Connection

	incomingBuf Buffer
	outgoingBuf Buffer
}

func (p *defaultPort) Name() string {
	return p.name
}

func (p *defaultPort) AsRemote() RemotePort {
	return RemotePort(p.name)
}

func (p *defaultPort) SetConnection(conn Connection) {
	if p.conn != nil {
		panic(fmt.Sprintf(
			"port %s already connected to %s, cannot connect to %s",
			p.name, p.conn.Name(), conn.Name()))
	}

	p.conn = conn
}

func (p *defaultPort) Component() Component {
	return p.comp
}

func (p *defaultPort) CanSend() bool {
	return p.outgoingBuf.CanPush()
}

func (p *defaultPort) Send(msg Msg) *SendError {
	p.msgMustBeValid(msg)

	if !p.outgoingBuf.CanPush() {
		return NewSendError()
	}

	wasEmpty := p.outgoingBuf.Size() == 0
	p.outgoingBuf.Push(msg)
	p.InvokeHook(HookCtx{Domain: p, Pos: HookPosPortMsgSend, Item: msg})

	if wasEmpty && p.conn != nil {
		p.conn.NotifySend()
	}

	return nil
}

// CanDeliver reports whether Deliver would currently succeed, without
// attempting it — the incoming-buffer counterpart to CanSend.
func (p *defaultPort) CanDeliver() bool {
	return p.incomingBuf.CanPush()
}

func (p *defaultPort) Deliver(msg Msg) *SendError {
	if !p.incomingBuf.CanPush() {
		return NewSendError()
	}

	wasEmpty := p.incomingBuf.Size() == 0
	p.InvokeHook(HookCtx{Domain: p, Pos: HookPosPortMsgRecv, Item: msg})
	p.incomingBuf.Push(msg)

	if p.comp != nil && wasEmpty {
		p.comp.NotifyRecv(p)
	}

	return nil
}

func (p *defaultPort) RetrieveIncoming() Msg {
	item := p.incomingBuf.Pop()
	if item == nil {
		return nil
	}

	if p.incomingBuf.Size() == p.incomingBuf.Capacity()-1 && p.conn != nil {
		p.conn.NotifyAvailable(p)
	}

	return item.(Msg)
}

func (p *defaultPort) RetrieveOutgoing() Msg {
	item := p.outgoingBuf.Pop()
	if item == nil {
		return nil
	}

	if p.outgoingBuf.Size() == p.outgoingBuf.Capacity()-1 && p.comp != nil {
		p.comp.NotifyPortFree(p)
	}

	return item.(Msg)
}

func (p *defaultPort) PeekIncoming() Msg {
	item := p.incomingBuf.Peek()
	if item == nil {
		return nil
	}

	return item.(Msg)
}

func (p *defaultPort) PeekOutgoing() Msg {
	item := p.outgoingBuf.Peek()
	if item == nil {
		return nil
	}

	return item.(Msg)
}

func (p *defaultPort) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}

func (p *defaultPort) msgMustBeValid(msg Msg) {
	if p.Name() != string(msg.Meta().Src) {
		panic(fmt.Sprintf("sending port %s is not msg src %s",
			p.Name(), msg.Meta().Src))
	}

	if msg.Meta().Dst == "" {
		panic("message dst is not set")
	}

	if msg.Meta().Src == msg.Meta().Dst {
		panic("message is addressed back to its own source")
	}
}
