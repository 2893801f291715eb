package sim

import "fmt"

// HookPosConnMsgFwd marks when a DirectConnection hands a message from one
// port's outgoing buffer to another port's incoming buffer.
var HookPosConnMsgFwd = &HookPos{Name: "Conn Msg Forward"}

// DirectConnection is a zero-latency, infinite-bandwidth connection: every
// port plugged into it can reach every other port with no arbitration and
// no extra delay. It is the default wiring used between an agent and the
// fabric ingress/egress it is statically bound to.
type DirectConnection struct {
	*HookableBase

	name  string
	ports []Port
}

// NewDirectConnection creates a DirectConnection.
func NewDirectConnection(name string) *DirectConnection {
	return &DirectConnection{
		HookableBase: NewHookableBase(),
		name:         name,
	}
}

// Name returns the connection's name.
func (c *DirectConnection) Name() string {
	return c.name
}

// PlugIn attaches a port to the connection. It does not forward anything
// already sitting in the port's outgoing buffer; forwarding starts with
// the port's next Send or a NotifyAvailable.
func (c *DirectConnection) PlugIn(port Port) {
	for _, p := range c.ports {
		if p == port {
			panic(fmt.Sprintf("port %s already plugged into %s",
				port.Name(), c.name))
		}
	}

	c.ports = append(c.ports, port)
	port.SetConnection(c)
}

// Unplug detaches a port from the connection.
func (c *DirectConnection) Unplug(port Port) {
	for i, p := range c.ports {
		if p == port {
			c.ports = append(c.ports[:i], c.ports[i+1:]...)
			return
		}
	}
}

// NotifyAvailable is called by a port when it frees up incoming capacity;
// the connection retries forwarding from every port since any of them may
// have been blocked on this one.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.forwardAll()
}

// NotifySend is called by a port when it has a new message to forward.
func (c *DirectConnection) NotifySend() {
	c.forwardAll()
}

func (c *DirectConnection) forwardAll() {
	for _, src := range c.ports {
		c.forwardFrom(src)
	}
}

func (c *DirectConnection) forwardFrom(src Port) {
	for {
		msg := src.PeekOutgoing()
		if msg == nil {
			return
		}

		dst := c.findPort(msg.Meta().Dst)
		if dst == nil {
			panic(fmt.Sprintf("connection %s has no port named %s",
				c.name, msg.Meta().Dst))
		}

		err := dst.Deliver(msg)
		if err != nil {
			return
		}

		src.RetrieveOutgoing()
		c.InvokeHook(HookCtx{Domain: c, Pos: HookPosConnMsgFwd, Item: msg})
	}
}

func (c *DirectConnection) findPort(name RemotePort) Port {
	for _, p := range c.ports {
		if p.AsRemote() == name {
			return p
		}
	}

	return nil
}
