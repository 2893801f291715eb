package sim

// BufferedSender holds messages that a middleware wants to send but
// couldn't yet, because the destination port's outgoing buffer was full.
// Every Tick, a middleware should call Tick first to drain the backlog
// before attempting to enqueue anything new — this preserves send order.
type BufferedSender struct {
	port    Port
	pending []Msg
}

// NewBufferedSender creates a BufferedSender that sends through port.
func NewBufferedSender(port Port) *BufferedSender {
	return &BufferedSender{port: port}
}

// CanSend reports whether a new message could be sent right now, i.e.
// there's no backlog and the port itself isn't full.
func (s *BufferedSender) CanSend() bool {
	return len(s.pending) == 0 && s.port.CanSend()
}

// Send enqueues msg. If there is no backlog it is sent immediately;
// otherwise it joins the backlog behind whatever is already pending.
func (s *BufferedSender) Send(msg Msg) {
	s.pending = append(s.pending, msg)
	s.Tick()
}

// Tick attempts to drain the backlog in order, stopping at the first
// message that the port still can't accept. It returns true if it sent
// at least one message.
func (s *BufferedSender) Tick() bool {
	sentAny := false

	for len(s.pending) > 0 {
		err := s.port.Send(s.pending[0])
		if err != nil {
			break
		}

		s.pending = s.pending[1:]
		sentAny = true
	}

	return sentAny
}

// Pending returns the number of messages waiting to be sent.
func (s *BufferedSender) Pending() int {
	return len(s.pending)
}
