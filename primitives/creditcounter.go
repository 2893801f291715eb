package primitives

// CreditCounter is a non-negative integer counting how many messages of
// one (class, destination) pair may still be emitted before the sender
// must wait for more to be returned. Debit is called at emission time,
// Credit when the matching response (or an explicit credit-return
// message) arrives.
type CreditCounter struct {
	name    string
	balance int
	max     int

	onCredit func()
}

// NewCreditCounter creates a CreditCounter seeded with initial credits, up
// to a maximum of max (the configured queue depth on the receiving side).
func NewCreditCounter(name string, initial, max int) *CreditCounter {
	if initial < 0 || initial > max {
		panic("primitives: invalid initial credit")
	}

	return &CreditCounter{name: name, balance: initial, max: max}
}

// Name returns the counter's name.
func (c *CreditCounter) Name() string { return c.name }

// Balance returns the current credit balance.
func (c *CreditCounter) Balance() int { return c.balance }

// Empty reports whether no credit remains.
func (c *CreditCounter) Empty() bool { return c.balance == 0 }

// OnCredit registers a callback fired whenever Credit moves the balance
// up from zero — the event a sender blocked on ErrNoCredit waits on.
func (c *CreditCounter) OnCredit(f func()) { c.onCredit = f }

// Debit consumes one credit, returning ErrNoCredit if the balance is
// already zero.
func (c *CreditCounter) Debit() error {
	if c.balance == 0 {
		return ErrNoCredit
	}

	c.balance--

	return nil
}

// Credit returns one credit to the pool. It panics if this would exceed
// max: that means a response returned more credit than was ever debited,
// which is a protocol/accounting bug, not backpressure.
func (c *CreditCounter) Credit() {
	if c.balance >= c.max {
		panic("primitives: credit counter " + c.name + " over-credited")
	}

	wasEmpty := c.Empty()
	c.balance++

	if wasEmpty && c.onCredit != nil {
		c.onCredit()
	}
}
