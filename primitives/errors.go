// Package primitives implements the small, generic building blocks every
// agent in the fabric is assembled from: a bounded queue, a round-robin
// arbiter with deadlock detection, a fixed-capacity keyed table and a
// credit counter. None of them know anything about coherence; they are the
// vocabulary the agent packages compose.
package primitives

import "errors"

// ErrFull is returned by an Enqueue/Insert call that would exceed a
// primitive's configured capacity. It is recoverable backpressure, not a
// protocol bug: the caller blocks on the matching NonFull event instead of
// treating this as fatal.
var ErrFull = errors.New("primitives: capacity exhausted")

// ErrNoCredit is returned when a CreditCounter has no credit left to debit.
var ErrNoCredit = errors.New("primitives: no credit available")

// ErrNotFound reports a missing key. Table.Lookup does not return it; a
// Lookup miss is reported through Lookup's ok result.
var ErrNotFound = errors.New("primitives: key not found")
