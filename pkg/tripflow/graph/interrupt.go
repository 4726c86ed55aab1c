package graph

import "fmt"

// Interrupt is returned (as an error) from Run or Resume when a node
// suspends the run to wait for external input. The run's state is
// checkpointed before Interrupt surfaces, so the run can be resumed
// later with Resume(..., WithResumeValue(answer)).
//
// Callers detect suspension with errors.As:
//
//	var intr *graph.Interrupt
//	if errors.As(err, &intr) {
//	    // surface intr.Payload to the user, keep the returned state
//	}
type Interrupt struct {
	// NodeID is the node that suspended.
	NodeID string
	// Payload describes what the node is waiting for. It must be
	// JSON-serializable if it crosses a process boundary.
	Payload any
}

// Error implements the error interface.
func (i *Interrupt) Error() string {
	return fmt.Sprintf("run suspended at node %s", i.NodeID)
}

// Suspend pauses the run at the calling node.
//
// On first entry it returns a *Interrupt error carrying the payload; the
// node must return that error unmodified. The executor checkpoints the
// pre-node state with the suspending node as the resumption target, so
// Resume re-executes the same node body.
//
// On re-entry under Resume(..., WithResumeValue(v)), Suspend returns v
// instead of suspending. The resume value is consumed exactly once: a
// second Suspend call in the same pass suspends again with the new
// payload.
func Suspend(ctx Context, payload any) (any, error) {
	ec, ok := ctx.(*executionContext)
	if ok && ec.resume != nil && !ec.resume.used {
		ec.resume.used = true
		return ec.resume.value, nil
	}
	return nil, &Interrupt{NodeID: ctx.NodeID(), Payload: payload}
}
