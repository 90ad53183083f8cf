package script

import (
	"context"
)

// Run is the host driver loop entry point this package's design names:
// compile once, then call entry with args exactly as Call does. It is
// the hook a host written against a "call, and on suspension poll and
// resume" driver (the shape funvibe-funxy/internal/vm.VM's
// Context-threaded execution loop implies) calls into.
//
// Run and Call behave identically: both drive a script call through to
// completion, internally resuming through vm.Suspension (see
// driveToCompletion) whenever an OpAwait/OpSelect pauses on a future
// that hasn't resolved yet, rather than surfacing that as an error.
// Run exists as the named entry point a host's event loop integrates
// against, distinct from Call's plain invoke-and-get-a-value framing,
// even though today both resolve to the same blocking drive loop.
func Run(ctx context.Context, v *VM, entry string, args ...interface{}) (interface{}, error) {
	return v.Call(ctx, entry, args...)
}
