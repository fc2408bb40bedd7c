package reconciler

import (
	"strconv"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// failureCountProp is the property bag key spec §4.8's failure semantics
// refer to ("the failure count (property bag key) increments"). It is
// not aux/-prefixed: it is internal bookkeeping, not a client-supplied
// property, and props.Select already drops anything outside that prefix
// at the C9 mutator boundary, so it never leaks back out through a
// listing's props payload.
const failureCountProp = "internal/reconcile-failure-count"

func failureCount(a *types.Assignment) int {
	v, ok := a.Props.Get(failureCountProp)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func incrementFailureCount(a *types.Assignment) int {
	n := failureCount(a) + 1
	a.Props.Set(failureCountProp, strconv.Itoa(n))
	return n
}

// ClearFailureCount implements the `resume` operation's effect on a
// single Assignment (spec §4.8): it removes the failure counter. The
// reconciler does not read the counter when deciding whether to retry;
// every pass retries a failed Assignment whatever its count.
func ClearFailureCount(a *types.Assignment) {
	a.Props.Remove(failureCountProp)
}
