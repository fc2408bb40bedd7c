// Package eventstream supervises `drbdsetup events2 all` as a long-lived
// subprocess, parses its line-oriented output, and raises a coalesced
// trigger signal whenever a line indicates the control resource just
// changed connection state (spec C7).
//
// The supervisor's restart-with-backoff shape is grounded on the
// teacher's pkg/runtime/containerd.go StopContainer: a bounded,
// context-scoped wait for graceful exit before escalating to a harder
// signal. Go's goroutine-plus-channel idiom stands in for the spec's
// raw readable/hang-up fd watches — both reduce to "react when the
// child either produces a line or its pipe closes" — since Go's
// os/exec does not expose non-blocking pipe reads as a first-class
// primitive the way a raw epoll loop would.
package eventstream
