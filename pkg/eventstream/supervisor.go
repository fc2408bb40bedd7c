package eventstream

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/drbdmanage/drbdmanaged/pkg/log"
)

// Timing constants for the teardown/restart state machine (spec §4.7).
const (
	TShort         = 500 * time.Millisecond
	TLong          = 2 * time.Second
	RestartBackoff = 30 * time.Second
)

// TriggerBatch identifies one coalesced drain: every triggering line
// observed between two reconcile passes is folded into a single batch,
// tagged with a correlation ID so a log line in the reconciler (C8) can
// be traced back to the drain that caused it.
type TriggerBatch struct {
	ID uuid.UUID
}

// Supervisor starts and supervises `drbdsetup events2 all`, raising a
// coalesced trigger signal on Triggered whenever a parsed line reports a
// control-resource connection transition that warrants reconciliation.
type Supervisor struct {
	// BinPath is the directory holding drbdsetup (drbdadm-path, spec §6);
	// empty means resolve via PATH.
	BinPath string

	// ControlResourceName is the resource whose connection/peer-device
	// lines are watched for triggers (".drbdctrl" in production).
	ControlResourceName string

	// Triggered receives a TriggerBatch each time a drain observed at
	// least one triggering line; sends are non-blocking so multiple
	// triggers in one drain coalesce into one pending run (spec §4.7).
	Triggered chan TriggerBatch
}

// NewSupervisor returns a Supervisor with an already-buffered Triggered
// channel.
func NewSupervisor(binPath, controlResourceName string) *Supervisor {
	return &Supervisor{
		BinPath:             binPath,
		ControlResourceName: controlResourceName,
		Triggered:           make(chan TriggerBatch, 1),
	}
}

func (s *Supervisor) signalTrigger() {
	select {
	case s.Triggered <- TriggerBatch{ID: uuid.New()}:
	default:
	}
}

// Run supervises the events2 subprocess until ctx is canceled, restarting
// it on every hang-up with a logged warning followed by RestartBackoff
// retries (spec §4.7's "log once, then retry every 30s" fallback).
func (s *Supervisor) Run(ctx context.Context) error {
	logger := log.WithComponent("eventstream")
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if first {
			logger.Warn().Err(err).Msg("events2 subprocess exited, restarting")
			first = false
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(RestartBackoff):
		}
	}
}

func (s *Supervisor) binary() string {
	if s.BinPath == "" {
		return "drbdsetup"
	}
	return s.BinPath + "/drbdsetup"
}

// runOnce starts one subprocess generation and drains its stdout until
// ctx is canceled or the pipe hangs up, then runs the six-stage teardown
// sequence.
func (s *Supervisor) runOnce(ctx context.Context) error {
	cmd := exec.Command(s.binary(), "events2", "all")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("eventstream: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("eventstream: start: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	lines := make(chan string, 256)
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				s.teardown(cmd, exited)
				return fmt.Errorf("eventstream: subprocess stdout closed")
			}
			if l, ok := parseLine(line); ok && l.Triggers(s.ControlResourceName) {
				s.signalTrigger()
			}
		case <-exited:
			s.teardown(cmd, exited)
			return fmt.Errorf("eventstream: subprocess exited")
		case <-ctx.Done():
			s.teardown(cmd, exited)
			return ctx.Err()
		}
	}
}

// teardown runs the six-stage sequence from spec §4.7: wait briefly,
// SIGTERM, wait longer, SIGKILL, wait longer again, then one final reap
// attempt. The process is allowed to remain a zombie if it still
// refuses to die; the daemon keeps running regardless.
func (s *Supervisor) teardown(cmd *exec.Cmd, exited <-chan struct{}) {
	if alreadyExited(exited) {
		return
	}
	time.Sleep(TShort)
	if alreadyExited(exited) {
		return
	}

	cmd.Process.Signal(syscall.SIGTERM)
	time.Sleep(TShort)
	if alreadyExited(exited) {
		return
	}

	time.Sleep(TLong)
	if alreadyExited(exited) {
		return
	}

	cmd.Process.Signal(syscall.SIGKILL)
	time.Sleep(TShort)
	if alreadyExited(exited) {
		return
	}

	time.Sleep(TLong)
	alreadyExited(exited) // final reap poll; a lingering zombie is tolerated
}

func alreadyExited(exited <-chan struct{}) bool {
	select {
	case <-exited:
		return true
	default:
		return false
	}
}
