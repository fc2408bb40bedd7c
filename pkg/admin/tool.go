package admin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// drbdctrlResName is the fixed resource name of the control volume,
// matching original_source/drbdmanage/consts.py's DRBDCTRL_RES_NAME.
const drbdctrlResName = ".drbdctrl"

// Tool runs drbdadm/drbdsetup as subprocesses under drbdadm-path, with
// PATH extended by extend-path (spec §6). Every operation returns the
// subprocess's numeric exit status rather than treating a non-zero exit
// as a Go error: spec §4.6 makes that status a recoverable error for
// the reconciler to retry, not a transport failure.
type Tool struct {
	DrbdadmPath string
	ExtendPath  string
}

// NewTool returns a Tool rooted at drbdadmPath, extending PATH with
// extendPath for every subprocess it spawns.
func NewTool(drbdadmPath, extendPath string) *Tool {
	return &Tool{DrbdadmPath: drbdadmPath, ExtendPath: extendPath}
}

func (t *Tool) run(ctx context.Context, tool string, args ...string) (int, error) {
	bin := tool
	if t.DrbdadmPath != "" {
		bin = t.DrbdadmPath + "/" + tool
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if t.ExtendPath != "" {
		cmd.Env = append(cmd.Environ(), "PATH="+t.ExtendPath)
	}
	out, err := cmd.CombinedOutput()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("admin: exec %s %s: %w (%s)", tool, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
}

func (t *Tool) drbdadm(ctx context.Context, args ...string) (int, error) {
	return t.run(ctx, "drbdadm", args...)
}

func (t *Tool) drbdsetup(ctx context.Context, args ...string) (int, error) {
	return t.run(ctx, "drbdsetup", args...)
}

// Adjust runs `drbdadm adjust <resource>`.
func (t *Tool) Adjust(ctx context.Context, resource string) (int, error) {
	return t.drbdadm(ctx, "adjust", resource)
}

// AdjustCtrl runs `drbdadm adjust` against the fixed control resource.
func (t *Tool) AdjustCtrl(ctx context.Context) (int, error) {
	return t.drbdadm(ctx, "adjust", drbdctrlResName)
}

// AdjustForce runs `drbdadm adjust <resource> --force`, used when the
// Assignment carries the OVERWRITE flag (spec §4.8 step 5).
func (t *Tool) AdjustForce(ctx context.Context, resource string) (int, error) {
	return t.drbdadm(ctx, "adjust", resource, "--force")
}

// DrbdctrlResName returns the fixed resource name of the control volume.
func DrbdctrlResName() string {
	return drbdctrlResName
}

// Down runs `drbdadm down <resource>`.
func (t *Tool) Down(ctx context.Context, resource string) (int, error) {
	return t.drbdadm(ctx, "down", resource)
}

// Primary runs `drbdadm primary <resource>`, adding --force when force
// is set (initial promotion of a fresh metadata set).
func (t *Tool) Primary(ctx context.Context, resource string, force bool) (int, error) {
	args := []string{"primary", resource}
	if force {
		args = append(args, "--force")
	}
	return t.drbdadm(ctx, args...)
}

// Secondary runs `drbdadm secondary <resource>`.
func (t *Tool) Secondary(ctx context.Context, resource string) (int, error) {
	return t.drbdadm(ctx, "secondary", resource)
}

// Attach runs `drbdadm attach <resource>/<volume>`.
func (t *Tool) Attach(ctx context.Context, resource string, volID int) (int, error) {
	return t.drbdadm(ctx, "attach", fmt.Sprintf("%s/%d", resource, volID))
}

// Detach runs `drbdadm detach <resource>/<volume>`.
func (t *Tool) Detach(ctx context.Context, resource string, volID int) (int, error) {
	return t.drbdadm(ctx, "detach", fmt.Sprintf("%s/%d", resource, volID))
}

// Connect runs `drbdadm connect <resource>:<peer>`.
func (t *Tool) Connect(ctx context.Context, resource, peer string) (int, error) {
	return t.drbdadm(ctx, "connect", fmt.Sprintf("%s:%s", resource, peer))
}

// Disconnect runs `drbdadm disconnect <resource>:<peer>`.
func (t *Tool) Disconnect(ctx context.Context, resource, peer string) (int, error) {
	return t.drbdadm(ctx, "disconnect", fmt.Sprintf("%s:%s", resource, peer))
}

// ConnectDiscard runs `drbdadm connect <resource>:<peer> --discard-my-data`,
// used when the Assignment carries the DISCARD flag (spec §4.8 step 5).
func (t *Tool) ConnectDiscard(ctx context.Context, resource, peer string) (int, error) {
	return t.drbdadm(ctx, "connect", fmt.Sprintf("%s:%s", resource, peer), "--discard-my-data")
}

// NewCurrentUUID runs `drbdsetup new-current-uuid <resource>`.
func (t *Tool) NewCurrentUUID(ctx context.Context, resource string) (int, error) {
	return t.drbdsetup(ctx, "new-current-uuid", resource)
}

// Resize runs `drbdadm resize <resource>/<volume>`, used by resize_volume
// after the backing device has already been grown via the storage
// backend (C5).
func (t *Tool) Resize(ctx context.Context, resource string, volID int) (int, error) {
	return t.drbdadm(ctx, "resize", fmt.Sprintf("%s/%d", resource, volID))
}
