// Package server implements the façade of spec §4.9/C9: the single entry
// point every mutator and listing call goes through, wrapping the domain
// model (C2), the persistence gateway (C4), and the reconciliation engine
// (C8) behind the transaction skeleton of §4.9 and the result-code
// taxonomy of §7.
//
// Server is grounded on the teacher's pkg/manager.Manager: one mutex-
// guarded struct holding every collaborator a mutator needs, one method
// per verb, metrics.Timer wrapping each call. Unlike the teacher, there
// is no Raft log underneath — spec §5 disciplines cross-process
// concurrency entirely through C4's advisory lock, so a "commit" here is
// a single Session.Save, not a consensus round.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/drbdmanage/drbdmanaged/pkg/admin"
	"github.com/drbdmanage/drbdmanaged/pkg/config"
	"github.com/drbdmanage/drbdmanaged/pkg/deploypolicy"
	"github.com/drbdmanage/drbdmanaged/pkg/log"
	"github.com/drbdmanage/drbdmanaged/pkg/metrics"
	"github.com/drbdmanage/drbdmanaged/pkg/notify"
	"github.com/drbdmanage/drbdmanaged/pkg/persistence"
	"github.com/drbdmanage/drbdmanaged/pkg/rc"
	"github.com/drbdmanage/drbdmanaged/pkg/reconciler"
	"github.com/drbdmanage/drbdmanaged/pkg/storage"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// Server is the C9 façade. It owns no domain state of its own: cc is the
// same ClusterConfig instance shared with the Engine so that a reconcile
// pass requested right after a commit sees the mutation immediately,
// without waiting for a reload from disk.
type Server struct {
	mu sync.Mutex

	gateway    persistence.Gateway
	backend    storage.Backend
	tool       *admin.Tool
	writer     *admin.Writer
	broker     *notify.Broker
	reconciler *reconciler.Engine
	policy     deploypolicy.Policy

	cfg       config.Config
	control   reconciler.ControlVolume
	cc        *types.ClusterConfig
	localNode string

	logger zerolog.Logger
}

// New wires the collaborators a Server needs. cc is the daemon's single
// live ClusterConfig instance (spec §9), shared with the Engine passed
// in as reconcilerEngine. localNode is this daemon's own node name,
// used to scope synchronous admin-tool calls (e.g. resize_volume) to
// Assignments actually deployed here.
func New(gateway persistence.Gateway, backend storage.Backend, tool *admin.Tool, writer *admin.Writer, broker *notify.Broker, reconcilerEngine *reconciler.Engine, policy deploypolicy.Policy, cfg config.Config, control reconciler.ControlVolume, localNode string, cc *types.ClusterConfig) *Server {
	return &Server{
		gateway:    gateway,
		backend:    backend,
		tool:       tool,
		writer:     writer,
		broker:     broker,
		reconciler: reconcilerEngine,
		policy:     policy,
		cfg:        cfg,
		control:    control,
		localNode:  localNode,
		cc:         cc,
		logger:     log.WithComponent("server"),
	}
}

// begin implements begin_modify_conf (§4.9): opens a writable session and
// reloads the in-memory image if a peer has written a newer one since we
// last looked (§4.4's hash-recheck-after-lock, §8 S3). Returning a nil
// Session with a non-nil error is the EPERSIST case.
func (s *Server) begin(ctx context.Context) (persistence.Session, error) {
	session, err := s.gateway.Open(ctx, true)
	if err != nil {
		return nil, err
	}
	ourHash, err := hashClusterConfig(s.cc)
	if err != nil {
		session.Close()
		return nil, err
	}
	if !bytes.Equal(session.StoredHash(), ourHash) {
		if err := session.Load(s.cc); err != nil {
			session.Close()
			return nil, err
		}
	}
	return session, nil
}

// commit implements save_conf_data: optionally bumps the cluster serial
// (the poke mechanism, §4.9) and persists the in-memory image.
func (s *Server) commit(session persistence.Session, bumpSerial bool) error {
	if bumpSerial {
		s.cc.Serial++
	}
	if _, err := session.Save(s.cc); err != nil {
		return err
	}
	return nil
}

// end implements end_modify_conf: release the lock. Idempotent, safe to
// defer right after a successful begin.
func (s *Server) end(session persistence.Session) {
	if err := session.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("session close failed")
	}
}

// requestReconcile asks C8 to perform a pass immediately, rather than
// waiting for the next event-stream trigger (§4.9: "request a reconcile
// pass"). A reconcile failure is logged, not surfaced: the mutator that
// triggered it already committed successfully, and the reconciler's own
// failure-count bookkeeping (§4.8) will retry on the next trigger.
func (s *Server) requestReconcile(ctx context.Context) {
	if s.reconciler == nil {
		return
	}
	if err := s.reconciler.Run(ctx, false, false); err != nil {
		s.logger.Error().Err(err).Msg("reconcile pass requested by mutator failed")
	}
}

// hashClusterConfig mirrors persistence.FileGateway's own hashing so a
// hash computed here is directly comparable to a Session's StoredHash.
func hashClusterConfig(cc *types.ClusterConfig) ([]byte, error) {
	data, err := json.Marshal(cc)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

// txn runs op inside the begin/commit/end skeleton, classifying
// persistence failures as EPERSIST and recording the RPC metrics every
// mutator shares. op mutates s.cc and returns the rc.List to surface
// plus whether the cluster image actually changed (and therefore needs
// a commit+reconcile).
func (s *Server) txn(ctx context.Context, operation string, bumpSerial bool, op func(result *rc.List) (changed bool)) rc.List {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := metrics.NewTimer()
	var result rc.List
	code := rc.SUCCESS
	defer func() {
		if len(result) > 0 {
			code = result[0].Code
		}
		metrics.RPCRequestsTotal.WithLabelValues(operation, code.String()).Inc()
		timer.ObserveDurationVec(metrics.RPCRequestDuration, operation)
	}()

	session, err := s.begin(ctx)
	if err != nil {
		result.Add(rc.EPERSIST, fmt.Sprintf("begin_modify_conf failed: %v", err))
		return result
	}
	defer s.end(session)

	changed := op(&result)
	if !result.Ok() {
		return result
	}

	if changed {
		if err := s.commit(session, bumpSerial); err != nil {
			result.Add(rc.EPERSIST, fmt.Sprintf("save_conf_data failed: %v", err))
			return result
		}
		s.requestReconcile(ctx)
	}

	result.FinalizeSuccess()
	return result
}

// validateName enforces spec §3's Node/Resource name identity rule:
// non-empty, printable, no whitespace or brackets.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == '[' || r == ']' || !unicode.IsPrint(r) {
			return fmt.Errorf("name %q contains whitespace, brackets, or a non-printable character", name)
		}
	}
	return nil
}

// validateAddr enforces spec §3's Node.Addr identity rule: an IPv4 or
// IPv6 literal.
func validateAddr(addr string) error {
	if net.ParseIP(addr) == nil {
		return fmt.Errorf("address %q is not a valid IPv4/IPv6 literal", addr)
	}
	return nil
}

func usedPorts(cc *types.ClusterConfig) []int {
	used := make([]int, 0, len(cc.Resources))
	for _, r := range cc.ResourcesOrdered() {
		used = append(used, r.Port)
	}
	return used
}

func usedMinors(cc *types.ClusterConfig) []int {
	var used []int
	for _, r := range cc.ResourcesOrdered() {
		for _, v := range r.VolumesOrdered() {
			used = append(used, v.MinorNr)
		}
	}
	return used
}

func usedVolIDs(res *types.Resource) []int {
	used := make([]int, 0, len(res.Volumes))
	for _, v := range res.VolumesOrdered() {
		used = append(used, v.VolID)
	}
	return used
}

func usedResourceNodeIDs(cc *types.ClusterConfig, resName string) []int {
	var used []int
	for _, a := range cc.AssignmentsForResource(resName) {
		used = append(used, a.NodeID)
	}
	return used
}

func usedControlNodeIDs(cc *types.ClusterConfig) []int {
	used := make([]int, 0, len(cc.Nodes))
	for _, n := range cc.NodesOrdered() {
		used = append(used, n.NodeID)
	}
	return used
}
