package reconciler

import (
	"github.com/drbdmanage/drbdmanaged/pkg/admin"
	"github.com/drbdmanage/drbdmanaged/pkg/storage"
)

// Reconfigure swaps in a freshly built storage backend, admin tool, and
// config writer without disturbing the in-memory ClusterConfig or the
// run loop (spec §4.9's reconfigure operation). Callers (the C9 façade)
// rebuild these from a freshly reread config file; Engine only takes
// ownership of the results.
func (e *Engine) Reconfigure(backend storage.Backend, tool *admin.Tool, writer *admin.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storage = backend
	e.tool = tool
	e.writer = writer
}
