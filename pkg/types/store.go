package types

// ClusterConfig is the daemon's single in-memory store (spec §9 design
// note: "a single ClusterConfig object passed explicitly; the daemon
// owns exactly one instance"). It holds every Node and Resource plus the
// central Assignment store keyed by AssignmentKey, avoiding the cyclic
// Node<->Resource<->Assignment pointers the original model used.
type ClusterConfig struct {
	Nodes     map[string]*Node
	nodeOrder []string

	Resources map[string]*Resource
	resOrder  []string

	Assignments map[AssignmentKey]*Assignment

	// Serial increases by exactly one per change generation (spec §3
	// invariant 4); a generation spans one open->save cycle of C4.
	Serial uint64
}

// NewClusterConfig returns an empty ClusterConfig.
func NewClusterConfig() *ClusterConfig {
	return &ClusterConfig{
		Nodes:       make(map[string]*Node),
		Resources:   make(map[string]*Resource),
		Assignments: make(map[AssignmentKey]*Assignment),
	}
}

// AddNode inserts n, preserving insertion order for NodesOrdered.
func (cc *ClusterConfig) AddNode(n *Node) {
	if _, exists := cc.Nodes[n.Name]; !exists {
		cc.nodeOrder = append(cc.nodeOrder, n.Name)
	}
	cc.Nodes[n.Name] = n
}

// RemoveNode deletes the node with the given name. Callers are
// responsible for ensuring no live Assignment still references it
// (spec §3 invariant 2).
func (cc *ClusterConfig) RemoveNode(name string) {
	if _, exists := cc.Nodes[name]; !exists {
		return
	}
	delete(cc.Nodes, name)
	for i, n := range cc.nodeOrder {
		if n == name {
			cc.nodeOrder = append(cc.nodeOrder[:i], cc.nodeOrder[i+1:]...)
			break
		}
	}
}

// NodesOrdered returns every Node in insertion order.
func (cc *ClusterConfig) NodesOrdered() []*Node {
	out := make([]*Node, 0, len(cc.nodeOrder))
	for _, name := range cc.nodeOrder {
		out = append(out, cc.Nodes[name])
	}
	return out
}

// AddResource inserts r, preserving insertion order for ResourcesOrdered.
func (cc *ClusterConfig) AddResource(r *Resource) {
	if _, exists := cc.Resources[r.Name]; !exists {
		cc.resOrder = append(cc.resOrder, r.Name)
	}
	cc.Resources[r.Name] = r
}

// RemoveResource deletes the resource with the given name. Callers are
// responsible for ensuring no live Assignment still references it.
func (cc *ClusterConfig) RemoveResource(name string) {
	if _, exists := cc.Resources[name]; !exists {
		return
	}
	delete(cc.Resources, name)
	for i, n := range cc.resOrder {
		if n == name {
			cc.resOrder = append(cc.resOrder[:i], cc.resOrder[i+1:]...)
			break
		}
	}
}

// ResourcesOrdered returns every Resource in insertion order.
func (cc *ClusterConfig) ResourcesOrdered() []*Resource {
	out := make([]*Resource, 0, len(cc.resOrder))
	for _, name := range cc.resOrder {
		out = append(out, cc.Resources[name])
	}
	return out
}

// AddAssignment inserts a into the central store and threads its key
// into both endpoints' reference lists (spec §9: Node/Resource hold
// indices/keys into the Assignment store, not owning pointers).
func (cc *ClusterConfig) AddAssignment(a *Assignment) {
	key := a.Key()
	if _, exists := cc.Assignments[key]; !exists {
		if n, ok := cc.Nodes[a.NodeName]; ok {
			n.Assignments = appendUnique(n.Assignments, a.ResName)
		}
		if r, ok := cc.Resources[a.ResName]; ok {
			r.Assignments = appendUnique(r.Assignments, a.NodeName)
		}
	}
	cc.Assignments[key] = a
}

// RemoveAssignment deletes the Assignment identified by key and unthreads
// it from both endpoints' reference lists.
func (cc *ClusterConfig) RemoveAssignment(key AssignmentKey) {
	if _, exists := cc.Assignments[key]; !exists {
		return
	}
	delete(cc.Assignments, key)
	if n, ok := cc.Nodes[key.NodeName]; ok {
		n.Assignments = removeString(n.Assignments, key.ResName)
	}
	if r, ok := cc.Resources[key.ResName]; ok {
		r.Assignments = removeString(r.Assignments, key.NodeName)
	}
}

// GetAssignment returns the Assignment for (nodeName, resName), if any.
func (cc *ClusterConfig) GetAssignment(nodeName, resName string) (*Assignment, bool) {
	a, ok := cc.Assignments[AssignmentKey{NodeName: nodeName, ResName: resName}]
	return a, ok
}

// AssignmentsForNode resolves every Assignment referenced by the named
// Node, in the Node's reference-list order.
func (cc *ClusterConfig) AssignmentsForNode(nodeName string) []*Assignment {
	n, ok := cc.Nodes[nodeName]
	if !ok {
		return nil
	}
	out := make([]*Assignment, 0, len(n.Assignments))
	for _, resName := range n.Assignments {
		if a, ok := cc.GetAssignment(nodeName, resName); ok {
			out = append(out, a)
		}
	}
	return out
}

// AssignmentsForResource resolves every Assignment referenced by the
// named Resource, in the Resource's reference-list order.
func (cc *ClusterConfig) AssignmentsForResource(resName string) []*Assignment {
	r, ok := cc.Resources[resName]
	if !ok {
		return nil
	}
	out := make([]*Assignment, 0, len(r.Assignments))
	for _, nodeName := range r.Assignments {
		if a, ok := cc.GetAssignment(nodeName, resName); ok {
			out = append(out, a)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func removeString(list []string, v string) []string {
	for i, existing := range list {
		if existing == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
