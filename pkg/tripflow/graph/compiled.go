package graph

// CompiledGraph is an immutable, executable graph created by Compile().
//
// CompiledGraph is thread-safe and can run many concurrent executions;
// runs are distinguished only by their run ID and checkpoint store.
type CompiledGraph[S any] struct {
	nodes      map[string]NodeFunc[S]
	edges      map[string][]string
	routers    map[string]RouterFunc[S]
	entryPoint string

	// Pre-computed at compile time.
	predecessors map[string][]string
	forks        map[string]*fork // static fork points (multiple simple edges)
}

// fork describes a point where execution splits into parallel branches.
type fork struct {
	nodeID   string
	branches []string
	joinID   string // common post-dominator of the branches, possibly End
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph, in no particular order.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the simple-edge targets of the given node.
// Runtime targets of routers are not included.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == End {
		return nil
	}
	return cg.edges[id]
}

// Predecessors returns the node IDs with simple edges into the given node.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional returns true if the node routes via a RouterFunc.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, exists := cg.routers[id]
	return exists
}

// IsFork returns true if the node is a static fork point.
func (cg *CompiledGraph[S]) IsFork(id string) bool {
	_, exists := cg.forks[id]
	return exists
}

func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

func (cg *CompiledGraph[S]) getRouter(id string) (RouterFunc[S], bool) {
	router, exists := cg.routers[id]
	return router, exists
}
