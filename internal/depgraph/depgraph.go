// Package depgraph is a reference Resolver/PackageSet good enough to drive
// the whole engine end to end in tests and the demo CLI: packages and
// their direct-dependency edges are added explicitly (there is no
// manifest-parsing here, consistent with the core's Non-goals), backed by
// a gonum directed graph for edge storage and cycle detection.
package depgraph

import (
	"sort"
	"strings"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	kiln "github.com/kilnbuild/kiln"
)

type pkgNode struct {
	id  int64
	pkg *kiln.Package
}

func (n *pkgNode) ID() int64 { return n.id }

// Graph implements kiln.Resolver and kiln.PackageSet over an explicitly
// built dependency graph.
type Graph struct {
	g        *simple.DirectedGraph
	nodeOf   map[kiln.PackageId]*pkgNode
	packages []*kiln.Package // insertion order, for Package's linear scan
	nextID   int64
}

func New() *Graph {
	return &Graph{
		g:      simple.NewDirectedGraph(),
		nodeOf: make(map[kiln.PackageId]*pkgNode),
	}
}

// AddPackage registers pkg as a node. A package already added by id is a
// no-op.
func (gr *Graph) AddPackage(pkg *kiln.Package) {
	if _, ok := gr.nodeOf[pkg.Id]; ok {
		return
	}
	n := &pkgNode{id: gr.nextID, pkg: pkg}
	gr.nextID++
	gr.nodeOf[pkg.Id] = n
	gr.packages = append(gr.packages, pkg)
	gr.g.AddNode(n)
}

// AddDependency records that from depends directly on to. Both must
// already be registered via AddPackage.
func (gr *Graph) AddDependency(from, to kiln.PackageId) error {
	fn, ok := gr.nodeOf[from]
	if !ok {
		return xerrors.Errorf("BUG: AddDependency: %s not registered", from)
	}
	tn, ok := gr.nodeOf[to]
	if !ok {
		return xerrors.Errorf("BUG: AddDependency: %s not registered", to)
	}
	gr.g.SetEdge(gr.g.NewEdge(fn, tn))
	return nil
}

// Deps implements kiln.Resolver. Order is deterministic (lexicographic by
// dependency id string) even though gonum's node iteration order is not.
func (gr *Graph) Deps(id kiln.PackageId) ([]kiln.PackageId, bool) {
	n, ok := gr.nodeOf[id]
	if !ok {
		return nil, false
	}
	it := gr.g.From(n.ID())
	var deps []kiln.PackageId
	for it.Next() {
		deps = append(deps, it.Node().(*pkgNode).pkg.Id)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].String() < deps[j].String() })
	return deps, true
}

// Packages returns every registered package in insertion order.
func (gr *Graph) Packages() []*kiln.Package {
	return gr.packages
}

// Package implements kiln.PackageSet as a linear scan; package sets are
// small enough that indexing by id a second time would not pay for
// itself.
func (gr *Graph) Package(id kiln.PackageId) (*kiln.Package, bool) {
	for _, pkg := range gr.packages {
		if pkg.Id == id {
			return pkg, true
		}
	}
	return nil, false
}

// Validate reports an error naming every package id caught in a dependency
// cycle, or nil if the graph is acyclic. The requirement walk itself
// tolerates cycles, so Validate is diagnostic, not a precondition for
// Prepare.
func (gr *Graph) Validate() error {
	if _, err := topo.Sort(gr.g); err != nil {
		uo, ok := err.(topo.Unorderable)
		if !ok {
			return xerrors.Errorf("depgraph: %v", err)
		}
		var names []string
		for _, component := range uo {
			for _, n := range component {
				names = append(names, n.(*pkgNode).pkg.Id.String())
			}
		}
		return xerrors.Errorf("depgraph: cyclic dependency among: %s", strings.Join(names, ", "))
	}
	return nil
}
