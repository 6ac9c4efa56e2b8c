// Package work is the reference scheduler the core's Preparations are
// handed to: it is not part of the core itself, which only ever
// produces opaque Work closures and returns. The scheduler here runs
// Preparations per package, honoring the ordering guarantees the core
// requires (promote before compile, write-fingerprint after success),
// respects the package dependency graph, and reports live status lines
// on a terminal.
package work

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/fingerprint"
	"github.com/kilnbuild/kiln/internal/trace"
)

// Unit bundles everything the scheduler needs to process one package's
// turn: every Preparation produced for its targets and build script, plus
// the callback that performs the actual compile work. Compile only runs
// if at least one Preparation is Dirty.
type Unit struct {
	Pkg          *kiln.Package
	Preparations []fingerprint.Preparation
	Compile      func(context.Context) error
}

func (u *Unit) dirty() bool {
	for _, p := range u.Preparations {
		if p.Fresh == kiln.Dirty {
			return true
		}
	}
	return false
}

type unitNode struct {
	id   int64
	unit *Unit
}

func (n *unitNode) ID() int64 { return n.id }

type result struct {
	node *unitNode
	err  error
}

// Run schedules units over workers concurrent goroutines, ordering each
// package's work after its dependencies' per resolver. A package reachable
// only through a dependency cycle has its cyclic edges broken (logged):
// the requirement walk's own cycle guard protects only the walk, not this
// scheduler's build order.
func Run(ctx context.Context, resolver kiln.Resolver, units []*Unit, workers int) error {
	return RunWithLogger(ctx, resolver, units, workers, log.Default())
}

// RunWithLogger is Run with an injected *log.Logger, for callers that
// want their own log destination instead of log.Default().
func RunWithLogger(ctx context.Context, resolver kiln.Resolver, units []*Unit, workers int, logger *log.Logger) error {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	g := simple.NewDirectedGraph()
	byID := make(map[kiln.PackageId]*unitNode, len(units))
	for i, u := range units {
		n := &unitNode{id: int64(i), unit: u}
		byID[u.Pkg.Id] = n
		g.AddNode(n)
	}
	for _, n := range byID {
		deps, _ := resolver.Deps(n.unit.Pkg.Id)
		for _, d := range deps {
			if dn, ok := byID[d]; ok {
				g.SetEdge(g.NewEdge(n, dn))
			}
		}
	}
	breakCycles(g, logger)

	s := &scheduler{g: g, log: logger, status: make([]string, workers+1)}
	return s.run(ctx, workers)
}

func breakCycles(g *simple.DirectedGraph, logger *log.Logger) {
	if _, err := topo.Sort(g); err == nil {
		return
	} else if uo, ok := err.(topo.Unorderable); ok {
		for _, component := range uo {
			for _, n := range component {
				un := n.(*unitNode)
				logger.Printf("work: breaking dependency cycle through %s", un.unit.Pkg.Id)
				from := g.From(un.ID())
				for from.Next() {
					g.RemoveEdge(un.ID(), from.Node().ID())
				}
			}
		}
	}
}

type scheduler struct {
	g   *simple.DirectedGraph
	log *log.Logger

	statusMu   sync.Mutex
	status     []string
	lastStatus time.Time
}

var isTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}()

func (s *scheduler) updateStatus(idx int, line string) {
	if !isTerminal {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status[idx] = line
	if time.Since(s.lastStatus) < 100*time.Millisecond {
		return
	}
	s.lastStatus = time.Now()
	for _, l := range s.status {
		fmt.Println(l)
	}
	fmt.Printf("\033[%dA", len(s.status))
}

// canBuild reports whether every dependency of n has already completed.
func (s *scheduler) canBuild(n *unitNode, built map[int64]bool) bool {
	from := s.g.From(n.ID())
	for from.Next() {
		if !built[from.Node().ID()] {
			return false
		}
	}
	return true
}

func (s *scheduler) runUnit(ctx context.Context, u *Unit) error {
	// Promotion renames the previous build's artifacts into place, so it
	// only runs for Fresh preparations: a Dirty one has nothing valid to
	// carry forward and its compile step regenerates everything.
	for _, p := range u.Preparations {
		if p.Fresh != kiln.Fresh || p.PromoteOld == nil {
			continue
		}
		if err := p.PromoteOld(); err != nil {
			return xerrors.Errorf("promote %s: %v", u.Pkg.Id, err)
		}
	}

	if u.dirty() && u.Compile != nil {
		if err := u.Compile(ctx); err != nil {
			return xerrors.Errorf("compile %s: %v", u.Pkg.Id, err)
		}
	}

	for _, p := range u.Preparations {
		if p.WriteFingerprint == nil {
			continue
		}
		if err := p.WriteFingerprint(); err != nil {
			return xerrors.Errorf("write fingerprint %s: %v", u.Pkg.Id, err)
		}
	}
	return nil
}

func (s *scheduler) run(ctx context.Context, workers int) error {
	numNodes := s.g.Nodes().Len()
	if numNodes == 0 {
		return nil
	}
	workCh := make(chan *unitNode, numNodes)
	doneCh := make(chan result)
	eg, ctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		i := i
		eg.Go(func() error {
			for n := range workCh {
				if err := ctx.Err(); err != nil {
					return err
				}
				ev := trace.Event("build "+n.unit.Pkg.Id.String(), i)
				s.updateStatus(i+1, "building "+n.unit.Pkg.Id.String())
				err := s.runUnit(ctx, n.unit)
				ev.Done()
				select {
				case doneCh <- result{node: n, err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	built := make(map[int64]bool, numNodes)
	var mu sync.Mutex
	enqueue := func(n *unitNode) {
		select {
		case workCh <- n:
		case <-ctx.Done():
		}
	}

	for nodes := s.g.Nodes(); nodes.Next(); {
		n := nodes.Node().(*unitNode)
		if s.g.From(n.ID()).Len() == 0 {
			enqueue(n)
		}
	}

	go func() {
		defer close(workCh)
		completed := 0
		skipped := make(map[int64]bool)
		// markSkipped counts every transitive dependent of a failed unit
		// as completed without ever enqueueing it, so the dispatch loop
		// still terminates when a package in the middle of the graph
		// fails.
		var markSkipped func(id int64)
		markSkipped = func(id int64) {
			to := s.g.To(id)
			for to.Next() {
				n := to.Node().(*unitNode)
				mu.Lock()
				done := built[n.ID()] || skipped[n.ID()]
				mu.Unlock()
				if done {
					continue
				}
				mu.Lock()
				skipped[n.ID()] = true
				mu.Unlock()
				completed++
				s.log.Printf("work: not building %s: dependency failed", n.unit.Pkg.Id)
				markSkipped(n.ID())
			}
		}
		for completed < numNodes {
			select {
			case r := <-doneCh:
				mu.Lock()
				built[r.node.ID()] = true
				mu.Unlock()
				completed++
				if r.err != nil {
					s.log.Printf("work: %s failed: %v", r.node.unit.Pkg.Id, r.err)
					markSkipped(r.node.ID())
					continue
				}
				to := s.g.To(r.node.ID())
				for to.Next() {
					candidate := to.Node().(*unitNode)
					mu.Lock()
					ready := s.canBuild(candidate, built) && !skipped[candidate.ID()]
					mu.Unlock()
					if ready {
						enqueue(candidate)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return eg.Wait()
}
