package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/duragraph/graphrt/pkgerrors"
)

// BatchItem is one independent execution submitted alongside others
// sharing a dependency map (spec §4.F "Priority & dependencies"). Run
// is invoked once every name in DependsOn has completed successfully;
// lower Priority runs first among items that become ready together.
type BatchItem struct {
	Name      string
	Priority  int
	DependsOn []string
	Run       func(ctx context.Context) error
}

// RunBatch computes the dependency DAG over items, rejects it with
// pkgerrors.CircularDependency if it has a cycle, and otherwise runs
// every item in topological waves — items within a wave run
// concurrently under the scheduler's bulkhead, ordered by ascending
// Priority then Name when more than one item becomes ready at once.
// The first item error aborts the batch; items not yet started are
// reported as never run via the returned completed-names slice.
func (s *Scheduler) RunBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	byName := make(map[string]BatchItem, len(items))
	remaining := make(map[string]int, len(items))
	dependents := make(map[string][]string, len(items))

	for _, it := range items {
		if _, dup := byName[it.Name]; dup {
			return nil, pkgerrors.InvalidInput("name", "duplicate batch item name "+it.Name)
		}
		byName[it.Name] = it
		remaining[it.Name] = len(it.DependsOn)
	}
	for _, it := range items {
		for _, dep := range it.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, pkgerrors.InvalidInput("depends_on", "batch item "+it.Name+" depends on unknown item "+dep)
			}
			dependents[dep] = append(dependents[dep], it.Name)
		}
	}

	if cycleFound(byName) {
		return nil, pkgerrors.CircularDependency()
	}

	var completed []string
	done := map[string]bool{}

	for len(done) < len(byName) {
		ready := make([]string, 0)
		for name, n := range remaining {
			if !done[name] && n == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			// Should be unreachable once cycleFound has passed, but guards
			// against a malformed dependents graph rather than hanging.
			return completed, pkgerrors.CircularDependency()
		}
		sort.Slice(ready, func(i, j int) bool {
			a, b := byName[ready[i]], byName[ready[j]]
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
			return a.Name < b.Name
		})

		results := make(map[string]error, len(ready))
		var mu sync.Mutex
		var wg sync.WaitGroup

		for _, name := range ready {
			it := byName[name]
			wg.Add(1)
			go func(it BatchItem) {
				defer wg.Done()
				if err := s.concurrency.AcquireBulkhead(ctx); err != nil {
					mu.Lock()
					results[it.Name] = err
					mu.Unlock()
					return
				}
				defer s.concurrency.ReleaseBulkhead()

				err := it.Run(ctx)
				mu.Lock()
				results[it.Name] = err
				mu.Unlock()
			}(it)
		}
		wg.Wait()

		for _, name := range ready {
			done[name] = true
			delete(remaining, name)
			if err := results[name]; err != nil {
				return completed, err
			}
			completed = append(completed, name)
			for _, dep := range dependents[name] {
				remaining[dep]--
			}
		}
	}

	return completed, nil
}

// cycleFound runs Kahn's algorithm over the dependency edges and
// reports whether any item is left unresolved, which only happens if
// the dependency graph contains a cycle.
func cycleFound(byName map[string]BatchItem) bool {
	indegree := make(map[string]int, len(byName))
	adj := make(map[string][]string, len(byName))
	for name, it := range byName {
		indegree[name] += len(it.DependsOn)
		for _, dep := range it.DependsOn {
			adj[dep] = append(adj[dep], name)
		}
	}

	queue := make([]string, 0)
	for name, d := range indegree {
		if d == 0 {
			queue = append(queue, name)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[n] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return visited != len(byName)
}
