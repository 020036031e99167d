package installer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/manifest"
)

// Task is one manifest entry's install work: fetch/clone/verify it into
// the depot. Queue runs tasks concurrently (spec.md §4.5's "multi-
// threaded with explicit task boundaries" scheduling note — only the
// resolver itself is required to stay single-threaded) and reports every
// failure rather than stopping at the first one, so a single bad mirror
// doesn't hide unrelated failures elsewhere in the batch.
type Task struct {
	Entry *manifest.Entry
	Run   func(*manifest.Entry) error
}

// Result pairs a task's entry with the error its Run produced, if any.
type Result struct {
	Entry *manifest.Entry
	Err   error
}

// RunQueue executes tasks with up to concurrency workers in flight at
// once and returns one Result per task, in task order.
func RunQueue(tasks []Task, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(tasks))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := t.Run(t.Entry)
			if err != nil {
				err = errors.Wrapf(err, "installing %s", t.Entry.Name)
			}
			results[i] = Result{Entry: t.Entry, Err: err}
		}(i, t)
	}
	wg.Wait()
	return results
}

// FailedResults filters results down to the ones that errored.
func FailedResults(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
