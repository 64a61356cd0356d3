package tasks

import (
	"sync"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

// acquireJob is a single dispatched track.
type acquireJob struct {
	index int
	query string
}

// downloadPool acquires tracks with a bounded set of workers.
//
// A dispatcher emits progress events in index order at the configured rate and feeds the workers; results are
// reordered so that result events are emitted strictly by index. It reports whether dispatch was interrupted.
func (p *Pipeline) downloadPool(x *execution, tracks []models.Track, folder string) bool {
	total := len(tracks)
	workers := min(p.opts.Workers, total)

	limit := rate.Inf
	if p.opts.RateLimit > 0 {
		limit = rate.Limit(p.opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	jobs := make(chan acquireJob)
	results := make(chan models.AcquisitionResult, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.acquireWorker(x, &wg, jobs, results, folder, total)
	}

	var interrupted bool
	go func() {
		defer close(jobs)
		for i, track := range tracks {
			if x.stopped() {
				interrupted = true
				return
			}
			if err := limiter.Wait(x.ctx); err != nil {
				interrupted = true
				return
			}
			if x.stopped() {
				interrupted = true
				return
			}

			index := i + 1
			query := shared.BuildQuery(track)
			x.emit(progressEvent(index, total, query))
			jobs <- acquireJob{index: index, query: query}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]models.AcquisitionResult)
	next := 1
	for res := range results {
		pending[res.Index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			p.collect(x, r, total)
			next++
		}
	}

	return interrupted
}

// acquireWorker is a worker goroutine that acquires tracks from the jobs channel.
func (p *Pipeline) acquireWorker(
	x *execution,
	wg *sync.WaitGroup,
	jobs <-chan acquireJob,
	results chan<- models.AcquisitionResult,
	folder string,
	total int,
) {
	defer wg.Done()

	for job := range jobs {
		results <- p.acquire(x.ctx, job.query, folder, job.index, total)
	}
}
