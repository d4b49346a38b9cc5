package scheduler

import (
	"io"
	"runtime"
	"sync"

	"github.com/dl/goread/internal/input"
	"github.com/dl/goread/internal/output"
)

// Job is one file read: a path and the window of it to read.
type Job struct {
	Path  string
	Range input.Range
}

// Scheduler manages a pool of workers that read files concurrently.
type Scheduler struct {
	workers int
	reader  input.Reader
}

// New creates a Scheduler with the given number of workers.
// If workers is 0, defaults to NumCPU * 2.
func New(workers int, r input.Reader) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &Scheduler{
		workers: workers,
		reader:  r,
	}
}

// Run reads every job and returns results on the result channel.
// Results carry 1-based sequence numbers in job order for ordered output.
// Each result's Closer must be called once it has been consumed.
func (s *Scheduler) Run(jobs []Job) <-chan output.Result {
	resultCh := make(chan output.Result, s.workers*2)
	type item struct {
		seq int
		job Job
	}
	work := make(chan item)

	var wg sync.WaitGroup
	for range min(s.workers, max(len(jobs), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range work {
				result := s.process(it.job)
				result.SeqNum = it.seq
				resultCh <- result
			}
		}()
	}

	go func() {
		for i, job := range jobs {
			work <- item{seq: i + 1, job: job}
		}
		close(work)
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

func (s *Scheduler) process(job Job) output.Result {
	result := output.Result{FilePath: job.Path, Offset: job.Range.Offset}

	readResult, err := s.reader.Read(job.Path, job.Range)
	if err == io.EOF {
		result.Absent = true
		return result
	}
	if err != nil {
		result.Err = err
		return result
	}

	result.Data = readResult.Data
	result.Closer = readResult.Closer
	return result
}
