// Package progress implements the periodic one-line TTY progress bar
// of spec §4.2.7/§5: a monotonically non-decreasing shared counter
// written by a worker loop and redrawn by a background goroutine,
// serialized against other stdout writers by a shared mutex.
package progress

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is the shared progress value. Every access is atomic; the
// worker advances it and the reporter only loads it. No reader depends
// on causal ordering relative to other worker writes, and overshoot
// (setting the counter past Total mid-scan) is permitted.
type Counter struct {
	v atomic.Uint64
}

// Add advances the counter by delta.
func (c *Counter) Add(delta uint64) {
	c.v.Add(delta)
}

// Set overwrites the counter, e.g. to a predicted total at scan end.
func (c *Counter) Set(v uint64) {
	c.v.Store(v)
}

// Load reads the current value.
func (c *Counter) Load() uint64 {
	return c.v.Load()
}

// StdoutMutex serializes prints across worker log lines and reporter
// redraws, mirroring the original's std::mutex* stdoutMutex threaded
// through every print site rather than a hidden package global.
type StdoutMutex = sync.Mutex

// Printf prints a line to os.Stdout under mu; the driver uses it for
// its occasional status messages ("Writing ...", warnings).
func Printf(mu *StdoutMutex, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Printf(format, args...)
}

// Reporter redraws a single-line ANSI progress bar from a Counter
// until told to stop, on a ~1s tick (spec §5).
type Reporter struct {
	mu      *StdoutMutex
	counter *Counter
	total   uint64
	title   string

	stop chan struct{}
	done chan struct{}
}

// Start launches the reporter goroutine. mu is shared with the
// worker's own log prints; counter is read-only from the reporter's
// side. total == 0 disables percentage math: the bar is drawn full
// (100%) whatever the counter holds.
func Start(mu *StdoutMutex, counter *Counter, total uint64, title string) *Reporter {
	r := &Reporter{
		mu:      mu,
		counter: counter,
		total:   total,
		title:   title,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Reporter) run() {
	defer close(r.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.draw()
			return
		case <-ticker.C:
			r.draw()
		}
	}
}

func (r *Reporter) draw() {
	progress := 1.0
	if r.total > 0 {
		progress = float64(r.counter.Load()) / float64(r.total)
		if progress > 1 {
			progress = 1
		}
	}

	const width = 40
	filled := int(progress * width)

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(os.Stdout, "\r%s [", r.title)
	for i := 0; i < width; i++ {
		if i < filled {
			fmt.Fprint(os.Stdout, "#")
		} else {
			fmt.Fprint(os.Stdout, "-")
		}
	}
	fmt.Fprintf(os.Stdout, "] %3.0f%%", progress*100)
}

// Stop signals the reporter to redraw once more and exit, then blocks
// until it has — the happens-before the spec's §5 "final wait()"
// describes.
func (r *Reporter) Stop() {
	close(r.stop)
	<-r.done
	r.mu.Lock()
	fmt.Fprintln(os.Stdout)
	r.mu.Unlock()
}
