package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a single-line progress indicator while a transaction
// is pending. It is not a TUI program and writes straight to its writer.
type Spinner struct {
	w     io.Writer
	mu    sync.Mutex
	msg   string
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
	delay time.Duration
}

// NewSpinner creates a spinner on stderr.
func NewSpinner(msg string) *Spinner {
	return NewSpinnerTo(os.Stderr, msg)
}

// NewSpinnerTo creates a spinner that draws on w.
func NewSpinnerTo(w io.Writer, msg string) *Spinner {
	return &Spinner{
		w:     w,
		msg:   msg,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		delay: 80 * time.Millisecond,
	}
}

// Start begins the animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		t := time.NewTicker(s.delay)
		defer t.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s  %s", StyleNetwork.Render(spinnerFrames[i%len(spinnerFrames)]), s.msg)
			s.mu.Unlock()
			select {
			case <-s.stop:
				fmt.Fprintf(s.w, "\r%-60s\r", "")
				return
			case <-t.C:
			}
		}
	}()
}

// Update replaces the message, e.g. once a tx hash is known.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the spinner and waits for it to clear its line. Stop is safe
// to call more than once, but only after Start.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// StopWithMsg halts the spinner and prints a final line.
func (s *Spinner) StopWithMsg(msg string) {
	s.Stop()
	fmt.Fprintln(s.w, msg)
}
