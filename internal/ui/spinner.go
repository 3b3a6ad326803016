package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerTick = 80 * time.Millisecond

// Spinner animates on stderr so piped stdout stays clean. When stderr is not
// a terminal it prints nothing.
type Spinner struct {
	msg  string
	out  io.Writer
	live bool
	stop chan struct{}
	done chan struct{}
}

func NewSpinner(msg string) *Spinner {
	return &Spinner{
		msg:  msg,
		out:  os.Stderr,
		live: term.IsTerminal(int(os.Stderr.Fd())),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	if !s.live {
		close(s.done)
		return
	}
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.done)
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(s.out, "\r%s  %s", StyleChain.Render(spinnerFrames[i%len(spinnerFrames)]), s.msg)
		select {
		case <-s.stop:
			fmt.Fprintf(s.out, "\r%-60s\r", "")
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}

// Spin shows msg while fn runs.
func Spin(msg string, fn func() error) error {
	s := NewSpinner(msg)
	s.Start()
	defer s.Stop()
	return fn()
}
