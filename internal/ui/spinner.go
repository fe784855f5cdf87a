// Package ui shows batch progress on interactive terminals.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// Spinner wraps briandowns/spinner and stays silent unless out is a terminal.
type Spinner struct {
	s       *spinner.Spinner
	message string
	enabled bool
}

// NewSpinner creates a spinner writing to out.
func NewSpinner(out *os.File, message string) *Spinner {
	if !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return &Spinner{message: message}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message
	return &Spinner{s: s, message: message, enabled: true}
}

// Enabled reports whether the spinner draws anything.
func (sp *Spinner) Enabled() bool { return sp.enabled }

func (sp *Spinner) Start() {
	if sp.enabled {
		sp.s.Start()
	}
}

func (sp *Spinner) Stop() {
	if sp.enabled {
		sp.s.Stop()
	}
}

// Progress shows done of total points. Safe to call from several goroutines.
func (sp *Spinner) Progress(done, total int) {
	if !sp.enabled {
		return
	}
	sp.s.Lock()
	sp.s.Suffix = fmt.Sprintf(" %s %d/%d", sp.message, done, total)
	sp.s.Unlock()
}
