// Package cliui provides reusable terminal UI helpers (styles, step
// indicators) for parley CLI commands.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	NameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	ErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// spinnerFrames matches the dot spinner pattern used across charm TUIs.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(w, "\r\033[K")
	if err != nil {
		fmt.Fprintf(w, "  %s %s %s\n", FailMark, msg, DimStyle.Render(fmt.Sprintf("(%s)", elapsed.Round(time.Millisecond))))
		return err
	}
	fmt.Fprintf(w, "  %s %s %s\n", SuccessMark, msg, DimStyle.Render(fmt.Sprintf("(%s)", elapsed.Round(time.Millisecond))))
	return nil
}
