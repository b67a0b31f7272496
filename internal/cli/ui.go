package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#10B981")
	secondaryColor = lipgloss.Color("#6B7280")
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	dimColor       = lipgloss.Color("#9CA3AF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	progressStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true)
)

// Icons used to tag the four kinds of operations the CLI performs.
const (
	iconUpload   = "↑"
	iconCheck    = "✓"
	iconCross    = "✗"
	iconDatabase = "◉"
	iconSearch   = "◎"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// UI renders progress for one CLI invocation: a header naming the
// operation, key-value context lines, a single animated spinner spanning
// the long-running step (tokenizing, bulk-loading, scoring), and a closing
// success/error/hint line.
type UI struct {
	mu       sync.Mutex
	spinning bool
	spinMsg  string
	spinDone chan struct{}
}

// NewUI creates a fresh UI for one command invocation.
func NewUI() *UI {
	return &UI{}
}

// Header announces which operation is running (uploading, indexing,
// searching, deleting).
func (u *UI) Header(icon, title string) {
	fmt.Println()
	fmt.Printf("%s %s\n", icon, titleStyle.Render(title))
}

// Info prints one piece of context below the header, e.g. the database
// path or the row count about to be affected.
func (u *UI) Info(label, value string) {
	fmt.Printf("  %s %s\n",
		labelStyle.Render(label+":"),
		valueStyle.Render(value))
}

// StartSpinner begins an animated spinner next to message. Only one spinner
// runs at a time per UI; a second call while one is already running is a
// no-op since no command needs nested spinners.
func (u *UI) StartSpinner(message string) {
	u.mu.Lock()
	if u.spinning {
		u.mu.Unlock()
		return
	}
	u.spinning = true
	u.spinMsg = message
	u.spinDone = make(chan struct{})
	u.mu.Unlock()

	go func() {
		i := 0
		for {
			select {
			case <-u.spinDone:
				fmt.Print("\r\033[K")
				return
			default:
				u.mu.Lock()
				msg := u.spinMsg
				u.mu.Unlock()
				frame := progressStyle.Render(spinnerFrames[i])
				fmt.Printf("\r%s %s", frame, msg)
				i = (i + 1) % len(spinnerFrames)
				time.Sleep(80 * time.Millisecond)
			}
		}
	}()
}

// StopSpinner stops the spinner and replaces it with a checkmark line
// reporting how long the step took — used when upload/index/delete finish
// without error.
func (u *UI) StopSpinner(message string, duration time.Duration) {
	u.mu.Lock()
	if !u.spinning {
		u.mu.Unlock()
		return
	}
	close(u.spinDone)
	u.spinning = false
	u.mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	durStr := subtitleStyle.Render(fmt.Sprintf("(%s)", duration.Round(time.Millisecond)))
	fmt.Printf("%s %s %s\n", successStyle.Render(iconCheck), message, durStr)
}

// StopSpinnerError stops the spinner and replaces it with an error line —
// used when the bulk load, index update, or delete call returns an error.
func (u *UI) StopSpinnerError(message string) {
	u.mu.Lock()
	if !u.spinning {
		u.mu.Unlock()
		return
	}
	close(u.spinDone)
	u.spinning = false
	u.mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	fmt.Printf("%s %s\n", errorStyle.Render(iconCross), message)
}

// Success prints a closing confirmation line, e.g. after an upload
// completes and the caller still needs to run an index update.
func (u *UI) Success(message string) {
	fmt.Println()
	fmt.Printf("%s %s\n", successStyle.Render(iconCheck), message)
}

// Hint prints a dim, low-priority line — e.g. "no matches" for an empty
// search result.
func (u *UI) Hint(message string) {
	fmt.Printf("  %s\n", hintStyle.Render(message))
}
