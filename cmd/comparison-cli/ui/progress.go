// Package ui provides user interface components for the comparison CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// progressScale is the bar resolution for fractional progress.
const progressScale = 1000

// ProgressBar wraps a progressbar instance for deterministic progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar writing to w.
func NewProgressBar(w io.Writer, total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int64) {
	_ = p.bar.Set64(current)
}

// Describe replaces the bar description.
func (p *ProgressBar) Describe(description string) {
	p.bar.Describe(description)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Clear erases the bar from the terminal.
func (p *ProgressBar) Clear() {
	_ = p.bar.Clear()
}

// ProgressTracker renders comparison progress on a bar. It satisfies the
// pipeline's progress sink.
type ProgressTracker struct {
	mu       sync.Mutex
	w        io.Writer
	bar      *ProgressBar
	fraction float64
	status   string
}

// NewProgressTracker creates a tracker writing to stderr.
func NewProgressTracker() *ProgressTracker {
	return NewProgressTrackerTo(os.Stderr)
}

// NewProgressTrackerTo creates a tracker writing to w.
func NewProgressTrackerTo(w io.Writer) *ProgressTracker {
	return &ProgressTracker{w: w}
}

// Update moves the bar to fraction and shows status.
func (t *ProgressTracker) Update(fraction float64, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar == nil {
		t.bar = NewProgressBar(t.w, progressScale, status)
	}
	t.fraction = fraction
	t.status = status
	t.bar.Describe(status)
	t.bar.Set(int64(fraction * progressScale))
}

// Reset completes a finished bar or clears an interrupted one.
func (t *ProgressTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar == nil {
		return
	}
	if t.fraction >= 1 {
		t.bar.Finish()
	} else {
		t.bar.Clear()
		fmt.Fprint(t.w, "\n")
	}
	t.bar = nil
	t.fraction = 0
	t.status = ""
}

// Last returns the most recent fraction and status.
func (t *ProgressTracker) Last() (float64, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fraction, t.status
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	s.spinner.Lock()
	s.spinner.Suffix = " " + message
	s.spinner.Unlock()
}

// Message displays a simple message.
func Message(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
	fmt.Fprintln(os.Stdout)
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s %s\n", color.YellowString("⚠"), fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s %s\n", color.CyanString("ℹ"), fmt.Sprintf(format, args...))
}

// Debug displays a message only in verbose mode.
func Debug(format string, args ...interface{}) {
	if !verboseFlag {
		return
	}
	fmt.Fprintf(os.Stderr, "%s\n", color.HiBlackString(format, args...))
}

// Newline prints a newline.
func Newline() {
	fmt.Fprintln(os.Stdout)
}

// Section displays a section header.
func Section(title string) {
	fmt.Fprintf(os.Stdout, "\n%s\n", color.New(color.Bold).Sprint(title))
	fmt.Fprintf(os.Stdout, "%s\n\n", strings.Repeat("=", len(title)))
}
