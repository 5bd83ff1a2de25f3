// Package termhost is the terminal side of the bridge: prompts and notices
// on the console, proxy documents mirrored to local files, and a file
// watcher that reports saves.
package termhost

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/studio-bridge/internal"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// ErrInputClosed is returned when the console input reaches EOF.
var ErrInputClosed = errors.New("console input closed")

// Console reads answers from one input and writes notices to two outputs.
// Prompts are serialized so that concurrent dialogs do not interleave.
type Console struct {
	out    io.Writer
	errOut io.Writer
	styled bool

	lines chan string
	prompt sync.Mutex
	mu     sync.Mutex // guards writes
}

// NewConsole reads lines from in in the background. Output is styled only
// when out is a terminal.
func NewConsole(in io.Reader, out, errOut io.Writer) *Console {
	c := &Console{
		out:    out,
		errOut: errOut,
		styled: isTerminal(out),
		lines:  make(chan string),
	}
	go c.scan(in)
	return c
}

// StdConsole returns a console on the process's standard streams.
func StdConsole() *Console {
	return NewConsole(os.Stdin, os.Stdout, os.Stderr)
}

func (c *Console) scan(in io.Reader) {
	defer close(c.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		internal.LogDebug("console: input error: %v", err)
	}
}

// Ask writes question and waits for one line of input.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	c.prompt.Lock()
	defer c.prompt.Unlock()

	c.write(c.out, c.render(promptStyle, "?")+" "+question+" ")

	select {
	case line, ok := <-c.lines:
		if !ok {
			c.write(c.out, "\n")
			return "", ErrInputClosed
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		c.write(c.out, "\n")
		return "", ctx.Err()
	}
}

// Success prints a success notice
func (c *Console) Success(message string) {
	c.line(c.out, successStyle, "✓", "", message)
}

// Info prints an informational notice
func (c *Console) Info(message string) {
	c.line(c.out, promptStyle, "ℹ", "", message)
}

// Warning prints a warning notice
func (c *Console) Warning(message string) {
	c.line(c.errOut, warningStyle, "⚠", "WARNING: ", message)
}

// Error prints an error notice
func (c *Console) Error(message string) {
	c.line(c.errOut, errorStyle, "✗", "ERROR: ", message)
}

// Println writes plain text to the standard output.
func (c *Console) Println(text string) {
	c.write(c.out, text+"\n")
}

// Dim renders text in a muted style when styling is on.
func (c *Console) Dim(text string) string {
	return c.render(dimStyle, text)
}

// Progress runs fn while showing a spinner next to message.
func (c *Console) Progress(ctx context.Context, message string, fn func() error) error {
	if !c.styled {
		internal.LogInfo(message)
		return fn()
	}

	spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	done := make(chan error, 1)
	stop := make(chan struct{})
	spinnerDone := make(chan struct{})

	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.write(c.errOut, fmt.Sprintf("\r%s %s", promptStyle.Render(spinnerChars[i%len(spinnerChars)]), message))
			}
		}
	}()

	go func() {
		done <- fn()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	close(stop)
	<-spinnerDone

	if err != nil {
		c.write(c.errOut, fmt.Sprintf("\r%s %s\n", errorStyle.Render("✗"), message))
		return err
	}
	c.write(c.errOut, fmt.Sprintf("\r%s %s\n", successStyle.Render("✓"), message))
	return nil
}

func (c *Console) line(w io.Writer, style lipgloss.Style, icon, plainPrefix, message string) {
	if c.styled {
		c.write(w, style.Render(icon)+" "+message+"\n")
		return
	}
	c.write(w, plainPrefix+message+"\n")
}

func (c *Console) render(style lipgloss.Style, text string) string {
	if !c.styled {
		return text
	}
	return style.Render(text)
}

func (c *Console) write(w io.Writer, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(w, s)
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}
