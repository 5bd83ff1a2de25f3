package termhost

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Dialogs shows bridge dialogs on a console. It also serves as the picker
// for related documents.
type Dialogs struct {
	console *Console
}

// NewDialogs creates dialogs on console.
func NewDialogs(console *Console) *Dialogs {
	return &Dialogs{console: console}
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (d *Dialogs) Confirm(ctx context.Context, text string) (bool, error) {
	answer, err := d.console.Ask(ctx, text+" "+d.console.Dim("[y/N]"))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Alert shows text and waits for the user to acknowledge it.
func (d *Dialogs) Alert(ctx context.Context, text string) error {
	d.console.Info(text)
	_, err := d.console.Ask(ctx, d.console.Dim("Press Enter to continue"))
	return err
}

func (d *Dialogs) Warn(text string)  { d.console.Warning(text) }
func (d *Dialogs) Error(text string) { d.console.Error(text) }

// Pick lists items and reads a 1-based choice. An empty answer dismisses
// the picker.
func (d *Dialogs) Pick(ctx context.Context, items []string) (string, bool, error) {
	if len(items) == 0 {
		return "", false, nil
	}

	for i, item := range items {
		d.console.Println(fmt.Sprintf("  %s %s", d.console.Dim(fmt.Sprintf("%d.", i+1)), item))
	}

	for {
		answer, err := d.console.Ask(ctx, fmt.Sprintf("Open which document? %s", d.console.Dim(fmt.Sprintf("[1-%d]", len(items)))))
		if err != nil {
			return "", false, err
		}
		if answer == "" {
			return "", false, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(items) {
			return items[n-1], true, nil
		}
		d.console.Warning(fmt.Sprintf("%q is not a choice", answer))
	}
}
