package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/ui"
)

const menuPrompt = "Choose an option by entering its number, then hit enter"

// MenuItems returns the interactive menu entries, quit last.
func MenuItems() []ui.MenuItem {
	ops := Operations()
	items := make([]ui.MenuItem, 0, len(ops)+1)
	for _, op := range ops {
		items = append(items, ui.MenuItem{Key: op.Key(), Title: op.Title(), Hint: op.String()})
	}
	return append(items, ui.MenuItem{Key: "q", Title: "Quit"})
}

// Menu runs the interactive session. It shows the menu, runs the chosen
// operation and repeats until a session-ending operation succeeds or the
// operator quits.
//
// A declined confirmation goes back to the menu, and so does a failed
// operation that does not end the session. An invalid choice, a failed
// session-ending operation or cancellation ends the session with an error.
func (d *Dispatcher) Menu(ctx context.Context) error {
	for {
		d.console.Menu(MenuItems())

		choice, err := d.console.Ask(ctx, menuPrompt)
		if err != nil {
			return err
		}
		switch strings.ToLower(choice) {
		case "q", "quit", "exit":
			d.console.Info("Good bye")
			return nil
		}

		op, err := ParseOperation(choice)
		if err != nil {
			d.console.Error("Invalid option... Bye bye...")
			return err
		}

		_, err = d.Run(ctx, op)
		if errors.Is(err, ErrDeclined) {
			d.console.Warn("aborted")
			continue
		}
		if err != nil {
			if op.EndsSession() || engine.IsCancelled(err) {
				return err
			}
			d.console.Error(err.Error())
			continue
		}
		if op.EndsSession() {
			d.console.Info("Good bye")
			return nil
		}
	}
}
