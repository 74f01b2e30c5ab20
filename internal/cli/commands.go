package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Register adds the bondsim commands to c.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&simulateCmd{env: env}, "simulation")
	c.Register(&predictCmd{env: env}, "simulation")
	c.Register(&exportCmd{env: env}, "reports")
}

// Completion describes the commands for shell completion. Calling Complete
// on it exits the process when COMP_LINE is set.
func Completion() *complete.Command {
	months := make(predict.Set, 12)
	for i := range months {
		months[i] = fmt.Sprint(i + 1)
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"simulate": {
				Flags: map[string]complete.Predictor{
					"scenario":    predict.Files("*.yaml"),
					"monthly":     predict.Something,
					"years":       predict.Something,
					"tenor":       predict.Set{"2", "3", "5", "7", "10", "15"},
					"start-year":  predict.Something,
					"start-month": months,
					"xlsx":        predict.Files("*.xlsx"),
					"json":        predict.Nothing,
					"plain":       predict.Nothing,
				},
			},
			"predict": {
				Flags: map[string]complete.Predictor{
					"year":  predict.Something,
					"month": months,
					"tenor": predict.Set{"2", "3", "5", "7", "10", "15"},
					"json":  predict.Nothing,
				},
			},
			"export": {
				Flags: map[string]complete.Predictor{
					"run": predict.Something,
				},
			},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
}

// printMarkdown renders md for the terminal. Plain output is the markdown itself.
func printMarkdown(w io.Writer, md string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(160))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, strings.TrimLeft(out, "\n"))
	return err
}
