package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/session"
)

func newPressCmd(opts *options) *cobra.Command {
	var keys bool

	cmd := &cobra.Command{
		Use:   "press <token>...",
		Short: "Press keypad buttons on the local calculator",
		Long: `press applies keypad tokens to the locally stored calculator and prints
the display. Runs of digits may be written together: "press 12 + 30 =".
With --keys the arguments are keyboard keys such as Enter or Escape.`,
		Example: `  calculator press 5 + 3 =
  calculator press --keys 9 '*' 9 Enter
  calculator press C`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.cfg, 0)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer a.Close(context.WithoutCancel(ctx))

			return press(ctx, a.sessions, cmd.OutOrStdout(), args, keys)
		},
	}
	cmd.Flags().BoolVar(&keys, "keys", false, "treat arguments as keyboard keys")
	return cmd
}

func press(ctx context.Context, svc *session.Service, out io.Writer, args []string, keys bool) error {
	st := svc.Open(ctx, session.DefaultID)

	for _, arg := range args {
		var err error
		for _, tok := range expandArg(arg, keys) {
			if keys {
				st, err = svc.Key(ctx, session.DefaultID, tok)
			} else {
				st, err = svc.Press(ctx, session.DefaultID, tok)
			}
			if err != nil {
				return err
			}
		}
	}

	printDisplay(out, st)
	return nil
}

// expandArg splits runs of digits and decimal points into single tokens.
func expandArg(arg string, keys bool) []string {
	if keys || len(arg) < 2 || strings.Trim(arg, "0123456789.") != "" {
		return []string{arg}
	}
	return strings.Split(arg, "")
}

func printDisplay(out io.Writer, st engine.State) {
	view := engine.Display(st)
	if view.Secondary != "" {
		fmt.Fprintln(out, view.Secondary)
	}
	line := view.Value
	if st.MemoryActive {
		line = "M " + line
	}
	fmt.Fprintln(out, line)
}
