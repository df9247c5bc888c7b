package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/session"
)

func newHistoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local calculator's history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.cfg, 0)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer a.Close(context.WithoutCancel(ctx))

			st := a.sessions.Open(ctx, session.DefaultID)
			out := cmd.OutOrStdout()
			if len(st.History) == 0 {
				fmt.Fprintln(out, "No calculations yet")
				return nil
			}
			for i := len(st.History) - 1; i >= 0; i-- {
				e := st.History[i]
				fmt.Fprintf(out, "%s  %s = %s\n",
					e.Timestamp.Local().Format(time.DateTime),
					e.Expression,
					engine.FormatDisplayValue(e.Result),
				)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the local calculator's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.cfg, 0)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer a.Close(context.WithoutCancel(ctx))

			a.sessions.Open(ctx, session.DefaultID)
			if _, err := a.sessions.ClearHistory(ctx, session.DefaultID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	})
	return cmd
}
