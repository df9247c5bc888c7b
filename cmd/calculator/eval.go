package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/expr"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "eval <expression>",
		Short:   "Evaluate an arithmetic expression",
		Example: `  calculator eval '2 + 3 × 4'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := expr.Evaluate(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), engine.FormatResult(v))
			return nil
		},
	}
}
