package main

import (
	"fmt"

	"github.com/spf13/cobra"

	goThreeDS "github.com/MrEthical07/goThreeDS"
)

func lintCmd(global *globalFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate the configuration and report risky settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(global)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return describeError(err)
			}

			ws := cfg.Lint()
			out := cmd.OutOrStdout()
			if len(ws) == 0 {
				fmt.Fprintln(out, "no warnings")
			}
			for _, w := range ws {
				fmt.Fprintf(out, "%-5s %-28s %s\n", w.Severity, w.Code, w.Message)
			}
			if strict {
				return ws.AsError(goThreeDS.LintHigh)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero on HIGH severity warnings")
	return cmd
}
