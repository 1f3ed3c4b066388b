package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"retreat/internal/registration/models"
)

const cliActor = "retreatctl"

func newExportCmd() *cobra.Command {
	var (
		output string
		status string
		search string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export registrations as CSV, one row per participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := models.Filter{Query: search}
			if status != "" {
				st, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = st
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			rows, err := a.Registrations.ExportCSV(cmd.Context(), filter, w, cliActor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d participants\n", rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&status, "status", "", "only registrations with this status (pending_payment, confirmed, refunded)")
	cmd.Flags().StringVarP(&search, "query", "q", "", "search guardian and participant names and emails")
	return cmd
}
