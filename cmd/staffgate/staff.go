package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/staffgate"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/spf13/cobra"
)

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Print the staff directory",
		Long:  `Prints the accepted members the way the superuser sees them after /staff.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			app, err := staffgate.New(cmd.Context(), cfg, memory.NewMessenger(), staffgate.WithLogger(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			staff, err := app.Engine.Staff(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if staff == nil {
					staff = []domain.StaffRecord{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(staff)
			}
			_, err = fmt.Fprintln(out, app.Engine.StaffText(staff))
			return err
		},
	}
	cmd.Flags().Bool("json", false, "Print the records as JSON")
	return cmd
}
