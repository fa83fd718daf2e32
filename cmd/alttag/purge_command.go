package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove all queue rows and generation provenance",
		Long: "Removes every queue row and wipes generation provenance from the image\n" +
			"library. Live alt text on images is left in place. Honors the\n" +
			"retain_data setting unless --force is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cfg.Uninstall.RetainData && !force {
				fmt.Fprintln(out, "retain_data is enabled; nothing was removed. Use --force to purge anyway.")
				return nil
			}

			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			imageStore, err := ctx.imageStore()
			if err != nil {
				return err
			}

			purged, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			cleared, err := imageStore.ClearProvenance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d queue row(s) and cleared provenance on %d image(s)\n", purged, cleared)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Purge even when retain_data is enabled")
	return cmd
}
