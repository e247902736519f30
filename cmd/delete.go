package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteYes bool

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a story",
		Long: `Delete removes a story permanently. The mutation layer treats
confirmed intent as a precondition, so the command refuses to run
without --yes. Requires a credential.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !deleteYes {
				return fmt.Errorf("deleting is permanent; rerun with --yes to confirm")
			}

			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.mutator.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted story %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteYes, "yes", false, "confirm the deletion")
	return cmd
}
