package main

import (
	"context"

	"github.com/spf13/cobra"
)

// NewDestroyCmd creates the destroy subcommand.
func NewDestroyCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				cmd.Println("Refusing to delete all users without --yes")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, closeStore, err := openCredentials(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			n, err := store.DeleteAll(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("Data destroyed: %d users removed\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all users")

	return cmd
}
