package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/domain/user"
)

type userCreator interface {
	Create(ctx context.Context, in credentials.NewUser) (user.User, error)
}

type importResult struct {
	Created int
	Skipped int
}

// NewImportCmd creates the import subcommand.
func NewImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create users from a JSON file",
		Long: `Reads a JSON array of {"name","email","password","role"} objects and
creates each user with a hashed password. Emails that already exist are
skipped, so the command can be re-run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fail("SEED_FILE_INVALID", err, "file", file)
			}
			defer f.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, closeStore, err := openCredentials(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := importUsers(ctx, store, f)
			if err != nil {
				return err
			}

			cmd.Printf("Data imported: %d created, %d skipped\n", res.Created, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "data/users.json", "path to the users JSON file")

	return cmd
}

func importUsers(ctx context.Context, store userCreator, r io.Reader) (importResult, error) {
	var rows []credentials.NewUser
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return importResult{}, fail("SEED_FILE_INVALID", err, "operation", "decode users")
	}

	var res importResult
	for i, row := range rows {
		_, err := store.Create(ctx, row)
		switch {
		case err == nil:
			res.Created++
		case apperr.Is(err, apperr.CodeConflict):
			res.Skipped++
		default:
			return res, fail("SEED_FAILED", err, "row", i, "email", row.Email)
		}
	}

	return res, nil
}
