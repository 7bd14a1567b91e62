package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makoshaa/kia/internal/auth"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Migrate the schema and make sure the admin account exists",
	Long: `setup applies the schema and creates the ADMIN_USERNAME account with
ADMIN_PASSWORD when it does not exist yet. An existing account is left as is.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	repo, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return err
	}

	created, err := ensureAdmin(cmd.Context(), repo, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "Admin user %q created\n", cfg.AdminUsername)
	} else {
		fmt.Fprintf(out, "Admin user %q already exists\n", cfg.AdminUsername)
	}
	return nil
}

// ensureAdmin creates the admin account unless the username is taken.
func ensureAdmin(ctx context.Context, repo *storage.Repository, username, password, name string) (bool, error) {
	if username == "" {
		return false, errors.New("ADMIN_USERNAME must not be empty")
	}

	_, err := repo.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}

	if password == "" {
		return false, errors.New("ADMIN_PASSWORD is required to create the admin user")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}

	err = repo.CreateUser(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}
