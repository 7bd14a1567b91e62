package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makoshaa/kia/internal/auth"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

var newUser struct {
	username  string
	password  string
	name      string
	role      string
	dashboard string
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a dashboard account",
	Example: `  leadboard create-user --username kia --password kia123 --name "Kia Qazaqstan" --dashboard 01HV...
  leadboard create-user --username ops --password secret --name Ops --role admin`,
	RunE: runCreateUser,
}

func init() {
	createUserCmd.Flags().StringVar(&newUser.username, "username", "", "login name")
	createUserCmd.Flags().StringVar(&newUser.password, "password", "", "password")
	createUserCmd.Flags().StringVar(&newUser.name, "name", "", "display name")
	createUserCmd.Flags().StringVar(&newUser.role, "role", string(models.RoleUser), "admin or user")
	createUserCmd.Flags().StringVar(&newUser.dashboard, "dashboard", "", "assigned dashboard id")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createUserCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	role := models.Role(newUser.role)
	if role != models.RoleAdmin && role != models.RoleUser {
		return fmt.Errorf("role must be admin or user, got %q", newUser.role)
	}
	name := newUser.name
	if name == "" {
		name = newUser.username
	}

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

	ctx := cmd.Context()
	if newUser.dashboard != "" {
		if _, err := repo.GetDashboard(ctx, newUser.dashboard); err != nil {
			return fmt.Errorf("dashboard %s: %w", newUser.dashboard, err)
		}
	}

	hash, err := auth.HashPassword(newUser.password)
	if err != nil {
		return err
	}
	user := &models.User{
		Username:     newUser.username,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		DashboardID:  newUser.dashboard,
	}
	err = repo.CreateUser(ctx, user)
	if errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("user %q already exists", newUser.username)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User %q created (id %d, role %s)\n", user.Username, user.ID, user.Role)
	return nil
}
