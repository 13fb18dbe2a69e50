package cli

import (
	"fmt"

	"dbsite/internal/repository"
	"dbsite/internal/services"
	"dbsite/internal/utils"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const (
	usernameFlag = "username"
	passwordFlag = "password"
)

var createAdminFlags = map[string]cobraflags.Flag{
	usernameFlag: &cobraflags.StringFlag{
		Name:  usernameFlag,
		Value: "admin",
		Usage: "Login name of the user",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "Password (at least 8 characters)",
	},
}

func newCreateAdminCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create a user or reset its password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := utils.InitDatabase(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}

			authService := services.NewAuthService(repository.NewUserRepository(db))
			user, err := authService.CreateAdmin(
				createAdminFlags[usernameFlag].GetString(),
				createAdminFlags[passwordFlag].GetString(),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %q (id %d) is ready\n", user.Username, user.ID)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, createAdminFlags)
	return cmd
}
