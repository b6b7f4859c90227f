package main

import (
	"errors"

	"github.com/plantlog/internal/auth"
	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagPassword string
)

var initUserCmd = &cobra.Command{
	Use:   "init-user",
	Short: "Create the operator account if it does not exist",
	Long: `Create the operator account used to sign in to the admin area.

Email and password fall back to SUPER_ROOT_EMAIL / SUPER_ROOT_PASSWORD.

Examples:
  plantadmin init-user --email gardener@example.com --password s3cret`,
	RunE: runInitUser,
}

func init() {
	initUserCmd.Flags().StringVar(&flagEmail, "email", "", "operator email")
	initUserCmd.Flags().StringVar(&flagPassword, "password", "", "operator password")
}

func runInitUser(cmd *cobra.Command, args []string) error {
	email, password := flagEmail, flagPassword
	if email == "" {
		email = appConfig.SuperRootEmail
	}
	if password == "" {
		password = appConfig.SuperRootPassword
	}
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	created, err := auth.NewService(gdb, nil).EnsureUser(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	if created {
		cmd.Printf("用户 %s 创建成功\n", email)
		return nil
	}
	cmd.Printf("用户 %s 已存在，无需初始化\n", email)
	return nil
}
