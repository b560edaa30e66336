package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"teamtasks/internal/app"
	"teamtasks/internal/config"
)

var (
	configPath string

	adminName     string
	adminEmail    string
	adminPassword string
)

var rootCmd = &cobra.Command{
	Use:           "teamtasks",
	Short:         "Team task tracker API server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx, cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := app.Migrate(cmd.Context(), cfg); err != nil {
			return err
		}
		log.Printf("[db][migrate] done")
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Create an administrator directly in the database.

The password is read from --password or, if empty, from TEAMTASKS_ADMIN_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			password = os.Getenv("TEAMTASKS_ADMIN_PASSWORD")
		}
		if strings.TrimSpace(adminEmail) == "" || password == "" {
			return errors.New("--email and a password are required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Database.Driver == config.DriverMemory {
			return errors.New("create-admin needs a persistent database")
		}
		u, err := app.CreateAdmin(cmd.Context(), cfg, adminName, adminEmail, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin id=%d email=%s\n", u.ID, u.Email)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")

	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "Display name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Login email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Login password (at least 6 characters)")

	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)
}

// @title                       Team Task Tracker API
// @version                     1.0
// @description                 Task assignment, status tracking and assignee notifications.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}
