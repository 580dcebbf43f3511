package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/shiftline/internal/config"
	"github.com/zulandar/shiftline/internal/db"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Shiftline database",
		Long:  "Creates the MySQL database and migrates all tables. Safe to run multiple times.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shiftline.yaml", "path to Shiftline config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	adminDB, err := db.ConnectAdmin(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password)
	if err != nil {
		return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.DB.Host, cfg.DB.Port, err)
	}
	fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", cfg.DB.Host, cfg.DB.Port)

	if err := db.CreateDatabase(adminDB, cfg.DB.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database %s ready\n", cfg.DB.Database)

	gormDB, err := connectFromConfig(cfg)
	if err != nil {
		return err
	}

	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "Tables migrated")

	fmt.Fprintln(out, "\nShiftline database initialized successfully.")
	return nil
}

// connectFromConfig opens the configured application database.
func connectFromConfig(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Connect(cfg.DB.Host, cfg.DB.Port, cfg.DB.Database, cfg.DB.User, cfg.DB.Password)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}
	return gormDB, nil
}
