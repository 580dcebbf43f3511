package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/shiftline/internal/bot"
	"github.com/zulandar/shiftline/internal/bot/discord"
	"github.com/zulandar/shiftline/internal/bot/slack"
	"github.com/zulandar/shiftline/internal/config"
	"github.com/zulandar/shiftline/internal/dashboard"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Shiftline bot daemon",
		Long:  "Connects to the configured chat platform and handles shift requests until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shiftline.yaml", "path to Shiftline config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := connectFromConfig(cfg)
	if err != nil {
		return err
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}

	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		DB:      gormDB,
		Config:  cfg,
		Adapter: adapter,
		Out:     out,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(out, "\nShutting down...")
		cancel()
	}()

	if cfg.Dashboard.Enabled {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				DB:   gormDB,
				Port: cfg.Dashboard.Port,
				Out:  out,
			})
			if err != nil {
				log.Printf("dashboard: %v", err)
			}
		}()
	}

	return daemon.Run(ctx)
}

// createAdapter builds the platform adapter selected in the config.
func createAdapter(cfg *config.Config) (bot.Adapter, error) {
	switch cfg.Platform.Kind {
	case "slack":
		return slack.New(slack.AdapterOpts{
			AppToken:  cfg.Platform.Slack.AppToken,
			BotToken:  cfg.Platform.Slack.BotToken,
			ChannelID: cfg.Platform.Slack.Channel,
		})
	case "discord":
		return discord.New(discord.AdapterOpts{
			BotToken:  cfg.Platform.Discord.BotToken,
			ChannelID: cfg.Platform.Discord.Channel,
		})
	default:
		return nil, fmt.Errorf("platform.kind %q is not supported (slack, discord)", cfg.Platform.Kind)
	}
}
