package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/config"
	"github.com/zulandar/shiftline/internal/flow"
	"github.com/zulandar/shiftline/internal/models"
	"github.com/zulandar/shiftline/internal/schedule"
	"gorm.io/gorm"
)

// planFlags holds the raw flag values for the plan command.
type planFlags struct {
	configPath string
	userID     int64
	location   string
	date       string
	start      string
	end        string
	status     string
}

func newPlanCmd() *cobra.Command {
	var flags planFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a shift slot for a staff member",
		Long:  "Creates a monthly-plan slot directly, bypassing the chat flows. Overlapping slots are rejected.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := connectFromConfig(cfg)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			return runPlan(cmd, gormDB, clock.New(loc), cfg, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "shiftline.yaml", "path to Shiftline config file")
	cmd.Flags().Int64VarP(&flags.userID, "user", "u", 0, "numeric user id")
	cmd.Flags().StringVarP(&flags.location, "location", "l", "", "location id")
	cmd.Flags().StringVarP(&flags.date, "date", "d", "", "shift date (DD.MM)")
	cmd.Flags().StringVarP(&flags.start, "start", "s", "", "start time (HH:MM)")
	cmd.Flags().StringVarP(&flags.end, "end", "e", "", "end time (HH:MM)")
	cmd.Flags().StringVar(&flags.status, "status", models.SlotDraft, "slot status (draft or approved)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("location")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func runPlan(cmd *cobra.Command, gormDB *gorm.DB, clk clock.Clock, cfg *config.Config, flags planFlags) error {
	if !cfg.HasLocation(flags.location) {
		return fmt.Errorf("location %q is not configured", flags.location)
	}
	if flags.status != models.SlotDraft && flags.status != models.SlotApproved {
		return fmt.Errorf("status %q is not plannable (draft, approved)", flags.status)
	}

	date, err := flow.ParseDate(flags.date, clk)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	startMin, err := flow.ParseTimeOfDay(flags.start)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	endMin, err := flow.ParseTimeOfDay(flags.end)
	if err != nil {
		return fmt.Errorf("parse end: %w", err)
	}

	slot, err := schedule.PlanSlot(gormDB, schedule.PlanOpts{
		UserID:     flags.userID,
		LocationID: flags.location,
		Date:       date,
		StartMin:   startMin,
		EndMin:     endMin,
		Status:     flags.status,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Planned slot #%d: user %d at %s on %s, %s–%s [%s]\n",
		slot.ID, slot.UserID, slot.LocationID, slot.Date.Format("02.01.2006"),
		flow.FormatMinutes(slot.StartMin), flow.FormatMinutes(slot.EndMin), slot.Status)
	return nil
}
