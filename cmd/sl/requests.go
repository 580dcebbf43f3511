package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/config"
	"github.com/zulandar/shiftline/internal/flow"
	"github.com/zulandar/shiftline/internal/models"
	"github.com/zulandar/shiftline/internal/request"
)

func newRequestsCmd() *cobra.Command {
	var (
		configPath string
		listStatus string
		listType   string
	)

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect and decide shift requests",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "shiftline.yaml", "path to Shiftline config file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := requestServiceFromConfig(configPath)
			if err != nil {
				return err
			}
			return runRequestsList(cmd, svc, listStatus, listType)
		},
	}
	list.Flags().StringVar(&listStatus, "status", "", "filter by status")
	list.Flags().StringVar(&listType, "type", "", "filter by type (cover, swap)")

	approve := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a request waiting on the manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := requestServiceFromConfig(configPath)
			if err != nil {
				return err
			}
			return runRequestDecision(cmd, svc.Approve, args[0])
		},
	}

	reject := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a request waiting on the manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := requestServiceFromConfig(configPath)
			if err != nil {
				return err
			}
			return runRequestDecision(cmd, svc.Reject, args[0])
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an open request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := requestServiceFromConfig(configPath)
			if err != nil {
				return err
			}
			return runRequestDecision(cmd, svc.Cancel, args[0])
		},
	}

	expire := &cobra.Command{
		Use:   "expire",
		Short: "Expire requests past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := requestServiceFromConfig(configPath)
			if err != nil {
				return err
			}
			retention := time.Duration(cfg.Requests.RetentionDays) * 24 * time.Hour
			n, err := svc.ExpireStale(retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d stale request(s)\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, approve, reject, cancel, expire)
	return cmd
}

func requestServiceFromConfig(configPath string) (*request.Service, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := connectFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	svc, err := request.NewService(request.ServiceOpts{DB: gormDB, Clock: clock.New(loc)})
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func runRequestsList(cmd *cobra.Command, svc *request.Service, status, typ string) error {
	reqs, err := svc.List(request.ListFilters{Status: status, Type: typ})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(reqs) == 0 {
		fmt.Fprintln(out, "No requests found.")
		return nil
	}
	for _, r := range reqs {
		fmt.Fprintf(out, "#%d %s by user %d: %s %s–%s at %s [%s]\n",
			r.ID, r.Type, r.InitiatorID, r.Date.Format("02.01"),
			flow.FormatMinutes(r.StartMin), flow.FormatMinutes(r.EndMin),
			r.LocationID, r.Status)
	}
	return nil
}

func runRequestDecision(cmd *cobra.Command, decide func(uint) (*models.ShiftRequest, error), rawID string) error {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fmt.Errorf("request id must be a number, got %q", rawID)
	}
	req, err := decide(uint(id))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Request #%d is now %s\n", req.ID, req.Status)
	return nil
}
