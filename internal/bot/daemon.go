package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/config"
	"github.com/zulandar/shiftline/internal/flow"
	"github.com/zulandar/shiftline/internal/request"
	"github.com/zulandar/shiftline/internal/session"
	"gorm.io/gorm"
)

// Daemon is the main bot process. It connects to a chat platform via an
// Adapter, pumps inbound messages through the Router, and runs the
// periodic maintenance jobs (session sweep, request expiry).
type Daemon struct {
	db      *gorm.DB
	cfg     *config.Config
	adapter Adapter
	clock   clock.Clock
	out     io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	DB      *gorm.DB
	Config  *config.Config
	Adapter Adapter
	Clock   clock.Clock // defaults to a clock in the configured timezone
	Out     io.Writer   // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("bot: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bot: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	clk := opts.Clock
	if clk == nil {
		loc, err := opts.Config.Location()
		if err != nil {
			return nil, fmt.Errorf("bot: resolve timezone: %w", err)
		}
		clk = clock.New(loc)
	}

	return &Daemon{
		db:      opts.DB,
		cfg:     opts.Config,
		adapter: opts.Adapter,
		clock:   clk,
		out:     out,
	}, nil
}

// Run starts the bot daemon. It connects the adapter, builds all
// subsystems (session store, flow engine, router), and blocks until the
// context is cancelled. On shutdown it closes the adapter gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Shiftline connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}

	var botUserID int64
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	store := session.NewStore(session.StoreOpts{
		TTL:   d.cfg.SessionTTL(),
		Clock: d.clock,
	})

	requests, err := request.NewService(request.ServiceOpts{
		DB:       d.db,
		Clock:    d.clock,
		Notifier: NewAdapterNotifier(d.adapter),
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build request service: %w", err)
	}

	engine, err := flow.NewEngine(store, flow.All(flow.Deps{
		DB:            d.db,
		Clock:         d.clock,
		Requests:      requests,
		KnownLocation: d.cfg.HasLocation,
	})...)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build flow engine: %w", err)
	}

	cmdHandler, err := NewCommandHandler(CommandHandlerOpts{
		DB:       d.db,
		Clock:    d.clock,
		Requests: requests,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build command handler: %w", err)
	}

	router, err := NewRouter(RouterOpts{
		DB:         d.db,
		Store:      store,
		Engine:     engine,
		CmdHandler: cmdHandler,
		Requests:   requests,
		Adapter:    d.adapter,
		BotUserID:  botUserID,
		Out:        d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build router: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}

	// Maintenance jobs run on their own cron timers.
	go d.runMaintenance(ctx, store, requests)

	fmt.Fprintf(d.out, "Shiftline online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Shiftline shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("bot: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Shiftline stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Shiftline inbound channel closed\n")
				return nil
			}
			// Handle serializes per user internally but blocks this loop;
			// run each message on its own goroutine so one user's slow
			// dialog never stalls another's.
			go router.Handle(ctx, msg)
		}
	}
}

// runMaintenance drives the session sweep and request expiry timers.
// Lazy expiry on read is authoritative for both; these passes only keep
// the stores tidy and release parked slots of abandoned requests.
func (d *Daemon) runMaintenance(ctx context.Context, store *session.Store, requests *request.Service) {
	var sweepTimer, expireTimer *time.Timer
	if cronExpr := d.cfg.Session.SweepCron; cronExpr != "" {
		if next := nextCronDuration(cronExpr, d.clock.Now()); next > 0 {
			sweepTimer = time.NewTimer(next)
		}
	}
	if cronExpr := d.cfg.Requests.ExpireCron; cronExpr != "" {
		if next := nextCronDuration(cronExpr, d.clock.Now()); next > 0 {
			expireTimer = time.NewTimer(next)
		}
	}

	defer func() {
		if sweepTimer != nil {
			sweepTimer.Stop()
		}
		if expireTimer != nil {
			expireTimer.Stop()
		}
	}()

	retention := time.Duration(d.cfg.Requests.RetentionDays) * 24 * time.Hour

	for {
		select {
		case <-ctx.Done():
			return

		case <-timerChan(sweepTimer):
			if removed := store.Sweep(); removed > 0 {
				fmt.Fprintf(d.out, "bot: session sweep removed %d\n", removed)
			}
			if next := nextCronDuration(d.cfg.Session.SweepCron, d.clock.Now()); next > 0 {
				sweepTimer.Reset(next)
			}

		case <-timerChan(expireTimer):
			expired, err := requests.ExpireStale(retention)
			if err != nil {
				log.Printf("bot: expire stale requests: %v", err)
			} else if expired > 0 {
				fmt.Fprintf(d.out, "bot: expired %d stale requests\n", expired)
			}
			if next := nextCronDuration(d.cfg.Requests.ExpireCron, d.clock.Now()); next > 0 {
				expireTimer.Reset(next)
			}
		}
	}
}

// timerChan returns the timer's channel, or nil if the timer is nil.
// A nil channel blocks forever in select, which is the desired behavior
// when a job is not scheduled.
func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
