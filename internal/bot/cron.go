package bot

import (
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field cron expressions
// (minute, hour, dom, month, dow), matching the config schema.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration returns the time from now until expr next fires.
// Config validation rejects unparseable expressions at load time;
// should one slip through anyway, 0 is returned and the caller leaves
// the job unscheduled.
func nextCronDuration(expr string, now time.Time) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
