package flow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/directory"
	"github.com/zulandar/shiftline/internal/models"
	"github.com/zulandar/shiftline/internal/request"
	"github.com/zulandar/shiftline/internal/schedule"
	"gorm.io/gorm"
)

// Registered flow names.
const (
	FlowCover    = "cover"
	FlowSwap     = "swap"
	FlowOnboard  = "onboard"
	FlowSchedule = "schedule"
)

// Field keys used across flows.
const (
	fieldDate     = "date"
	fieldStart    = "start"
	fieldEnd      = "end"
	fieldLocation = "location"
	fieldComment  = "comment"
	fieldPeer     = "peer"
	fieldName     = "name"
	fieldMonth    = "month"
)

// Deps carries what the concrete flows need to parse and complete.
type Deps struct {
	DB       *gorm.DB
	Clock    clock.Clock
	Requests *request.Service
	// KnownLocation validates a location id; nil accepts any.
	KnownLocation func(id string) bool
}

func (d Deps) knownLocation(id string) bool {
	if d.KnownLocation == nil {
		return true
	}
	return d.KnownLocation(id)
}

// dateStep, startStep, endStep, locationStep are shared between the
// cover and swap flows.

func dateStep(d Deps) Step {
	return Step{
		Name:   "date",
		Field:  fieldDate,
		Prompt: "Which date? Send it as DD.MM, e.g. 05.07",
		Parse: func(text string, _ map[string]string) (string, error) {
			t, err := ParseDate(text, d.Clock)
			if err != nil {
				return "", err
			}
			return t.Format(DateLayout), nil
		},
	}
}

func startStep() Step {
	return Step{
		Name:   "start",
		Field:  fieldStart,
		Prompt: "Shift start time? 24-hour HH:MM, e.g. 09:30",
		Parse: func(text string, _ map[string]string) (string, error) {
			min, err := ParseTimeOfDay(text)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(min), nil
		},
	}
}

func endStep() Step {
	return Step{
		Name:   "end",
		Field:  fieldEnd,
		Prompt: "Shift end time? 24-hour HH:MM, e.g. 18:00",
		Parse: func(text string, fields map[string]string) (string, error) {
			min, err := ParseTimeOfDay(text)
			if err != nil {
				return "", err
			}
			start := MustInt(fields, fieldStart)
			if min <= start {
				return "", fmt.Errorf("the end time must be after %s", FormatMinutes(start))
			}
			return strconv.Itoa(min), nil
		},
	}
}

func locationStep(d Deps) Step {
	return Step{
		Name:   "location",
		Field:  fieldLocation,
		Prompt: "Which location? Send the location id, e.g. loc-1",
		Parse: func(text string, _ map[string]string) (string, error) {
			id := strings.TrimSpace(text)
			if id == "" || !d.knownLocation(id) {
				return "", fmt.Errorf("unknown location %q", id)
			}
			return id, nil
		},
	}
}

// CoverFlow collects a cover request: DATE → START → END → LOCATION →
// COMMENT, then files the request with the lifecycle machine.
func CoverFlow(d Deps) *Flow {
	return &Flow{
		Name: FlowCover,
		Steps: []Step{
			dateStep(d),
			startStep(),
			endStep(),
			locationStep(d),
			{
				Name:   "comment",
				Field:  fieldComment,
				Prompt: "Add a comment for the manager, or send - to skip",
				Parse: func(text string, _ map[string]string) (string, error) {
					c := strings.TrimSpace(text)
					if c == "-" {
						c = ""
					}
					return c, nil
				},
			},
		},
		Complete: func(userID int64, fields map[string]string) (string, error) {
			req, err := d.Requests.CreateCover(request.CoverOpts{
				InitiatorID: userID,
				Date:        MustDate(fields, fieldDate, d.Clock.Location()),
				StartMin:    MustInt(fields, fieldStart),
				EndMin:      MustInt(fields, fieldEnd),
				LocationID:  fields[fieldLocation],
				Comment:     fields[fieldComment],
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Cover request #%d submitted for %s %s–%s at %s. Waiting for manager approval.",
				req.ID, req.Date.Format("02.01.2006"),
				FormatMinutes(req.StartMin), FormatMinutes(req.EndMin), req.LocationID), nil
		},
	}
}

// SwapFlow collects a swap request: DATE → START → END → LOCATION →
// PEER. Completion locates the initiator's slot and invites the peer.
func SwapFlow(d Deps) *Flow {
	return &Flow{
		Name: FlowSwap,
		Steps: []Step{
			dateStep(d),
			startStep(),
			endStep(),
			locationStep(d),
			{
				Name:   "peer",
				Field:  fieldPeer,
				Prompt: "Who should take the shift? Send their numeric user id",
				Parse: func(text string, _ map[string]string) (string, error) {
					id, err := ParseUserID(text)
					if err != nil {
						return "", err
					}
					peer, err := directory.Get(d.DB, id)
					if err != nil {
						return "", fmt.Errorf("no staff member with id %d", id)
					}
					if peer.Status != models.AccountApproved {
						return "", fmt.Errorf("%s's account is not approved yet", peer.DisplayName)
					}
					return strconv.FormatInt(id, 10), nil
				},
			},
		},
		Complete: func(userID int64, fields map[string]string) (string, error) {
			peerID, _ := strconv.ParseInt(fields[fieldPeer], 10, 64)
			if peerID == userID {
				return "", fmt.Errorf("flow: swap: can't swap a shift with yourself")
			}
			req, err := d.Requests.CreateSwap(request.SwapOpts{
				InitiatorID: userID,
				PeerID:      peerID,
				Date:        MustDate(fields, fieldDate, d.Clock.Location()),
				StartMin:    MustInt(fields, fieldStart),
				EndMin:      MustInt(fields, fieldEnd),
				LocationID:  fields[fieldLocation],
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Swap request #%d sent. Waiting for the peer to respond.", req.ID), nil
		},
	}
}

// OnboardFlow asks for a display name and registers the account.
func OnboardFlow(d Deps) *Flow {
	return &Flow{
		Name: FlowOnboard,
		Steps: []Step{
			{
				Name:   "name",
				Field:  fieldName,
				Prompt: "Welcome! What's your name?",
				Parse: func(text string, _ map[string]string) (string, error) {
					name := strings.TrimSpace(text)
					if name == "" {
						return "", fmt.Errorf("please send a non-empty name")
					}
					return name, nil
				},
			},
		},
		Complete: func(userID int64, fields map[string]string) (string, error) {
			user, err := directory.FindOrCreate(d.DB, userID, fields[fieldName])
			if err != nil {
				return "", err
			}
			if user.Status == models.AccountApproved {
				return fmt.Sprintf("Welcome back, %s! You're all set.", user.DisplayName), nil
			}
			return fmt.Sprintf("Thanks, %s! Your account is waiting for manager approval.", user.DisplayName), nil
		},
	}
}

// ScheduleFlow asks for a month and renders the user's calendar.
func ScheduleFlow(d Deps) *Flow {
	return &Flow{
		Name: FlowSchedule,
		Steps: []Step{
			{
				Name:   "month",
				Field:  fieldMonth,
				Prompt: "Which month? Send a number from 1 to 12",
				Parse: func(text string, _ map[string]string) (string, error) {
					m, err := ParseMonth(text)
					if err != nil {
						return "", err
					}
					return strconv.Itoa(int(m)), nil
				},
			},
		},
		Complete: func(userID int64, fields map[string]string) (string, error) {
			month := time.Month(MustInt(fields, fieldMonth))
			year := d.Clock.Now().Year()

			days, err := schedule.UserMonthStatus(d.DB, userID, year, month, d.Clock.Location())
			if err != nil {
				return "", err
			}
			if len(days) == 0 {
				return fmt.Sprintf("No shifts scheduled for %s %d.", month, year), nil
			}

			keys := make([]int, 0, len(days))
			for day := range days {
				keys = append(keys, day)
			}
			sort.Ints(keys)

			var b strings.Builder
			fmt.Fprintf(&b, "Your %s %d schedule:\n", month, year)
			for _, day := range keys {
				fmt.Fprintf(&b, "%02d.%02d — %s\n", day, int(month), days[day])
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

// All builds every registered flow with the given dependencies.
func All(d Deps) []*Flow {
	return []*Flow{CoverFlow(d), SwapFlow(d), OnboardFlow(d), ScheduleFlow(d)}
}
