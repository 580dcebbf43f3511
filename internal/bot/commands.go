package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/directory"
	"github.com/zulandar/shiftline/internal/flow"
	"github.com/zulandar/shiftline/internal/models"
	"github.com/zulandar/shiftline/internal/request"
	"github.com/zulandar/shiftline/internal/schedule"
	"gorm.io/gorm"
)

// errUnknownCommand signals that the text matched no command; the
// router falls back to the menu hint.
var errUnknownCommand = errors.New("bot: unknown command")

// CommandHandler executes textual commands outside of dialog flows:
// request decisions, roster administration, and read-only queries.
// Manager-only commands are gated on the caller's role.
type CommandHandler struct {
	db       *gorm.DB
	clock    clock.Clock
	requests *request.Service
}

// CommandHandlerOpts holds parameters for creating a CommandHandler.
type CommandHandlerOpts struct {
	DB       *gorm.DB
	Clock    clock.Clock // defaults to the local system clock
	Requests *request.Service
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(opts CommandHandlerOpts) (*CommandHandler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("bot: command handler: db is required")
	}
	if opts.Requests == nil {
		return nil, fmt.Errorf("bot: command handler: request service is required")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New(nil)
	}
	return &CommandHandler{db: opts.DB, clock: clk, requests: opts.Requests}, nil
}

// Execute runs one command for the given user. Returns
// errUnknownCommand when the text matches nothing.
func (h *CommandHandler) Execute(user *models.User, text string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", errUnknownCommand
	}

	switch strings.ToLower(fields[0]) {
	case "requests":
		return h.requireManager(user, func() (string, error) { return h.listRequests() })
	case "approve":
		return h.requireManager(user, func() (string, error) { return h.decide(fields, h.requests.Approve) })
	case "reject":
		return h.requireManager(user, func() (string, error) { return h.decide(fields, h.requests.Reject) })
	case "cancel":
		return h.cancelRequest(user, fields)
	case "free":
		return h.requireManager(user, func() (string, error) { return h.freeSellers(fields) })
	case "day":
		return h.requireManager(user, func() (string, error) { return h.daySlots(fields) })
	case "staff":
		return h.requireManager(user, func() (string, error) { return h.staff(fields) })
	default:
		return "", errUnknownCommand
	}
}

// requireManager runs fn only for approved managers.
func (h *CommandHandler) requireManager(user *models.User, fn func() (string, error)) (string, error) {
	if user.Role != models.RoleManager || user.Status != models.AccountApproved {
		return "This command is for managers.", nil
	}
	return fn()
}

// listRequests renders all requests waiting for a manager decision.
func (h *CommandHandler) listRequests() (string, error) {
	reqs, err := h.requests.List(request.ListFilters{Status: models.StatusWaitTM})
	if err != nil {
		return "", err
	}
	if len(reqs) == 0 {
		return "No requests are waiting for you.", nil
	}

	var b strings.Builder
	b.WriteString("Waiting for your decision:\n")
	for _, r := range reqs {
		fmt.Fprintf(&b, "#%d %s by %d: %s %s–%s at %s\n",
			r.ID, r.Type, r.InitiatorID,
			r.Date.Format("02.01.2006"),
			flow.FormatMinutes(r.StartMin), flow.FormatMinutes(r.EndMin), r.LocationID)
	}
	b.WriteString("Reply with: approve <id> or reject <id>")
	return b.String(), nil
}

// decide parses "approve <id>" / "reject <id>" and applies fn.
func (h *CommandHandler) decide(fields []string, fn func(uint) (*models.ShiftRequest, error)) (string, error) {
	id, usage := parseRequestID(fields)
	if usage != "" {
		return usage, nil
	}
	req, err := fn(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Request #%d is now %s.", req.ID, req.Status), nil
}

// cancelRequest lets the initiator or a manager cancel a live request.
func (h *CommandHandler) cancelRequest(user *models.User, fields []string) (string, error) {
	id, usage := parseRequestID(fields)
	if usage != "" {
		return usage, nil
	}
	req, err := h.requests.Get(id)
	if err != nil {
		return "", err
	}
	if req.InitiatorID != user.ID && user.Role != models.RoleManager {
		return "Only the author or a manager can cancel this request.", nil
	}
	if _, err := h.requests.Cancel(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Request #%d canceled.", id), nil
}

// freeSellers handles "free DD.MM HH:MM HH:MM": who could take a shift.
func (h *CommandHandler) freeSellers(fields []string) (string, error) {
	if len(fields) != 4 {
		return "Usage: free DD.MM HH:MM HH:MM", nil
	}
	date, err := flow.ParseDate(fields[1], h.clock)
	if err != nil {
		return err.Error(), nil
	}
	startMin, err := flow.ParseTimeOfDay(fields[2])
	if err != nil {
		return err.Error(), nil
	}
	endMin, err := flow.ParseTimeOfDay(fields[3])
	if err != nil {
		return err.Error(), nil
	}
	if endMin <= startMin {
		return "The end time must be after the start time.", nil
	}

	free, err := schedule.FreeSellers(h.db, date, startMin, endMin)
	if err != nil {
		return "", err
	}
	if len(free) == 0 {
		return "Nobody is free in that window.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Free on %s %s–%s:\n", date.Format("02.01.2006"),
		flow.FormatMinutes(startMin), flow.FormatMinutes(endMin))
	for _, u := range free {
		fmt.Fprintf(&b, "%d %s (%s)\n", u.ID, u.DisplayName, u.Role)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// daySlots handles "day <location> DD.MM": the roster for one day.
func (h *CommandHandler) daySlots(fields []string) (string, error) {
	if len(fields) != 3 {
		return "Usage: day <location> DD.MM", nil
	}
	date, err := flow.ParseDate(fields[2], h.clock)
	if err != nil {
		return err.Error(), nil
	}
	slots, err := schedule.DaySlots(h.db, fields[1], date)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		return fmt.Sprintf("No slots at %s on %s.", fields[1], date.Format("02.01.2006")), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s:\n", fields[1], date.Format("02.01.2006"))
	for _, s := range slots {
		fmt.Fprintf(&b, "%s–%s user %d [%s]\n",
			flow.FormatMinutes(s.StartMin), flow.FormatMinutes(s.EndMin), s.UserID, s.Status)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// staff handles roster administration:
//
//	staff                     list pending accounts
//	staff approve <id>        approve an account
//	staff reject <id>         reject an account
//	staff role <id> <role>    change a role
func (h *CommandHandler) staff(fields []string) (string, error) {
	if len(fields) == 1 {
		var pending []models.User
		if err := h.db.Where("status = ?", models.AccountPending).Order("id ASC").
			Find(&pending).Error; err != nil {
			return "", fmt.Errorf("bot: staff: list pending: %w", err)
		}
		if len(pending) == 0 {
			return "No accounts are waiting for approval.", nil
		}
		var b strings.Builder
		b.WriteString("Waiting for approval:\n")
		for _, u := range pending {
			fmt.Fprintf(&b, "%d %s\n", u.ID, u.DisplayName)
		}
		b.WriteString("Reply with: staff approve <id> or staff reject <id>")
		return b.String(), nil
	}

	switch fields[1] {
	case "approve", "reject":
		if len(fields) != 3 {
			return fmt.Sprintf("Usage: staff %s <id>", fields[1]), nil
		}
		id, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return "Send the numeric user id.", nil
		}
		status := models.AccountApproved
		if fields[1] == "reject" {
			status = models.AccountRejected
		}
		if err := directory.SetStatus(h.db, id, status); err != nil {
			return "", err
		}
		return fmt.Sprintf("Account %d is now %s.", id, status), nil

	case "role":
		if len(fields) != 4 {
			return "Usage: staff role <id> <seller|senior|manager>", nil
		}
		id, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return "Send the numeric user id.", nil
		}
		if err := directory.SetRole(h.db, id, fields[3]); err != nil {
			return "", err
		}
		return fmt.Sprintf("User %d is now a %s.", id, fields[3]), nil

	default:
		return "Usage: staff [approve|reject|role] ...", nil
	}
}

// parseRequestID extracts the request id from "<verb> <id>". The second
// return value carries a usage hint when the input doesn't parse.
func parseRequestID(fields []string) (uint, string) {
	if len(fields) != 2 {
		return 0, fmt.Sprintf("Usage: %s <request id>", fields[0])
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, "Send the numeric request id."
	}
	return uint(id), ""
}
