package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zulandar/shiftline/internal/directory"
	"github.com/zulandar/shiftline/internal/flow"
	"github.com/zulandar/shiftline/internal/models"
	"github.com/zulandar/shiftline/internal/request"
	"github.com/zulandar/shiftline/internal/session"
	"gorm.io/gorm"
)

// menuText is the fallback reply for anything the router can't place.
const menuText = `What would you like to do?
• cover — ask for cover on a shift
• swap — hand a shift to a colleague
• schedule — see your month
• cancel <id> — withdraw a request
Managers also have: requests, approve <id>, reject <id>, free, day, staff`

// Router classifies inbound chat messages and routes them to the
// appropriate handler: the dialog engine for users mid-flow, the
// callback handler for button presses, or the command handler and menu
// for everything else. Handling is serialized per user via the session
// store, so two rapid messages from one user can't race a dialog step.
type Router struct {
	db         *gorm.DB
	store      *session.Store
	engine     *flow.Engine
	cmdHandler *CommandHandler
	requests   *request.Service
	adapter    Adapter
	botUserID  int64
	out        io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	DB         *gorm.DB
	Store      *session.Store
	Engine     *flow.Engine
	CmdHandler *CommandHandler
	Requests   *request.Service
	Adapter    Adapter
	BotUserID  int64     // bot's user ID for self-message filtering
	Out        io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("bot: router: db is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: router: session store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("bot: router: flow engine is required")
	}
	if opts.CmdHandler == nil {
		return nil, fmt.Errorf("bot: router: command handler is required")
	}
	if opts.Requests == nil {
		return nil, fmt.Errorf("bot: router: request service is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: router: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		db:         opts.DB,
		store:      opts.Store,
		engine:     opts.Engine,
		cmdHandler: opts.CmdHandler,
		requests:   opts.Requests,
		adapter:    opts.Adapter,
		botUserID:  opts.BotUserID,
		out:        out,
	}, nil
}

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Bot self-message → ignore
//  2. Button callback → request decision handler
//  3. Active dialog session → flow engine
//  4. Flow keyword → start the flow
//  5. Known command → command handler
//  6. Everything else → menu
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	if r.botUserID != 0 && msg.UserID == r.botUserID {
		return
	}

	// One message per user at a time; different users in parallel.
	r.store.With(msg.UserID, func() {
		r.route(ctx, msg)
	})
}

func (r *Router) route(ctx context.Context, msg InboundMessage) {
	text := strings.TrimSpace(msg.Text)
	fmt.Fprintf(r.out, "bot: router: recv [user=%d name=%s] %q\n",
		msg.UserID, msg.UserName, truncate(text, 80))

	if msg.Callback != "" {
		fmt.Fprintf(r.out, "bot: router: → callback %q\n", msg.Callback)
		r.reply(ctx, msg.UserID, r.handleCallback(msg.UserID, msg.Callback))
		return
	}

	// Active or just-expired dialog.
	res, err := r.engine.Handle(msg.UserID, text)
	if err != nil {
		r.reply(ctx, msg.UserID, friendlyError(err))
		return
	}
	if res.Outcome != flow.OutcomeNone {
		fmt.Fprintf(r.out, "bot: router: → dialog (outcome=%d)\n", res.Outcome)
		r.reply(ctx, msg.UserID, res.Reply)
		return
	}

	r.handleMenu(ctx, msg, text)
}

// handleMenu deals with users outside any dialog: onboarding for
// strangers, flow keywords, commands, and the menu fallback.
func (r *Router) handleMenu(ctx context.Context, msg InboundMessage, text string) {
	user, err := directory.Get(r.db, msg.UserID)
	if errors.Is(err, directory.ErrNotFound) {
		// First contact: collect a name before anything else.
		fmt.Fprintf(r.out, "bot: router: → onboarding [user=%d]\n", msg.UserID)
		res, startErr := r.engine.Start(msg.UserID, flow.FlowOnboard)
		if startErr != nil {
			log.Printf("bot: router: start onboarding: %v", startErr)
			return
		}
		r.reply(ctx, msg.UserID, res.Reply)
		return
	}
	if err != nil {
		log.Printf("bot: router: load user %d: %v", msg.UserID, err)
		r.reply(ctx, msg.UserID, "Something went wrong, please try again.")
		return
	}

	if flowName, ok := flowKeyword(text); ok {
		if user.Status != models.AccountApproved {
			r.reply(ctx, msg.UserID, "Your account is still waiting for manager approval.")
			return
		}
		fmt.Fprintf(r.out, "bot: router: → start flow %q\n", flowName)
		res, startErr := r.engine.Start(msg.UserID, flowName)
		if startErr != nil {
			log.Printf("bot: router: start flow %s: %v", flowName, startErr)
			return
		}
		r.reply(ctx, msg.UserID, res.Reply)
		return
	}

	reply, err := r.cmdHandler.Execute(user, text)
	if errors.Is(err, errUnknownCommand) {
		fmt.Fprintf(r.out, "bot: router: → menu fallback\n")
		r.reply(ctx, msg.UserID, menuText)
		return
	}
	if err != nil {
		r.reply(ctx, msg.UserID, friendlyError(err))
		return
	}
	fmt.Fprintf(r.out, "bot: router: → command\n")
	r.reply(ctx, msg.UserID, reply)
}

// handleCallback executes a button press: "accept:12", "decline:12",
// "approve:12", "reject:12".
func (r *Router) handleCallback(userID int64, callback string) string {
	verb, idStr, ok := strings.Cut(callback, ":")
	if !ok {
		return "That button is no longer valid."
	}
	id64, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return "That button is no longer valid."
	}
	id := uint(id64)

	switch verb {
	case "accept":
		if _, err := r.requests.PeerAccept(id, userID); err != nil {
			return friendlyError(err)
		}
		return fmt.Sprintf("Request #%d accepted. The manager will confirm.", id)
	case "decline":
		if _, err := r.requests.PeerDecline(id, userID); err != nil {
			return friendlyError(err)
		}
		return fmt.Sprintf("Request #%d declined.", id)
	case "approve", "reject":
		user, err := directory.Get(r.db, userID)
		if err != nil || user.Role != models.RoleManager || user.Status != models.AccountApproved {
			return "Only managers can decide on requests."
		}
		fn := r.requests.Approve
		if verb == "reject" {
			fn = r.requests.Reject
		}
		req, err := fn(id)
		if err != nil {
			return friendlyError(err)
		}
		return fmt.Sprintf("Request #%d is now %s.", req.ID, req.Status)
	default:
		return "That button is no longer valid."
	}
}

// reply sends a non-empty text back to the user, logging send failures.
func (r *Router) reply(ctx context.Context, userID int64, text string) {
	if text == "" {
		return
	}
	if err := r.adapter.Send(ctx, OutboundMessage{UserID: userID, Text: text}); err != nil {
		log.Printf("bot: router: send to %d: %v", userID, err)
	}
}

// flowKeyword maps menu keywords to flow names.
func flowKeyword(text string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(text), "/")) {
	case "cover":
		return flow.FlowCover, true
	case "swap":
		return flow.FlowSwap, true
	case "schedule", "my schedule":
		return flow.FlowSchedule, true
	default:
		return "", false
	}
}

// friendlyError maps domain errors to user-facing text.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, request.ErrSlotNotFound):
		return "You have no shift matching that date, time and location."
	case errors.Is(err, request.ErrSlotBusy):
		return "That shift already has a pending swap request."
	case errors.Is(err, request.ErrInvalidTransition):
		return "That request has already been decided."
	case errors.Is(err, request.ErrNotFound):
		return "No such request."
	default:
		log.Printf("bot: router: %v", err)
		return "Something went wrong, please try again."
	}
}

// truncate returns s truncated to at most maxLen bytes with "..."
// appended, backing up to a rune boundary so multi-byte text is never
// split mid-sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
