// Package flow drives multi-step dialog data collection. One generic
// engine runs every named flow; a flow is an ordered list of steps,
// each with a prompt and a parser, plus a completion hook.
package flow

import (
	"fmt"
	"strings"

	"github.com/zulandar/shiftline/internal/session"
)

// Outcome classifies what Handle decided about an inbound message.
type Outcome int

const (
	// OutcomeNone means the user has no active session; the caller
	// should fall back to menu handling.
	OutcomeNone Outcome = iota
	// OutcomePrompt means the dialog continues (next step or re-prompt).
	OutcomePrompt
	// OutcomeCompleted means the final step parsed and the completion
	// hook ran.
	OutcomeCompleted
	// OutcomeCanceled means the user sent the cancel token.
	OutcomeCanceled
	// OutcomeTimedOut means the session expired before this message.
	OutcomeTimedOut
)

// Result is the engine's answer to one inbound message.
type Result struct {
	Outcome Outcome
	Reply   string
}

// ParseFunc validates raw step input. It receives the fields collected
// so far (read-only) and returns the normalized value to store.
type ParseFunc func(text string, fields map[string]string) (string, error)

// Step is one data-collection step of a flow.
type Step struct {
	Name   string
	Field  string
	Prompt string
	Parse  ParseFunc
}

// Flow is a named, ordered sequence of steps. Complete runs when the
// last step parses; its reply terminates the dialog.
type Flow struct {
	Name     string
	Steps    []Step
	Complete func(userID int64, fields map[string]string) (string, error)
}

// Reserved cancel tokens, recognized at every step with priority over
// step parsing. Matched case-insensitively, trimmed, with or without a
// leading slash.
var cancelTokens = map[string]bool{
	"cancel": true,
	"отмена": true,
}

// IsCancelToken reports whether text is a reserved cancellation input.
func IsCancelToken(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "/")
	return cancelTokens[t]
}

const (
	cancelAck     = "Canceled. Nothing was submitted."
	timeoutNotice = "This dialog timed out. Please start again from the menu."
)

// Engine runs dialog flows over the shared session store. Callers are
// expected to serialize per-user access via the store's With.
type Engine struct {
	store *session.Store
	flows map[string]*Flow
}

// NewEngine creates an Engine with the given flows registered.
func NewEngine(store *session.Store, flows ...*Flow) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("flow: engine: store is required")
	}
	m := make(map[string]*Flow, len(flows))
	for _, f := range flows {
		if f.Name == "" || len(f.Steps) == 0 {
			return nil, fmt.Errorf("flow: engine: flow needs a name and at least one step")
		}
		if _, dup := m[f.Name]; dup {
			return nil, fmt.Errorf("flow: engine: duplicate flow %q", f.Name)
		}
		m[f.Name] = f
	}
	return &Engine{store: store, flows: m}, nil
}

// Has reports whether a flow with the given name is registered.
func (e *Engine) Has(name string) bool {
	_, ok := e.flows[name]
	return ok
}

// Start begins a flow for the user, replacing any prior session, and
// returns the first step's prompt.
func (e *Engine) Start(userID int64, flowName string) (Result, error) {
	f, ok := e.flows[flowName]
	if !ok {
		return Result{}, fmt.Errorf("flow: unknown flow %q", flowName)
	}
	e.store.Start(userID, flowName, f.Steps[0].Name)
	return Result{Outcome: OutcomePrompt, Reply: f.Steps[0].Prompt}, nil
}

// Handle feeds one raw message into the user's active dialog.
//
// The cancel token wins at every step. A parse failure re-issues the
// prompt with the reason and refreshes the TTL window without
// advancing. A parse success merges the field and advances; on the
// last step the flow's Complete hook runs and the session is cleared.
// A completion error also clears the session (the operation failed; no
// partial data is recoverable) and is returned to the caller.
func (e *Engine) Handle(userID int64, text string) (Result, error) {
	sess, expired := e.store.Get(userID)
	if sess == nil {
		if expired {
			return Result{Outcome: OutcomeTimedOut, Reply: timeoutNotice}, nil
		}
		return Result{Outcome: OutcomeNone}, nil
	}

	if IsCancelToken(text) {
		e.store.Clear(userID)
		return Result{Outcome: OutcomeCanceled, Reply: cancelAck}, nil
	}

	f, ok := e.flows[sess.Flow]
	if !ok {
		e.store.Clear(userID)
		return Result{}, fmt.Errorf("flow: session references unknown flow %q", sess.Flow)
	}
	idx := stepIndex(f, sess.Step)
	if idx < 0 {
		e.store.Clear(userID)
		return Result{}, fmt.Errorf("flow: %s: session references unknown step %q", f.Name, sess.Step)
	}
	step := f.Steps[idx]

	value, err := step.Parse(strings.TrimSpace(text), sess.Fields)
	if err != nil {
		// Same step, fresh TTL window to retry.
		e.store.Put(userID, sess)
		return Result{
			Outcome: OutcomePrompt,
			Reply:   fmt.Sprintf("%s\n%s", err.Error(), step.Prompt),
		}, nil
	}

	sess.Fields[step.Field] = value

	if idx == len(f.Steps)-1 {
		reply, err := f.Complete(userID, sess.Fields)
		e.store.Clear(userID)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeCompleted, Reply: reply}, nil
	}

	next := f.Steps[idx+1]
	sess.Step = next.Name
	e.store.Put(userID, sess)
	return Result{Outcome: OutcomePrompt, Reply: next.Prompt}, nil
}

func stepIndex(f *Flow, name string) int {
	for i, s := range f.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}
