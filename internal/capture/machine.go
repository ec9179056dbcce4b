package capture

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"opptick/internal/extract"
	"opptick/internal/model"
)

// Step is the capture conversation's position. Steps advance in a fixed
// linear order; invalid input keeps the session in place.
type Step int

const (
	StepDeadline Step = iota
	StepType
	StepPriority
	StepTitle
	StepDescription
	StepLink
	StepConfirm
	StepSaved
	StepCancelled
)

// EventKind tags the inbound event union.
type EventKind int

const (
	EventText EventKind = iota
	EventButton
)

// Event is one inbound conversational event: free text or a button press
// carrying an opaque action tag. The machine never sees transport types.
type Event struct {
	Kind   EventKind
	Text   string
	Action string
}

func Text(s string) Event { return Event{Kind: EventText, Text: s} }

func Button(action string) Event { return Event{Kind: EventButton, Action: action} }

// Button action tags understood by the machine.
const (
	ActionYes    = "yes"
	ActionNo     = "no"
	ActionSkip   = "skip"
	ActionCancel = "cancel"
	TypePrefix   = "type:"
	PrioPrefix   = "prio:"
)

// Keyboard tells the transport which picker to render alongside a reply.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardYesNo
	KeyboardCategories
	KeyboardPriorities
	KeyboardSkip
	KeyboardConfirm
)

// Reply is the transport-neutral outbound message for one transition.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Draft accumulates the confirmed fields of one capture session.
type Draft struct {
	RawText     string
	Deadline    time.Time // UTC
	Category    model.Category
	Priority    model.Priority
	Title       string
	Description string
	SourceLink  string
}

// Session is the ephemeral per-user capture state. It lives only in process
// memory; a restart forces the user back to Entry.
type Session struct {
	Step  Step
	Draft Draft

	prefill       extract.Prefill
	deadlineGuess time.Time
	hasGuess      bool
	loc           *time.Location

	startedAt time.Time
	lastSeen  time.Time
}

const manualDeadlineHint = "Send the deadline as free text, e.g.\n" +
	"• Feb 20, 2027\n" +
	"• 2027-03-15\n" +
	"• next week\n" +
	"• in 2 months"

var reLink = regexp.MustCompile(`^(?:https?://|www\.)\S+$`)

// Start opens a new session from raw text, running the pre-pass and the
// deadline extractor once. The reply either offers the detected deadline for
// confirmation or asks for manual entry.
func Start(raw string, loc *time.Location, now time.Time) (*Session, Reply) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Session{
		Step:      StepDeadline,
		Draft:     Draft{RawText: raw},
		prefill:   extract.Analyze(raw),
		loc:       loc,
		startedAt: now,
		lastSeen:  now,
	}

	var b strings.Builder
	b.WriteString("📋 New opportunity.\n")
	if s.prefill.Title != "" {
		fmt.Fprintf(&b, "Looks like: %s\n", s.prefill.Title)
	}
	b.WriteString("\n")

	if guess, ok := extract.Deadline(raw, loc, now); ok {
		s.deadlineGuess = guess
		s.hasGuess = true
		fmt.Fprintf(&b, "📅 Detected deadline: %s\nIs this correct?", formatLocal(guess, loc))
		return s, Reply{Text: b.String(), Keyboard: KeyboardYesNo}
	}

	b.WriteString("📅 I couldn't detect a deadline.\n" + manualDeadlineHint)
	return s, Reply{Text: b.String(), Keyboard: KeyboardNone}
}

// Advance consumes one event and returns the next reply. Terminal steps are
// StepSaved (the caller persists s.Draft) and StepCancelled.
func (s *Session) Advance(ev Event, now time.Time) Reply {
	s.lastSeen = now

	if isCancel(ev) {
		s.Step = StepCancelled
		return Reply{Text: "❌ Capture cancelled."}
	}

	switch s.Step {
	case StepDeadline:
		return s.onDeadline(ev, now)
	case StepType:
		return s.onType(ev)
	case StepPriority:
		return s.onPriority(ev)
	case StepTitle:
		return s.onTitle(ev)
	case StepDescription:
		return s.onDescription(ev)
	case StepLink:
		return s.onLink(ev)
	case StepConfirm:
		return s.onConfirm(ev)
	default:
		return Reply{Text: "This capture is finished. Send new text to start another."}
	}
}

func (s *Session) onDeadline(ev Event, now time.Time) Reply {
	if ev.Kind == EventButton {
		switch ev.Action {
		case ActionYes:
			if s.hasGuess {
				s.Draft.Deadline = s.deadlineGuess
				return s.toType()
			}
		case ActionNo:
			s.hasGuess = false
			return Reply{Text: "📅 " + manualDeadlineHint}
		}
		return Reply{Text: "📅 " + manualDeadlineHint}
	}

	deadline, ok := extract.Deadline(ev.Text, s.loc, now)
	if !ok {
		return Reply{Text: "❌ I couldn't read that as a future date.\n" + manualDeadlineHint}
	}
	s.Draft.Deadline = deadline
	return s.toType()
}

func (s *Session) toType() Reply {
	s.Step = StepType
	text := fmt.Sprintf("✅ Deadline set: %s\n\nWhat type of opportunity is this?", formatLocal(s.Draft.Deadline, s.loc))
	if s.prefill.CategoryFound {
		text += fmt.Sprintf("\n(Detected: %s — reply \"yes\" to keep it.)", s.prefill.Category)
	}
	return Reply{Text: text, Keyboard: KeyboardCategories}
}

func (s *Session) onType(ev Event) Reply {
	switch {
	case ev.Kind == EventButton && strings.HasPrefix(ev.Action, TypePrefix):
		s.Draft.Category = model.ParseCategory(strings.TrimPrefix(ev.Action, TypePrefix))
	case ev.Kind == EventText && isAffirm(ev.Text) && s.prefill.CategoryFound:
		s.Draft.Category = s.prefill.Category
	case ev.Kind == EventText && strings.TrimSpace(ev.Text) != "":
		s.Draft.Category = model.ParseCategory(ev.Text)
	default:
		return Reply{Text: "Pick a type or send your own.", Keyboard: KeyboardCategories}
	}

	s.Step = StepPriority
	return Reply{
		Text:     fmt.Sprintf("✅ Type: %s\n\nWhat's the priority level?", s.Draft.Category),
		Keyboard: KeyboardPriorities,
	}
}

func (s *Session) onPriority(ev Event) Reply {
	switch {
	case ev.Kind == EventButton && strings.HasPrefix(ev.Action, PrioPrefix):
		s.Draft.Priority = model.ParsePriority(strings.TrimPrefix(ev.Action, PrioPrefix))
	case ev.Kind == EventText && strings.TrimSpace(ev.Text) != "":
		s.Draft.Priority = model.ParsePriority(ev.Text)
	default:
		return Reply{Text: "Pick a priority.", Keyboard: KeyboardPriorities}
	}

	s.Step = StepTitle
	suggested := s.suggestedTitle()
	return Reply{
		Text: fmt.Sprintf("✅ Priority: %s\n\n📌 Suggested title: %s\nReply \"yes\" to keep it, or send a different title.",
			s.Draft.Priority, suggested),
		Keyboard: KeyboardYesNo,
	}
}

func (s *Session) suggestedTitle() string {
	if s.prefill.Title != "" {
		return s.prefill.Title
	}
	return "Opportunity"
}

func (s *Session) onTitle(ev Event) Reply {
	switch {
	case (ev.Kind == EventButton && ev.Action == ActionYes) || (ev.Kind == EventText && isAffirm(ev.Text)):
		s.Draft.Title = s.suggestedTitle()
	case ev.Kind == EventText && strings.TrimSpace(ev.Text) != "":
		s.Draft.Title = clip(ev.Text, 100)
	default:
		return Reply{Text: "Send a title, or \"yes\" to keep the suggestion.", Keyboard: KeyboardYesNo}
	}

	s.Step = StepDescription
	text := "✏️ Add a short description, or \"skip\"."
	if s.prefill.Description != "" {
		text = fmt.Sprintf("✏️ Suggested description:\n%s\n\nReply \"yes\" to keep it, send your own, or \"skip\".", s.prefill.Description)
	}
	return Reply{Text: text, Keyboard: KeyboardSkip}
}

func (s *Session) onDescription(ev Event) Reply {
	switch {
	case isSkip(ev):
		s.Draft.Description = ""
	case (ev.Kind == EventButton && ev.Action == ActionYes) || (ev.Kind == EventText && isAffirm(ev.Text)):
		s.Draft.Description = s.prefill.Description
	case ev.Kind == EventText:
		s.Draft.Description = clip(ev.Text, 500)
	default:
		return Reply{Text: "Send a description or \"skip\".", Keyboard: KeyboardSkip}
	}

	s.Step = StepLink
	text := "🔗 Add a source link, or \"skip\"."
	if s.prefill.Link != "" {
		text = fmt.Sprintf("🔗 Detected link: %s\nReply \"yes\" to keep it, send another, or \"skip\".", s.prefill.Link)
	}
	return Reply{Text: text, Keyboard: KeyboardSkip}
}

func (s *Session) onLink(ev Event) Reply {
	switch {
	case isSkip(ev):
		s.Draft.SourceLink = ""
	case (ev.Kind == EventButton && ev.Action == ActionYes) || (ev.Kind == EventText && isAffirm(ev.Text)):
		s.Draft.SourceLink = s.prefill.Link
	case ev.Kind == EventText && reLink.MatchString(strings.TrimSpace(ev.Text)):
		s.Draft.SourceLink = strings.TrimSpace(ev.Text)
	default:
		return Reply{Text: "That doesn't look like a link. Send a URL or \"skip\".", Keyboard: KeyboardSkip}
	}

	s.Step = StepConfirm
	return Reply{Text: s.summary(), Keyboard: KeyboardConfirm}
}

func (s *Session) summary() string {
	var b strings.Builder
	b.WriteString("💾 Save this opportunity?\n\n")
	fmt.Fprintf(&b, "📌 %s\n", s.Draft.Title)
	fmt.Fprintf(&b, "📂 Type: %s\n", s.Draft.Category)
	fmt.Fprintf(&b, "⭐ Priority: %s\n", s.Draft.Priority)
	fmt.Fprintf(&b, "📅 Deadline: %s\n", formatLocal(s.Draft.Deadline, s.loc))
	if s.Draft.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n", s.Draft.Description)
	}
	if s.Draft.SourceLink != "" {
		fmt.Fprintf(&b, "🔗 %s\n", s.Draft.SourceLink)
	}
	return strings.TrimSpace(b.String())
}

func (s *Session) onConfirm(ev Event) Reply {
	switch {
	case (ev.Kind == EventButton && ev.Action == ActionYes) || (ev.Kind == EventText && isAffirm(ev.Text)):
		s.Step = StepSaved
		return Reply{}
	case (ev.Kind == EventButton && ev.Action == ActionNo) || (ev.Kind == EventText && isDecline(ev.Text)):
		s.Step = StepCancelled
		return Reply{Text: "❌ Discarded. Send new text to start again."}
	default:
		return Reply{Text: s.summary(), Keyboard: KeyboardConfirm}
	}
}

// Done reports whether the session reached a terminal step.
func (s *Session) Done() bool {
	return s.Step == StepSaved || s.Step == StepCancelled
}

func isCancel(ev Event) bool {
	if ev.Kind == EventButton {
		return ev.Action == ActionCancel
	}
	t := strings.ToLower(strings.TrimSpace(ev.Text))
	return t == "/cancel" || t == "cancel"
}

func isSkip(ev Event) bool {
	if ev.Kind == EventButton {
		return ev.Action == ActionSkip
	}
	t := strings.ToLower(strings.TrimSpace(ev.Text))
	return t == "skip" || t == "-"
}

func isAffirm(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "ok", "correct":
		return true
	}
	return false
}

func isDecline(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "no", "n":
		return true
	}
	return false
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

func formatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}
