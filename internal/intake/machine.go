// Package intake implements the guided conversation that collects and
// commits a new subscription.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"SubTrack/internal/domain"
	"SubTrack/internal/ports"
)

// State is the current position inside the intake conversation.
type State int

const (
	StateIdle State = iota
	StateService
	StateAmount
	StateCurrency
	StateDate
)

// String names states for logging.
func (s State) String() string {
	switch s {
	case StateService:
		return "service"
	case StateAmount:
		return "amount"
	case StateCurrency:
		return "currency"
	case StateDate:
		return "date"
	default:
		return "idle"
	}
}

// Reply is the prompt to render plus the state the conversation moved to.
type Reply struct {
	Prompt string
	State  State
}

const (
	shortlistSize     = 8
	maxCurrencyLength = 5
)

var amountDecoration = regexp.MustCompile(`[^\d.,]`)

// quickCurrencies are accepted verbatim; anything else is treated as a
// custom code and normalized to uppercase.
var quickCurrencies = map[string]struct{}{
	"₪": {},
	"$": {},
	"€": {},
}

// draft accumulates the answers for one conversation. It is never shared
// across conversations.
type draft struct {
	sessionID    string
	service      string
	category     domain.Category
	amount       float64
	currency     string
	autoDetected bool
	confidence   float64
}

type session struct {
	state State
	draft draft
}

// Machine advances per-conversation drafts through the declared transitions
// SERVICE -> AMOUNT -> CURRENCY -> DATE -> commit. Cancel is reachable from
// every state and discards the draft without persisting anything.
type Machine struct {
	mu       sync.Mutex
	sessions map[int64]*session

	subs          ports.SubscriptionRepository
	usage         ports.UsageRecorder
	knownServices []string
	logger        *slog.Logger
}

// NewMachine wires the intake conversation with its persistence collaborators.
func NewMachine(subs ports.SubscriptionRepository, usage ports.UsageRecorder, knownServices []string, logger *slog.Logger) *Machine {
	return &Machine{
		sessions:      map[int64]*session{},
		subs:          subs,
		usage:         usage,
		knownServices: knownServices,
		logger:        logger,
	}
}

// StateOf reports the conversation's current state.
func (m *Machine) StateOf(conversationID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[conversationID]; ok {
		return s.state
	}
	return StateIdle
}

// Begin starts a fresh intake conversation at the SERVICE state.
func (m *Machine) Begin(ctx context.Context, conversationID int64) Reply {
	m.mu.Lock()
	m.sessions[conversationID] = &session{
		state: StateService,
		draft: draft{sessionID: uuid.NewString(), confidence: 1},
	}
	m.mu.Unlock()

	m.record(ctx, conversationID, "add_subscription_start", 0, "")
	return Reply{Prompt: m.servicePrompt(), State: StateService}
}

// BeginFromReceipt enters the conversation directly at the DATE state with
// service, amount, and currency pre-filled from a confirmed parse. All later
// validation rules apply unchanged.
func (m *Machine) BeginFromReceipt(ctx context.Context, conversationID int64, parsed domain.ParsedReceipt) Reply {
	m.mu.Lock()
	m.sessions[conversationID] = &session{
		state: StateDate,
		draft: draft{
			sessionID:    uuid.NewString(),
			service:      parsed.Service,
			category:     domain.DetectCategory(parsed.Service),
			amount:       parsed.Amount,
			currency:     parsed.Currency,
			autoDetected: true,
			confidence:   parsed.Confidence,
		},
	}
	m.mu.Unlock()

	m.record(ctx, conversationID, "add_subscription_from_receipt", 0, "")
	return Reply{
		Prompt: fmt.Sprintf("Using %s, %s.\n%s", parsed.Service, renderMoney(parsed.Amount, parsed.Currency), datePrompt),
		State:  StateDate,
	}
}

// Cancel discards the draft from any state and returns to idle.
func (m *Machine) Cancel(ctx context.Context, conversationID int64) Reply {
	m.mu.Lock()
	delete(m.sessions, conversationID)
	m.mu.Unlock()

	m.record(ctx, conversationID, "add_subscription_cancel", 0, "")
	return Reply{Prompt: "Cancelled. Nothing was saved.", State: StateIdle}
}

// HandleInput feeds one user message into the conversation and returns the
// next prompt. Invalid input re-prompts from the same state; it never fails
// the overall flow.
func (m *Machine) HandleInput(ctx context.Context, conversationID int64, input string) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[conversationID]
	if !ok {
		return Reply{Prompt: "Send /add to start adding a subscription.", State: StateIdle}
	}

	input = strings.TrimSpace(input)

	switch s.state {
	case StateService:
		return m.handleService(s, input)
	case StateAmount:
		return m.handleAmount(s, input)
	case StateCurrency:
		return m.handleCurrency(s, input)
	case StateDate:
		return m.handleDate(ctx, conversationID, s, input)
	default:
		return Reply{Prompt: "Send /add to start adding a subscription.", State: StateIdle}
	}
}

func (m *Machine) handleService(s *session, input string) Reply {
	name := input
	if index, err := strconv.Atoi(input); err == nil {
		shortlist := m.shortlist()
		if index < 1 || index > len(shortlist) {
			return Reply{
				Prompt: "That number is not on the list. Pick one from the list or send the service name:",
				State:  StateService,
			}
		}
		name = shortlist[index-1]
	}
	if name == "" {
		return Reply{Prompt: "Send the service name:", State: StateService}
	}

	s.draft.service = name
	s.draft.category = domain.DetectCategory(name)
	s.state = StateAmount

	prompt := fmt.Sprintf("Saved: %s", name)
	if s.draft.category != domain.CategoryOther {
		prompt += fmt.Sprintf(" (category: %s)", s.draft.category)
	}
	prompt += "\nHow much does it cost per month? Send just the number, e.g. 29.90."
	return Reply{Prompt: prompt, State: StateAmount}
}

func (m *Machine) handleAmount(s *session, input string) Reply {
	stripped := amountDecoration.ReplaceAllString(input, "")
	stripped = strings.ReplaceAll(stripped, ",", ".")

	amount, err := strconv.ParseFloat(stripped, 64)
	if err != nil || amount <= 0 {
		return Reply{
			Prompt: "That doesn't look like a valid amount. Send a positive number, e.g. 29.90:",
			State:  StateAmount,
		}
	}

	s.draft.amount = amount
	s.state = StateCurrency
	return Reply{
		Prompt: fmt.Sprintf("Amount: %s\nWhich currency? Send ₪, $ or €, or a custom code (e.g. CHF).", trimAmount(amount)),
		State:  StateCurrency,
	}
}

func (m *Machine) handleCurrency(s *session, input string) Reply {
	currency := input
	if _, quick := quickCurrencies[currency]; !quick {
		currency = strings.ToUpper(currency)
		if n := len([]rune(currency)); n == 0 || n > maxCurrencyLength {
			return Reply{
				Prompt: "Invalid currency. Send ₪, $ or €, or a code of up to 5 characters:",
				State:  StateCurrency,
			}
		}
	}

	s.draft.currency = currency
	s.state = StateDate
	return Reply{Prompt: datePrompt, State: StateDate}
}

func (m *Machine) handleDate(ctx context.Context, conversationID int64, s *session, input string) Reply {
	day, err := strconv.Atoi(input)
	if err != nil || !domain.ValidBillingDay(day) {
		return Reply{
			Prompt: "The billing day must be a number between 1 and 28. Try again:",
			State:  StateDate,
		}
	}

	sub := domain.Subscription{
		OwnerID:      conversationID,
		ServiceName:  s.draft.service,
		Amount:       s.draft.amount,
		Currency:     s.draft.currency,
		BillingDay:   day,
		Category:     s.draft.category,
		Active:       true,
		AutoDetected: s.draft.autoDetected,
		Confidence:   s.draft.confidence,
	}

	id, err := m.subs.Create(ctx, sub)
	if err != nil {
		m.warn("commit subscription", "conversation", conversationID, "error", err)
		return Reply{
			Prompt: "Could not save the subscription right now. Try again or /cancel.",
			State:  StateDate,
		}
	}

	sessionID := s.draft.sessionID
	delete(m.sessions, conversationID)
	m.record(ctx, conversationID, "subscription_added", id, sessionID)

	return Reply{
		Prompt: fmt.Sprintf(
			"Subscription saved: %s, %s on day %d of every month (category: %s).\nYou'll get a reminder a week and a day before each charge.",
			sub.ServiceName, renderMoney(sub.Amount, sub.Currency), day, sub.Category),
		State: StateIdle,
	}
}

const datePrompt = "On which day of the month are you charged? Send a number between 1 and 28.\n(Capped at 28 to avoid short-month trouble.)"

func (m *Machine) servicePrompt() string {
	var b strings.Builder
	b.WriteString("Adding a new subscription. Popular services:\n")
	for i, name := range m.shortlist() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	b.WriteString("Send the service name, or a number from the list. /cancel to abort.")
	return b.String()
}

func (m *Machine) shortlist() []string {
	if len(m.knownServices) > shortlistSize {
		return m.knownServices[:shortlistSize]
	}
	return m.knownServices
}

func renderMoney(amount float64, currency string) string {
	return trimAmount(amount) + " " + currency
}

func trimAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func (m *Machine) record(ctx context.Context, ownerID int64, action string, subscriptionID int64, sessionID string) {
	if m.usage == nil {
		return
	}
	if err := m.usage.Record(ctx, ownerID, action, subscriptionID, sessionID); err != nil {
		m.warn("record usage", "action", action, "error", err)
	}
}

func (m *Machine) warn(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
