package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"SubTrack/internal/domain"
	"SubTrack/internal/intake"
	"SubTrack/internal/ports"
)

// ReceiptParser is what the router needs from the receipt text parser.
type ReceiptParser interface {
	Parse(raw string) *domain.ParsedReceipt
}

// RouterDeps wires the conversation front end.
type RouterDeps struct {
	Machine       *intake.Machine
	Subscriptions *SubscriptionService
	Parser        ReceiptParser
	Recognizer    ports.TextRecognizer
	Messenger     ports.Messenger
	Settings      ports.SettingsRepository
	Logger        *slog.Logger
}

// Router turns incoming chat messages into intake transitions and
// subscription operations, and renders the results back through the
// messenger. One pending receipt parse is kept per chat until confirmed or
// replaced.
type Router struct {
	machine    *intake.Machine
	subs       *SubscriptionService
	parser     ReceiptParser
	recognizer ports.TextRecognizer
	messenger  ports.Messenger
	settings   ports.SettingsRepository
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[int64]domain.ParsedReceipt
}

var deleteCommand = regexp.MustCompile(`^/delete_(\d+)$`)

// NewRouter constructs the router.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		machine:    deps.Machine,
		subs:       deps.Subscriptions,
		parser:     deps.Parser,
		recognizer: deps.Recognizer,
		messenger:  deps.Messenger,
		settings:   deps.Settings,
		logger:     deps.Logger,
		pending:    map[int64]domain.ParsedReceipt{},
	}
}

// HandleText routes one text message from a chat.
func (r *Router) HandleText(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "/") {
		return r.handleCommand(ctx, chatID, text)
	}

	if r.machine.StateOf(chatID) != intake.StateIdle {
		reply := r.machine.HandleInput(ctx, chatID, text)
		return r.reply(ctx, chatID, reply.Prompt)
	}

	return r.reply(ctx, chatID, "Send /add to track a subscription, or /help for the full command list.")
}

func (r *Router) handleCommand(ctx context.Context, chatID int64, command string) error {
	if match := deleteCommand.FindStringSubmatch(command); match != nil {
		id, _ := strconv.ParseInt(match[1], 10, 64)
		return r.handleDelete(ctx, chatID, id)
	}

	switch command {
	case "/start":
		return r.handleStart(ctx, chatID)
	case "/help":
		return r.reply(ctx, chatID, helpText)
	case "/add", "/add_subscription":
		reply := r.machine.Begin(ctx, chatID)
		return r.reply(ctx, chatID, reply.Prompt)
	case "/cancel":
		reply := r.machine.Cancel(ctx, chatID)
		return r.reply(ctx, chatID, reply.Prompt)
	case "/confirm":
		return r.handleConfirm(ctx, chatID)
	case "/list", "/my_subs":
		return r.handleList(ctx, chatID)
	case "/upcoming":
		return r.handleUpcoming(ctx, chatID)
	case "/stats":
		return r.handleStats(ctx, chatID)
	case "/export":
		return r.handleExport(ctx, chatID)
	case "/settings":
		return r.handleSettings(ctx, chatID)
	default:
		return r.reply(ctx, chatID, "Unknown command. Send /help for the command list.")
	}
}

func (r *Router) handleStart(ctx context.Context, chatID int64) error {
	if r.settings != nil {
		if _, err := r.settings.Ensure(ctx, chatID); err != nil {
			r.warn("ensure settings", "chat", chatID, "error", err)
		}
	}
	return r.reply(ctx, chatID,
		"Welcome! I track your recurring subscriptions and remind you before each charge.\n"+
			"Send /add to register the first one, or send a photo of a receipt and I'll try to read it.\n"+
			"/help shows everything I can do.")
}

// HandlePhoto runs the acquired image through text recognition and the
// receipt parser, then either offers the extraction for confirmation or
// falls back to manual entry.
func (r *Router) HandlePhoto(ctx context.Context, chatID int64, image []byte) error {
	if r.recognizer == nil {
		return r.reply(ctx, chatID, "Photo recognition is not available. Use /add to enter the details manually.")
	}

	text, err := r.recognizer.Recognize(ctx, image)
	if err != nil {
		r.warn("recognize image", "chat", chatID, "error", err)
		return r.reply(ctx, chatID, "Could not process the photo. Try another one or use /add.")
	}

	parsed := r.parser.Parse(text)
	if parsed == nil || !parsed.Acceptable() {
		return r.reply(ctx, chatID,
			"Could not detect subscription details in that photo.\n"+
				"Tips: shoot straight, avoid shadows, focus on the billing section.\n"+
				"Or use /add to enter the details manually.")
	}

	r.mu.Lock()
	r.pending[chatID] = *parsed
	r.mu.Unlock()

	return r.reply(ctx, chatID, fmt.Sprintf(
		"Detected from the photo:\nService: %s\nAmount: %g %s\nConfidence: %.0f%%\n\nSend /confirm to use these details, or /add to enter them manually.",
		parsed.Service, parsed.Amount, parsed.Currency, parsed.Confidence*100))
}

func (r *Router) handleConfirm(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	parsed, ok := r.pending[chatID]
	delete(r.pending, chatID)
	r.mu.Unlock()

	if !ok {
		return r.reply(ctx, chatID, "Nothing to confirm. Send a receipt photo first, or use /add.")
	}

	reply := r.machine.BeginFromReceipt(ctx, chatID, parsed)
	return r.reply(ctx, chatID, reply.Prompt)
}

func (r *Router) handleList(ctx context.Context, chatID int64) error {
	subs, err := r.subs.List(ctx, chatID)
	if err != nil {
		r.warn("list subscriptions", "chat", chatID, "error", err)
		return r.reply(ctx, chatID, "Could not load your subscriptions right now.")
	}
	if len(subs) == 0 {
		return r.reply(ctx, chatID, "No subscriptions yet. Send /add to register the first one.")
	}

	var b strings.Builder
	var total float64
	fmt.Fprintf(&b, "Your subscriptions (%d active):\n", len(subs))
	for i, sub := range subs {
		total += sub.Amount
		fmt.Fprintf(&b, "%d. %s - %g %s, day %d (%s)\n   /delete_%d\n",
			i+1, sub.ServiceName, sub.Amount, sub.Currency, sub.BillingDay, sub.Category, sub.ID)
	}
	fmt.Fprintf(&b, "Monthly total: %.2f, yearly: %.2f", total, total*12)
	return r.reply(ctx, chatID, b.String())
}

func (r *Router) handleUpcoming(ctx context.Context, chatID int64) error {
	payments, err := r.subs.Upcoming(ctx, chatID, time.Now())
	if err != nil {
		r.warn("upcoming payments", "chat", chatID, "error", err)
		return r.reply(ctx, chatID, "Could not load upcoming payments right now.")
	}
	if len(payments) == 0 {
		return r.reply(ctx, chatID, "No active subscriptions, so nothing is coming up.")
	}

	var b strings.Builder
	b.WriteString("Upcoming charges:\n")
	for _, p := range payments {
		switch p.DaysUntil {
		case 0:
			fmt.Fprintf(&b, "Today: %s - %g %s\n", p.ServiceName, p.Amount, p.Currency)
		case 1:
			fmt.Fprintf(&b, "Tomorrow: %s - %g %s\n", p.ServiceName, p.Amount, p.Currency)
		default:
			fmt.Fprintf(&b, "In %d days (%s): %s - %g %s\n",
				p.DaysUntil, p.DueDate.Format("Jan 2"), p.ServiceName, p.Amount, p.Currency)
		}
	}
	return r.reply(ctx, chatID, b.String())
}

func (r *Router) handleStats(ctx context.Context, chatID int64) error {
	stats, err := r.subs.Stats(ctx, chatID)
	if err != nil {
		r.warn("stats", "chat", chatID, "error", err)
		return r.reply(ctx, chatID, "Could not compute statistics right now.")
	}
	if stats.ActiveCount == 0 {
		return r.reply(ctx, chatID, "No data yet. Add subscriptions first with /add.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active subscriptions: %d\nMonthly: %.2f\nYearly: %.2f\nAverage per subscription: %.2f\n\nBy category:\n",
		stats.ActiveCount, stats.MonthlyTotal, stats.YearlyTotal, stats.Average)
	for _, cat := range stats.Categories {
		share := 0.0
		if stats.MonthlyTotal > 0 {
			share = cat.Total / stats.MonthlyTotal * 100
		}
		fmt.Fprintf(&b, "%s: %d, %.2f (%.1f%%)\n", cat.Category, cat.Count, cat.Total, share)
	}

	subs, err := r.subs.List(ctx, chatID)
	if err == nil {
		b.WriteString("\n")
		for _, hint := range r.subs.Suggestions(subs, time.Now()) {
			b.WriteString(hint + "\n")
		}
	}
	return r.reply(ctx, chatID, b.String())
}

func (r *Router) handleExport(ctx context.Context, chatID int64) error {
	data, err := r.subs.ExportCSV(ctx, chatID)
	if err != nil {
		r.warn("export", "chat", chatID, "error", err)
		return r.reply(ctx, chatID, "Could not export your data right now.")
	}
	return r.reply(ctx, chatID, "Your subscriptions as CSV:\n\n"+data)
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) error {
	if r.settings == nil {
		return r.reply(ctx, chatID, "Settings are not available.")
	}
	settings, err := r.settings.Ensure(ctx, chatID)
	if err != nil {
		r.warn("load settings", "chat", chatID, "error", err)
		return r.reply(ctx, chatID, "Could not load your settings right now.")
	}
	return r.reply(ctx, chatID, fmt.Sprintf(
		"Your settings:\nTimezone: %s\nReminder time: %s\nPreferred currency: %s",
		settings.Timezone, settings.NotificationTime, settings.PreferredCurrency))
}

func (r *Router) handleDelete(ctx context.Context, chatID, id int64) error {
	if err := r.subs.Delete(ctx, id, chatID); err != nil {
		r.warn("delete subscription", "chat", chatID, "id", id, "error", err)
		return r.reply(ctx, chatID, "Could not delete that subscription. Check the id in /list.")
	}
	return r.reply(ctx, chatID, "Subscription removed. Its history is kept for your statistics.")
}

const helpText = "Commands:\n" +
	"/add - add a subscription step by step\n" +
	"/list - your subscriptions with delete links\n" +
	"/upcoming - charges in the next month\n" +
	"/stats - spending summary and savings hints\n" +
	"/export - your data as CSV\n" +
	"/settings - your preferences\n" +
	"/cancel - abort the current flow\n" +
	"You can also send a receipt photo and I'll try to extract the details."

func (r *Router) reply(ctx context.Context, chatID int64, text string) error {
	if err := r.messenger.Send(ctx, chatID, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (r *Router) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
