package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"merchant-verdict/internal/analysis"
)

// Kind names what a notification is about.
type Kind string

const (
	KindVerdict   Kind = "verdict"
	KindArbitrage Kind = "arbitrage"
)

// Notification carries either a report with a go verdict or a cross-market opportunity.
type Notification struct {
	Kind      Kind
	Bucket    time.Time
	Report    *analysis.Report
	Arbitrage *analysis.ArbitrageOpportunity
}

// Key identifies the notification for cooldown purposes. Repeats of the same
// verdict or the same buy/sell pair share a key.
func (n Notification) Key() string {
	switch {
	case n.Kind == KindVerdict && n.Report != nil:
		return fmt.Sprintf("verdict:%s:%s:%s", n.Report.ASIN, n.Report.Marketplace, n.Report.Verdict.Overall)
	case n.Kind == KindArbitrage && n.Arbitrage != nil:
		return fmt.Sprintf("arbitrage:%s:%s:%s", n.Arbitrage.ASIN, n.Arbitrage.BuyMarketplace, n.Arbitrage.SellMarketplace)
	default:
		return string(n.Kind)
	}
}

// ASIN returns the item the notification refers to.
func (n Notification) ASIN() string {
	switch {
	case n.Report != nil:
		return n.Report.ASIN
	case n.Arbitrage != nil:
		return n.Arbitrage.ASIN
	default:
		return ""
	}
}

// Notifier defines the alert delivery interface.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	text, err := Render(note)
	if err != nil {
		return err
	}
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false: %s", result.Description)
	}

	n.logger.Info().
		Str("kind", string(note.Kind)).
		Str("asin", note.ASIN()).
		Msg("alert sent (telegram)")
	return nil
}

// Render formats a notification as plain text.
func Render(note Notification) (string, error) {
	switch {
	case note.Kind == KindVerdict && note.Report != nil:
		return renderVerdict(note.Report), nil
	case note.Kind == KindArbitrage && note.Arbitrage != nil:
		return renderArbitrage(note.Arbitrage), nil
	default:
		return "", fmt.Errorf("render notification: unsupported %q or missing payload", note.Kind)
	}
}

func renderVerdict(r *analysis.Report) string {
	p := r.Profitability
	b := strings.Builder{}
	b.WriteString("[Merchant Verdict]\n")
	b.WriteString(fmt.Sprintf("%s (%s) %s\n", r.ASIN, strings.ToUpper(r.Marketplace), r.Title))
	b.WriteString(fmt.Sprintf("Verdict: %s\n", r.Verdict.Summary))
	b.WriteString(fmt.Sprintf("Arbitrage: %s | Dropship: %s | Private label: %s\n",
		r.Verdict.Arbitrage, r.Verdict.Dropshipping, r.Verdict.PrivateLabel))
	b.WriteString(fmt.Sprintf("Net profit: %s (ROI %s%%, margin %s%%)\n",
		p.NetProfit.StringFixed(2), p.ROIPercentage.StringFixed(1), p.MarginPercentage.StringFixed(1)))
	b.WriteString(fmt.Sprintf("PL score: %d/100, risk score: %d/100\n", r.Opportunity.Score, r.Risk.OverallRiskScore))
	for _, flag := range r.Risk.RiskFlags {
		b.WriteString("- " + flag + "\n")
	}
	return b.String()
}

func renderArbitrage(o *analysis.ArbitrageOpportunity) string {
	b := strings.Builder{}
	b.WriteString("[Cross-Market Arbitrage]\n")
	b.WriteString(fmt.Sprintf("%s %s\n", o.ASIN, o.Title))
	b.WriteString(fmt.Sprintf("Buy:  %s %s %s (%s %s)\n", strings.ToUpper(o.BuyMarketplace),
		o.BuyPriceLocal.StringFixed(2), o.BuyCurrency, o.BuyPriceReference.StringFixed(2), o.ReferenceCurrency))
	b.WriteString(fmt.Sprintf("Sell: %s %s %s (%s %s)\n", strings.ToUpper(o.SellMarketplace),
		o.SellPriceLocal.StringFixed(2), o.SellCurrency, o.SellPriceReference.StringFixed(2), o.ReferenceCurrency))
	b.WriteString(fmt.Sprintf("Gross: %s %s (%s%% margin) -> %s\n",
		o.GrossProfitReference.StringFixed(2), o.ReferenceCurrency, o.ProfitMarginPct.StringFixed(1), o.Recommendation))
	return b.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
