// Package notifier delivers arbitrage alerts and cycle summaries over
// Telegram. Delivery is best effort: a failed send is logged and dropped,
// it never feeds back into detection state.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/models"
)

// maxAlertRows caps how many opportunities a single alert message lists.
const maxAlertRows = 10

const summaryDurationPrecision = 10 * time.Millisecond

// TelegramNotifier sends formatted alerts to a single configured chat.
type TelegramNotifier struct {
	bot       *bot.Bot
	chatID    int64
	exchanges map[string]models.Exchange
	logger    *logrus.Logger
}

// NewTelegramNotifier builds a notifier, or returns nil when no bot token is
// configured. Callers treat a nil notifier as "alerts disabled".
func NewTelegramNotifier(token string, chatID int64, exchanges map[string]models.Exchange, logger *logrus.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, nil
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return &TelegramNotifier{
		bot:       b,
		chatID:    chatID,
		exchanges: exchanges,
		logger:    logger,
	}, nil
}

// NotifyOpportunities sends one batched alert for the cycle's fresh
// opportunities. Errors are logged, never returned, so alert state settled
// by the deduplicator stays settled regardless of delivery.
func (n *TelegramNotifier) NotifyOpportunities(ctx context.Context, opportunities []models.ArbitrageOpportunity) {
	if n == nil || len(opportunities) == 0 {
		return
	}

	message := n.formatOpportunities(opportunities)
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		n.logger.WithError(err).Warn("Failed to deliver opportunity alert")
		return
	}
	n.logger.WithField("opportunities", len(opportunities)).Info("Delivered arbitrage alert")
}

// NotifyCycleSummary reports the outcome of a completed scan cycle.
func (n *TelegramNotifier) NotifyCycleSummary(ctx context.Context, summary models.CycleSummary) {
	if n == nil {
		return
	}

	message := fmt.Sprintf(
		"📋 *Scan Cycle Complete*\n\n"+
			"Exchanges polled: %d ok, %d failed\n"+
			"Quotes collected: %d\n"+
			"Opportunities found: %d\n"+
			"New alerts: %d\n"+
			"Duration: %s\n",
		summary.ExchangesOK, summary.ExchangesFailed,
		summary.Quotes, summary.Opportunities, summary.Alerted,
		summary.Duration.Round(summaryDurationPrecision))

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		n.logger.WithError(err).Warn("Failed to deliver cycle summary")
	}
}

func (n *TelegramNotifier) formatOpportunities(opportunities []models.ArbitrageOpportunity) string {
	top := opportunities
	if len(top) > maxAlertRows {
		top = top[:maxAlertRows]
	}

	message := "🚀 *Arbitrage Opportunities*\n\n"
	message += fmt.Sprintf("Found %d profitable opportunities:\n\n", len(opportunities))

	for i, opp := range top {
		message += fmt.Sprintf("*%d. %s*\n", i+1, opp.Symbol)
		message += fmt.Sprintf("💰 Net profit: *%s%%* (per $1000: $%s)\n",
			opp.NetProfitPct.StringFixed(2), opp.ProfitPer1000.StringFixed(2))
		message += fmt.Sprintf("📈 Buy: %s @ $%s\n", n.displayName(opp.BuyExchangeID), trimPrice(opp.BuyPrice))
		message += fmt.Sprintf("📉 Sell: %s @ $%s\n", n.displayName(opp.SellExchangeID), trimPrice(opp.SellPrice))
		message += fmt.Sprintf("📦 Volume: %s\n\n", opp.Volume.String())
	}

	if len(opportunities) > maxAlertRows {
		message += fmt.Sprintf("...and %d more opportunities\n\n", len(opportunities)-maxAlertRows)
	}

	message += "⚡ Spreads can close quickly. Verify before trading.\n"
	return message
}

func (n *TelegramNotifier) displayName(exchangeID string) string {
	if ex, ok := n.exchanges[exchangeID]; ok && ex.DisplayName != "" {
		return ex.DisplayName
	}
	return exchangeID
}

// trimPrice renders prices with enough precision for small-cap quotes
// without padding majors with trailing zeros.
func trimPrice(p decimal.Decimal) string {
	if p.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return p.StringFixed(4)
	}
	return p.String()
}
