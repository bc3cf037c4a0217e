package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"WalletCampaign/internal/freshness"
	"WalletCampaign/internal/model"
)

// FormatRunSummary formats one campaign pass into a Telegram message.
func FormatRunSummary(sum model.RunSummary) string {
	var b strings.Builder

	title := "✅ <b>Campaign run finished</b>"
	if sum.Interrupted {
		title = "⏹ <b>Campaign run interrupted</b>"
	} else if sum.Failed > 0 {
		title = "⚠️ <b>Campaign run finished with errors</b>"
	}
	b.WriteString(fmt.Sprintf("%s | %s UTC\n\n", title, sum.StartedAt.UTC().Format("2006-01-02 15:04")))

	b.WriteString(fmt.Sprintf("Wallets: %d\n", sum.Wallets))
	b.WriteString(fmt.Sprintf("Spins: %d\n", sum.Spins))
	b.WriteString(fmt.Sprintf("Transfers: %d | Deposits: %d\n", sum.Transfers, sum.Deposits))
	b.WriteString(fmt.Sprintf("Refreshed: %d | Skipped: %d\n", sum.Refreshed, sum.Skipped))
	if sum.Failed > 0 {
		b.WriteString(fmt.Sprintf("Failed: %d\n", sum.Failed))
	}
	b.WriteString(fmt.Sprintf("Duration: %s\n", sum.Duration().Round(time.Second)))
	return b.String()
}

// FormatWalletReport formats the fleet status for the /status command.
func FormatWalletReport(recs []model.WalletRecord, lastUpdate, now time.Time) string {
	var b strings.Builder
	b.WriteString("📋 <b>Wallet status</b>\n\n")
	if len(recs) == 0 {
		b.WriteString("No wallets recorded yet.")
		return b.String()
	}

	done := 0
	for _, rec := range recs {
		r := rec
		mark := "⏳"
		if freshness.FullyCompletedToday(&r, now) {
			mark = "✅"
			done++
		}
		b.WriteString(fmt.Sprintf("%s <code>%s</code> spins %s, streak %s, transfer %s, last spin %s\n",
			mark, html.EscapeString(shortAddress(r.Address)),
			intOrDash(r.SpinsAvailable), intOrDash(r.DayStreak),
			transferStatus(&r, now), relTime(r.LastSpinAt, now)))
	}

	b.WriteString(fmt.Sprintf("\nCompleted today: %d/%d\n", done, len(recs)))
	if !lastUpdate.IsZero() {
		b.WriteString(fmt.Sprintf("Updated %s\n", humanize.RelTime(lastUpdate, now, "ago", "from now")))
	}
	return b.String()
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func transferStatus(rec *model.WalletRecord, now time.Time) string {
	if freshness.DailyTransferDoneToday(rec, now) {
		return "done"
	}
	if rec.LastTransferDate != "" {
		return "last " + rec.LastTransferDate
	}
	return "never"
}

func relTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}
