package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"WalletCampaign/internal/config"
	"WalletCampaign/internal/freshness"
	"WalletCampaign/internal/model"
	"WalletCampaign/internal/store"
)

func main() {
	statePath := flag.String("state", "", "wallet state file (defaults to the configured campaign.state_file)")
	asJSON := flag.Bool("json", false, "print the raw snapshot as JSON")
	flag.Parse()

	path := *statePath
	if path == "" {
		cfgPath := "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			cfgPath = v
		}
		cfg, err := config.Load(cfgPath, ".env")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		path = cfg.Campaign.StateFile
	}

	snap, err := store.LoadSnapshot(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding snapshot: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := render(os.Stdout, snap, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
}

// render writes one row per wallet, ordered by address, plus a completion footer.
func render(w io.Writer, snap *model.Snapshot, now time.Time) error {
	recs := make([]model.WalletRecord, 0, len(snap.Wallets))
	for _, r := range snap.Wallets {
		recs = append(recs, *r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Address < recs[j].Address })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tETH\tTOKENS\tSPINS\tPRIZES\tGAMES\tSTREAK\tLAST SPIN\tTRANSFER\tDONE")

	done := 0
	for i := range recs {
		r := &recs[i]
		complete := freshness.FullyCompletedToday(r, now)
		if complete {
			done++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Address, orDash(r.EthBalance), orDash(r.TokenBalance),
			intOrDash(r.SpinsAvailable), intOrDash(r.PrizesWon), intOrDash(r.GamesPlayed), intOrDash(r.DayStreak),
			lastSpin(r.LastSpinAt, now), transfer(r, now), yesNo(complete))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d wallets, %d completed today", len(recs), done)
	if !snap.LastUpdate.IsZero() {
		fmt.Fprintf(w, ", updated %s", humanize.RelTime(snap.LastUpdate, now, "ago", "from now"))
	}
	fmt.Fprintln(w)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func lastSpin(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

func transfer(r *model.WalletRecord, now time.Time) string {
	switch {
	case freshness.DailyTransferDoneToday(r, now):
		return "today " + r.TransferAmount
	case r.LastTransferDate != "":
		return r.LastTransferDate
	default:
		return "never"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
