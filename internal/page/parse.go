package page

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"WalletCampaign/internal/model"
)

var (
	spinsRe   = regexp.MustCompile(`(?i)spins?\s+(?:available|left)\s*:?\s*(\d+)`)
	prizesRe  = regexp.MustCompile(`(?i)prizes?\s+won\s*:?\s*(\d+)`)
	gamesRe   = regexp.MustCompile(`(?i)games?\s+played\s*:?\s*(\d+)`)
	streakRe  = regexp.MustCompile(`(?i)day\s+streak\s*:?\s*(\d+)`)
	ethRe     = regexp.MustCompile(`(?i)(?:eth\s+)?balance\s*:?\s*([0-9]+(?:\.[0-9]+)?)\s*eth\b`)
	tokenRe   = regexp.MustCompile(`(?i)token\s+balance\s*:?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	refreshRe = regexp.MustCompile(`(?i)next\s+spin\s+in\s*:?\s*([0-9][0-9hms: ]*[0-9hms])`)
	rewardRe  = regexp.MustCompile(`(?i)you\s+won\s*:?\s*([^!\n<]+)`)
)

// ParseState extracts the wallet card fields from the page text. A field whose pattern does
// not match stays nil; nothing is defaulted.
func ParseState(text string) model.ObservedState {
	var st model.ObservedState
	st.SpinsAvailable = matchInt(spinsRe, text)
	st.PrizesWon = matchInt(prizesRe, text)
	st.GamesPlayed = matchInt(gamesRe, text)
	st.DayStreak = matchInt(streakRe, text)
	st.EthBalance = matchDecimal(ethRe, text)
	st.TokenBalance = matchDecimal(tokenRe, text)
	if m := refreshRe.FindStringSubmatch(text); m != nil {
		v := strings.TrimSpace(m[1])
		st.NextRefresh = &v
	}
	return st
}

// ParseReward pulls the reward description out of a spin result message.
func ParseReward(text string) string {
	if m := rewardRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func matchInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func matchDecimal(re *regexp.Regexp, text string) *decimal.Decimal {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &d
}
