package page

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const cardText = `
<div class="card">
  <span>ETH balance: 0.0123 ETH</span>
  <span>Token balance: 1,250.5 PTS</span>
  <span>Spins available: 3</span>
  <span>Prizes won: 0</span>
  <span>Games played: 17</span>
  <span>Day streak: 4</span>
  <span>Next spin in 04h 12m</span>
</div>`

func TestParseState_AllFields(t *testing.T) {
	st := ParseState(cardText)

	require.NotNil(t, st.SpinsAvailable)
	assert.Equal(t, 3, *st.SpinsAvailable)
	require.NotNil(t, st.PrizesWon)
	assert.Equal(t, 0, *st.PrizesWon)
	require.NotNil(t, st.GamesPlayed)
	assert.Equal(t, 17, *st.GamesPlayed)
	require.NotNil(t, st.DayStreak)
	assert.Equal(t, 4, *st.DayStreak)
	require.NotNil(t, st.EthBalance)
	assert.Equal(t, "0.0123", st.EthBalance.String())
	require.NotNil(t, st.TokenBalance)
	assert.Equal(t, "1250.5", st.TokenBalance.String())
	require.NotNil(t, st.NextRefresh)
	assert.Equal(t, "04h 12m", *st.NextRefresh)
}

func TestParseState_MissingFieldsStayNil(t *testing.T) {
	st := ParseState("Spins available: 0")
	require.NotNil(t, st.SpinsAvailable)
	assert.Equal(t, 0, *st.SpinsAvailable)
	assert.Nil(t, st.PrizesWon)
	assert.Nil(t, st.GamesPlayed)
	assert.Nil(t, st.DayStreak)
	assert.Nil(t, st.EthBalance)
	assert.Nil(t, st.TokenBalance)
	assert.Nil(t, st.NextRefresh)
}

func TestParseReward(t *testing.T) {
	assert.Equal(t, "25 PTS", ParseReward("Congrats! You won 25 PTS!"))
	assert.Equal(t, "", ParseReward("Better luck next time"))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/card", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") == "0xmissing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(cardText))
	})
	mux.HandleFunc("/spin", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["address"] == "0xbroke" {
			json.NewEncoder(w).Encode(spinResponse{Success: false, Error: "no spins left"})
			return
		}
		json.NewEncoder(w).Encode(spinResponse{Success: true, Message: "You won 5 PTS!"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_ExtractAndSpin(t *testing.T) {
	srv := newTestServer(t)
	src := NewHTTPSource(srv.URL, "", time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	assert.True(t, src.WaitForCard(ctx, "0xabc"))

	st, err := src.ExtractState(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, st.SpinsAvailable)
	assert.Equal(t, 3, *st.SpinsAvailable)

	res, err := src.PerformSpin(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "5 PTS", res.RewardText)

	_, err = src.PerformSpin(ctx, "0xbroke")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no spins left")
}

func TestHTTPSource_CardTimeout(t *testing.T) {
	srv := newTestServer(t)
	src := NewHTTPSource(srv.URL, "", 200*time.Millisecond, zaptest.NewLogger(t))
	src.PollInterval = 50 * time.Millisecond

	assert.False(t, src.WaitForCard(context.Background(), "0xmissing"))
	_, err := src.ExtractState(context.Background(), "0xmissing")
	assert.Error(t, err)
}
