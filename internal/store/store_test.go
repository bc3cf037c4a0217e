package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"WalletCampaign/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "wallets.json"), zaptest.NewLogger(t))
	require.NoError(t, err)
	s.SetClock(func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) })
	return s
}

func TestStore_UpsertCreatesAndMerges(t *testing.T) {
	s := newTestStore(t)

	rec := s.Upsert("0xABCdef", model.WalletUpdate{
		SpinsAvailable: model.Ptr(3),
		EthBalance:     model.Ptr("0.5"),
	})
	assert.Equal(t, "0xabcdef", rec.Address)
	require.NotNil(t, rec.SpinsAvailable)
	assert.Equal(t, 3, *rec.SpinsAvailable)

	// Absent fields never overwrite existing values.
	rec = s.Upsert("0xabcDEF", model.WalletUpdate{PrizesWon: model.Ptr(0)})
	require.NotNil(t, rec.SpinsAvailable)
	assert.Equal(t, 3, *rec.SpinsAvailable)
	assert.Equal(t, "0.5", rec.EthBalance)
	require.NotNil(t, rec.PrizesWon)
	assert.Equal(t, 0, *rec.PrizesWon)

	got, ok := s.Get("0XABCDEF")
	require.True(t, ok)
	assert.Equal(t, rec, *got)
	assert.Equal(t, 1, s.Stats().Count)
}

func TestStore_UpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2026, 10, 15, 4, 0, 0, 0, time.UTC)
	u := model.WalletUpdate{
		SpinsAvailable:         model.Ptr(0),
		LastSpinAt:             &ts,
		DailyTransferDoneToday: model.Ptr(true),
		LastTransferDate:       model.Ptr("2026-10-15"),
	}

	once := s.Upsert("0x1", u)
	twice := s.Upsert("0x1", u)
	assert.Equal(t, once, twice)

	data1, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	s.Upsert("0x1", u)
	data2, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, string(data1), string(data2))
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	s.Upsert("0xAA", model.WalletUpdate{DayStreak: model.Ptr(2)})

	assert.True(t, s.Delete("0xaa"))
	assert.False(t, s.Delete("0xaa"))
	_, ok := s.Get("0xAA")
	assert.False(t, ok)
}

func TestStore_ForEachOrdered(t *testing.T) {
	s := newTestStore(t)
	for _, a := range []string{"0xcc", "0xAA", "0xbb"} {
		s.Upsert(a, model.WalletUpdate{})
	}

	var seen []string
	s.ForEach(func(rec model.WalletRecord) { seen = append(seen, rec.Address) })
	assert.Equal(t, []string{"0xaa", "0xbb", "0xcc"}, seen)
}

func TestStore_StatsLastUpdate(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, 0, s.Stats().Count)
	assert.True(t, s.Stats().LastUpdate.IsZero())

	s.Upsert("0x1", model.WalletUpdate{})
	st := s.Stats()
	assert.Equal(t, 1, st.Count)
	assert.True(t, st.LastUpdate.Equal(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)))
}

func TestStore_CorruptFileDegradesToEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, ok := s.Get("0x1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Stats().Count)

	matches, err := filepath.Glob(s.Path() + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// The store keeps working after the corrupt file is moved aside.
	rec := s.Upsert("0x1", model.WalletUpdate{GamesPlayed: model.Ptr(4)})
	assert.Equal(t, 4, *rec.GamesPlayed)
	assert.Equal(t, 1, s.Stats().Count)
}

func TestStore_UnwritableStillReturnsMerged(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "wallets.json"), zaptest.NewLogger(t))
	require.NoError(t, err)

	// Replace the parent with something that cannot hold a temp file.
	s.filePath = filepath.Join(dir, "missing-dir", "wallets.json")
	rec := s.Upsert("0x1", model.WalletUpdate{SpinsAvailable: model.Ptr(2)})
	require.NotNil(t, rec.SpinsAvailable)
	assert.Equal(t, 2, *rec.SpinsAvailable)

	_, ok := s.Get("0x1")
	assert.False(t, ok, "dropped write must not appear on the next load")
}

func TestStore_UnreadableFileKeepsOtherRecords(t *testing.T) {
	s := newTestStore(t)
	today := "2026-10-15"
	s.Upsert("0xA", model.WalletUpdate{LastTransferDate: model.Ptr(today), DailyTransferDoneToday: model.Ptr(true)})
	s.Upsert("0xB", model.WalletUpdate{LastTransferDate: model.Ptr(today), DailyTransferDoneToday: model.Ptr(true)})
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	s.read = func(path string) (*model.Snapshot, error) {
		return nil, fmt.Errorf("%w: read %s: permission denied", ErrStoreIO, path)
	}
	rec := s.Upsert("0xC", model.WalletUpdate{LastTransferDate: model.Ptr(today)})
	assert.Equal(t, today, rec.LastTransferDate)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after, "snapshot must not be rewritten while it cannot be read")

	// Later wallets in the same pass still see earlier transfers.
	a, ok := s.Get("0xa")
	require.True(t, ok)
	assert.Equal(t, today, a.LastTransferDate)
	assert.Equal(t, 3, s.Stats().Count)

	// Once readable again the held change reaches the file alongside the existing records.
	s.read = LoadSnapshot
	s.Upsert("0xD", model.WalletUpdate{GamesPlayed: model.Ptr(1)})

	snap, err := LoadSnapshot(s.Path())
	require.NoError(t, err)
	require.Len(t, snap.Wallets, 4)
	for _, addr := range []string{"0xa", "0xb", "0xc"} {
		require.Contains(t, snap.Wallets, addr)
		assert.Equal(t, today, snap.Wallets[addr].LastTransferDate, addr)
	}
}

func TestStore_DeleteWhileUnreadableIsHeld(t *testing.T) {
	s := newTestStore(t)
	s.Upsert("0xA", model.WalletUpdate{GamesPlayed: model.Ptr(1)})
	s.Upsert("0xB", model.WalletUpdate{GamesPlayed: model.Ptr(2)})

	s.read = func(string) (*model.Snapshot, error) { return nil, ErrStoreIO }
	assert.True(t, s.Delete("0xA"))

	s.read = LoadSnapshot
	_, ok := s.Get("0xA")
	assert.False(t, ok)
	s.Upsert("0xB", model.WalletUpdate{GamesPlayed: model.Ptr(3)})

	snap, err := LoadSnapshot(s.Path())
	require.NoError(t, err)
	assert.NotContains(t, snap.Wallets, "0xa")
	assert.Equal(t, 3, *snap.Wallets["0xb"].GamesPlayed)
}

func TestOpen_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreIO)
}

func TestLoadSnapshot_NormalizesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	doc := `{"lastUpdate":"2026-10-15T00:00:00Z","wallets":{"0xABC":{"address":"0xABC","spinsAvailable":0}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	snap, err := LoadSnapshot(path)
	require.NoError(t, err)
	rec, ok := snap.Wallets["0xabc"]
	require.True(t, ok)
	assert.Equal(t, "0xabc", rec.Address)
	require.NotNil(t, rec.SpinsAvailable)
	assert.Equal(t, 0, *rec.SpinsAvailable)
	assert.Nil(t, rec.PrizesWon)
}

func TestLoadSnapshot_NullRecordIsIntegrityError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"wallets":{"0x1":null}}`), 0o644))

	_, err := LoadSnapshot(path)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	t1 := time.Date(2026, 10, 15, 2, 59, 0, 0, time.UTC)
	t2 := time.Date(2026, 10, 14, 23, 1, 2, 345, time.UTC)

	want := model.NewSnapshot()
	want.Wallets["0xempty"] = &model.WalletRecord{Address: "0xempty"}
	want.Wallets["0xfull"] = &model.WalletRecord{
		Address:                "0xfull",
		EthBalance:             "0.012",
		TokenBalance:           "0",
		SpinsAvailable:         model.Ptr(0),
		PrizesWon:              model.Ptr(7),
		GamesPlayed:            model.Ptr(12),
		DayStreak:              model.Ptr(3),
		NextSpinRefreshTime:    "4h 12m",
		LastSpinAt:             &t1,
		LastActivityAt:         &t2,
		ConnectedAt:            &t2,
		DailyTransferDoneToday: true,
		LastTransferDate:       "2026-10-15",
		TransferAmount:         "0.0001",
		LastDepositDate:        "2026-10-14",
		LastTxRef:              "0xdead",
	}
	for i := 0; i < 20; i++ {
		addr := "0x" + strings.Repeat("a", i+1)
		rec := &model.WalletRecord{Address: addr}
		if i%2 == 0 {
			rec.SpinsAvailable = model.Ptr(i)
		}
		if i%3 == 0 {
			ts := t1.Add(time.Duration(i) * time.Hour)
			rec.LastSpinAt = &ts
		}
		want.Wallets[addr] = rec
	}

	require.NoError(t, SaveSnapshot(path, want, t1))
	got, err := LoadSnapshot(path)
	require.NoError(t, err)

	require.Len(t, got.Wallets, len(want.Wallets))
	assert.True(t, got.LastUpdate.Equal(t1))
	for addr, w := range want.Wallets {
		g, ok := got.Wallets[addr]
		require.True(t, ok, addr)
		assertRecordEqual(t, w, g)
	}
}

func assertRecordEqual(t *testing.T, want, got *model.WalletRecord) {
	t.Helper()
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.EthBalance, got.EthBalance)
	assert.Equal(t, want.TokenBalance, got.TokenBalance)
	assert.Equal(t, want.SpinsAvailable, got.SpinsAvailable)
	assert.Equal(t, want.PrizesWon, got.PrizesWon)
	assert.Equal(t, want.GamesPlayed, got.GamesPlayed)
	assert.Equal(t, want.DayStreak, got.DayStreak)
	assert.Equal(t, want.NextSpinRefreshTime, got.NextSpinRefreshTime)
	assertTimeEqual(t, want.LastSpinAt, got.LastSpinAt)
	assertTimeEqual(t, want.LastActivityAt, got.LastActivityAt)
	assertTimeEqual(t, want.ConnectedAt, got.ConnectedAt)
	assert.Equal(t, want.DailyTransferDoneToday, got.DailyTransferDoneToday)
	assert.Equal(t, want.LastTransferDate, got.LastTransferDate)
	assert.Equal(t, want.TransferAmount, got.TransferAmount)
	assert.Equal(t, want.LastDepositDate, got.LastDepositDate)
	assert.Equal(t, want.LastTxRef, got.LastTxRef)
}

func assertTimeEqual(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s, got %s", want, got)
}
