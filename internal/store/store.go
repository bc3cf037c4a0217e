package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"WalletCampaign/internal/model"
)

// Stats summarises the snapshot.
type Stats struct {
	Count      int
	LastUpdate time.Time
}

// Store is the wallet record store. Every call loads the whole snapshot from disk and every
// mutation writes it back, so the file is always the last complete state.
type Store struct {
	mu       sync.Mutex
	filePath string
	log      *zap.Logger
	now      func() time.Time
	read     func(string) (*model.Snapshot, error)

	// last is the most recent snapshot seen on disk plus any changes made while the file
	// could not be read. pending names the addresses changed during that window.
	last    *model.Snapshot
	pending map[string]struct{}
}

// Open prepares a store backed by filePath. It fails only if the location can never hold a
// snapshot; a missing or corrupt file is not an error.
func Open(filePath string, log *zap.Logger) (*Store, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: empty store path", ErrStoreIO)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store dir: %v", ErrStoreIO, err)
	}
	if fi, err := os.Stat(filePath); err == nil && fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrStoreIO, filePath)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{filePath: filePath, log: log, now: time.Now, read: LoadSnapshot}, nil
}

// SetClock overrides the time source used to stamp lastUpdate.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.filePath
}

// Get returns a copy of the record for address, if any.
func (s *Store) Get(address string) (*model.WalletRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, _ := s.load()
	rec, ok := snap.Wallets[model.CanonicalAddress(address)]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Upsert merges u into the record for address, creating it if needed, and saves the snapshot.
// The merged record is returned even if the save fails, so the caller's pass can continue.
// While the file cannot be read the change is held in memory and written once it can.
func (s *Store) Upsert(address string, u model.WalletUpdate) model.WalletRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := model.CanonicalAddress(address)
	snap, readable := s.load()
	rec, ok := snap.Wallets[addr]
	if !ok {
		rec = &model.WalletRecord{Address: addr}
		snap.Wallets[addr] = rec
		s.log.Info("wallet record created", zap.String("address", addr))
	}
	rec.Apply(u)
	s.commit(snap, addr, readable)
	return *rec.Clone()
}

// Delete removes the record for address. Only ever called by an explicit admin action.
func (s *Store) Delete(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := model.CanonicalAddress(address)
	snap, readable := s.load()
	if _, ok := snap.Wallets[addr]; !ok {
		return false
	}
	delete(snap.Wallets, addr)
	s.commit(snap, addr, readable)
	return true
}

// ForEach calls fn with a copy of every record, ordered by address.
func (s *Store) ForEach(fn func(rec model.WalletRecord)) {
	for _, rec := range s.All() {
		fn(rec)
	}
}

// All returns copies of every record, ordered by address.
func (s *Store) All() []model.WalletRecord {
	s.mu.Lock()
	snap, _ := s.load()
	out := make([]model.WalletRecord, 0, len(snap.Wallets))
	for _, rec := range snap.Wallets {
		out = append(out, *rec.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Stats returns the record count and last write time.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, _ := s.load()
	return Stats{Count: len(snap.Wallets), LastUpdate: snap.LastUpdate}
}

// load never fails. A corrupt file degrades to an empty snapshot. An unreadable file degrades
// to the last snapshot held in memory and reports readable=false, so callers must not save it
// over a file whose contents they never saw.
func (s *Store) load() (snap *model.Snapshot, readable bool) {
	snap, err := s.read(s.filePath)
	switch {
	case err == nil:
	case errors.Is(err, ErrDataIntegrity):
		s.log.Error("load wallet snapshot, continuing with empty store", zap.String("path", s.filePath), zap.Error(err))
		// Keep the broken document for inspection instead of overwriting it on the next save.
		aside := fmt.Sprintf("%s.corrupt-%d", s.filePath, s.now().Unix())
		if rerr := os.Rename(s.filePath, aside); rerr != nil {
			s.log.Error("move corrupt snapshot aside", zap.String("path", aside), zap.Error(rerr))
		} else {
			s.log.Warn("corrupt snapshot moved aside", zap.String("path", aside))
		}
		snap = model.NewSnapshot()
	default:
		s.log.Error("load wallet snapshot, using last known state", zap.String("path", s.filePath), zap.Error(err))
		if s.last == nil {
			s.last = model.NewSnapshot()
		}
		return s.last, false
	}

	for addr := range s.pending {
		if rec, ok := s.last.Wallets[addr]; ok {
			snap.Wallets[addr] = rec.Clone()
		} else {
			delete(snap.Wallets, addr)
		}
	}
	s.last = snap
	return snap, true
}

// commit saves snap when it was read from disk. Otherwise the change to addr stays in memory
// until a later load succeeds and a save carries it to the file.
func (s *Store) commit(snap *model.Snapshot, addr string, readable bool) {
	if !readable {
		if s.pending == nil {
			s.pending = make(map[string]struct{})
		}
		s.pending[addr] = struct{}{}
		s.log.Warn("snapshot unreadable, change held in memory", zap.String("address", addr))
		return
	}
	if err := SaveSnapshot(s.filePath, snap, s.now()); err != nil {
		s.log.Error("save wallet snapshot, write dropped", zap.String("path", s.filePath), zap.Error(err))
		return
	}
	s.pending = nil
}
