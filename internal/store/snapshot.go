package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"WalletCampaign/internal/model"
)

var (
	// ErrStoreIO is returned when the snapshot file cannot be read or written.
	ErrStoreIO = errors.New("store io")

	// ErrDataIntegrity is returned when the snapshot file exists but is not a valid document.
	ErrDataIntegrity = errors.New("store data integrity")
)

// LoadSnapshot reads the snapshot from a JSON file. Returns an empty snapshot if the file doesn't exist.
func LoadSnapshot(filePath string) (*model.Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreIO, filePath, err)
	}
	if len(data) == 0 {
		return model.NewSnapshot(), nil
	}

	snap := model.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrDataIntegrity, filePath, err)
	}
	if snap.Wallets == nil {
		snap.Wallets = make(map[string]*model.WalletRecord)
	}

	// Re-key by canonical address; hand edits may have introduced mixed case.
	normalized := make(map[string]*model.WalletRecord, len(snap.Wallets))
	for key, rec := range snap.Wallets {
		if rec == nil {
			return nil, fmt.Errorf("%w: null record for %q", ErrDataIntegrity, key)
		}
		addr := model.CanonicalAddress(rec.Address)
		if addr == "" {
			addr = model.CanonicalAddress(key)
		}
		rec.Address = addr
		normalized[addr] = rec
	}
	snap.Wallets = normalized
	return snap, nil
}

// SaveSnapshot writes the snapshot as one unit: temp file in the same directory, fsync, rename.
func SaveSnapshot(filePath string, snap *model.Snapshot, now time.Time) error {
	snap.LastUpdate = now.UTC()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStoreIO, err)
	}

	dir := filepath.Dir(filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrStoreIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp: %v", ErrStoreIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp: %v", ErrStoreIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", ErrStoreIO, err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrStoreIO, err)
	}
	return nil
}
