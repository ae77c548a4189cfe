package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Checkpoint records where the settlement scan left off so a restart resumes
// without re-processing or skipping blocks. A checkpoint is only honored when
// chain id and oracle address match the running configuration.
type Checkpoint struct {
	ChainID       int64  `json:"chain_id"`
	OracleAddress string `json:"oracle_address"`

	// NextScanBlock is the first block the next scan iteration should cover.
	NextScanBlock uint64 `json:"next_scan_block"`
}

// Compatible reports whether the checkpoint belongs to the same chain and
// oracle contract. Address comparison is case-insensitive.
func (c Checkpoint) Compatible(chainID int64, oracleAddress string) bool {
	return c.ChainID == chainID &&
		strings.EqualFold(strings.TrimSpace(c.OracleAddress), strings.TrimSpace(oracleAddress))
}

// Load reads a checkpoint from path. A missing file is not an error; the
// second return value reports whether a checkpoint was found.
func Load(path string) (Checkpoint, bool, error) {
	if path == "" {
		return Checkpoint{}, false, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, err
	}

	var ckpt Checkpoint
	if err := json.Unmarshal(b, &ckpt); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	return ckpt, true, nil
}

// Save writes the checkpoint atomically (write tmp, rename over).
func Save(path string, ckpt Checkpoint) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(ckpt, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
