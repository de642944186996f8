package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"paperrag/config"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the record format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and the hash of the retrieval settings
// that produced the stored records.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("decode schema version: %w", err)
			}
		}
		if data := b.Get(keyConfigHash); data != nil {
			info.ConfigHash = string(data)
		}
		return nil
	})
	return &info, err
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes the settings that change which passages a paper
// yields. Records written under a different hash are not comparable.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		MaxChars       int      `json:"max_chars"`
		Overlap        int      `json:"overlap"`
		MaxDocFreq     float64  `json:"max_doc_freq"`
		ExtraStopwords []string `json:"extra_stopwords"`
		TopK           int      `json:"top_k"`
		Model          string   `json:"model"`
	}{
		MaxChars:       cfg.Chunk.MaxChars,
		Overlap:        cfg.Chunk.Overlap,
		MaxDocFreq:     cfg.Index.MaxDocFreq,
		ExtraStopwords: cfg.Index.ExtraStopwords,
		TopK:           cfg.Retrieve.TopK,
		Model:          cfg.LLM.Model,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration  bool
	Incompatible    bool
	SettingsChanged bool
	OldVersion      int
	NewVersion      int
	Reason          string
}

func (s *BoltStore) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.Incompatible = true
		result.Reason = fmt.Sprintf("history created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		result.SettingsChanged = true
		if result.Reason == "" {
			result.Reason = "retrieval settings changed since the last run"
		}
	}

	return result, nil
}

// Migrate brings the schema up to date and records the current settings
// hash. A history written by a newer version is refused.
func (s *BoltStore) Migrate(cfg *config.Config) (*MigrationResult, error) {
	result, err := s.CheckMigration(cfg)
	if err != nil {
		return nil, err
	}
	if result.Incompatible {
		return result, fmt.Errorf("cannot use history: %s", result.Reason)
	}

	for v := result.OldVersion; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return nil, fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	err = s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
	return result, err
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		return s.db.Update(func(tx *bbolt.Tx) error {
			for _, b := range [][]byte{bucketPapers, bucketRuns} {
				if _, err := tx.CreateBucketIfNotExists(b); err != nil {
					return err
				}
			}
			return nil
		})
	default:
		return nil
	}
}

// Clear removes all paper and run records, keeping schema info.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPapers, bucketRuns} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
