package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xenscan/chainrpc/chain"
	"github.com/xenscan/chainrpc/pkg/logger"
)

// customEndpointsBaseKey is the per-chain base key for user-supplied RPC
// endpoint lists; the full key is "<chainKey>_customRPC".
const customEndpointsBaseKey = "customRPC"

// endpointRecord is the versioned persisted form of a custom endpoint list.
// The ChainKey tag is the anti-contamination guard: a record read back for
// chain X that is tagged with chain Y must never be served as X's list.
type endpointRecord struct {
	ChainKey  string    `json:"chainKey"`
	Endpoints []string  `json:"endpoints"`
	WrittenAt time.Time `json:"writtenAt"`
}

// EndpointStore persists chain-scoped custom RPC endpoint lists with a
// validation guard against cross-chain contamination. All reads and writes
// run under a single lock so a chain switch cannot interleave with the
// guard check.
type EndpointStore struct {
	mu    sync.Mutex
	store Store
	lggr  logger.Logger
	now   func() time.Time

	// lastGood holds the most recent validated list per chain, used to
	// repair a record that was overwritten with another chain's data.
	lastGood map[string][]string
}

func NewEndpointStore(store Store, lggr logger.Logger) *EndpointStore {
	return &EndpointStore{
		store:    store,
		lggr:     lggr,
		now:      time.Now,
		lastGood: make(map[string][]string),
	}
}

// Save persists the custom endpoint list for chainKey. An empty list removes
// the custom configuration, reverting the chain to its built-in endpoints.
func (s *EndpointStore) Save(chainKey string, endpoints []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := cleanEndpoints(endpoints)
	key := scopedKey(chainKey, customEndpointsBaseKey)

	if len(cleaned) == 0 {
		delete(s.lastGood, chainKey)

		return s.store.Delete(key)
	}

	if err := s.write(chainKey, cleaned); err != nil {
		return err
	}
	s.lastGood[chainKey] = cleaned

	return nil
}

// Load returns the custom endpoint list for chainKey, or false when none is
// configured. A record tagged for a different chain is treated as
// contaminated: the last-known-good snapshot is restored when one exists,
// otherwise the record is dropped so callers fall back to built-in defaults.
func (s *EndpointStore) Load(chainKey string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopedKey(chainKey, customEndpointsBaseKey)
	raw, ok := s.store.Get(key)
	if !ok {
		return nil, false
	}

	var rec endpointRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// Pre-versioning records were stored as a newline-joined list.
		// Accept them and upgrade in place.
		legacy := cleanEndpoints(strings.Split(raw, "\n"))
		if len(legacy) == 0 {
			return nil, false
		}
		s.lggr.Infof("upgrading legacy endpoint list for chain %s (%d endpoints)", chainKey, len(legacy))
		if err := s.write(chainKey, legacy); err != nil {
			s.lggr.Warnf("failed to upgrade legacy endpoint list for chain %s: %v", chainKey, err)
		}
		s.lastGood[chainKey] = legacy

		return legacy, true
	}

	if rec.ChainKey != chainKey {
		s.lggr.Errorf("endpoint list for chain %s is tagged for chain %s, repairing", chainKey, rec.ChainKey)

		return s.repair(chainKey, key)
	}

	cleaned := cleanEndpoints(rec.Endpoints)
	if len(cleaned) == 0 {
		return nil, false
	}
	s.lastGood[chainKey] = cleaned

	return cleaned, true
}

// EffectiveEndpoints returns the endpoint list callers should use for the
// given chain: the validated custom list when present, the built-in default
// plus fallbacks otherwise.
func (s *EndpointStore) EffectiveEndpoints(def chain.Definition) []string {
	if custom, ok := s.Load(def.Key); ok {
		return custom
	}

	return def.Endpoints()
}

// repair restores chainKey's snapshot over a contaminated record, or removes
// the record when no snapshot exists. Caller holds the lock.
func (s *EndpointStore) repair(chainKey, key string) ([]string, bool) {
	snapshot := s.lastGood[chainKey]
	if len(snapshot) == 0 {
		if err := s.store.Delete(key); err != nil {
			s.lggr.Warnf("failed to drop contaminated endpoint list for chain %s: %v", chainKey, err)
		}

		return nil, false
	}

	if err := s.write(chainKey, snapshot); err != nil {
		s.lggr.Warnf("failed to restore endpoint snapshot for chain %s: %v", chainKey, err)
	}

	return snapshot, true
}

// write marshals and stores a tagged record. Caller holds the lock.
func (s *EndpointStore) write(chainKey string, endpoints []string) error {
	rec := endpointRecord{
		ChainKey:  chainKey,
		Endpoints: endpoints,
		WrittenAt: s.now(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal endpoint record: %w", err)
	}

	return s.store.Set(scopedKey(chainKey, customEndpointsBaseKey), string(data))
}

func scopedKey(chainKey, baseKey string) string {
	return chainKey + "_" + baseKey
}

func cleanEndpoints(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if trimmed := strings.TrimSpace(e); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
