// Package chainstate holds the single source of truth for which chain is
// active, with persistence and synchronous pub/sub for chain switches.
package chainstate

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/xenscan/chainrpc/chain"
	"github.com/xenscan/chainrpc/pkg/logger"
	"github.com/xenscan/chainrpc/storage"
)

// selectedChainKey is the (unscoped) storage key holding the persisted chain
// selection.
const selectedChainKey = "selectedChain"

// ChangeFunc is invoked on every effective chain switch with the previous
// key, the new key, and the new chain's definition.
type ChangeFunc func(previousKey, newKey string, def chain.Definition)

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultChain overrides the first-run chain selection.
func WithDefaultChain(key string) Option {
	return func(m *Manager) { m.defaultKey = key }
}

// Manager tracks the active chain. It is an explicit instance rather than a
// process-wide global so tests can run several managers independently.
type Manager struct {
	mu         sync.Mutex
	registry   *chain.Registry
	store      storage.Store
	lggr       logger.Logger
	defaultKey string

	initialized bool
	current     string

	subs   map[int]ChangeFunc
	nextID int
}

func New(registry *chain.Registry, store storage.Store, lggr logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		registry:   registry,
		store:      store,
		lggr:       lggr,
		defaultKey: chain.DefaultChainKey,
		subs:       make(map[int]ChangeFunc),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Initialize loads the persisted selection, falling back to the default when
// nothing is persisted or the persisted key is no longer registered. It is
// idempotent and does not notify subscribers, so startup produces no
// spurious chain-switch events.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.initializeLocked()
}

func (m *Manager) initializeLocked() error {
	if m.initialized {
		return nil
	}

	key := m.defaultKey
	if saved, ok := m.store.Get(selectedChainKey); ok {
		if m.registry.Has(saved) {
			key = saved
		} else {
			m.lggr.Warnf("persisted chain %q is not registered, falling back to %s", saved, m.defaultKey)
		}
	}

	if !m.registry.Has(key) {
		return &chain.UnknownChainError{Key: key}
	}

	m.current = key
	m.initialized = true
	m.lggr.Debugf("active chain initialized to %s", key)

	return nil
}

// CurrentKey returns the active chain key, initializing on first use.
func (m *Manager) CurrentKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.initializeLocked(); err != nil {
		// Falls through to the default key; the registry rejected both the
		// persisted and the configured default, which New's callers should
		// have validated.
		m.lggr.Errorf("chain state initialization failed: %v", err)

		return m.defaultKey
	}

	return m.current
}

// CurrentDefinition returns the active chain's definition.
func (m *Manager) CurrentDefinition() chain.Definition {
	def, err := m.registry.DefinitionByKey(m.CurrentKey())
	if err != nil {
		// CurrentKey only returns registered keys once initialized.
		m.lggr.Errorf("active chain has no definition: %v", err)
	}

	return def
}

// SetChain switches the active chain, persists the selection, and notifies
// subscribers. Setting the already-active key persists but does not notify.
func (m *Manager) SetChain(key string) error {
	m.mu.Lock()

	if err := m.initializeLocked(); err != nil {
		m.mu.Unlock()

		return err
	}

	if !m.registry.Has(key) {
		m.mu.Unlock()

		return &chain.UnknownChainError{Key: key}
	}

	previous := m.current
	m.current = key

	if err := m.store.Set(selectedChainKey, key); err != nil {
		m.lggr.Warnf("failed to persist chain selection %s: %v", key, err)
	}

	if previous == key {
		m.mu.Unlock()

		return nil
	}

	def, _ := m.registry.DefinitionByKey(key)
	subs := m.subscribersLocked()
	m.mu.Unlock()

	m.lggr.Infof("active chain switched from %s to %s", previous, key)
	for _, fn := range subs {
		m.dispatch(fn, previous, key, def)
	}

	return nil
}

// Subscribe registers fn for chain-switch events and returns its
// unsubscribe function. Dispatch is synchronous in subscription order.
func (m *Manager) Subscribe(fn ChangeFunc) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// ScopedKey derives the chain-scoped storage key for baseKey, e.g.
// "ETHEREUM_customRPC". All chain-scoped persistence goes through this.
func (m *Manager) ScopedKey(baseKey string) string {
	return fmt.Sprintf("%s_%s", m.CurrentKey(), baseKey)
}

// subscribersLocked snapshots subscribers in subscription order.
func (m *Manager) subscribersLocked() []ChangeFunc {
	ids := slices.Sorted(maps.Keys(m.subs))

	out := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.subs[id])
	}

	return out
}

// dispatch invokes one subscriber, containing panics so a bad listener
// cannot block the rest.
func (m *Manager) dispatch(fn ChangeFunc, previous, current string, def chain.Definition) {
	defer func() {
		if r := recover(); r != nil {
			m.lggr.Errorf("chain change subscriber panicked: %v", r)
		}
	}()

	fn(previous, current, def)
}
