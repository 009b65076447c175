// Package store provides tracker.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/billing-engine/engine"
	"github.com/warp/billing-engine/tracker"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[engine.TransactionID]tracker.Transaction
	obligations  map[engine.ObligationID]engine.Obligation
	cards        map[string]tracker.CreditCard
	settings     tracker.Settings

	// Insertion counters keep listing order stable without timestamps.
	txSeq  map[engine.TransactionID]int
	obSeq  map[engine.ObligationID]int
	cardSeq map[string]int
	seq    int
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[engine.TransactionID]tracker.Transaction),
		obligations:  make(map[engine.ObligationID]engine.Obligation),
		cards:        make(map[string]tracker.CreditCard),
		settings:     tracker.DefaultSettings(),
		txSeq:        make(map[engine.TransactionID]int),
		obSeq:        make(map[engine.ObligationID]int),
		cardSeq:      make(map[string]int),
	}
}

func (m *Memory) Transactions(_ context.Context) ([]tracker.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsLocked(), nil
}

func (m *Memory) transactionsLocked() []tracker.Transaction {
	out := make([]tracker.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return m.txSeq[out[i].ID] < m.txSeq[out[j].ID]
	})
	return out
}

func (m *Memory) SaveTransaction(_ context.Context, tx tracker.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveTransactionLocked(tx)
}

func (m *Memory) saveTransactionLocked(tx tracker.Transaction) error {
	if _, ok := m.txSeq[tx.ID]; !ok {
		m.seq++
		m.txSeq[tx.ID] = m.seq
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id engine.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(m.transactions, id)
	delete(m.txSeq, id)
	return nil
}

func (m *Memory) Obligations(_ context.Context) ([]engine.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.obligationsLocked(), nil
}

func (m *Memory) obligationsLocked() []engine.Obligation {
	out := make([]engine.Obligation, 0, len(m.obligations))
	for _, o := range m.obligations {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return m.obSeq[out[i].ID] < m.obSeq[out[j].ID]
	})
	return out
}

func (m *Memory) GetObligation(_ context.Context, id engine.ObligationID) (engine.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getObligationLocked(id)
}

func (m *Memory) getObligationLocked(id engine.ObligationID) (engine.Obligation, error) {
	o, ok := m.obligations[id]
	if !ok {
		return engine.Obligation{}, tracker.ErrNotFound
	}
	return o, nil
}

func (m *Memory) SaveObligation(_ context.Context, o engine.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveObligationLocked(o)
}

func (m *Memory) saveObligationLocked(o engine.Obligation) error {
	if _, ok := m.obSeq[o.ID]; !ok {
		m.seq++
		m.obSeq[o.ID] = m.seq
	}
	m.obligations[o.ID] = o
	return nil
}

func (m *Memory) DeleteObligation(_ context.Context, id engine.ObligationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.obligations[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(m.obligations, id)
	delete(m.obSeq, id)
	return nil
}

func (m *Memory) Cards(_ context.Context) ([]tracker.CreditCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cardsLocked(), nil
}

func (m *Memory) cardsLocked() []tracker.CreditCard {
	out := make([]tracker.CreditCard, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return m.cardSeq[out[i].ID] < m.cardSeq[out[j].ID]
	})
	return out
}

func (m *Memory) SaveCard(_ context.Context, c tracker.CreditCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCardLocked(c)
}

func (m *Memory) saveCardLocked(c tracker.CreditCard) error {
	if _, ok := m.cardSeq[c.ID]; !ok {
		m.seq++
		m.cardSeq[c.ID] = m.seq
	}
	m.cards[c.ID] = c
	return nil
}

func (m *Memory) DeleteCard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(m.cards, id)
	delete(m.cardSeq, id)
	return nil
}

func (m *Memory) Settings(_ context.Context) (tracker.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, s tracker.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(tracker.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()

	view := &txMemoryView{parent: m}
	if err := fn(view); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	transactions map[engine.TransactionID]tracker.Transaction
	obligations  map[engine.ObligationID]engine.Obligation
	cards        map[string]tracker.CreditCard
	settings     tracker.Settings
	txSeq        map[engine.TransactionID]int
	obSeq        map[engine.ObligationID]int
	cardSeq      map[string]int
	seq          int
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		transactions: make(map[engine.TransactionID]tracker.Transaction, len(m.transactions)),
		obligations:  make(map[engine.ObligationID]engine.Obligation, len(m.obligations)),
		cards:        make(map[string]tracker.CreditCard, len(m.cards)),
		settings:     m.settings,
		txSeq:        make(map[engine.TransactionID]int, len(m.txSeq)),
		obSeq:        make(map[engine.ObligationID]int, len(m.obSeq)),
		cardSeq:      make(map[string]int, len(m.cardSeq)),
		seq:          m.seq,
	}
	for k, v := range m.transactions {
		s.transactions[k] = v
	}
	for k, v := range m.obligations {
		s.obligations[k] = v
	}
	for k, v := range m.cards {
		s.cards[k] = v
	}
	for k, v := range m.txSeq {
		s.txSeq[k] = v
	}
	for k, v := range m.obSeq {
		s.obSeq[k] = v
	}
	for k, v := range m.cardSeq {
		s.cardSeq[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.transactions = s.transactions
	m.obligations = s.obligations
	m.cards = s.cards
	m.settings = s.settings
	m.txSeq = s.txSeq
	m.obSeq = s.obSeq
	m.cardSeq = s.cardSeq
	m.seq = s.seq
}

// txMemoryView writes straight through to the parent, which already holds
// the lock; rollback is the parent's snapshot restore.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Transactions(_ context.Context) ([]tracker.Transaction, error) {
	return tv.parent.transactionsLocked(), nil
}

func (tv *txMemoryView) SaveTransaction(_ context.Context, tx tracker.Transaction) error {
	return tv.parent.saveTransactionLocked(tx)
}

func (tv *txMemoryView) DeleteTransaction(_ context.Context, id engine.TransactionID) error {
	if _, ok := tv.parent.transactions[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(tv.parent.transactions, id)
	delete(tv.parent.txSeq, id)
	return nil
}

func (tv *txMemoryView) Obligations(_ context.Context) ([]engine.Obligation, error) {
	return tv.parent.obligationsLocked(), nil
}

func (tv *txMemoryView) GetObligation(_ context.Context, id engine.ObligationID) (engine.Obligation, error) {
	return tv.parent.getObligationLocked(id)
}

func (tv *txMemoryView) SaveObligation(_ context.Context, o engine.Obligation) error {
	return tv.parent.saveObligationLocked(o)
}

func (tv *txMemoryView) DeleteObligation(_ context.Context, id engine.ObligationID) error {
	if _, ok := tv.parent.obligations[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(tv.parent.obligations, id)
	delete(tv.parent.obSeq, id)
	return nil
}

func (tv *txMemoryView) Cards(_ context.Context) ([]tracker.CreditCard, error) {
	return tv.parent.cardsLocked(), nil
}

func (tv *txMemoryView) SaveCard(_ context.Context, c tracker.CreditCard) error {
	return tv.parent.saveCardLocked(c)
}

func (tv *txMemoryView) DeleteCard(_ context.Context, id string) error {
	if _, ok := tv.parent.cards[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(tv.parent.cards, id)
	delete(tv.parent.cardSeq, id)
	return nil
}

func (tv *txMemoryView) Settings(_ context.Context) (tracker.Settings, error) {
	return tv.parent.settings, nil
}

func (tv *txMemoryView) SaveSettings(_ context.Context, s tracker.Settings) error {
	tv.parent.settings = s
	return nil
}

// Nested WithTx joins the ongoing transaction instead of snapshotting again.
func (tv *txMemoryView) WithTx(_ context.Context, fn func(tracker.Store) error) error {
	return fn(tv)
}
