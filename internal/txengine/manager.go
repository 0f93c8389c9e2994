package txengine

import (
	"sync"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/gateway"
	"github.com/mimblecoin/walletcore/internal/keykeeper"
	"github.com/mimblecoin/walletcore/internal/reactor"
	"github.com/mimblecoin/walletcore/internal/store"
)

// NegotiatorFactory constructs a fresh Negotiator for a newly tracked
// transaction of a given type.
type NegotiatorFactory func() Negotiator

// Manager is the live transaction table: it owns the single-threaded
// reactor every posted update runs on, and implements async.Scheduler so
// a Negotiator's self-reschedule request (via UpdateContext.Async) finds
// its way back to the right Tx.
//
// The table itself is a weak self-reference: a scheduled event carries
// only a TxID, and Schedule silently drops events for a TxID no longer
// present here rather than dereferencing a stale pointer.
type Manager struct {
	mu  sync.Mutex
	txs map[core.TxID]*Tx

	negotiators map[core.TxType]NegotiatorFactory

	reactor *reactor.Reactor
	db      *store.DB
	kk      keykeeper.KeyKeeper
	gw      gateway.Gateway
}

// NewManager constructs a Manager. Call Run (in its own goroutine) to
// start the reactor before tracking any transaction.
func NewManager(db *store.DB, kk keykeeper.KeyKeeper, gw gateway.Gateway) *Manager {
	return &Manager{
		txs:         make(map[core.TxID]*Tx),
		negotiators: make(map[core.TxType]NegotiatorFactory),
		reactor:     reactor.New(),
		db:          db,
		kk:          kk,
		gw:          gw,
	}
}

// RegisterNegotiator associates txType with the factory used to construct
// a fresh Negotiator whenever a transaction of that type is tracked.
func (m *Manager) RegisterNegotiator(txType core.TxType, factory NegotiatorFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.negotiators[txType] = factory
}

// Run drains the reactor until Stop is called. It blocks the calling
// goroutine, matching internal/reactor.Reactor's contract.
func (m *Manager) Run() {
	m.reactor.Run()
}

// Stop shuts the reactor down and waits for it to exit.
func (m *Manager) Stop() {
	m.reactor.Stop()
}

// Track registers txID as live under txType, constructing its Tx and
// Negotiator on first call; a later call for an already-tracked txID is a
// no-op returning the existing Tx.
func (m *Manager) Track(txID core.TxID, txType core.TxType) (*Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx, ok := m.txs[txID]; ok {
		return tx, nil
	}

	factory, ok := m.negotiators[txType]
	if !ok {
		return nil, &Error{
			ErrorCode:   ErrUnknownTxType,
			Description: "no negotiator registered for " + txType.String(),
		}
	}

	tx := newTx(txID, txType, factory(), m.db, m.kk, m.gw, m, m)
	m.txs[txID] = tx
	return tx, nil
}

// Forget removes txID from the live table. Called by a Tx itself once it
// reaches a terminal status, and safe to call redundantly.
func (m *Manager) Forget(txID core.TxID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txs, txID)
}

// Schedule implements async.Scheduler: it posts a lookup-and-update to the
// reactor. If txID is no longer tracked when the posted work runs, the
// event is dropped silently — the weak self-reference contract.
func (m *Manager) Schedule(txID core.TxID) {
	m.reactor.Post(func() {
		m.mu.Lock()
		tx, ok := m.txs[txID]
		m.mu.Unlock()
		if !ok {
			return
		}
		tx.Update()
	})
}

// Update posts an immediate update round for txID, used when an external
// event (an inbound peer message, a kernel proof callback, a new tip)
// should drive the transaction rather than its own self-reschedule.
func (m *Manager) Update(txID core.TxID) {
	m.mu.Lock()
	tx, ok := m.txs[txID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.reactor.Post(func() { tx.Update() })
}

// Cancel requests cancellation of txID.
func (m *Manager) Cancel(txID core.TxID) error {
	m.mu.Lock()
	tx, ok := m.txs[txID]
	m.mu.Unlock()
	if !ok {
		return &Error{ErrorCode: ErrUnknownTx, Description: "no such transaction"}
	}
	return tx.Cancel()
}

// RollbackBelow requests a chain-reorg rollback for txID.
func (m *Manager) RollbackBelow(txID core.TxID, h uint64) error {
	m.mu.Lock()
	tx, ok := m.txs[txID]
	m.mu.Unlock()
	if !ok {
		return &Error{ErrorCode: ErrUnknownTx, Description: "no such transaction"}
	}
	return tx.RollbackBelow(h)
}
