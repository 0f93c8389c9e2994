package gateway

import (
	"sync"

	"github.com/mimblecoin/walletcore/internal/core"
)

// Loopback is a hand-rolled test double satisfying Gateway: a fake driven
// directly by test code rather than a generated mock. It records every
// send and proof request so a test can assert on them, and lets the test
// script the tip and proof callbacks a real chain client would deliver
// asynchronously.
type Loopback struct {
	mu sync.Mutex

	tip     core.ChainStateRow
	hasTip  bool
	sent    []sentMessage
	proofs  []proofRequest
	async   int
	onTip   []core.TxID
	completed []core.TxID
}

type sentMessage struct {
	PeerID []byte
	Msg    PeerMessage
}

type proofRequest struct {
	TxID     core.TxID
	KernelID []byte
}

// NewLoopback constructs an empty Loopback with no tip set.
func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) SendTxParams(peerID []byte, msg PeerMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, sentMessage{PeerID: peerID, Msg: msg})
	return nil
}

func (l *Loopback) ConfirmKernel(txID core.TxID, kernelID []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proofs = append(l.proofs, proofRequest{TxID: txID, KernelID: kernelID})
	return nil
}

func (l *Loopback) GetTip() (core.ChainStateRow, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tip, l.hasTip
}

// SetTip lets a test script the chain tip a real client would report.
func (l *Loopback) SetTip(row core.ChainStateRow) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tip = row
	l.hasTip = true
}

func (l *Loopback) UpdateOnNextTip(txID core.TxID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTip = append(l.onTip, txID)
}

func (l *Loopback) OnTxCompleted(txID core.TxID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = append(l.completed, txID)
}

func (l *Loopback) AsyncStarted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.async++
}

func (l *Loopback) AsyncFinished() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.async--
}

// SentMessages returns a snapshot of every message SendTxParams recorded.
func (l *Loopback) SentMessages() []PeerMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PeerMessage, len(l.sent))
	for i, s := range l.sent {
		out[i] = s.Msg
	}
	return out
}

// Completed returns a snapshot of every txID reported terminal.
func (l *Loopback) Completed() []core.TxID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.TxID(nil), l.completed...)
}

// OutstandingAsync returns the current async ref-count, for tests that
// assert every AsyncStarted was matched by an AsyncFinished.
func (l *Loopback) OutstandingAsync() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.async
}
