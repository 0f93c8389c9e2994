package txengine

import (
	"time"

	"github.com/mimblecoin/walletcore/internal/async"
	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/gateway"
	"github.com/mimblecoin/walletcore/internal/keykeeper"
	"github.com/mimblecoin/walletcore/internal/params"
	"github.com/mimblecoin/walletcore/internal/store"
)

// terminalNotifier is the subset of Manager a Tx needs to release itself
// from the live table once it reaches a terminal status — the weak
// self-reference cleanup half: nothing keeps a terminal Tx alive once its
// owner has been told to forget it.
type terminalNotifier interface {
	Forget(txID core.TxID)
}

// Tx is the per-TxID state machine: an outer update contract identical
// for every transaction, delegating the type-specific work to a
// Negotiator.
type Tx struct {
	txID       core.TxID
	txType     core.TxType
	negotiator Negotiator

	db *store.DB
	kk keykeeper.KeyKeeper
	gw gateway.Gateway

	async *async.Context
	owner terminalNotifier
}

func newTx(txID core.TxID, txType core.TxType, negotiator Negotiator, db *store.DB, kk keykeeper.KeyKeeper, gw gateway.Gateway, scheduler async.Scheduler, owner terminalNotifier) *Tx {
	t := &Tx{
		txID:       txID,
		txType:     txType,
		negotiator: negotiator,
		db:         db,
		kk:         kk,
		gw:         gw,
		owner:      owner,
	}
	t.async = async.NewContext(txID, scheduler)
	return t
}

// Update runs one round of the outer state-machine loop. It is meant to
// run on the single reactor goroutine; every step happens inside one store
// transaction so a mid-round failure never leaves the transaction's
// parameters and its coins' statuses inconsistent with each other.
func (t *Tx) Update() {
	t.async.EventFired()

	var terminal bool

	err := t.db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, t.txID)

		status, err := currentStatus(pm)
		if err != nil {
			return err
		}
		if status.IsTerminal() {
			terminal = true
			return nil
		}

		// Step 2: externally imposed failure.
		reasonOpt, err := params.Get[core.FailureReason](pm, core.FailureReasonParam, core.DefaultSubID)
		if err != nil {
			return err
		}
		if reasonOpt.IsSome() && status == core.TxStatusInProgress {
			if err := t.onFailed(pm, dtx, reasonOpt.UnwrapOr(core.FailureUnknown), true); err != nil {
				return err
			}
			terminal = true
			return nil
		}

		// Step 3: type-specific round.
		prevStatus := status
		tip, hasTip := t.gw.GetTip()
		outcome, err := t.negotiator.UpdateImpl(&UpdateContext{
			TxID:      t.txID,
			TxType:    t.txType,
			Params:    pm,
			KeyKeeper: t.kk,
			Gateway:   t.gw,
			Async:     t.async,
			Tip:       tip,
			HasTip:    hasTip,
		})
		if err != nil {
			if ferr := t.onFailed(pm, dtx, core.FailureUnknown, true); ferr != nil {
				return ferr
			}
			terminal = true
			return nil
		}

		switch outcome.Kind {
		case OutcomeFailed:
			if err := t.onFailed(pm, dtx, outcome.Reason, outcome.Notify); err != nil {
				return err
			}
			terminal = true
			return nil

		case OutcomeBlockedOnPeer, OutcomeBlockedOnProof:
			// A negotiator waiting on a peer or a kernel proof still has to
			// be checked for expiry on every tip change: it may sit in this
			// branch for its entire remaining life, and a tip change wakes
			// it up through its Async Context to reconsider expiry
			// regardless of whether synchronous progress happened.
			expired, err := t.checkExpiry(pm, tip, hasTip)
			if err != nil {
				return err
			}
			if expired {
				if err := t.onFailed(pm, dtx, core.FailureTransactionExpired, true); err != nil {
					return err
				}
				terminal = true
				return nil
			}
			return stampModifyTime(pm)

		case OutcomeProgressed:
			status, err = currentStatus(pm)
			if err != nil {
				return err
			}

			// Post-proof settlement: a Negotiator that just moved the
			// transaction into Completed has recorded a KernelProofHeight
			// but cannot reach the coins table itself (UpdateContext only
			// exposes the Parameter Map), so the outer loop does it here.
			if status == core.TxStatusCompleted && prevStatus != core.TxStatusCompleted {
				proofHeightOpt, perr := params.Get[uint64](pm, core.KernelProofHeight, core.DefaultSubID)
				if perr != nil {
					return perr
				}
				if proofHeightOpt.IsSome() {
					if serr := settleCoins(dtx, t.txID, proofHeightOpt.UnwrapOr(0)); serr != nil {
						return serr
					}
				}
			}

			// Step 4: expiry check.
			if !status.IsTerminal() {
				expired, err := t.checkExpiry(pm, tip, hasTip)
				if err != nil {
					return err
				}
				if expired {
					if err := t.onFailed(pm, dtx, core.FailureTransactionExpired, true); err != nil {
						return err
					}
					terminal = true
					return nil
				}
			} else {
				terminal = true
			}
			return stampModifyTime(pm)
		}
		return nil
	})
	if err != nil {
		log.Errorf("txengine: update round failed for %s: %v", t.txID, err)
		return
	}
	if terminal && t.owner != nil {
		t.owner.Forget(t.txID)
	}
}

// Cancel is permitted from Pending or InProgress. From InProgress it
// emits a FailureReason=Canceled message to the peer before
// transitioning.
func (t *Tx) Cancel() error {
	var invalid *Error
	var terminal bool

	err := t.db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, t.txID)
		status, err := currentStatus(pm)
		if err != nil {
			return err
		}
		if status != core.TxStatusPending && status != core.TxStatusInProgress {
			invalid = &Error{ErrorCode: ErrInvalidCancel, Description: "cancel only permitted from Pending or InProgress"}
			return nil
		}
		if status == core.TxStatusInProgress {
			if serr := t.sendFailureToPeer(pm, core.FailureCanceled); serr != nil {
				log.Warnf("txengine: failed to notify peer of cancel for %s: %v", t.txID, serr)
			}
		}
		if err := t.onFailed(pm, dtx, core.FailureCanceled, false); err != nil {
			return err
		}
		terminal = true
		return nil
	})
	if err != nil {
		return err
	}
	if invalid != nil {
		return invalid
	}
	if terminal && t.owner != nil {
		t.owner.Forget(t.txID)
	}
	return nil
}

// RollbackBelow resets a kernel proof recorded above height h back to
// Registering: the chain-reorg handling path.
func (t *Tx) RollbackBelow(h uint64) error {
	return t.db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, t.txID)
		proofHeightOpt, err := params.Get[uint64](pm, core.KernelProofHeight, core.DefaultSubID)
		if err != nil {
			return err
		}
		proofHeight := proofHeightOpt.UnwrapOr(0)
		if proofHeight == 0 || proofHeight <= h {
			return nil
		}
		if err := params.Set[uint64](pm, core.KernelProofHeight, 0, false, core.DefaultSubID); err != nil {
			return err
		}
		if err := params.Set[uint64](pm, core.KernelUnconfirmedHeight, 0, false, core.DefaultSubID); err != nil {
			return err
		}
		return params.Set(pm, core.Status, core.TxStatusRegistering, true, core.DefaultSubID)
	})
}

// SendTxParameters assembles a peer message from this transaction's
// MyID/PeerID and public parameters. It is a no-op if either side of the
// conversation isn't yet known.
func (t *Tx) SendTxParameters(pm *params.Map) error {
	return sendTxParameters(t.txID, t.txType, t.gw, pm)
}

// SendTxParameters is SendTxParameters's Negotiator-facing form: a
// Negotiator has a *UpdateContext, not a *Tx, so it calls this directly
// mid-round (e.g. right after moving a transaction into InProgress).
func SendTxParameters(ctx *UpdateContext) error {
	return sendTxParameters(ctx.TxID, ctx.TxType, ctx.Gateway, ctx.Params)
}

func sendTxParameters(txID core.TxID, txType core.TxType, gw gateway.Gateway, pm *params.Map) error {
	peerIDOpt, err := params.Get[[]byte](pm, core.PeerID, core.DefaultSubID)
	if err != nil {
		return err
	}
	myIDOpt, err := params.Get[[]byte](pm, core.MyID, core.DefaultSubID)
	if err != nil {
		return err
	}
	if peerIDOpt.IsNone() || myIDOpt.IsNone() {
		return nil
	}

	rows, err := pm.PublicParameters()
	if err != nil {
		return err
	}
	msg := gateway.PeerMessage{
		TxID:   txID,
		TxType: txType,
		FromID: myIDOpt.UnwrapOr(nil),
		Params: toGatewayParams(rows),
	}
	return gw.SendTxParams(peerIDOpt.UnwrapOr(nil), msg)
}

// SetCompletedCoinStatuses clamps confirm/spent heights down (never up)
// to proofHeight for every coin linked to this transaction, and sets
// maturity: the set_completed_tx_coin_statuses step. Exported for callers
// (tests, a manual settlement retry) that want to run it outside the
// normal Update round; the round itself calls settleCoins inline within
// its own transaction instead.
func (t *Tx) SetCompletedCoinStatuses(proofHeight uint64) error {
	return t.db.Update(func(dtx *store.Tx) error {
		return settleCoins(dtx, t.txID, proofHeight)
	})
}

// settleCoins is the shared implementation of set_completed_tx_coin_statuses,
// operating on an already-open store.Tx so it can be called both
// standalone (SetCompletedCoinStatuses) and inline from within an Update
// round already in progress.
func settleCoins(dtx *store.Tx, txID core.TxID, proofHeight uint64) error {
	coins, err := dtx.CoinsLinkedToTx(txID)
	if err != nil {
		return err
	}
	for i := range coins {
		c := &coins[i]
		if c.CreateTxID != nil && *c.CreateTxID == txID {
			if c.CreateHeight == 0 || c.CreateHeight > proofHeight {
				c.CreateHeight = proofHeight
			}
		}
		if c.SpentTxID != nil && *c.SpentTxID == txID {
			if c.SpentHeight == 0 || c.SpentHeight > proofHeight {
				c.SpentHeight = proofHeight
			}
		}
		c.Maturity = proofHeight + core.StdMaturity
	}
	return dtx.SaveCoins(coins)
}

// onFailed is the shared failure path: optionally notify the peer,
// persist the reason, transition to Canceled or Failed, roll back coin
// reservations, and notify the gateway of completion.
func (t *Tx) onFailed(pm *params.Map, dtx *store.Tx, reason core.FailureReason, notify bool) error {
	if notify {
		if err := t.sendFailureToPeer(pm, reason); err != nil {
			log.Warnf("txengine: failed to notify peer of failure for %s: %v", t.txID, err)
		}
	}

	if err := params.Set(pm, core.FailureReasonParam, reason, false, core.DefaultSubID); err != nil {
		return err
	}

	newStatus := core.TxStatusFailed
	if reason == core.FailureCanceled {
		newStatus = core.TxStatusCanceled
	}
	if err := params.Set(pm, core.Status, newStatus, true, core.DefaultSubID); err != nil {
		return err
	}

	if err := t.rollbackCoins(dtx); err != nil {
		return err
	}
	if err := stampModifyTime(pm); err != nil {
		return err
	}

	t.gw.OnTxCompleted(t.txID)
	return nil
}

// rollbackCoins reverts reservations this transaction made: coins it was
// about to spend go back to Available, coins it was about to create are
// invalidated as Consumed.
func (t *Tx) rollbackCoins(dtx *store.Tx) error {
	coins, err := dtx.CoinsLinkedToTx(t.txID)
	if err != nil {
		return err
	}
	changed := coins[:0]
	for _, c := range coins {
		switch {
		case c.SpentTxID != nil && *c.SpentTxID == t.txID && c.Status == core.CoinOutgoing:
			c.Status = core.CoinAvailable
			c.SpentTxID = nil
		case c.CreateTxID != nil && *c.CreateTxID == t.txID && c.Status == core.CoinIncoming:
			c.Status = core.CoinConsumed
		default:
			continue
		}
		changed = append(changed, c)
	}
	if len(changed) == 0 {
		return nil
	}
	return dtx.SaveCoins(changed)
}

func (t *Tx) sendFailureToPeer(pm *params.Map, reason core.FailureReason) error {
	if err := params.Set(pm, core.FailureReasonParam, reason, true, core.DefaultSubID); err != nil {
		return err
	}
	return t.SendTxParameters(pm)
}

// checkExpiry applies the transaction's expiry policy.
func (t *Tx) checkExpiry(pm *params.Map, tip core.ChainStateRow, hasTip bool) (bool, error) {
	if !hasTip {
		return false, nil
	}

	maxHeightOpt, err := params.Get[uint64](pm, core.MaxHeight, core.DefaultSubID)
	if err != nil {
		return false, err
	}
	var maxHeight uint64
	if maxHeightOpt.IsSome() {
		maxHeight = maxHeightOpt.UnwrapOr(0)
	} else {
		peerResponseHeightOpt, err := params.Get[uint64](pm, core.PeerResponseHeight, core.DefaultSubID)
		if err != nil {
			return false, err
		}
		if peerResponseHeightOpt.IsNone() {
			return false, nil
		}
		maxHeight = peerResponseHeightOpt.UnwrapOr(0)
	}

	registeredOpt, err := params.Get[bool](pm, core.TransactionRegistered, core.DefaultSubID)
	if err != nil {
		return false, err
	}
	kernelIDOpt, err := params.Get[[]byte](pm, core.KernelID, core.DefaultSubID)
	if err != nil {
		return false, err
	}
	registered := registeredOpt.UnwrapOr(false) && kernelIDOpt.IsSome()

	if !registered {
		return tip.Height > maxHeight, nil
	}

	unconfirmedOpt, err := params.Get[uint64](pm, core.KernelUnconfirmedHeight, core.DefaultSubID)
	if err != nil {
		return false, err
	}
	return unconfirmedOpt.UnwrapOr(0) >= maxHeight, nil
}

func currentStatus(pm *params.Map) (core.TxStatus, error) {
	statusOpt, err := params.Get[core.TxStatus](pm, core.Status, core.DefaultSubID)
	if err != nil {
		return 0, err
	}
	return statusOpt.UnwrapOr(core.TxStatusPending), nil
}

func stampModifyTime(pm *params.Map) error {
	return params.Set(pm, core.ModifyTime, time.Now().Unix(), false, core.DefaultSubID)
}

func toGatewayParams(rows []store.TxParamRow) []gateway.Param {
	out := make([]gateway.Param, len(rows))
	for i, r := range rows {
		out[i] = gateway.Param{ID: r.ParameterID, SubID: r.SubID, Value: r.Value}
	}
	return out
}
