package txengine

import (
	"github.com/mimblecoin/walletcore/internal/async"
	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/gateway"
	"github.com/mimblecoin/walletcore/internal/keykeeper"
	"github.com/mimblecoin/walletcore/internal/params"
)

// UpdateContext bundles the dependencies a Negotiator needs for one round
// of UpdateImpl: the open Parameter Map for this transaction (scoped to
// the same store transaction the outer loop will commit or roll back),
// the Key Keeper and Gateway capabilities, the Async Context for
// self-rescheduling, and the last known chain tip.
type UpdateContext struct {
	TxID   core.TxID
	TxType core.TxType
	Params *params.Map

	KeyKeeper keykeeper.KeyKeeper
	Gateway   gateway.Gateway
	Async     *async.Context

	Tip    core.ChainStateRow
	HasTip bool
}

// Negotiator is the type-specific half of a transaction's state machine:
// a simple transfer, an asset issuance, an atomic swap each implement
// UpdateImpl against the same outer contract.
//
// UpdateImpl is re-entrant: each call performs at most one round of work
// and returns. If more synchronous work is possible, it should call
// ctx.Async.UpdateAsync() before returning Progressed so the outer engine
// reschedules another round.
type Negotiator interface {
	UpdateImpl(ctx *UpdateContext) (Outcome, error)
}
