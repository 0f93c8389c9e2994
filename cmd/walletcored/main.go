// Command walletcored runs the wallet core as a standalone daemon: it
// opens the storage engine, brings up the Key Keeper, Transaction Engine,
// Swap Offers Board and Event Fan-out, and then idles servicing whatever
// drives them. A network-facing RPC front-end is not part of this daemon.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/mimblecoin/walletcore/internal/broadcast"
	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/events"
	"github.com/mimblecoin/walletcore/internal/gateway"
	"github.com/mimblecoin/walletcore/internal/keykeeper"
	"github.com/mimblecoin/walletcore/internal/params"
	"github.com/mimblecoin/walletcore/internal/store"
	"github.com/mimblecoin/walletcore/internal/swapboard"
	"github.com/mimblecoin/walletcore/internal/swapoffer"
	"github.com/mimblecoin/walletcore/internal/txengine"
)

// noopSender is the outbound BBS transport used until a real network
// client is wired up; that client is out of scope here, referenced only
// by the broadcast.Sender interface.
type noopSender struct{}

func (noopSender) SendRaw(contentType broadcast.ContentType, payload []byte) error {
	log.Debugf("would send %d bytes on content type %d", len(payload), contentType)
	return nil
}

// offerEventBridge forwards Swap Offers Board observer callbacks into the
// Event Fan-out, so a future front-end registering a single events.Sink
// sees swap-offer changes the same way it sees everything else.
type offerEventBridge struct {
	dispatcher *events.Dispatcher
}

func (b offerEventBridge) OnOfferAdded(offer core.SwapOffer) {
	b.dispatcher.OfferChanged(offer, false)
}

func (b offerEventBridge) OnOfferRemoved(txID core.TxID) {
	b.dispatcher.OfferChanged(core.SwapOffer{TxID: txID}, true)
}

// txLookup adapts *store.DB to swapboard.TransactionLookup, reading a
// transaction's bookkeeping parameters through the same Parameter Map
// abstraction the Transaction Engine uses.
type txLookup struct {
	db *store.DB
}

func (l txLookup) TxStatus(txID core.TxID) (status core.TxStatus, txType core.TxType, found bool) {
	_ = l.db.View(func(tx *store.Tx) error {
		pm := params.New(tx, txID)
		statusOpt, err := params.Get[core.TxStatus](pm, core.Status, core.DefaultSubID)
		if err != nil || statusOpt.IsNone() {
			return err
		}
		typeOpt, err := params.Get[uint64](pm, core.TransactionType, core.DefaultSubID)
		if err != nil {
			return err
		}
		status = statusOpt.UnwrapOr(core.TxStatusPending)
		txType = core.TxType(typeOpt.UnwrapOr(uint64(core.TxTypeSimple)))
		found = true
		return nil
	})
	return status, txType, found
}

func loadOrCreateMasterKey(cfg *config) (*btcec.PrivateKey, error) {
	if cfg.MasterKeyHex != "" {
		b, err := hex.DecodeString(cfg.MasterKeyHex)
		if err != nil {
			return nil, fmt.Errorf("decoding --masterkey: %w", err)
		}
		priv, _ := btcec.PrivKeyFromBytes(b)
		return priv, nil
	}

	if !cfg.Create {
		return nil, fmt.Errorf("no --masterkey given and --create not set")
	}

	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(buf[:])
	fmt.Fprintf(os.Stderr, "generated new master key: %x (save this, it will not be shown again)\n", priv.Serialize())
	return priv, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	writer, err := initLogging(logFile, cfg.MaxLogFileSize*1024, cfg.MaxLogFiles, cfg.DebugLevel)
	if err != nil {
		return err
	}
	defer writer.Close()

	db, err := store.Open(cfg.walletDBPath(), cfg.Create)
	if err != nil {
		return fmt.Errorf("opening wallet database: %w", err)
	}
	defer db.Close()

	master, err := loadOrCreateMasterKey(cfg)
	if err != nil {
		return err
	}
	kk, err := keykeeper.NewLocal(master)
	if err != nil {
		return fmt.Errorf("initializing key keeper: %w", err)
	}

	gw := gateway.NewLoopback()

	mgr := txengine.NewManager(db, kk, gw)

	router := broadcast.NewRouter(noopSender{})
	codec := swapoffer.NewCodec(kk)
	board := swapboard.NewBoard(codec, router, txLookup{db: db})
	router.RegisterListener(broadcast.ContentSwapOffers, board)

	mgr.RegisterNegotiator(core.TxTypeSimple, func() txengine.Negotiator {
		return txengine.NewTransferNegotiator()
	})
	mgr.RegisterNegotiator(core.TxTypeAtomicSwap, func() txengine.Negotiator {
		return txengine.NewAtomicSwapNegotiator(board)
	})

	dispatcher := events.NewDispatcher()
	board.Subscribe(offerEventBridge{dispatcher: dispatcher})

	go mgr.Run()
	defer mgr.Stop()

	log.Infof("walletcored started, own BBS identity %x", kk.OwnBBSIdentity())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infof("walletcored shutting down")
	return nil
}
