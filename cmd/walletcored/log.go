package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/mimblecoin/walletcore/internal/store"
	"github.com/mimblecoin/walletcore/internal/txengine"
)

// rotatingWriter pipes every Write into a jrick/logrotate rotator running
// on its own goroutine, grounded on lnd's build.RotatingLogWriter.
type rotatingWriter struct {
	pipe *io.PipeWriter
	rot  *rotator.Rotator
}

// newRotatingWriter creates the rotation directory and starts the rotator,
// following lnd/build/logrotator.go's InitLogRotator.
func newRotatingWriter(logFile string, maxSizeKB int64, maxRolls int) (*rotatingWriter, error) {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	r, err := rotator.New(logFile, maxSizeKB, false, maxRolls)
	if err != nil {
		return nil, fmt.Errorf("creating file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		if err := r.Run(pr); err != nil {
			fmt.Fprintf(os.Stderr, "log rotator stopped: %v\n", err)
		}
	}()

	return &rotatingWriter{pipe: pw, rot: r}, nil
}

func (w *rotatingWriter) Write(b []byte) (int, error) {
	return w.pipe.Write(b)
}

func (w *rotatingWriter) Close() error {
	w.pipe.Close()
	return w.rot.Close()
}

// subsystemLoggers maps each package's short tag to its live logger, so
// setLogLevels can walk them uniformly.
var subsystemLoggers map[string]btclog.Logger

// log is walletcored's own logger, under the "WLTD" subsystem tag.
var log btclog.Logger = btclog.Disabled

// initLogging wires btclog subsystem loggers, backed by a single rotating
// file writer, into every package that exposes a UseLogger hook, and sets
// every subsystem to debugLevel.
func initLogging(logFile string, maxSizeKB int64, maxRolls int, debugLevel string) (*rotatingWriter, error) {
	w, err := newRotatingWriter(logFile, maxSizeKB, maxRolls)
	if err != nil {
		return nil, err
	}

	subsystemLoggers = map[string]btclog.Logger{
		"WLTD": btclog.NewSubsystemLogger(w, "WLTD: "),
		"STOR": btclog.NewSubsystemLogger(w, "STOR: "),
		"TXNG": btclog.NewSubsystemLogger(w, "TXNG: "),
	}

	log = subsystemLoggers["WLTD"]
	store.UseLogger(subsystemLoggers["STOR"])
	txengine.UseLogger(subsystemLoggers["TXNG"])

	setLogLevels(debugLevel)
	return w, nil
}

// setLogLevels applies logLevel to every registered subsystem logger,
// ignoring an invalid level string in favor of info.
func setLogLevels(logLevel string) {
	level, ok := btclog.LogLevelFromString(logLevel)
	if !ok {
		level = btclog.InfoLvl
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}
