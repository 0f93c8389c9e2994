package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "walletcored.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "walletcored.log"
	defaultDebugLevel     = "info"
	defaultWalletDbName   = "wallet.db"
	defaultMaxLogFileSize = 10 // MB
	defaultMaxLogFiles    = 3
)

var (
	defaultHomeDir    = appDataDir("walletcored")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config holds every flag and ini-file setting walletcored accepts: a
// flat struct tagged for go-flags, filled by loadConfig's two-pass parse.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`

	DataDir    string `short:"b" long:"datadir" description:"Directory to store the wallet database"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}"`

	Create bool `long:"create" description:"Create the wallet database if it does not already exist"`

	MasterKeyHex string `long:"masterkey" description:"Hex-encoded secp256k1 master private key for the local Key Keeper (a random one is generated and printed once if omitted on --create)"`

	MaxLogFileSize int64 `long:"maxlogfilesize" description:"Maximum log file size in MiB before rotation"`
	MaxLogFiles    int   `long:"maxlogfiles" description:"Maximum number of rotated log files to keep"`
}

// cleanAndExpandPath expands a leading ~ and any environment variables in
// path, then cleans the result.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", defaultHomeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// loadConfig follows a four-step precedence: defaults, then a pre-parse
// for -C/--configfile, then the ini file, then the command line again so
// flags always win.
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile:     defaultConfigFile,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultDebugLevel,
		MaxLogFileSize: defaultMaxLogFileSize,
		MaxLogFiles:    defaultMaxLogFiles,
	}

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		configFileError = err
	}

	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	if configFileError != nil && cfg.ConfigFile != defaultConfigFile {
		fmt.Fprintf(os.Stderr, "%v\n", configFileError)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &cfg, remainingArgs, nil
}

// walletDBPath is the on-disk sqlite path derived from the configured data
// directory.
func (cfg *config) walletDBPath() string {
	return filepath.Join(cfg.DataDir, defaultWalletDbName)
}
