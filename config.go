// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/bscsuite/bscd/netsync"
	"github.com/bscsuite/bscd/peer"
)

const (
	defaultConfigFilename = "bscd.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "bscd.log"
	defaultLogLevel       = "info"
	defaultMaxPeers       = 125
)

var (
	defaultHomeDir    = bscdHomeDir()
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for bscd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion        bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile         string        `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir             string        `long:"logdir" description:"Directory to log output"`
	Listen             string        `long:"listen" description:"Listen for inbound sessions on this interface (default all interfaces port: 30311, testnet: 30312)"`
	DisableListen      bool          `long:"nolisten" description:"Disable listening for inbound sessions -- NOTE: Listening is automatically disabled if the --connect option is used or if the --proxy option is used"`
	ConnectPeers       []string      `long:"connect" description:"Connect only to the specified peers at startup"`
	MaxPeers           int           `long:"maxpeers" description:"Max number of inbound and outbound peers"`
	Proxy              string        `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser          string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass          string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	TestNet            bool          `long:"testnet" description:"Use the chapel test network"`
	StartHeight        uint64        `long:"startheight" description:"Chain height to start tracking from"`
	GapFillWindow      uint64        `long:"gapfillwindow" description:"Max number of consecutive missing blocks to request when a gap is detected"`
	SweepThreshold     int           `long:"sweepthreshold" description:"Number of outstanding block requests above which stale request state is pruned"`
	SweepKeepDepth     uint64        `long:"sweepkeepdepth" description:"How far below the tracked height request state survives pruning"`
	MaintenanceTick    time.Duration `long:"maintenancetick" description:"How often the sync maintenance pass runs.  Valid time units are {s, m, h}"`
	AdvanceOnReceipt   bool          `long:"advanceonreceipt" description:"Advance the tracked height as soon as the block directly above it is received"`
	HandshakeTimeout   time.Duration `long:"handshaketimeout" description:"Max time the combined session handshake may take.  Valid time units are {s, m, h}"`
	DisableTxBroadcast bool          `long:"notxbroadcast" description:"Ask peers not to broadcast transactions to this node"`
	Profile            string        `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`
	DebugLevel         string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
}

// bscdHomeDir returns an OS appropriate home directory for bscd.
func bscdHomeDir() string {
	// Search for Windows APPDATA first.  This won't exist on POSIX OSes.
	appData := os.Getenv("APPDATA")
	if appData != "" {
		return filepath.Join(appData, "Bscd")
	}

	// Fall back to standard HOME directory that works for most POSIX OSes.
	home := os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".bscd")
	}

	// In the worst case, use the current directory.
	return "."
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", filepath.Dir(defaultHomeDir), 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// normalizePeerAddress returns addr with the default peer port appended if
// there is not already a port specified.
func normalizePeerAddress(addr string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, activeNetParams.listenPort)
	}
	return addr
}

// removeDuplicateAddresses returns a new slice with all duplicate entries in
// addrs removed.
func removeDuplicateAddresses(addrs []string) []string {
	result := make([]string, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, val := range addrs {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// normalizeAndRemoveDuplicateAddresses returns a new slice with all the
// passed addresses normalized and duplicates removed.
func normalizeAndRemoveDuplicateAddresses(addrs []string) []string {
	for i, addr := range addrs {
		addrs[i] = normalizePeerAddress(addr)
	}
	return removeDuplicateAddresses(addrs)
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in bscd functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:       defaultConfigFile,
		LogDir:           defaultLogDir,
		MaxPeers:         defaultMaxPeers,
		GapFillWindow:    netsync.DefaultGapFillWindow,
		SweepThreshold:   netsync.DefaultSweepThreshold,
		SweepKeepDepth:   netsync.DefaultSweepKeepDepth,
		MaintenanceTick:  netsync.DefaultMaintenanceInterval,
		HandshakeTimeout: peer.DefaultHandshakeTimeout,
		DebugLevel:       defaultLogLevel,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		appName = strings.TrimSuffix(appName, filepath.Ext(appName))
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Choose the active network params based on the testnet flag.
	if cfg.TestNet {
		activeNetParams = &testNetParams
	}

	// Append the network name to the log directory so it is "namespaced"
	// per network.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, activeNetParams.Name)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %v", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Validate profile port number.
	if cfg.Profile != "" {
		profilePort, err := strconv.Atoi(cfg.Profile)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			str := "loadConfig: the profile port must be between " +
				"1024 and 65535"
			err := fmt.Errorf(str)
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
	}

	// The gap fill window and maintenance interval have to be sane for the
	// tracker to make progress.
	if cfg.GapFillWindow == 0 {
		err := fmt.Errorf("loadConfig: the gapfillwindow option may " +
			"not be zero")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.MaintenanceTick < time.Second {
		err := fmt.Errorf("loadConfig: the maintenancetick option may "+
			"not be less than 1s -- parsed [%v]", cfg.MaintenanceTick)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.HandshakeTimeout < time.Second {
		err := fmt.Errorf("loadConfig: the handshaketimeout option may "+
			"not be less than 1s -- parsed [%v]", cfg.HandshakeTimeout)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Default the listen interface to all interfaces on the network's
	// standard port.
	if cfg.Listen == "" {
		cfg.Listen = net.JoinHostPort("", activeNetParams.listenPort)
	}

	// --proxy means no listening for inbound sessions.
	if cfg.Proxy != "" {
		cfg.DisableListen = true
	}

	// Connect means no listening.
	if len(cfg.ConnectPeers) > 0 {
		cfg.DisableListen = true
	}

	// Add the default port to all connect addresses if needed and remove
	// duplicate addresses.
	cfg.ConnectPeers = normalizeAndRemoveDuplicateAddresses(cfg.ConnectPeers)

	return &cfg, remainingArgs, nil
}
