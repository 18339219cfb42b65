// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
)

// cfg is the loaded configuration shared by the root package.
var cfg *config

// bscdMain is the real main function for bscd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is
// called.
func bscdMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the transport.
	interrupt := interruptListener()
	defer bscdLog.Info("Shutdown complete")

	// Show version at startup.
	bscdLog.Infof("Version %s", version())
	bscdLog.Infof("Active network: %s", activeNetParams.Name)

	// Enable http profiling server if requested.
	if cfg.Profile != "" {
		go func() {
			listenAddr := net.JoinHostPort("", cfg.Profile)
			bscdLog.Infof("Profile server listening on %s",
				listenAddr)
			profileRedirect := http.RedirectHandler("/debug/pprof",
				http.StatusSeeOther)
			http.Handle("/", profileRedirect)
			bscdLog.Errorf("%v", http.ListenAndServe(listenAddr, nil))
		}()
	}

	// Return now if an interrupt signal was triggered during setup.
	if interruptRequested(interrupt) {
		return nil
	}

	// Create server and start it.
	server, err := newServer(cfg, activeNetParams)
	if err != nil {
		bscdLog.Errorf("Unable to create server: %v", err)
		return err
	}
	if err := server.Start(); err != nil {
		bscdLog.Errorf("Unable to start server on %s: %v", cfg.Listen,
			err)
		return err
	}
	defer func() {
		bscdLog.Infof("Gracefully shutting down the server...")
		server.Stop()
		server.WaitForShutdown()
		srvrLog.Infof("Server shutdown complete")
	}()

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-interrupt
	return nil
}

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Work around defer not working after os.Exit()
	if err := bscdMain(); err != nil {
		os.Exit(1)
	}
}
