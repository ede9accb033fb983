// Command chronosd is the Chronos job-scheduler daemon: it owns the timer
// registry, runs the tick/dispatch loop, and serves the control-plane RPCs.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/onlyati/chronos/internal/config"
	"github.com/onlyati/chronos/internal/daemon"
	"github.com/onlyati/chronos/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to chronosd config (default: "+config.DefaultConfigPath()+")")
	allDir := flag.String("all-dir", "", "override timer.all_dir (defaults to config value)")
	logDir := flag.String("log-dir", "", "override timer.log_dir (defaults to config value)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chronosd %s\n", version.Version)
		os.Exit(0)
	}

	log.Printf("chronosd %s starting", version.Version)

	if !version.IsDev() {
		if notice, err := version.UpdateNotice(); err == nil && notice != "" {
			log.Println(notice)
		}
	}

	if *configPath == "" {
		*configPath = config.DefaultConfigPath()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	if *allDir != "" {
		cfg.Timer.AllDir = *allDir
	}
	if *logDir != "" {
		cfg.Timer.LogDir = *logDir
	}

	if cfg.History.Enable {
		if err := config.EnsureDir(cfg.History.DBPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to prepare history directory: %v\n", err)
			os.Exit(2)
		}
	}

	d := daemon.New(cfg)
	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chronosd error: %v\n", err)
		os.Exit(1)
	}
}
