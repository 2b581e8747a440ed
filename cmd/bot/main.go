package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/coreos/go-systemd/v22/daemon"

	"otbot/internal/core"
	"otbot/plugins/offtopic"
	"otbot/plugins/status"
)

func main() {
	var cfgPath string
	var showVersion bool
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("otbot", versioninfo.Short())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := core.NewApp(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	app.Plugins().Register(
		offtopic.New(),
		status.New(),
	)

	if err := app.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	// no-op outside systemd units
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-app.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	reason := core.StopSignal
	if app.Err() != nil {
		reason = core.StopFatalError
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	_ = app.Stop(stopCtx, reason)
	stopCancel()

	if app.Err() != nil {
		fmt.Println("fatal:", app.Err())
		os.Exit(1)
	}
}
