// Command followspotd runs the headless follow-spot controller: it loads
// persisted configuration, starts the fixed-period control loop and the
// JSON HTTP control surface, and shuts down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/vaspar/followspot/internal/applog"
	"github.com/vaspar/followspot/internal/config"
	"github.com/vaspar/followspot/internal/control"
	"github.com/vaspar/followspot/internal/httpapi"
	"github.com/vaspar/followspot/internal/indicator"
	"github.com/vaspar/followspot/internal/input"
	"github.com/vaspar/followspot/internal/runtime"
	"github.com/vaspar/followspot/internal/sacn"
)

var (
	jsonPath string
	csvPath  string
	httpAddr string
	logLevel string
	noSACN   bool
)

func main() {
	root := &cobra.Command{
		Use:   "followspotd",
		Short: "Headless DMX/sACN follow-spot controller",
		RunE:  run,
	}
	fs := root.Flags()
	fs.StringVar(&jsonPath, "config", "followspot.json", "path to the persisted JSON config")
	fs.StringVar(&csvPath, "fixtures-csv", "fixtures.csv", "path to the fixture CSV backup")
	fs.StringVar(&httpAddr, "http-addr", ":8080", "address for the HTTP control surface")
	fs.StringVar(&logLevel, "log-level", "info", "zerolog level: debug, info, warn, error")
	fs.BoolVar(&noSACN, "no-sacn", false, "disable sACN emission (dry run)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	applog.SetLevel(lvl)
	log := applog.For("main")

	snap, err := config.Load(jsonPath, csvPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store := config.New(snap)
	state := runtime.New()

	persistDone := make(chan struct{})
	persistStop := make(chan struct{})
	go persistOnChange(store, jsonPath, csvPath, log, persistStop, persistDone)

	hw := input.NewHardwareSource()
	virtual := input.NewVirtualSource()
	sw := input.NewSwitch(hw, virtual)

	var emitter *sacn.Emitter
	if !noSACN {
		settings := store.Snapshot().Settings
		sender, err := sacn.Dial(settings.SACNBindAddrs)
		if err != nil {
			log.Warn().Err(err).Msg("sacn dial failed, running without emission")
		} else {
			emitter = sacn.NewEmitter(sender, settings.CID, settings.SACNPriority)
		}
	}

	settingsNow := store.Snapshot().Settings
	ind, fled, err := indicator.Open(
		settingsNow.GPIOPowerPin,
		settingsNow.GPIOErrorPin,
		fixtureLEDPins(settingsNow.GPIOFixtureLEDBase, store.Snapshot().Fixtures),
	)
	if err != nil {
		log.Warn().Err(err).Msg("indicator open failed, running without status LEDs")
		ind, fled = nil, nil
	}

	loop := control.New(store, state, sw, emitter, ind, fled, applog.For("control"))

	stop := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(loopDone)
	}()

	restart := func() {
		close(stop)
		<-loopDone
		close(persistStop)
		<-persistDone
		os.Exit(0)
	}
	server := httpapi.New(store, state, virtual, sw, input.NullDeviceLister{}, applog.For("httpapi"), restart)

	httpSrv := &http.Server{Addr: httpAddr, Handler: server.Router()}
	go func() {
		log.Info().Str("addr", httpAddr).Msg("http control surface listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	close(stop)
	<-loopDone
	close(persistStop)
	<-persistDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)

	if err := store.Save(jsonPath, csvPath); err != nil {
		log.Error().Err(err).Msg("save config on shutdown")
	}
	if ind != nil {
		ind.Close()
	}
	if fled != nil {
		fled.Close()
	}
	return nil
}

// persistOnChange saves the config store to disk after every mutation, so a
// crash or power loss never discards more than the in-flight write.
func persistOnChange(store *config.Store, jsonPath, csvPath string, log zerolog.Logger, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	changed := store.Subscribe()
	for {
		select {
		case <-stop:
			return
		case <-changed:
			if err := store.Save(jsonPath, csvPath); err != nil {
				log.Error().Err(err).Msg("save config after change")
			}
		}
	}
}

func fixtureLEDPins(base int, fixtures []config.Fixture) map[int]int {
	pins := map[int]int{}
	for _, f := range fixtures {
		if f.StatusLEDSlot <= 0 {
			continue
		}
		pins[f.StatusLEDSlot] = base + f.StatusLEDSlot
	}
	return pins
}
