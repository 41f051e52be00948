package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaze-pointer/monitor/internal/config"
	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/gaze"
	"github.com/gaze-pointer/monitor/internal/hostctl"
	"github.com/gaze-pointer/monitor/internal/mock"
	"github.com/gaze-pointer/monitor/internal/monitor"
	"github.com/gaze-pointer/monitor/internal/pointer"
	"github.com/gaze-pointer/monitor/internal/snapshot"
	"github.com/gaze-pointer/monitor/internal/voice"
	"github.com/gaze-pointer/monitor/internal/ws"
)

var runFlags struct {
	network string
	port    int
	verbose bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track hosts and drive the pointer",
	Long: `Join the sensor network, serve the HTTP/websocket API and run the poll
loop until interrupted. SIGHUP reloads the config file and reports which
settings changed; they take effect on the next start.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if runFlags.port > 0 {
			cfg.Server.Port = runFlags.port
		}
		if runFlags.verbose {
			cfg.Loop.Verbose = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.network, "network", "mock", "Sensor network driver")
	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 0, "Override server port")
	runCmd.Flags().BoolVarP(&runFlags.verbose, "verbose", "v", false, "Log every change of the mapping outcome")
}

// openNetwork returns the sensor network and a marker detector that
// understands its frames.
func openNetwork(name string, cfg *config.Config) (device.Network, gaze.Detector, error) {
	switch name {
	case "mock":
		log.Println("Starting with the simulated sensor network")
		return mock.NewNetwork(cfg.Calibration, cfg.Mock.Interval, cfg.Mock.Seed), mock.Detector{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sensor network %q (available: mock)", name)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mapper, err := gaze.NewMapper(cfg.Calibration, cfg.Screen)
	if err != nil {
		return err
	}
	ptr, err := pointer.New(cfg.Pointer.Driver)
	if err != nil {
		return err
	}

	network, detector, err := openNetwork(runFlags.network, cfg)
	if err != nil {
		return err
	}
	ctrl, err := hostctl.New(network, hostctl.Options{
		WorldMarker:  cfg.Sensors.WorldMarker,
		DegradeAfter: cfg.Sensors.DegradeAfter,
	})
	if err != nil {
		_ = detector.Close()
		return fmt.Errorf("start sensor network: %w", err)
	}

	var voiceQueue *voice.Queue
	var voiceDone <-chan struct{}
	if cfg.Voice.Enabled {
		voiceQueue, voiceDone, err = startVoice(ctx, cfg.Voice)
		if err != nil {
			_ = ctrl.Close()
			_ = detector.Close()
			return err
		}
	}

	loop := monitor.New(ctrl, detector, mapper, ptr, voiceQueue, monitor.Config{
		FrameRate:       cfg.Loop.FrameRate,
		Smoothing:       cfg.Pointer.Smoothing,
		SmoothFrequency: cfg.Pointer.SmoothFrequency,
		SmoothDamping:   cfg.Pointer.SmoothDamping,
		RequestQueue:    cfg.Loop.LinkQueue,
		Verbose:         cfg.Loop.Verbose,
	})

	store := snapshot.NewStore()
	broadcaster := ws.NewBroadcaster(store, cfg.Broadcast.Throttle, cfg.Broadcast.SnapshotInterval, cfg.Broadcast.MaxClients)
	defer broadcaster.Stop()
	loop.SetSnapshots(store, broadcaster)

	token, err := authToken(cfg.Server)
	if err != nil {
		return err
	}
	server := ws.NewServer(store, broadcaster, loop, cfg.Server.AllowedOrigins, token)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				reloadConfig(cfg)
				continue
			}
			log.Println("Shutting down...")
			cancel()
			return
		}
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	serveErr := ws.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, server.Handler())
	cancel()
	<-loopDone
	if voiceDone != nil {
		<-voiceDone
	}

	if err := loop.Close(); err != nil {
		log.Printf("Teardown: %v", err)
	}
	return serveErr
}

// startVoice reads transcripts from the configured source on its own
// goroutine. The returned channel is closed once that goroutine has
// released the source.
func startVoice(ctx context.Context, vc config.VoiceConfig) (*voice.Queue, <-chan struct{}, error) {
	table, err := voice.NewTable(vc.Words)
	if err != nil {
		return nil, nil, err
	}

	var r io.ReadCloser = os.Stdin
	if vc.Source != "stdin" {
		f, err := os.Open(vc.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("open voice source: %w", err)
		}
		r = f
	}

	queue := voice.NewQueue(vc.QueueSize)
	src := voice.NewLineSource(r, table, queue)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer r.Close()
		if err := src.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[voice] transcript source stopped: %v", err)
		}
	}()
	log.Printf("Voice commands enabled (%d words, source %s)", len(table), vc.Source)
	return queue, done, nil
}

// authToken returns the configured token. A server reachable from other
// machines gets a generated one when none is configured.
func authToken(sc config.ServerConfig) (string, error) {
	if sc.AuthToken != "" {
		return sc.AuthToken, nil
	}
	if ip := net.ParseIP(sc.Host); sc.Host == "localhost" || (ip != nil && ip.IsLoopback()) {
		return "", nil
	}
	token, err := config.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	log.Printf("Server bound to %s without auth_token; generated token %s", sc.Host, token)
	return token, nil
}

func reloadConfig(current *config.Config) {
	next, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Printf("Config reload failed: %v", err)
		return
	}
	if err := next.Validate(); err != nil {
		log.Printf("Config reload rejected: %v", err)
		return
	}
	changes := config.Diff(current, next)
	if len(changes) == 0 {
		log.Println("Config reloaded, no changes")
		return
	}
	for _, c := range changes {
		log.Printf("Config change (applies on restart): %s", c)
	}
}
