// mirrorcore fuses tracker, procedural and input-hook signals into one
// blend shape frame per tick and serves them over a websocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/mirrorcore/internal/avatar3d"
	"github.com/normanking/mirrorcore/internal/bus"
	"github.com/normanking/mirrorcore/internal/command"
	"github.com/normanking/mirrorcore/internal/config"
	"github.com/normanking/mirrorcore/internal/face"
	"github.com/normanking/mirrorcore/internal/frame"
	"github.com/normanking/mirrorcore/internal/inputhook"
	"github.com/normanking/mirrorcore/internal/logging"
	"github.com/normanking/mirrorcore/internal/tracker"
)

func main() {
	configDir := flag.String("config", "", "config directory (default ~/.mirrorcore)")
	modelPath := flag.String("model", "", "avatar to open at startup, overrides model.path")
	logLevel := flag.String("log-level", "", "log level, overrides log.level")
	flag.Parse()

	cfg, store, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mirrorcore: %v\n", err)
		os.Exit(1)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log, err := logging.New(&logging.Config{
		LogDir:  cfg.Log.Dir,
		Level:   logging.LogLevel(cfg.Log.Level),
		Console: cfg.Log.Console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mirrorcore: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, store, log); err != nil {
		zl := log.Zerolog()
		zl.Error().Err(err).Msg("mirrorcore exited with error")
		os.Exit(1)
	}
}

func loadConfig(dir string) (*config.Config, *config.Store, error) {
	if dir == "" {
		return config.Load()
	}
	store := config.NewStore(dir)
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func run(ctx context.Context, cfg *config.Config, store *config.Store, log *logging.Logger) error {
	logger := log.Zerolog()
	events := bus.NewEventBus()

	// shared face state
	state := face.NewControlModeState()
	presence := &face.ModelPresence{}
	clips := &face.ClipSettings{}
	modifier := &face.DefaultBlendShapeModifier{}

	// providers
	blinker := avatar3d.NewAutoBlinker()
	blinker.SetBlinkRate(cfg.Blink.MinGap, cfg.Blink.MaxGap)
	blinker.SetBlinkDuration(cfg.Blink.Duration)
	jitter := avatar3d.NewSaccadeJitter()
	override := avatar3d.NewOverrideController(cfg.Frame.OverrideFade)

	trackerClient := tracker.NewClient(cfg.Tracker.URL, cfg.Tracker.TrackingTimeout, logger)
	trackerClient.SetConnectionCallback(func(connected bool) {
		t := bus.EventTypeTrackerDisconnected
		if connected {
			t = bus.EventTypeTrackerConnected
		}
		events.Publish(bus.Event{Type: t, Data: map[string]any{"url": cfg.Tracker.URL}})
	})

	arbiter := face.NewFaceBlendArbiter(state, presence, face.BlinkSources{
		External: trackerClient.External,
		Image:    trackerClient.WebCam,
		Auto:     blinker,
	}, modifier)
	selector := face.NewEyeMotionModeSelector(state, jitter, trackerClient.External)

	// input hook
	hook := inputhook.NewHookThread(events, logger)

	// command channel
	router := command.NewRouter()
	server := command.NewServer(cfg.Command.ListenAddr, router, logger)
	server.ForwardInput(events)

	pipeline := frame.NewPipeline(frame.Components{
		Selector:  selector,
		Arbiter:   arbiter,
		Clips:     clips,
		Presence:  presence,
		Override:  override,
		Providers: []frame.Updater{blinker, jitter, override},
		Drainer:   hook,
		Sink: frame.SinkFunc(func(out frame.Output) {
			server.BroadcastBlendShapes(out.Weights.NonZero())
			server.BroadcastEye(out.EyeRotation, out.EyeExternal)
		}),
		ProceduralEye: jitter,
		ExternalEye:   trackerClient.External,
	}, logger)

	models := frame.NewModelHost(presence, override, events, logger)

	receiver := face.NewConfigurationReceiver(state, clips, modifier, logger)
	receiver.OnEyeRotationScale = jitter.SetRotationScale
	receiver.Register(router)
	models.Register(router)
	frame.RegisterOverrides(router, pipeline, models)

	faceCfg := newFaceConfigApplier(receiver)
	if err := faceCfg.Apply(cfg.Face); err != nil {
		logger.Warn().Err(err).Msg("Some face settings were rejected")
	}
	store.Watch(logger, func(next *config.Config) {
		log.SetLevel(logging.LogLevel(next.Log.Level))
		if err := faceCfg.Apply(next.Face); err != nil {
			logger.Warn().Err(err).Msg("Some reloaded face settings were rejected")
		}
	})

	if cfg.Model.Path != "" {
		if err := models.Open(cfg.Model.Path); err != nil {
			logger.Warn().Err(err).Msg("Starting without a model")
		}
	}

	if cfg.InputHook.Enabled {
		startHook(hook, events, cfg.InputHook.Devices, logger)
	}

	logger.Info().
		Str("mode", state.Mode().String()).
		Str("listen", cfg.Command.ListenAddr).
		Bool("tracker", cfg.Tracker.Enabled).
		Msg("mirrorcore started")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Tracker.Enabled {
		g.Go(func() error { return trackerClient.Run(gctx) })
	}
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return pipeline.Run(gctx, cfg.Frame.Rate) })

	err := g.Wait()

	if hook.State() == inputhook.StateRunning {
		if stopErr := hook.Stop(); stopErr != nil {
			logger.Warn().Err(stopErr).Msg("Input hook did not stop cleanly")
		}
		events.PublishSync(bus.Event{Type: bus.EventTypeHookStopped})
	}
	models.Close()

	logger.Info().Msg("mirrorcore stopped")
	return err
}

// startHook starts the global input hook. A failed start is reported and
// the process carries on without input events.
func startHook(hook *inputhook.HookThread, events *bus.EventBus, devices []string, logger zerolog.Logger) {
	evdev := inputhook.NewEvdevHook(devices, logger)
	err := hook.Start(evdev.Register, evdev.Unregister)
	if err == nil {
		events.Publish(bus.Event{Type: bus.EventTypeHookStarted})
		return
	}

	var startErr *inputhook.StartError
	if errors.As(err, &startErr) {
		events.Publish(bus.Event{
			Type: bus.EventTypeHookFailed,
			Data: map[string]any{"error": startErr.Error()},
		})
		return
	}
	logger.Warn().Err(err).Msg("Input hook not started")
}
