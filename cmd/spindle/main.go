// Package main provides the spindle entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/app/input"
	"github.com/evhagen/spindle/internal/app/jukebox"
	"github.com/evhagen/spindle/internal/app/playback"
	"github.com/evhagen/spindle/internal/app/player"
	"github.com/evhagen/spindle/internal/domain/command"
	"github.com/evhagen/spindle/internal/domain/playlist"
	"github.com/evhagen/spindle/internal/domain/track"
	"github.com/evhagen/spindle/internal/infra/audio"
	"github.com/evhagen/spindle/internal/infra/config"
	"github.com/evhagen/spindle/internal/infra/logger"
	"github.com/evhagen/spindle/internal/infra/scan"
)

var (
	app        = kingpin.New("spindle", "Terminal jukebox for local audio files")
	configPath = app.Flag("config", "Path to config file").Default("config/spindle.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	playCmd = app.Command("play", "Build the playlist and start playing (default)").Default()
	playDir = playCmd.Arg("dir", "Directory to scan instead of the configured sources").String()

	// keys command
	keysCmd = app.Command("keys", "Print the active key bindings and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Command-line flags take precedence over the config file.
	loggerConfig := logger.Config{
		Level:  cfg.Log.Level,
		Output: cfg.Log.Output,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	if cmd == keysCmd.FullCommand() {
		if err := printKeys(cfg); err != nil {
			zlog.Fatal().Msgf("Invalid key bindings: %v", err)
		}
		return
	}

	zlog.Debug().Msgf("Config loaded from %s", *configPath)

	// SIGINT/SIGTERM take the same path as the quit key.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *playDir); err != nil {
		if errors.Is(err, context.Canceled) {
			zlog.Info().Msg("Interrupted")
			return
		}
		zlog.Error().Msgf("Jukebox error: %v", err)
		os.Exit(1)
	}
}

// run executes the main jukebox logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(ctx context.Context, cfg *config.Config, dir string) error {
	tracks, err := buildPlaylist(ctx, cfg, dir)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		zlog.Info().Msg("No audio files found, nothing to play")
		return nil
	}
	zlog.Info().Msgf("Queued %d tracks", len(tracks))

	device, err := audio.OpenDevice(audio.DeviceConfig{SampleRate: cfg.Audio.SampleRate})
	if err != nil {
		return err
	}

	builder, err := playback.NewBuilder(device, playback.OpenAudioSource, playback.Config{
		BufferSize: cfg.Audio.BufferSize,
		BlockSize:  cfg.Audio.BlockSize,
	})
	if err != nil {
		return err
	}

	keymap, err := input.NewKeymap(cfg.Keys)
	if err != nil {
		return err
	}

	worker, client := player.New(builder)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	// The reader owns the command channel and closes it at end of input.
	commands := make(chan command.Command)
	go input.NewReader(os.Stdin, keymap).Run(ctx, commands)

	queue := playlist.New(tracks, cfg.LoopEnabled())
	box := jukebox.New(queue, jukebox.Config{
		Autoplay:      cfg.AutoplayEnabled(),
		ShowState:     cfg.ShowStateEnabled(),
		Window:        cfg.Display.Window,
		OnStreamError: jukebox.ErrorPolicy(cfg.Playback.OnStreamError),
	}, client, worker.Events(), commands, os.Stdout)

	runErr := box.Run(ctx)

	// The control loop has stopped the current stream; let the worker
	// drain out of its run loop before returning.
	cancel()
	<-workerDone

	zlog.Info().Msg("Jukebox stopped")
	return runErr
}

// buildPlaylist collects tracks from the configured sources. A directory
// argument replaces the configured sources; with neither, the working
// directory is scanned.
func buildPlaylist(ctx context.Context, cfg *config.Config, dir string) ([]track.Track, error) {
	srcCfgs := cfg.Sources
	if dir != "" {
		srcCfgs = []config.SourceConfig{{Type: "directory", Settings: map[string]any{"root": dir}}}
	}
	if len(srcCfgs) == 0 {
		srcCfgs = []config.SourceConfig{{Type: "directory", Settings: map[string]any{"root": "."}}}
	}

	chain, err := scan.NewChainFromConfig(srcCfgs, scan.MediaInspector{})
	if err != nil {
		return nil, err
	}
	return chain.Tracks(ctx)
}

// printKeys prints the active key bindings.
func printKeys(cfg *config.Config) error {
	keymap, err := input.NewKeymap(cfg.Keys)
	if err != nil {
		return err
	}
	fmt.Println("Key bindings:")
	for _, b := range keymap.Bindings() {
		fmt.Printf("  %s  %s\n", b.Token, b.Command)
	}
	return nil
}
