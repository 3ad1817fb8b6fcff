// Package main provides the entry point for the speech CLI application.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/localreader/speech/internal/audio"
	"github.com/localreader/speech/internal/cache"
	"github.com/localreader/speech/internal/config"
	"github.com/localreader/speech/internal/document"
	"github.com/localreader/speech/internal/player"
	"github.com/localreader/speech/internal/segment"
	"github.com/localreader/speech/internal/synth"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	voiceFlag  string
	speedFlag  float64
	pageFlag   int
	silent     bool
	debug      bool

	rootCmd = &cobra.Command{
		Use:              "speech [FILE]",
		Short:            "Read a text file aloud, with pacing",
		Long:             "\nRead a plain-text file aloud with natural pacing, caching every synthesized sentence along the way.",
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// sourceFromArg opens the text to read. "-" means stdin.
func sourceFromArg(arg string) (name string, r io.ReadCloser, err error) {
	if arg == "-" {
		return "stdin", io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(arg)
	if err != nil {
		return "", nil, fmt.Errorf("unable to open file: %w", err)
	}
	return filepath.Base(arg), f, nil
}

func validateOptions(*cobra.Command) error {
	debug = viper.GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if speedFlag < 0 {
		return fmt.Errorf("speed must be positive, got %v", speedFlag)
	}
	if pageFlag < 0 {
		return fmt.Errorf("page must not be negative, got %d", pageFlag)
	}
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return executeArg(cmd, args[0])
}

func executeArg(cmd *cobra.Command, arg string) error {
	name, r, err := sourceFromArg(arg)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck

	text, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read source: %w", err)
	}

	pages := document.PagesFromText(string(text))
	if len(pages) == 0 {
		return fmt.Errorf("%s contains no text", name)
	}
	doc := document.NewDocument(name, pages)
	doc.Transform = document.RepairArtifacts

	cfg, err := config.LoadFromViper()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("voice") {
		cfg.Voice = voiceFlag
	}
	if cmd.Flags().Changed("speed") {
		cfg.Speed = speedFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if pageFlag >= doc.PageCount() {
		return fmt.Errorf("page %d out of range, %s has %d pages", pageFlag, name, doc.PageCount())
	}

	return read(doc, cfg)
}

// read runs the playback pipeline against a loaded document until it
// finishes, fails, or is interrupted.
func read(doc *document.Document, cfg config.Config) error {
	logger := log.Default()

	cacheDir, err := cfg.CacheDir()
	if err != nil {
		return fmt.Errorf("unable to resolve cache directory: %w", err)
	}
	store, err := cache.Open(cacheDir, cache.Options{
		MaxBytes:         cfg.MaxCacheBytes(),
		MaxAge:           cfg.MaxCacheAge(),
		CompressionLevel: cfg.Cache.CompressionLevel,
	}, logger)
	if err != nil {
		return fmt.Errorf("unable to open audio cache: %w", err)
	}
	defer store.Close() //nolint:errcheck
	buffer := cache.NewBuffer(cfg.Playback.BufferUnits)

	engine := synth.NewMockEngine()
	defer engine.Close() //nolint:errcheck

	var out audio.Player
	if silent {
		out = audio.NewMockPlayer()
	} else {
		out, err = audio.NewOtoPlayer(engine.SampleRate())
		if err != nil {
			return fmt.Errorf("unable to open audio device: %w", err)
		}
	}
	defer out.Close() //nolint:errcheck

	ctl := player.NewController(doc, engine, store, buffer, out, player.Config{
		Voice:              cfg.Voice,
		Speed:              cfg.Speed,
		Pauses:             cfg.Pauses,
		PrefetchAhead:      cfg.Playback.PrefetchAhead,
		PurgeOnVoiceChange: cfg.Cache.PurgeOnVoiceChange,
	}, logger)
	defer ctl.Close() //nolint:errcheck

	// Each page is segmented once for read-along output. Pauses don't
	// change unit text, so the bare segmenter is enough here.
	segmenter := segment.NewSegmenter()
	segmented := map[int][]segment.Unit{}
	echo := func(pageIndex, unitIndex int) {
		units, ok := segmented[pageIndex]
		if !ok {
			text, _ := doc.PageText(doc.ID, pageIndex)
			units = segmenter.Segment(pageIndex, text)
			segmented[pageIndex] = units
		}
		if unitIndex < len(units) {
			fmt.Println(units[unitIndex].Text)
		}
	}

	done := make(chan struct{})
	var once sync.Once
	ctl.OnStateChange(func(s player.State) {
		if s == player.StateIdle {
			once.Do(func() { close(done) })
		}
	})
	ctl.OnUnitChange(echo)
	var readErr error
	ctl.OnError(func(err error) { readErr = err })

	if err := ctl.Load(doc.ID, pageFlag); err != nil {
		return err
	}
	logger.Info("Reading", "document", doc.ID, "pages", doc.PageCount(), "voice", cfg.Voice, "speed", cfg.Speed)
	if err := ctl.Play(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-done:
	case <-sig:
		logger.Info("Interrupted")
		_ = ctl.Stop()
	}

	bufStats, storeStats := ctl.CacheStats()
	logger.Debug("Cache totals",
		"durableSize", humanize.Bytes(uint64(storeStats.Size)), //nolint:gosec
		"durableHits", storeStats.Hits,
		"durableMisses", storeStats.Misses,
		"bufferHits", bufStats.Hits,
		"bufferMisses", bufStats.Misses,
	)
	return readErr
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available voices",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		engine := synth.NewMockEngine()
		defer engine.Close() //nolint:errcheck
		for _, v := range engine.Voices() {
			fmt.Printf("%-12s %-10s %s\n", v.ID, v.Name, synth.LanguageLabel(v.Language))
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&voiceFlag, "voice", "v", "", "voice to read with")
	rootCmd.Flags().Float64VarP(&speedFlag, "speed", "s", 0, "playback speed (0.5 to 3.0)")
	rootCmd.Flags().IntVarP(&pageFlag, "page", "p", 0, "page to start from")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "synthesize and cache without audio output")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "debug logging")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	config.SetDefaults()

	rootCmd.AddCommand(configCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "speech")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "speech")}, dirs...)
	}

	if c := os.Getenv("SPEECH_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("speech")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("speech")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}
	configFile = filepath.Join(dirs[0], "speech.yml")
}
