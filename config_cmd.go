package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `speech:
  # voice to read with (run "speech voices" for the full list)
  voice: "af_bella"
  # playback speed, 0.5 to 3.0
  speed: 1.0

  # Pause lengths in milliseconds, inserted after the unit they follow.
  pauses:
    comma: 300
    period: 600
    question: 600
    exclamation: 600
    colon: 400
    semicolon: 400
    newline: 800
    soft_pause: 300
    speaker_change: 400
    action_beat: 100
    chapter_transition: 1000

  # Durable audio cache
  cache:
    # dir: "/path/to/cache"
    max_size_mb: 200
    max_age_days: 7
    # zstd level for stored audio, 0 disables compression
    compression_level: 3
    # recent entries dropped when the voice changes
    purge_on_voice_change: 20

  playback:
    # decoded units held in memory
    buffer_units: 10
    # units synthesized ahead of the playhead
    prefetch_ahead: 2
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the speech config file",
	Long:    "\nEdit the speech config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "speech config\nspeech config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		ed := os.Getenv("EDITOR")
		if ed == "" {
			fmt.Println("Config file is at:", configFile)
			return nil
		}
		c := exec.Command(ed, configFile) //nolint:gosec
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run editor: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
