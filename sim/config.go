// Package sim hosts the tournament harness: configuration, the match
// scheduler and its worker pool, the reporter, the error logs and the
// SQLite match archive.
package sim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the parsed command line for one run.
type Config struct {
	ModeComparative bool
	ModeCompetition bool

	// Comparative mode inputs.
	GameMap            string
	GameManagersFolder string
	Algorithm1         string
	Algorithm2         string

	// Competition mode inputs.
	GameMapsFolder   string
	GameManagerPath  string
	AlgorithmsFolder string

	NumThreads int
	Verbose    bool
	Debug      bool

	// ResultsDB is the SQLite match archive path. Empty disables archiving.
	ResultsDB string
}

// Usage prints the CLI synopsis.
func Usage(w io.Writer, prog string) {
	fmt.Fprintf(w, `Usage:
  Comparative mode:
    %[1]s --comparative game_map=<file> game_managers_folder=<dir> \
      algorithm1=<so> algorithm2=<so> [num_threads=<n>] [results_db=<file>] [--verbose] [--debug]

  Competition mode:
    %[1]s --competition game_maps_folder=<dir> game_manager=<so> \
      algorithms_folder=<dir> [num_threads=<n>] [results_db=<file>] [--verbose] [--debug]
`, prog)
}

// ParseArgs parses the key=value argument list. It does not touch the
// filesystem; ValidatePaths does.
func ParseArgs(args []string) (Config, error) {
	cfg := Config{NumThreads: 1, ResultsDB: "tournament.db"}
	var unsupported []string

	for _, arg := range args {
		switch {
		case arg == "--comparative":
			cfg.ModeComparative = true
		case arg == "--competition":
			cfg.ModeCompetition = true
		case arg == "--verbose":
			cfg.Verbose = true
		case arg == "--debug":
			cfg.Debug = true
		case strings.HasPrefix(arg, "num_threads="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "num_threads="))
			if err != nil || n < 1 {
				return cfg, fmt.Errorf("invalid num_threads value in %q", arg)
			}
			cfg.NumThreads = n
		case strings.HasPrefix(arg, "game_map="):
			cfg.GameMap = strings.TrimPrefix(arg, "game_map=")
		case strings.HasPrefix(arg, "game_managers_folder="):
			cfg.GameManagersFolder = strings.TrimPrefix(arg, "game_managers_folder=")
		case strings.HasPrefix(arg, "algorithm1="):
			cfg.Algorithm1 = strings.TrimPrefix(arg, "algorithm1=")
		case strings.HasPrefix(arg, "algorithm2="):
			cfg.Algorithm2 = strings.TrimPrefix(arg, "algorithm2=")
		case strings.HasPrefix(arg, "game_maps_folder="):
			cfg.GameMapsFolder = strings.TrimPrefix(arg, "game_maps_folder=")
		case strings.HasPrefix(arg, "game_manager="):
			cfg.GameManagerPath = strings.TrimPrefix(arg, "game_manager=")
		case strings.HasPrefix(arg, "algorithms_folder="):
			cfg.AlgorithmsFolder = strings.TrimPrefix(arg, "algorithms_folder=")
		case strings.HasPrefix(arg, "results_db="):
			cfg.ResultsDB = strings.TrimPrefix(arg, "results_db=")
		default:
			unsupported = append(unsupported, arg)
		}
	}

	if len(unsupported) > 0 {
		return cfg, fmt.Errorf("unsupported arguments: %s", strings.Join(unsupported, " "))
	}
	if cfg.ModeComparative == cfg.ModeCompetition {
		return cfg, fmt.Errorf("must specify exactly one of --comparative or --competition")
	}

	var missing []string
	if cfg.ModeComparative {
		if cfg.GameMap == "" {
			missing = append(missing, "game_map")
		}
		if cfg.GameManagersFolder == "" {
			missing = append(missing, "game_managers_folder")
		}
		if cfg.Algorithm1 == "" {
			missing = append(missing, "algorithm1")
		}
		if cfg.Algorithm2 == "" {
			missing = append(missing, "algorithm2")
		}
	} else {
		if cfg.GameMapsFolder == "" {
			missing = append(missing, "game_maps_folder")
		}
		if cfg.GameManagerPath == "" {
			missing = append(missing, "game_manager")
		}
		if cfg.AlgorithmsFolder == "" {
			missing = append(missing, "algorithms_folder")
		}
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing arguments: %s", strings.Join(missing, " "))
	}
	return cfg, nil
}

// ValidatePaths checks that the configured files and folders exist and that
// plugin folders actually contain shared objects.
func (c *Config) ValidatePaths() error {
	if c.ModeComparative {
		if err := mustBeFile(c.GameMap, "game_map"); err != nil {
			return err
		}
		if err := mustBeDir(c.GameManagersFolder, "game_managers_folder"); err != nil {
			return err
		}
		if err := mustBeFile(c.Algorithm1, "algorithm1"); err != nil {
			return err
		}
		if err := mustBeFile(c.Algorithm2, "algorithm2"); err != nil {
			return err
		}
		return mustContainPlugins(c.GameManagersFolder, "game_managers_folder")
	}
	if err := mustBeDir(c.GameMapsFolder, "game_maps_folder"); err != nil {
		return err
	}
	if err := mustBeFile(c.GameManagerPath, "game_manager"); err != nil {
		return err
	}
	if err := mustBeDir(c.AlgorithmsFolder, "algorithms_folder"); err != nil {
		return err
	}
	return mustContainPlugins(c.AlgorithmsFolder, "algorithms_folder")
}

func mustBeFile(path, name string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%s is not a file: %s", name, path)
	}
	return nil
}

func mustBeDir(path, name string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %s", name, path)
	}
	return nil
}

func mustContainPlugins(dir, name string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%s cannot be read: %s", name, dir)
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".so" {
			return nil
		}
	}
	return fmt.Errorf("%s contains no .so files: %s", name, dir)
}
