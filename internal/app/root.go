// Package app wires the listeners command-line interface using Cobra.
// The default invocation prints one table of listening sockets; flags
// switch to JSON output or the interactive view.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/islameehassan/listeners"
	"github.com/islameehassan/listeners/internal/output"
	"github.com/islameehassan/listeners/internal/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	jsonOut bool
	tuiMode bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "listeners",
	Short: "Show processes listening on TCP ports",
	Long: `Listeners reports every TCP socket in the LISTEN state together with
the process holding it, read straight from the kernel tables rather
than parsed out of netstat or lsof.

Records the scan cannot attribute (usually for lack of privileges)
are still printed, with the process columns left blank.`,
	Version:      "dev",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if tuiMode {
			return tui.Start(cmd.Version)
		}

		slog.Debug("scanning kernel tcp tables")
		ls, err := listeners.GetAll()
		if err != nil {
			return err
		}
		slog.Debug("scan finished", "records", len(ls))

		sortRecords(ls)

		if jsonOut {
			s, err := output.ToJSON(ls)
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		}

		fmt.Print(output.RenderTable(ls, colorEnabled()))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersionInfo records build metadata injected through ldflags and
// exposes it through --version.
func SetVersionInfo(version, commit, date string) {
	if version == "" {
		version = "dev"
	}
	if commit != "" {
		version += " " + commit
	}
	if date != "" {
		version += " " + date
	}
	rootCmd.Version = version
}

func colorEnabled() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// sortRecords orders output by port, then family, then address. The
// scan itself promises no order; sorting is presentation only.
func sortRecords(ls []listeners.Listener) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].Port != ls[j].Port {
			return ls[i].Port < ls[j].Port
		}
		if ls[i].Version != ls[j].Version {
			return ls[i].Version < ls[j].Version
		}
		return ls[i].Addr.Compare(ls[j].Addr) < 0
	})
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print records as JSON")
	rootCmd.Flags().BoolVar(&tuiMode, "tui", false, "browse records interactively")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
}
