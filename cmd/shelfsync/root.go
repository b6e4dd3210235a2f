package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/shelfsync/pkg/calibre"
	"github.com/walteh/shelfsync/pkg/config"
	"github.com/walteh/shelfsync/pkg/host"
	"github.com/walteh/shelfsync/pkg/log"
	"github.com/walteh/shelfsync/pkg/sync"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	settingsFile string
	debug        bool
)

// newRootCmd builds the one command this tool has. The host invokes it with
// four positional arguments: library root, save directory, whether wifi is
// enabled, and whether the network is already up.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelfsync <library-root> <save-dir> <wifi-enabled> <online>",
		Short: "Sync books from a calibre content server into the local library",
		Long: `shelfsync walks the configured category of a calibre content server and
downloads every new or changed EPUB into the save directory, announcing each
one to the hosting document manager over the stdio protocol.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			libraryRoot := args[0]
			saveDir := args[1]
			wifi, err := strconv.ParseBool(args[2])
			if err != nil {
				return errors.Errorf("parsing wifi status %q: %w", args[2], err)
			}
			online, err := strconv.ParseBool(args[3])
			if err != nil {
				return errors.Errorf("parsing online status %q: %w", args[3], err)
			}

			settings, err := config.Load(ctx, settingsFile)
			if err != nil {
				return errors.Errorf("loading settings: %w", err)
			}

			channel := host.Stdio()
			logger := log.New(os.Stderr, channel, settings.Verbosity())
			server := calibre.New(&http.Client{}, settings.BaseURL, settings.Username, settings.Password)

			syncer, err := sync.New(sync.Options{
				Settings:    settings,
				Library:     sync.NewLibrary(server),
				Host:        channel,
				Logger:      logger,
				LibraryRoot: libraryRoot,
				SaveDir:     saveDir,
				Wifi:        wifi,
				Online:      online,
			})
			if err != nil {
				return errors.Errorf("creating syncer: %w", err)
			}

			return syncer.Run(ctx)
		},
	}

	addRootFlags(cmd)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&settingsFile, "settings", "s", "Settings.toml", "settings file path")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags. Stdout carries the host
// protocol, so the log stream is pinned to stderr.
func setupLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}
