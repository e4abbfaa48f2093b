package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner to stderr and logs the same facts.
func PrintBanner(config *Config, logger *Logger) {
	printBanner(os.Stderr, config)

	logger.Info().
		Str("version", Version).
		Str("commit", GitCommit).
		Str("environment", config.Environment).
		Str("storage_backend", config.Storage.Backend).
		Str("timezone", config.Ledger.Location().String()).
		Msg("fieldledger started")
}

func printBanner(w io.Writer, config *Config) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 60) + banner.ColorReset

	storage := config.Storage.SQLite.Path
	if config.Storage.Backend == "surrealdb" {
		storage = config.Storage.SurrealDB.Address
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
	fmt.Fprintf(w, "%s  FIELDLEDGER  ·  receivables, payables & reports%s\n\n", textColor, banner.ColorReset)
	for _, kv := range [][2]string{
		{"Version", GetFullVersion()},
		{"Environment", config.Environment},
		{"Listen", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)},
		{"Storage", config.Storage.Backend + " " + storage},
	} {
		fmt.Fprintf(w, "%s  %-14s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", hr)
}

// PrintShutdownBanner displays the shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	hr := banner.ColorCyan + strings.Repeat("═", 36) + banner.ColorReset
	fmt.Fprintf(os.Stderr, "\n%s\n%s  FIELDLEDGER - SHUTTING DOWN%s\n%s\n\n", hr, banner.ColorBold+banner.ColorWhite, banner.ColorReset, hr)
	logger.Info().Msg("fieldledger shutting down")
}
