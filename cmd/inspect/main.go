// Command inspect dumps chat-gate records from a badger directory, or serves
// the same view over HTTP with --serve. The database is opened read-only so it
// can run next to a live server.
package main

import (
	"chat-gate/internal"
	"chat-gate/repositories"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	defaultPath := os.Getenv("BADGER_FILEPATH")
	if defaultPath == "" {
		defaultPath = database.DefaultPath
	}
	dbPath := pflag.String("db", defaultPath, "Path to badger DB")
	prefix := pflag.StringP("prefix", "p", "", "Key prefix to scan, every family when empty")
	limit := pflag.IntP("limit", "n", internal.MaxInspectRows, "Maximum rows per family")
	serve := pflag.Int("serve", 0, "Serve the inspect page on this port instead of printing")
	pflag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", *dbPath, err)
	}
	defer db.Close()

	if *serve > 0 {
		log := logs.GetLoggerFromLevel(slog.LevelInfo)
		address := fmt.Sprintf("localhost:%d", *serve)
		color.Info.Printf("http://%s/inspect\n", address)
		srv := &http.Server{
			Addr:              address,
			Handler:           internal.NewDebugMux(db, repositories.Prefixes, nil, nil, log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return srv.ListenAndServe()
	}

	prefixes := repositories.Prefixes
	if *prefix != "" {
		prefixes = []string{*prefix}
	}
	for _, p := range prefixes {
		rows, truncated, err := internal.Scan(db, p, *limit, internal.DefaultMapper)
		if err != nil {
			return fmt.Errorf("scan %s: %w", p, err)
		}
		if len(rows) == 0 && *prefix == "" {
			continue
		}
		render(p, rows, truncated)
	}
	return nil
}

func render(prefix string, rows []internal.InspectRow, truncated bool) {
	color.New(color.BgBlack, color.FgGreen).Printf("  ====== %s (%d) ======  \n", strings.TrimSuffix(prefix, ":"), len(rows))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Time", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, row := range rows {
		table.Append([]string{row.Key, row.Timestamp, row.EntityID, row.Detail})
	}
	table.Render()

	if truncated {
		color.Warn.Println("  more records not shown, raise --limit")
	}
	fmt.Println()
}
