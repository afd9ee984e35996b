package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/ashureev/commcoach/internal/progress"
	"github.com/ashureev/commcoach/internal/store"
	"github.com/spf13/cobra"
)

func defaultDBPath() string {
	if p := os.Getenv("DB_PATH"); p != "" {
		return p
	}
	return "./data/commcoach.db"
}

func newLeaderboardCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top users from a server database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd, dbPath, limit, format)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", defaultDBPath(), "path to the SQLite database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries (max 100)")
	cmd.Flags().StringVarP(&format, "format", "o", formatText, "output format: text, json or yaml")
	return cmd
}

func runLeaderboard(cmd *cobra.Command, dbPath string, limit int, format string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	ledger := progress.NewLedger(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	entries, err := ledger.Leaderboard(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != formatText {
		return encode(out, format, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No ranked users yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tUSER\tLEVEL\tXP\tSTREAK\tSESSIONS\tBADGES")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			i+1, e.UserID, e.Level, e.TotalXP, e.CurrentStreak, e.TotalSessions, e.BadgeCount)
	}
	return w.Flush()
}
