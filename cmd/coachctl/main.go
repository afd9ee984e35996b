// coachctl is the operator CLI for the practice server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "coachctl",
		Short:        "commcoach operator tools",
		Long:         "coachctl scores transcripts offline and inspects a commcoach server's data and health.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScoreCmd())
	cmd.AddCommand(newPersonasCmd())
	cmd.AddCommand(newLeaderboardCmd())
	cmd.AddCommand(newHealthCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coachctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// encode writes v as JSON or YAML.
func encode(out io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (want %s or %s)", format, formatJSON, formatYAML)
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
