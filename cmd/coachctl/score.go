package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/scoring"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// transcriptFile is the structured transcript format accepted by score.
// JSON files parse with the same decoder.
type transcriptFile struct {
	Mode     string              `yaml:"mode"`
	TurnS    int                 `yaml:"turn_s"`
	Messages []transcriptMessage `yaml:"messages"`
}

type transcriptMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

const scoreLong = `Scores a transcript with the same engine the server uses.

Files ending in .yaml, .yml or .json hold {mode, turn_s, messages: [{role, content}]}.
Anything else is read as plain user speech.`

func newScoreCmd() *cobra.Command {
	var (
		mode   string
		turnS  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "score <transcript>",
		Short: "Score a transcript file offline",
		Long:  scoreLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, args[0], mode, turnS, format)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "practice mode (overrides the file)")
	cmd.Flags().IntVar(&turnS, "turn-s", 0, "turn length in seconds (overrides the file)")
	cmd.Flags().StringVarP(&format, "format", "o", formatJSON, "output format: json or yaml")
	return cmd
}

func runScore(cmd *cobra.Command, path, mode string, turnS int, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	var tf transcriptFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return fmt.Errorf("parse transcript %s: %w", path, err)
		}
	default:
		tf.Messages = []transcriptMessage{{Role: string(domain.RoleUser), Content: string(data)}}
	}

	if mode != "" {
		tf.Mode = mode
	}
	if turnS > 0 {
		tf.TurnS = turnS
	}

	messages := make([]domain.Message, 0, len(tf.Messages))
	for _, m := range tf.Messages {
		messages = append(messages, domain.Message{Role: domain.Role(m.Role), Content: m.Content})
	}
	cfg := domain.SessionConfig{TurnSeconds: tf.TurnS}.WithDefaults()
	report := scoring.Analyze(messages, domain.ParseMode(tf.Mode), cfg)

	return encode(cmd.OutOrStdout(), format, report)
}
