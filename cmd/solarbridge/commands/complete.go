package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solargraph-ai/solarbridge/internal/complete"
	"github.com/solargraph-ai/solarbridge/internal/config"
	"github.com/solargraph-ai/solarbridge/internal/event"
	"github.com/solargraph-ai/solarbridge/internal/shutdown"
	"github.com/solargraph-ai/solarbridge/internal/supervisor"
	"github.com/solargraph-ai/solarbridge/internal/workspace"
)

var (
	completeLine   int
	completeColumn int
	completeStdin  bool
)

var completeCmd = &cobra.Command{
	Use:   "complete FILE",
	Short: "One-shot completion at a cursor position",
	Long: `Spawn solargraph, request completion candidates for the given file and
cursor position, print them as JSON and shut the server down again.

With --stdin the buffer text is read from standard input instead of the
file, which lets editors pass unsaved changes; FILE is still used for
workspace resolution. A negative --column means "end of line".`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().IntVar(&completeLine, "line", 0, "Zero-based cursor line")
	completeCmd.Flags().IntVar(&completeColumn, "column", -1, "Completion-start column")
	completeCmd.Flags().BoolVar(&completeStdin, "stdin", false, "Read buffer text from stdin")
}

func runComplete(cmd *cobra.Command, args []string) error {
	filePath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	var text string
	if completeStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = string(data)
	} else {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		text = string(data)
	}

	lines := strings.Split(text, "\n")
	if completeLine < 0 || completeLine >= len(lines) {
		return fmt.Errorf("line %d out of range (file has %d lines)", completeLine, len(lines))
	}

	column := completeColumn
	if column < 0 {
		current := lines[completeLine]
		column = complete.CompletePosition(current)
		if column == complete.NoCompletion {
			column = len(current)
		}
	}

	cfg, err := config.Load(filepath.Dir(filePath))
	if err != nil {
		return err
	}

	bus := event.NewBus()
	defer bus.Close()

	coordinator := shutdown.New()
	coordinator.Start()

	sup := supervisor.New(supervisor.Config{
		Command:        cfg.Command,
		Args:           cfg.Args,
		Host:           cfg.Host,
		StartupTimeout: cfg.StartupTimeout(),
		WaitReady:      cfg.WaitReady,
	}, bus, coordinator)
	defer sup.Close()

	orch := complete.New(sup, workspace.NewResolver(cfg.Markers), nil, bus)

	candidates := orch.GatherCandidates(cmd.Context(), text, completeLine, column, filePath)

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(map[string]any{
		"line":       completeLine,
		"column":     column,
		"candidates": candidates,
	})
}
