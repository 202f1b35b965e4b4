package commands

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/solargraph-ai/solarbridge/internal/config"
)

var statusDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective configuration and server binary resolution",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDir, "directory", "", "Working directory")
}

func runStatus(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(statusDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	fmt.Printf("command:         %s\n", cfg.Command)
	fmt.Printf("args:            %v\n", cfg.Args)
	fmt.Printf("host:            %s\n", cfg.Host)
	fmt.Printf("startup timeout: %s\n", cfg.StartupTimeout())
	fmt.Printf("markers:         %v\n", cfg.Markers)

	if path, err := exec.LookPath(cfg.Command); err == nil {
		fmt.Printf("binary:          %s\n", path)
	} else {
		fmt.Printf("binary:          NOT FOUND (%v)\n", err)
	}

	if cfg.Server != nil {
		fmt.Printf("api:             http://%s:%d/\n", cfg.Server.Hostname, cfg.Server.Port)
	}
	return nil
}
