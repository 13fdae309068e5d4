package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/canopy/pkg/config"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write .cv/config.yaml listing the record files found here",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			path, err := initConfig(cwd, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")
	return cmd
}

// initConfig writes the default configuration for projectDir with every
// discovered record file as a source. Locations are stored relative to
// projectDir.
func initConfig(projectDir string, force bool) (string, error) {
	path := filepath.Join(config.Dir(projectDir), config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	cfg := config.Defaults()
	cfg.Discovery.ScanPaths = []string{projectDir}
	for _, s := range config.DiscoverSources(cfg) {
		if rel, err := filepath.Rel(projectDir, s.Location); err == nil && !strings.HasPrefix(rel, "..") {
			s.Location = rel
		}
		cfg.Sources = append(cfg.Sources, s)
	}
	cfg.Discovery.ScanPaths = nil

	if err := cfg.Save(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	if strings.TrimSpace(os.Getenv(config.DirEnv)) == "" {
		if err := config.EnsureIgnored(projectDir); err != nil {
			return "", fmt.Errorf("update .gitignore: %w", err)
		}
	}
	return path, nil
}
