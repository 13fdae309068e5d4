package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/canopy/pkg/config"
	"github.com/vanderheijden86/canopy/pkg/loader"
)

// pickSource asks the user to choose among discovered record files. Tests
// replace it.
var pickSource = pickSourceInteractive

// resolveSource picks the records to load: --source flags first, then the
// configured sources, then discovery. When discovery finds several files an
// interactive session prompts for one; otherwise the choice is an error.
func resolveSource(o *options, cfg *config.Config, baseDir string, interactive bool) (loader.Source, error) {
	if len(o.sources) > 0 {
		sources := make([]loader.Source, 0, len(o.sources))
		for _, loc := range o.sources {
			src, err := loader.Open(loc)
			if err != nil {
				return nil, fmt.Errorf("--source %q: %w", loc, err)
			}
			sources = append(sources, src)
		}
		return loader.NewMultiSource(sources...), nil
	}

	if len(cfg.Sources) > 0 {
		return cfg.OpenSources(baseDir)
	}

	found := config.DiscoverSources(*cfg)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("no record files found under %s; pass --source or run 'cv init'",
			strings.Join(cfg.Discovery.ScanPaths, ", "))
	case 1:
		return found[0].Source(baseDir)
	}

	if !interactive {
		names := make([]string, len(found))
		for i, s := range found {
			names[i] = s.Location
		}
		return nil, fmt.Errorf("several record files found, pass one with --source:\n  %s",
			strings.Join(names, "\n  "))
	}

	chosen, err := pickSource(found)
	if err != nil {
		return nil, err
	}
	return chosen.Source(baseDir)
}

func pickSourceInteractive(found []config.SourceConfig) (config.SourceConfig, error) {
	options := make([]huh.Option[int], len(found))
	for i, s := range found {
		options[i] = huh.NewOption(fmt.Sprintf("%s  (%s)", s.GetName(), s.Location), i)
	}

	var choice int
	err := huh.NewSelect[int]().
		Title("Several record files found").
		Description("Choose the one to open").
		Options(options...).
		Value(&choice).
		Run()
	if err != nil {
		return config.SourceConfig{}, fmt.Errorf("choose source: %w", err)
	}
	return found[choice], nil
}
