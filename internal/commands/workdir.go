package commands

import (
	"fmt"
	"path/filepath"

	"github.com/tvabook-dev/tvabook/internal/config"
	"github.com/tvabook-dev/tvabook/internal/rules"
)

// loadWorkdir resolves a working directory and loads its config and
// ruleset.
func loadWorkdir(dir string) (string, *config.Config, *rules.Store, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(absDir, config.FileName))
	if err != nil {
		return "", nil, nil, err
	}

	store := rules.NewStore(cfg.RulesFile)
	if err := store.Load(); err != nil {
		return "", nil, nil, err
	}

	return absDir, cfg, store, nil
}
