package bot

import (
	"embed"
	"fmt"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/ai"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// Domain IDs selected by bot personality.
const (
	DomainCautious   = "cautious"
	DomainAggressive = "aggressive"
)

// ScriptScope is the scripting VM that holds bot preconditions.
const ScriptScope = "bots"

//go:embed content
var content embed.FS

// LoadPlanners loads bot preconditions into mgr and registers a planner per
// domain. Empty directories in cfg select the embedded defaults.
//
// Precondition: mgr must be non-nil.
// Postcondition: the returned registry falls back to the cautious domain.
func LoadPlanners(mgr *scripting.Manager, cfg config.BotsConfig) (*ai.Registry, error) {
	var err error
	if cfg.ScriptDir != "" {
		err = mgr.LoadDir(ScriptScope, cfg.ScriptDir, cfg.InstructionLimit)
	} else {
		err = mgr.LoadFS(ScriptScope, content, "content/scripts", cfg.InstructionLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("bot: loading scripts: %w", err)
	}

	var domains []*ai.Domain
	if cfg.DomainDir != "" {
		domains, err = ai.LoadDomains(cfg.DomainDir)
	} else {
		domains, err = ai.LoadDomainsFS(content, "content/domains")
	}
	if err != nil {
		return nil, fmt.Errorf("bot: loading domains: %w", err)
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("bot: no domains in %q", cfg.DomainDir)
	}

	reg := ai.NewRegistry(DomainCautious)
	if err := reg.Register(mgr, ScriptScope, domains...); err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}
	return reg, nil
}
