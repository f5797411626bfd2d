package source

import (
	"encoding/json"
	"fmt"

	"jobsync/internal/logger"
)

// Known lists every adapter the registry can build
var Known = []string{"reliefweb", "unjobs", "devjobs", "adzuna", "remotive", "jsearch"}

// RegistryConfig selects and configures the adapters to build
type RegistryConfig struct {
	Enabled    map[string]bool
	IDStrategy IDStrategy

	ReliefWeb ReliefWebConfig
	UNJobs    UNJobsConfig
	DevJobs   DevJobsConfig
	Adzuna    AdzunaConfig
	Remotive  RemotiveConfig
	JSearch   JSearchConfig
}

// NewRegistry builds every enabled source. An enabled source that cannot be
// configured (missing credentials) is an error.
func NewRegistry(cfg RegistryConfig, fetcher *Fetcher, log logger.Logger) ([]Source, error) {
	var sources []Source

	if cfg.Enabled["reliefweb"] {
		a, err := NewReliefWeb(cfg.ReliefWeb, fetcher, log)
		if err != nil {
			return nil, fmt.Errorf("failed to configure reliefweb: %w", err)
		}
		sources = append(sources, Bind[ReliefWebItem](a, log))
	}

	if cfg.Enabled["unjobs"] {
		unCfg := cfg.UNJobs
		if unCfg.IDStrategy == "" {
			unCfg.IDStrategy = cfg.IDStrategy
		}
		a, err := NewUNJobs(unCfg, fetcher, log)
		if err != nil {
			return nil, fmt.Errorf("failed to configure unjobs: %w", err)
		}
		sources = append(sources, Bind[ScrapedListing](a, log))
	}

	if cfg.Enabled["devjobs"] {
		devCfg := cfg.DevJobs
		if devCfg.IDStrategy == "" {
			devCfg.IDStrategy = cfg.IDStrategy
		}
		a, err := NewDevJobs(devCfg, fetcher, log)
		if err != nil {
			return nil, fmt.Errorf("failed to configure devjobs: %w", err)
		}
		sources = append(sources, Bind[ScrapedListing](a, log))
	}

	if cfg.Enabled["adzuna"] {
		a, err := NewAdzuna(cfg.Adzuna, fetcher, log)
		if err != nil {
			return nil, fmt.Errorf("failed to configure adzuna: %w", err)
		}
		sources = append(sources, Bind[json.RawMessage](a, log))
	}

	if cfg.Enabled["remotive"] {
		a, err := NewRemotive(cfg.Remotive, fetcher, log)
		if err != nil {
			return nil, fmt.Errorf("failed to configure remotive: %w", err)
		}
		sources = append(sources, Bind[json.RawMessage](a, log))
	}

	if cfg.Enabled["jsearch"] {
		a, err := NewJSearch(cfg.JSearch, fetcher, log)
		if err != nil {
			return nil, fmt.Errorf("failed to configure jsearch: %w", err)
		}
		sources = append(sources, Bind[json.RawMessage](a, log))
	}

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	log.Info("sources registered", logger.Any("sources", names))

	return sources, nil
}
