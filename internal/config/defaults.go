package config

import (
	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/summarize"
)

const defaultModelName = "default"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if len(cfg.Models) == 0 {
		cfg.Models = []ModelConfig{{Name: defaultModelName, Model: "gpt-5-mini"}}
	}
	for i := range cfg.Models {
		if cfg.Models[i].APIKeyEnv == "" {
			cfg.Models[i].APIKeyEnv = "OPENAI_API_KEY"
		}
	}

	first := cfg.Models[0].Name
	if len(cfg.Roles.Drafters) == 0 {
		cfg.Roles.Drafters = []string{first, first, first}
	}
	if cfg.Roles.Aggregator == "" {
		cfg.Roles.Aggregator = first
	}
	if cfg.Roles.Verifier == "" {
		cfg.Roles.Verifier = first
	}
	if cfg.Roles.Default == "" {
		cfg.Roles.Default = first
	}

	opts := summarize.DefaultOptions()
	if cfg.Pipeline.PagesPerChunk == 0 {
		cfg.Pipeline.PagesPerChunk = opts.PagesPerChunk
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = opts.BatchSize
	}
	if cfg.Pipeline.Window == nil {
		w := opts.Window
		cfg.Pipeline.Window = &w
	}
	if cfg.Pipeline.MemorySamplePages == 0 {
		cfg.Pipeline.MemorySamplePages = opts.MemorySamplePages
	}
	if cfg.Pipeline.MemoryChunkPages == 0 {
		cfg.Pipeline.MemoryChunkPages = opts.MemoryChunkPages
	}
	if cfg.Pipeline.BlockedNames == nil {
		cfg.Pipeline.BlockedNames = append([]string(nil), opts.BlockedNames...)
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = opts.Workers
	}

	if cfg.Timeline.ValidationPolicy == "" {
		cfg.Timeline.ValidationPolicy = "placeholder"
	}

	limits := llm.DefaultLimits()
	if cfg.Limits.TokensPerSecond == 0 {
		cfg.Limits.TokensPerSecond = limits.TokensPerSecond
	}
	if cfg.Limits.Burst == 0 {
		cfg.Limits.Burst = limits.Burst
	}
	if cfg.Limits.MaxInFlight == 0 {
		cfg.Limits.MaxInFlight = limits.MaxInFlight
	}
	if cfg.Limits.CallTimeout == 0 {
		cfg.Limits.CallTimeout = limits.CallTimeout
	}
	if cfg.Limits.MaxRetries == nil {
		n := limits.MaxRetries
		cfg.Limits.MaxRetries = &n
	}
	if cfg.Limits.BaseRetryDelay == 0 {
		cfg.Limits.BaseRetryDelay = limits.BaseRetryDelay
	}
	if cfg.Limits.MaxRetryDelay == 0 {
		cfg.Limits.MaxRetryDelay = limits.MaxRetryDelay
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".casebrief/casebrief.db"
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".json", ".pdf"}
	}
	if cfg.Watch.Kind == "" {
		cfg.Watch.Kind = "brief"
	}
	if cfg.Watch.OutputDir == "" {
		cfg.Watch.OutputDir = ".casebrief/output"
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
