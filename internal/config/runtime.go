package config

import (
	"fmt"
	"os"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/summarize"
	"github.com/Epistemic-Technology/casebrief/internal/timeline"
)

// SummarizeOptions converts the pipeline section.
func (c *Config) SummarizeOptions() summarize.Options {
	p := c.Pipeline
	opts := summarize.Options{
		PagesPerChunk:     p.PagesPerChunk,
		BatchSize:         p.BatchSize,
		MemorySamplePages: p.MemorySamplePages,
		MemoryChunkPages:  p.MemoryChunkPages,
		LeafFailureLimit:  p.LeafFailureLimit,
		BlockedNames:      p.BlockedNames,
		Workers:           p.Workers,
	}
	if p.Window != nil {
		opts.Window = *p.Window
	}
	return opts
}

// LLMLimits converts the limits section.
func (c *Config) LLMLimits() llm.Limits {
	l := llm.Limits{
		TokensPerSecond: c.Limits.TokensPerSecond,
		Burst:           c.Limits.Burst,
		MaxInFlight:     c.Limits.MaxInFlight,
		CallTimeout:     c.Limits.CallTimeout,
		BaseRetryDelay:  c.Limits.BaseRetryDelay,
		MaxRetryDelay:   c.Limits.MaxRetryDelay,
	}
	if c.Limits.MaxRetries != nil {
		l.MaxRetries = *c.Limits.MaxRetries
	}
	return l
}

func (c *Config) TimelinePolicy() timeline.ValidationPolicy {
	return timeline.ParsePolicy(c.Timeline.ValidationPolicy)
}

// ModelFactory builds the backend for one configured model.
type ModelFactory func(m ModelConfig, apiKey string) llm.Model

// OpenAIFactory builds OpenAI Responses API models.
func OpenAIFactory(m ModelConfig, apiKey string) llm.Model {
	return llm.NewOpenAIModel(apiKey, m.Model, m.BaseURL)
}

// BuildPanel creates one rate-limited client per configured model, all
// sharing gate, and assigns them to roles.
func (c *Config) BuildPanel(gate *llm.Gate, factory ModelFactory, log logger.Logger) (llm.Panel, error) {
	clients := make(map[string]llm.Model, len(c.Models))
	for _, m := range c.Models {
		apiKey := os.Getenv(m.APIKeyEnv)
		if apiKey == "" {
			return llm.Panel{}, fmt.Errorf("%s environment variable not set for model %q", m.APIKeyEnv, m.Name)
		}
		clients[m.Name] = llm.NewClient(m.Name, factory(m, apiKey), gate, log.With(m.Name))
	}

	lookup := func(name string) (llm.Model, error) {
		client, ok := clients[name]
		if !ok {
			return nil, fmt.Errorf("role refers to unknown model %q", name)
		}
		return client, nil
	}

	var panel llm.Panel
	for _, name := range c.Roles.Drafters {
		client, err := lookup(name)
		if err != nil {
			return llm.Panel{}, err
		}
		panel.Drafters = append(panel.Drafters, client)
	}
	var err error
	if panel.Aggregator, err = lookup(c.Roles.Aggregator); err != nil {
		return llm.Panel{}, err
	}
	if panel.Verifier, err = lookup(c.Roles.Verifier); err != nil {
		return llm.Panel{}, err
	}
	if panel.Default, err = lookup(c.Roles.Default); err != nil {
		return llm.Panel{}, err
	}
	return panel, panel.Validate()
}
