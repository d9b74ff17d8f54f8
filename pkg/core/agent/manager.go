// Package agent routes named agent tasks to an LLM provider.
package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fin_dashboard/pkg/core/llm"
	"fin_dashboard/pkg/core/logging"
)

// ComparisonSummary is the agent type that narrates a comparison result.
const ComparisonSummary = "comparison_summary"

// Config is the `llm:` section of the application config.
type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string  `yaml:"provider"` // optional override
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Description string  `yaml:"description"`
}

type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
}

func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"gemini":        &llm.GeminiProvider{},
			"gemini_legacy": &llm.GeminiLegacyProvider{},
			"deepseek":      &llm.DeepSeekProvider{},
		},
	}
}

// Register adds or replaces a provider under name.
func (m *Manager) Register(name string, p llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
}

// GetProvider resolves the provider for agentType: the agent's own override
// first, then the active provider. It returns nil when neither is registered.
func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ac, ok := m.config.Agents[agentType]; ok && ac.Provider != "" {
		if p, ok := m.providers[ac.Provider]; ok {
			return p
		}
	}
	return m.providers[m.config.ActiveProvider]
}

// ProviderName reports which registered name GetProvider would pick.
func (m *Manager) ProviderName(agentType string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ac, ok := m.config.Agents[agentType]; ok && ac.Provider != "" {
		if _, ok := m.providers[ac.Provider]; ok {
			return ac.Provider
		}
	}
	return m.config.ActiveProvider
}

// Execute adapts the system prompt for the resolved provider and runs it.
// Per-agent model and temperature settings fill in options the caller left
// unset.
func (m *Manager) Execute(ctx context.Context, agentType, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(agentType)
	if provider == nil {
		return "", fmt.Errorf("agent %s: no provider registered for %q", agentType, m.ProviderName(agentType))
	}

	merged := make(map[string]interface{}, len(options)+2)
	m.mu.RLock()
	if ac, ok := m.config.Agents[agentType]; ok {
		if ac.Model != "" {
			merged[llm.OptModel] = ac.Model
		}
		if ac.Temperature != 0 {
			merged[llm.OptTemperature] = ac.Temperature
		}
	}
	m.mu.RUnlock()
	for k, v := range options {
		merged[k] = v
	}

	logging.Component("agent").Debug().Str("agent", agentType).Str("provider", m.ProviderName(agentType)).Msg("execute")

	return provider.GenerateResponse(ctx, prompt, provider.AdaptInstructions(systemPrompt), merged)
}

func (m *Manager) SetGlobalProvider(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	m.config.ActiveProvider = name
	logging.Component("agent").Info().Str("provider", name).Msg("global provider set")
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Providers lists registered provider names in sorted order.
func (m *Manager) Providers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for k := range m.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
