package modelchain

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultEndpointTimeout = 20 * time.Second

// Endpoint describes one model service tier. Endpoints are tried in the
// order they are configured; adding or removing a fallback tier is a config
// change, not a code change.
type Endpoint struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type endpointsFile struct {
	Endpoints []endpointEntry `yaml:"endpoints"`
}

type endpointEntry struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	Timeout   string `yaml:"timeout"`
}

// LoadEndpoints reads the ordered endpoint chain from a YAML file. The
// first entry is the primary, the rest are fallbacks in priority order.
func LoadEndpoints(path string) ([]Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	var file endpointsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse endpoints file: %w", err)
	}
	if len(file.Endpoints) == 0 {
		return nil, fmt.Errorf("endpoints file %s lists no endpoints", path)
	}

	out := make([]Endpoint, 0, len(file.Endpoints))
	for i, entry := range file.Endpoints {
		endpoint, err := entry.toEndpoint(i)
		if err != nil {
			return nil, err
		}
		out = append(out, endpoint)
	}
	return out, nil
}

func (e endpointEntry) toEndpoint(index int) (Endpoint, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = fmt.Sprintf("endpoint-%d", index)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	if baseURL == "" {
		return Endpoint{}, fmt.Errorf("endpoint %s: base_url is required", name)
	}
	model := strings.TrimSpace(e.Model)
	if model == "" {
		return Endpoint{}, fmt.Errorf("endpoint %s: model is required", name)
	}

	apiKey := e.APIKey
	if e.APIKeyEnv != "" {
		apiKey = os.Getenv(e.APIKeyEnv)
	}

	timeout := defaultEndpointTimeout
	if strings.TrimSpace(e.Timeout) != "" {
		parsed, err := time.ParseDuration(e.Timeout)
		if err != nil {
			return Endpoint{}, fmt.Errorf("endpoint %s: parse timeout: %w", name, err)
		}
		if parsed > 0 {
			timeout = parsed
		}
	}

	return Endpoint{
		Name:    name,
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Timeout: timeout,
	}, nil
}
