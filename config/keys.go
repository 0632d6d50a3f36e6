package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Get returns a configuration value by dotted key, e.g. "git.enabled" or
// "providers.openai.model".
func (c *Config) Get(key string) (any, error) {
	switch key {
	case "git.enabled":
		return c.GitEnabled(), nil
	case "ai.default_provider":
		return c.AI.DefaultProvider, nil
	case "analysis.language":
		return c.Analysis.Language, nil
	case "analysis.command":
		return strings.Join(c.Analysis.Command, " "), nil
	}

	if name, field, ok := providerKey(key); ok {
		p, exists := c.AI.Providers[name]
		if !exists {
			return nil, fmt.Errorf("unknown provider: %s", name)
		}
		switch field {
		case "model":
			return p.Model, nil
		case "api_key":
			return p.APIKey, nil
		case "base_url":
			return p.BaseURL, nil
		}
	}

	return nil, fmt.Errorf("unknown config key: %s", key)
}

// Set assigns a configuration value by dotted key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "git.enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("git.enabled must be true or false, got %q", value)
		}
		c.Git.Enabled = &enabled
		return nil
	case "ai.default_provider":
		c.AI.DefaultProvider = value
		return nil
	case "analysis.language":
		c.Analysis.Language = value
		return nil
	case "analysis.command":
		c.Analysis.Command = strings.Fields(value)
		return nil
	}

	if name, field, ok := providerKey(key); ok {
		if c.AI.Providers == nil {
			c.AI.Providers = map[string]ProviderConfig{}
		}
		p := c.AI.Providers[name]
		switch field {
		case "model":
			p.Model = value
		case "api_key":
			p.APIKey = value
		case "base_url":
			p.BaseURL = value
		default:
			return fmt.Errorf("unknown provider field: %s", field)
		}
		c.AI.Providers[name] = p
		return nil
	}

	return fmt.Errorf("unknown config key: %s", key)
}

// providerKey splits "providers.<name>.<field>" keys.
func providerKey(key string) (name, field string, ok bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "providers" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
