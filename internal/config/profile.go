package config

// Profile holds server-specific configuration for a single platform
// deployment. This allows collecting from several deployments without
// repeating credentials on the command line.
type Profile struct {
	// URL is the base URL of the platform, e.g. "https://example.net".
	URL string `yaml:"url"`

	// Username is the account used for the login handshake.
	Username string `yaml:"username,omitempty"`

	// Password is the account password.
	Password string `yaml:"password,omitempty"`

	// Insecure disables TLS certificate verification for this server.
	Insecure bool `yaml:"insecure,omitempty"`

	// Headers are extra HTTP headers to include in requests to this server.
	Headers map[string]string `yaml:"headers,omitempty"`

	// BatchSize overrides the global page size for this server.
	// If zero, the global BatchSize is used.
	BatchSize int `yaml:"batchSize,omitempty"`

	// MaxHashes overrides the global collection target for this server.
	// If zero, the global MaxHashes is used.
	MaxHashes int `yaml:"maxHashes,omitempty"`
}

// File represents the structure of the .hashharvest configuration file.
type File struct {
	// Servers maps profile names to their server configurations.
	Servers map[string]Profile `yaml:"servers,omitempty"`

	// Defaults contains default profile settings applied to all servers
	// unless overridden in the server-specific profile.
	Defaults Profile `yaml:"defaults,omitempty"`
}

// GetProfile returns the configuration for a named server profile.
// It merges the server-specific profile with defaults. The boolean
// reports whether the profile exists.
func (cf *File) GetProfile(name string) (Profile, bool) {
	override, ok := cf.Servers[name]
	if !ok {
		return Profile{}, false
	}
	return mergeProfile(cf.Defaults, override), true
}

// mergeProfile merges a default profile with server-specific overrides.
// Non-zero override values win.
func mergeProfile(defaults, override Profile) Profile {
	result := defaults

	if override.URL != "" {
		result.URL = override.URL
	}
	if override.Username != "" {
		result.Username = override.Username
	}
	if override.Password != "" {
		result.Password = override.Password
	}
	if override.Insecure {
		result.Insecure = true
	}
	if override.BatchSize > 0 {
		result.BatchSize = override.BatchSize
	}
	if override.MaxHashes > 0 {
		result.MaxHashes = override.MaxHashes
	}
	if len(override.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range override.Headers {
			result.Headers[k] = v
		}
	}

	return result
}
