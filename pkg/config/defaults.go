package config

// NewDefaultConfig returns a fully-populated Config with sane defaults:
// an OpenAI-compatible local model server, the relay on :8080, and no
// speech-synthesis backend.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Provider: "openai",
			Upstream: "http://localhost:11434",
			Listen:   ":8080",
			Model:    "gemma3:latest",
		},
		Client: ClientConfig{
			Target: "http://localhost:8080",
		},
	}
}
