package config

// Config represents the persistent parley configuration stored as
// config.toml in the .parley/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	Relay   RelayConfig   `toml:"relay"`
	Client  ClientConfig  `toml:"client"`
	TTS     TTSConfig     `toml:"tts"`
}

// StorageConfig holds the local state database settings.
type StorageConfig struct {
	// StateDir overrides the BadgerDB directory. Empty means
	// .parley/state under the resolved dotdir.
	StateDir string `toml:"state_dir,omitempty"`
}

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Provider string `toml:"provider,omitempty"`
	Upstream string `toml:"upstream,omitempty"`
	Listen   string `toml:"listen,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// relay (e.g. parley chat, parley say). Values are full URLs.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// TTSConfig holds the speech-synthesis backend settings.
type TTSConfig struct {
	// Target is the synthesis endpoint URL. Empty disables the relay's
	// /api/tts route and auto-speak in the chat client.
	Target string `toml:"target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.state_dir": {
		get: func(c *Config) string { return c.Storage.StateDir },
		set: func(c *Config, v string) error { c.Storage.StateDir = v; return nil },
	},
	"relay.provider": {
		get: func(c *Config) string { return c.Relay.Provider },
		set: func(c *Config, v string) error { c.Relay.Provider = v; return nil },
	},
	"relay.upstream": {
		get: func(c *Config) string { return c.Relay.Upstream },
		set: func(c *Config, v string) error { c.Relay.Upstream = v; return nil },
	},
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error { c.Relay.Listen = v; return nil },
	},
	"relay.model": {
		get: func(c *Config) string { return c.Relay.Model },
		set: func(c *Config, v string) error { c.Relay.Model = v; return nil },
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"tts.target": {
		get: func(c *Config) string { return c.TTS.Target },
		set: func(c *Config, v string) error { c.TTS.Target = v; return nil },
	},
}
