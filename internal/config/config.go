package config

import "fmt"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Provider  ProviderConfig  `yaml:"provider"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Files     FilesConfig     `yaml:"files"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type PathsConfig struct {
	ProjectRoot string   `yaml:"project_root"`
	Output      string   `yaml:"output"`
	ExtraBins   []string `yaml:"extra_bins"`
}

type ExtractorConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Model      string `yaml:"model"`
	Device     string `yaml:"device"`
	Prompt     string `yaml:"prompt"`
}

type ProviderConfig struct {
	Name   string `yaml:"name"`
	APIKey string `yaml:"api_key"`
	Proxy  string `yaml:"proxy"`
}

type TerminalConfig struct {
	Shell string `yaml:"shell"`
}

type FilesConfig struct {
	Extensions []string `yaml:"extensions"`
	WatchDepth int      `yaml:"watch_depth"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:43117"
	}
	if c.Paths.ProjectRoot == "" {
		c.Paths.ProjectRoot = "."
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Extractor.BinaryPath == "" {
		c.Extractor.BinaryPath = "yt-comprehend"
	}
	if c.Extractor.Device == "" {
		c.Extractor.Device = "auto"
	}
	if len(c.Files.Extensions) == 0 {
		c.Files.Extensions = []string{".md", ".txt", ".json", ".srt"}
	}
	if c.Files.WatchDepth == 0 {
		c.Files.WatchDepth = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	switch c.Provider.Name {
	case "", "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("provider.name %q is not supported", c.Provider.Name)
	}

	return nil
}
