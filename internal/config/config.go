// Package config provides YAML-based configuration loading for Timbre.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Timbre configuration, loaded from timbre.yaml.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`
	// AuthSecret may be left empty here and supplied at startup instead.
	AuthSecret string `yaml:"auth_secret"`
	Version    string `yaml:"version"`

	Callback CallbackConfig `yaml:"callback"`
	Storage  StorageConfig  `yaml:"storage"`
	Preview  PreviewConfig  `yaml:"preview"`
	Tools    ToolsConfig    `yaml:"tools"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Announce AnnounceConfig `yaml:"announce"`
}

// CallbackConfig holds the outcome-callback endpoint settings. An empty
// URL disables callbacks.
type CallbackConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig holds S3-compatible object storage settings.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UseSSL        bool   `yaml:"use_ssl"`
	ModelsBucket  string `yaml:"models_bucket"`
	PreviewBucket string `yaml:"preview_bucket"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// PreviewConfig controls the synthesized preview clip.
type PreviewConfig struct {
	Text     string `yaml:"text"`
	Language string `yaml:"language"`
}

// ToolsConfig names the external binaries the pipeline drives.
type ToolsConfig struct {
	FFmpegBin      string  `yaml:"ffmpeg_bin"`
	EncoderBin     string  `yaml:"encoder_bin"`
	EncoderTag     string  `yaml:"encoder_tag"`
	TTSBin         string  `yaml:"tts_bin"`
	MinClipSeconds float64 `yaml:"min_clip_seconds"`
}

// ArchiveConfig selects the terminal-outcome audit database.
type ArchiveConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// AnnounceConfig holds optional chat announcement settings.
type AnnounceConfig struct {
	Slack          ChatConfig `yaml:"slack"`
	Discord        ChatConfig `yaml:"discord"`
	DigestSchedule string     `yaml:"digest_schedule"`
}

// ChatConfig holds credentials for one chat platform. Both fields empty
// disables the platform.
type ChatConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// Enabled reports whether the platform is configured.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.Channel != ""
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8081"
	}
	if c.DataDir == "" {
		c.DataDir = "/data"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Callback.TimeoutSeconds == 0 {
		c.Callback.TimeoutSeconds = 10
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "ap-northeast-2"
	}
	if c.Storage.ModelsBucket == "" {
		c.Storage.ModelsBucket = "audion-models"
	}
	if c.Storage.PreviewBucket == "" {
		c.Storage.PreviewBucket = "audion-preview"
	}
	if c.Preview.Text == "" {
		c.Preview.Text = "안녕하세요, 오디온입니다. 이 목소리는 데모로 생성된 프리뷰입니다."
	}
	if c.Preview.Language == "" {
		c.Preview.Language = "ko"
	}
	if c.Tools.FFmpegBin == "" {
		c.Tools.FFmpegBin = "ffmpeg"
	}
	if c.Tools.EncoderTag == "" {
		c.Tools.EncoderTag = "spkrec-ecapa-voxceleb"
	}
	if c.Tools.MinClipSeconds == 0 {
		c.Tools.MinClipSeconds = 1.0
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = "sqlite"
	}
	if c.Archive.Driver == "sqlite" && c.Archive.Path == "" {
		c.Archive.Path = "timbre.db"
	}
	if c.Announce.DigestSchedule == "" {
		c.Announce.DigestSchedule = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Tools.EncoderBin == "" {
		errs = append(errs, "tools.encoder_bin is required")
	}
	if c.Tools.TTSBin == "" {
		errs = append(errs, "tools.tts_bin is required")
	}
	if c.Storage.Endpoint == "" {
		errs = append(errs, "storage.endpoint is required")
	}
	if c.Archive.Driver == "mysql" && c.Archive.DSN == "" {
		errs = append(errs, "archive.dsn is required for the mysql driver")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
