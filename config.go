package exhandler

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings which can come from files, the environment or
// flags. Use LoadConfig to read it and Apply to transfer it to a builder.
type Config struct {
	// DefaultContentType is used when the client's `Accept` header is empty
	// or cannot be satisfied.
	DefaultContentType string `mapstructure:"default_content_type"`

	// WithDefaultHandlers registers the built-in handlers.
	WithDefaultHandlers bool `mapstructure:"with_default_handlers"`

	// WithDefaultMessages chains the bundled messages behind MessagesFile.
	WithDefaultMessages bool `mapstructure:"with_default_messages"`

	// Unmatched is `skip` or `internal-error`.
	Unmatched string `mapstructure:"unmatched"`

	UnwrapCauses   bool `mapstructure:"unwrap_causes"`
	QualifiedNames bool `mapstructure:"qualified_names"`
	VerboseLogging bool `mapstructure:"verbose_logging"`

	// MessagesFile is an optional YAML message catalog, see LoadCatalog.
	MessagesFile string `mapstructure:"messages_file"`
}

// SetConfigDefaults registers the default values of every Config key with
// v, which also makes the keys visible to `AutomaticEnv`.
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("default_content_type", DefaultContentType)
	v.SetDefault("with_default_handlers", true)
	v.SetDefault("with_default_messages", true)
	v.SetDefault("unmatched", UnmatchedSkip.String())
	v.SetDefault("unwrap_causes", false)
	v.SetDefault("qualified_names", true)
	v.SetDefault("verbose_logging", false)
	v.SetDefault("messages_file", "")
}

// LoadConfig reads the configuration from v, filling in defaults for keys
// it does not have.
//
//	v := viper.New()
//	v.SetConfigFile("problems.yaml")
//	_ = v.ReadInConfig()
//	cfg, err := exhandler.LoadConfig(v)
func LoadConfig(v *viper.Viper) (Config, error) {
	SetConfigDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}
	if _, err := ParseUnmatchedPolicy(cfg.Unmatched); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Apply transfers the configuration to the builder.
func (c Config) Apply(b *Builder) error {
	policy, err := ParseUnmatchedPolicy(c.Unmatched)
	if err != nil {
		return err
	}

	if c.MessagesFile != "" {
		catalog, err := LoadCatalogFile(c.MessagesFile)
		if err != nil {
			return fmt.Errorf("unable to load messages: %w", err)
		}
		b.MessageSource(catalog)
	}

	b.DefaultContentType(c.DefaultContentType).
		WithDefaultHandlers(c.WithDefaultHandlers).
		WithDefaultMessages(c.WithDefaultMessages).
		Unmatched(policy).
		UnwrapCauses(c.UnwrapCauses).
		QualifiedNames(c.QualifiedNames).
		VerboseLogging(c.VerboseLogging)
	return nil
}

// ParseUnmatchedPolicy parses the name of an UnmatchedPolicy. An empty name
// selects UnmatchedSkip.
func ParseUnmatchedPolicy(name string) (UnmatchedPolicy, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", UnmatchedSkip.String():
		return UnmatchedSkip, nil
	case UnmatchedInternalError.String(), "500":
		return UnmatchedInternalError, nil
	}
	return UnmatchedSkip, fmt.Errorf("unknown unmatched policy %q", name)
}
