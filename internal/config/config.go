// Package config loads and validates noticewatch configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ID strategies accepted in site configuration.
const (
	IDStrategyLink      = "link"
	IDStrategyTitleDate = "title+date"
)

// DefaultMaxItems bounds both the per-run row scan and the retained
// seen-key history when a site does not set max_items.
const DefaultMaxItems = 20

// Config captures all run configuration loaded via Viper.
type Config struct {
	HTTP   HTTPConfig   `mapstructure:"http"`
	Notify NotifyConfig `mapstructure:"notify"`
	Run    RunConfig    `mapstructure:"run"`
	Sites  []Site       `mapstructure:"sites"`
}

// HTTPConfig configures the shared HTTP session and fetch retry behavior.
type HTTPConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	Retries        int           `mapstructure:"retries"`
	Backoff        time.Duration `mapstructure:"backoff"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
}

// NotifyConfig configures webhook delivery.
type NotifyConfig struct {
	WebhookURL  string        `mapstructure:"webhook_url"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PostDelay   time.Duration `mapstructure:"post_delay"`
	RetryMargin time.Duration `mapstructure:"retry_margin"`
}

// RunConfig holds per-invocation run flags.
type RunConfig struct {
	StateFile string `mapstructure:"state_file"`
	DryRun    bool   `mapstructure:"dry_run"`
	Preview   bool   `mapstructure:"preview"`
}

// Site describes one monitored notice board and the declarative rules
// used to extract announcement rows from it. Immutable per run.
type Site struct {
	Name           string   `mapstructure:"name"`
	URL            string   `mapstructure:"url"`
	BaseURL        string   `mapstructure:"base_url"`
	ListSelector   string   `mapstructure:"list_selector"`
	TitleSelector  string   `mapstructure:"title_selector"`
	LinkSelector   string   `mapstructure:"link_selector"`
	DateSelector   string   `mapstructure:"date_selector"`
	SkipIfSelector []string `mapstructure:"skip_if_selector"`
	MaxItems       int      `mapstructure:"max_items"`
	IDStrategy     string   `mapstructure:"id_strategy"`
}

// Load builds a Config from the given file plus environment overrides.
// Environment variables use the NOTICE prefix with dots replaced by
// underscores, e.g. NOTICE_NOTIFY_WEBHOOK_URL.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sites")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applySiteDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", "25s")
	v.SetDefault("http.retries", 3)
	v.SetDefault("http.backoff", "2s")
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; KNU-Notice-Bot/1.0; +https://github.com/knu-notice/noticewatch)")
	v.SetDefault("http.accept_language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.max_retries", 5)
	v.SetDefault("notify.post_delay", "700ms")
	v.SetDefault("notify.retry_margin", "200ms")
	v.SetDefault("run.state_file", ".state/seen.json")
	v.SetDefault("run.dry_run", false)
	v.SetDefault("run.preview", false)
}

func (c *Config) applySiteDefaults() {
	for i := range c.Sites {
		site := &c.Sites[i]
		if site.MaxItems <= 0 {
			site.MaxItems = DefaultMaxItems
		}
		if site.IDStrategy == "" {
			site.IDStrategy = IDStrategyLink
		}
		if site.BaseURL == "" {
			site.BaseURL = site.URL
		}
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.Retries <= 0 {
		return fmt.Errorf("http.retries must be > 0")
	}
	if c.HTTP.Backoff < 0 {
		return fmt.Errorf("http.backoff must be >= 0")
	}
	if c.Notify.MaxRetries <= 0 {
		return fmt.Errorf("notify.max_retries must be > 0")
	}
	if c.Run.StateFile == "" {
		return fmt.Errorf("run.state_file must be set")
	}
	if len(c.Sites) == 0 {
		return fmt.Errorf("at least one site must be configured")
	}
	names := make(map[string]struct{}, len(c.Sites))
	for _, site := range c.Sites {
		if err := site.validate(); err != nil {
			return err
		}
		if _, dup := names[site.Name]; dup {
			return fmt.Errorf("site %q: duplicate name", site.Name)
		}
		names[site.Name] = struct{}{}
	}
	return nil
}

func (s Site) validate() error {
	if s.Name == "" {
		return fmt.Errorf("site name must be set")
	}
	if s.URL == "" {
		return fmt.Errorf("site %q: url must be set", s.Name)
	}
	if s.ListSelector == "" {
		return fmt.Errorf("site %q: list_selector must be set", s.Name)
	}
	switch s.IDStrategy {
	case IDStrategyLink, IDStrategyTitleDate:
	default:
		return fmt.Errorf("site %q: id_strategy must be %q or %q", s.Name, IDStrategyLink, IDStrategyTitleDate)
	}
	return nil
}
