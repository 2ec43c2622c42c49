package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileOverlay is the subset of configuration that may be set from a YAML file.
// Zero values leave the environment-derived setting untouched.
type FileOverlay struct {
	Fees      *FeesConfig `yaml:"fees"`
	RateLimit *struct {
		Store             string                   `yaml:"store"`
		TrustedProxyCIDRs []string                 `yaml:"trusted_proxies"`
		Rules             map[string]fileRateLimit `yaml:"rules"`
	} `yaml:"rate_limit"`
	Upload *struct {
		Folder   string `yaml:"folder"`
		MaxBytes int64  `yaml:"max_bytes"`
	} `yaml:"upload"`
	CORS *struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

type fileRateLimit struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// LoadFile reads a YAML overlay from path and applies it to cfg.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	return ApplyYAML(cfg, data)
}

// ApplyYAML applies a YAML overlay document to cfg and revalidates the result.
func ApplyYAML(cfg Config, data []byte) (Config, error) {
	var overlay FileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if overlay.Fees != nil {
		if overlay.Fees.Nitrutsav > 0 {
			cfg.Fees.Nitrutsav = overlay.Fees.Nitrutsav
		}
		if overlay.Fees.MunCollege > 0 {
			cfg.Fees.MunCollege = overlay.Fees.MunCollege
		}
		if overlay.Fees.MunSchool > 0 {
			cfg.Fees.MunSchool = overlay.Fees.MunSchool
		}
	}

	if rl := overlay.RateLimit; rl != nil {
		if rl.Store != "" {
			cfg.RateLimit.Store = strings.ToLower(rl.Store)
		}
		if len(rl.TrustedProxyCIDRs) > 0 {
			cfg.RateLimit.TrustedProxyCIDRs = rl.TrustedProxyCIDRs
		}
		for name, raw := range rl.Rules {
			rule, err := raw.toRule()
			if err != nil {
				return cfg, fmt.Errorf("rate_limit.rules.%s: %w", name, err)
			}
			target := cfg.RateLimit.rule(name)
			if target == nil {
				return cfg, fmt.Errorf("rate_limit.rules: unknown category %q", name)
			}
			*target = rule
		}
	}

	if overlay.Upload != nil {
		if overlay.Upload.Folder != "" {
			cfg.Upload.Folder = overlay.Upload.Folder
		}
		if overlay.Upload.MaxBytes > 0 {
			cfg.Upload.MaxBytes = overlay.Upload.MaxBytes
		}
	}

	if overlay.CORS != nil && len(overlay.CORS.AllowedOrigins) > 0 {
		cfg.CORS.AllowedOrigins = overlay.CORS.AllowedOrigins
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (r fileRateLimit) toRule() (RateLimitRule, error) {
	if r.Limit < 0 {
		return RateLimitRule{}, fmt.Errorf("limit must not be negative")
	}
	window, err := time.ParseDuration(r.Window)
	if err != nil {
		return RateLimitRule{}, fmt.Errorf("invalid window %q: %w", r.Window, err)
	}
	if window <= 0 {
		return RateLimitRule{}, fmt.Errorf("window must be positive")
	}
	return RateLimitRule{Limit: r.Limit, Window: window}, nil
}

func (c *RateLimitConfig) rule(name string) *RateLimitRule {
	switch strings.ToLower(name) {
	case "registration":
		return &c.Registration
	case "payment":
		return &c.Payment
	case "check":
		return &c.Check
	case "upload":
		return &c.Upload
	case "auth":
		return &c.Auth
	default:
		return nil
	}
}
