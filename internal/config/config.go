// Package config loads sparqlayers settings from a YAML file.
//
// The file is checked against an embedded CUE schema before it is decoded,
// so unknown keys and malformed values are reported with their path.
// Environment variables override the selected profile's connection:
//
//	SPARQLAYERS_LOCATION  endpoint location
//	SPARQLAYERS_AUTH      Authorization header value
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sparqlayers/internal/algebra"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables read by ApplyEnv.
const (
	EnvLocation = "SPARQLAYERS_LOCATION"
	EnvAuth     = "SPARQLAYERS_AUTH"
)

// Defaults.
const (
	DefaultLocation  = "http://localhost:8080/sparql"
	DefaultProfile   = "default"
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
	DefaultStore     = "sparqlayers.db"
	DefaultListen    = "127.0.0.1:8088"
	DefaultTimeout   = 30 * time.Second
)

// Profile is a named endpoint.
type Profile struct {
	Name           string `yaml:"name" json:"name"`
	Location       string `yaml:"location" json:"location"`
	Authentication string `yaml:"authentication,omitempty" json:"authentication,omitempty"`
}

// Connection returns the profile's endpoint as an algebra connection.
func (p Profile) Connection() algebra.Connection {
	return algebra.Connection{Location: p.Location, Authentication: p.Authentication}
}

// Cache configures the response cache. Size 0 disables it.
type Cache struct {
	Size int    `yaml:"size"`
	TTL  string `yaml:"ttl"`
}

// Config is the decoded configuration file.
type Config struct {
	DefaultProfile string    `yaml:"default_profile"`
	Profiles       []Profile `yaml:"profiles"`
	Cache          Cache     `yaml:"cache"`
	Timeout        string    `yaml:"timeout"`
	Store          string    `yaml:"store"`
	Listen         string    `yaml:"listen"`
	Parallelism    int       `yaml:"parallelism"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DefaultProfile: DefaultProfile,
		Profiles:       []Profile{{Name: DefaultProfile, Location: DefaultLocation}},
		Cache:          Cache{Size: DefaultCacheSize, TTL: DefaultCacheTTL.String()},
		Timeout:        DefaultTimeout.String(),
		Store:          DefaultStore,
		Listen:         DefaultListen,
	}
}

// ValidationError reports a configuration value rejected by the schema.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "invalid config: " + e.Message
	}
	return fmt.Sprintf("invalid config at %s: %s", e.Path, e.Message)
}

// Load reads the file at path. An empty path returns Default(). Fields the
// file leaves out keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates and decodes YAML configuration text.
func Parse(data []byte) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw != nil {
		if err := validate(raw); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if _, err := cfg.CacheTTL(); err != nil {
		return nil, &ValidationError{Path: "cache.ttl", Message: err.Error()}
	}
	if _, err := cfg.RequestTimeout(); err != nil {
		return nil, &ValidationError{Path: "timeout", Message: err.Error()}
	}
	if cfg.DefaultProfile != "" && len(cfg.Profiles) > 0 {
		if _, ok := cfg.lookup(cfg.DefaultProfile); !ok {
			return nil, &ValidationError{Path: "default_profile", Message: fmt.Sprintf("no profile named %q", cfg.DefaultProfile)}
		}
	}
	return cfg, nil
}

func validate(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		errs := cueerrors.Errors(err)
		if len(errs) == 0 {
			return &ValidationError{Message: err.Error()}
		}
		first := errs[0]
		path := first.Path()
		if len(path) > 0 && path[0] == "#Config" {
			path = path[1:]
		}
		format, args := first.Msg()
		return &ValidationError{
			Path:    strings.Join(path, "."),
			Message: fmt.Sprintf(format, args...),
		}
	}
	return nil
}

// CacheTTL returns the parsed cache lifetime.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return DefaultCacheTTL, nil
	}
	return time.ParseDuration(c.Cache.TTL)
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultTimeout, nil
	}
	return time.ParseDuration(c.Timeout)
}

func (c *Config) lookup(name string) (Profile, bool) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Profile returns the named profile. An empty name selects the default
// profile, or the first one when no default is set.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" && len(c.Profiles) > 0 {
		return c.Profiles[0], nil
	}
	if p, ok := c.lookup(name); ok {
		return p, nil
	}
	if name == DefaultProfile {
		return Profile{Name: DefaultProfile, Location: DefaultLocation}, nil
	}
	return Profile{}, fmt.Errorf("unknown profile %q", name)
}

// ApplyEnv overrides the default profile's connection from getenv. Pass
// os.Getenv in production.
func (c *Config) ApplyEnv(getenv func(string) string) {
	location, auth := getenv(EnvLocation), getenv(EnvAuth)
	if location == "" && auth == "" {
		return
	}

	p, err := c.Profile("")
	if err != nil {
		p = Profile{Name: DefaultProfile, Location: DefaultLocation}
	}
	if location != "" {
		p.Location = location
	}
	if auth != "" {
		p.Authentication = auth
	}

	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			c.Profiles[i] = p
			return
		}
	}
	c.Profiles = append(c.Profiles, p)
	if c.DefaultProfile == "" {
		c.DefaultProfile = p.Name
	}
}
