package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/lachlan2k/school-portal/internal/accesscontrol"
)

type Config struct {
	ListenPort int    `toml:"port"`
	LogLevel   string `toml:"log_level"`
	Debug      bool   `toml:"debug"`

	Session struct {
		// Lifetime of both session cookies, in seconds. Default is 30 days
		Lifetime int `toml:"lifetime"`

		Cookie struct {
			Domain      string `toml:"domain"`
			TokenName   string `toml:"token_name"`
			UserName    string `toml:"user_name"`
			Secure      bool   `toml:"secure"`
			CheckExpiry bool   `toml:"check_token_expiry"`
		} `toml:"cookie"`
	} `toml:"session"`

	API struct {
		BaseURL   string `toml:"base_url"`
		LoginPath string `toml:"login_path"`

		// Upstream request timeout in seconds. 0 means requests are only bounded by the client's request
		Timeout int `toml:"timeout"`
	} `toml:"api"`

	Routes struct {
		Login string `toml:"login"`

		// Role name => dashboard path. Overrides the built in table for the listed roles only
		RoleDestinations map[string]string `toml:"role_destinations"`
	} `toml:"routes"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"metrics"`
}

// TOML marshaller doesn't override fields that weren't set in the TOML, so we can apply defaults here
func (c *Config) setDefaults() {
	c.ListenPort = 8080
	c.LogLevel = "info"

	c.Session.Lifetime = 60 * 60 * 24 * 30 // 30 days

	c.Session.Cookie.TokenName = "token"
	c.Session.Cookie.UserName = "user"
	c.Session.Cookie.Secure = true
	c.Session.Cookie.CheckExpiry = true

	c.API.LoginPath = "/auth/login"

	c.Routes.Login = "/login"

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
}

func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.Session.Lifetime) * time.Second
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("please supply api.base_url")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url (%s) is not an absolute URL", c.API.BaseURL)
	}
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")

	if !strings.HasPrefix(c.API.LoginPath, "/") {
		c.API.LoginPath = "/" + c.API.LoginPath
	}

	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session.lifetime must be positive, got %d", c.Session.Lifetime)
	}

	if c.Session.Cookie.TokenName == "" || c.Session.Cookie.UserName == "" {
		return fmt.Errorf("session.cookie.token_name and session.cookie.user_name must both be set")
	}

	if c.Session.Cookie.TokenName == c.Session.Cookie.UserName {
		return fmt.Errorf("session.cookie.token_name and session.cookie.user_name must differ (both are %q)", c.Session.Cookie.TokenName)
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout can't be negative, got %d", c.API.Timeout)
	}

	if !accesscontrol.IsLocalPath(c.Routes.Login) {
		return fmt.Errorf("routes.login (%s) must be a path on this site", c.Routes.Login)
	}

	_, err = accesscontrol.NewRouter(c.Routes.RoleDestinations)
	if err != nil {
		return fmt.Errorf("routes.role_destinations: %v", err)
	}

	if !c.Session.Cookie.Secure {
		log.Printf("Note: session.cookie.secure is disabled, session cookies will be sent over plain HTTP.")
	}

	return nil
}

func Load(data []byte) (*Config, error) {
	conf := new(Config)
	conf.setDefaults()

	err := toml.Unmarshal(data, conf)
	if err != nil {
		return nil, err
	}

	err = conf.validate()
	if err != nil {
		return nil, err
	}

	return conf, nil
}

func LoadFromTomlFileAndValidate(filepath string) (*Config, error) {
	file, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	return Load(file)
}
