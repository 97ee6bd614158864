package eiq

import (
	"errors"
	"fmt"
	"net/url"
)

// ProxyConfig describes the outbound proxy, minus the password. The password
// is resolved from the secret store per submission and never stored in
// configuration.
type ProxyConfig struct {
	// Enabled follows the host platform's conf convention: the literal "1"
	// enables the proxy, anything else disables it.
	Enabled  string
	Type     string // proxy scheme: http, https, socks5 (default http)
	Host     string
	Port     string
	Username string
}

// IsEnabled reports whether outbound requests should go through the proxy.
func (c ProxyConfig) IsEnabled() bool {
	return c.Enabled == "1"
}

// buildProxyURL composes the proxy URI from the static settings and the
// resolved proxy password.
func buildProxyURL(cfg ProxyConfig, password string) (*url.URL, error) {
	if cfg.Host == "" {
		return nil, errors.New("proxy host is required when proxy is enabled")
	}

	scheme := cfg.Type
	if scheme == "" {
		scheme = "http"
	}

	host := cfg.Host
	if cfg.Port != "" {
		host = fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	}

	proxyURL := &url.URL{
		Scheme: scheme,
		Host:   host,
	}
	if cfg.Username != "" {
		if password != "" {
			proxyURL.User = url.UserPassword(cfg.Username, password)
		} else {
			proxyURL.User = url.User(cfg.Username)
		}
	}

	return proxyURL, nil
}
