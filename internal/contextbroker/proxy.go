package contextbroker

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/edgecomet/render-service/internal/browser"
	"github.com/edgecomet/render-service/pkg/types"
)

// normalizeProxy validates and normalizes a proxy configuration into a
// protocol://host:port server string, per the both-or-neither credential
// rule and per-protocol default ports.
func normalizeProxy(p *types.ProxyOptions) (*browser.ProxyConfig, error) {
	if strings.TrimSpace(p.Server) == "" {
		return nil, fmt.Errorf("proxy server must not be empty")
	}
	if (p.Username == "") != (p.Password == "") {
		return nil, fmt.Errorf("proxy username and password must be both present or both absent")
	}

	raw := p.Server
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy server %q: %w", p.Server, err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("proxy server must include a host")
	}

	port := u.Port()
	if port == "" {
		port = defaultProxyPort(scheme)
	}

	return &browser.ProxyConfig{
		Server:   fmt.Sprintf("%s://%s:%s", scheme, host, port),
		Username: p.Username,
		Password: p.Password,
	}, nil
}

func defaultProxyPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "socks5":
		return "1080"
	default:
		return "80"
	}
}
