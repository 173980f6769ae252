package helpers

import (
	"net/url"
	"strings"
	"sync"

	"option-guide/src/logger"
)

// DefaultUserAgent identifies upstream price requests when none is configured.
const DefaultUserAgent = "option-guide/1.0 (+reference-price-feed)"

// -----------------------------------------------------------------------------

// ProxyManager cycles through egress proxies for upstream price requests.
// Some exchange endpoints refuse traffic by region, so a failed poll moves on
// to the next proxy.
type ProxyManager struct {
	mu        sync.Mutex
	proxies   []*url.URL
	current   int
	userAgent string
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

// NewProxyManager drops entries that do not parse as http, https or socks5
// proxies. An empty userAgent selects DefaultUserAgent.
func NewProxyManager(proxies []string, userAgent string, l *logger.Logger) *ProxyManager {
	if l == nil {
		l = logger.Nop()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	pm := &ProxyManager{userAgent: userAgent, logger: l}
	for _, raw := range proxies {
		u, ok := parseProxy(raw)
		if !ok {
			if strings.TrimSpace(raw) != "" {
				l.Warning("Ignoring invalid proxy entry %q", redact(raw))
			}
			continue
		}
		pm.proxies = append(pm.proxies, u)
	}
	return pm
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) GetCurrentProxy() (string, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if len(pm.proxies) == 0 {
		return "", nil
	}
	return pm.proxies[pm.current].String(), nil
}

func (pm *ProxyManager) RotateProxy() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if len(pm.proxies) < 2 {
		return
	}
	pm.current = (pm.current + 1) % len(pm.proxies)
	pm.logger.Info("Switched upstream proxy to %s", pm.proxies[pm.current].Redacted())
}

func (pm *ProxyManager) HasProxies() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.proxies) > 0
}

func (pm *ProxyManager) GetUserAgent() string {
	return pm.userAgent
}

// -----------------------------------------------------------------------------

// ValidateProxy reports whether proxyStr names a usable proxy. A missing
// scheme means http.
func ValidateProxy(proxyStr string) bool {
	_, ok := parseProxy(proxyStr)
	return ok
}

// FormatProxy adds the http scheme when proxyStr has none.
func FormatProxy(proxyStr string) string {
	proxyStr = strings.TrimSpace(proxyStr)
	if strings.Contains(proxyStr, "://") {
		return proxyStr
	}
	return "http://" + proxyStr
}

func parseProxy(raw string) (*url.URL, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	u, err := url.Parse(FormatProxy(raw))
	if err != nil || u.Host == "" {
		return nil, false
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return u, true
	}
	return nil, false
}

// redact hides credentials in proxy strings before they reach the log.
func redact(raw string) string {
	if u, err := url.Parse(FormatProxy(raw)); err == nil {
		return u.Redacted()
	}
	return "<unparseable>"
}
