package pool

import (
	"net/url"
	"strings"
	"sync"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"go.uber.org/zap"
)

const originCacheSize = 1000

// OtherOrigin is the metric label for hosts when no allow-list is configured.
const OtherOrigin = "other"

// OriginValidator checks frame and video URLs against an allow-list of
// hostnames. Entries containing "*" are wildcard patterns. An empty list
// allows any http(s) URL.
type OriginValidator struct {
	origins []string

	mu    sync.RWMutex
	cache map[string]*url.URL
}

func NewOriginValidator(origins []string) *OriginValidator {
	return &OriginValidator{
		origins: origins,
		cache:   make(map[string]*url.URL),
	}
}

func (v *OriginValidator) parse(raw string) (*url.URL, error) {
	v.mu.RLock()
	u, ok := v.cache[raw]
	v.mu.RUnlock()
	if ok {
		return u, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	if len(v.cache) >= originCacheSize {
		v.cache = make(map[string]*url.URL)
	}
	v.cache[raw] = u
	v.mu.Unlock()

	return u, nil
}

// Validate reports whether raw may be fetched and returns its hostname.
func (v *OriginValidator) Validate(logger *zap.Logger, raw string) (valid bool, hostname string) {
	u, err := v.parse(raw)
	if err != nil {
		return false, ""
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false, ""
	}

	hostname = u.Hostname()
	if hostname == "" {
		return false, ""
	}

	if len(v.origins) == 0 {
		return true, hostname
	}

	for _, origin := range v.origins {
		if origin == hostname {
			logger.Debug("origin matched", zap.String("origin", origin), zap.String("hostname", hostname))
			return true, hostname
		}
	}

	for _, origin := range v.origins {
		if strings.Contains(origin, "*") && wildcard.Match(origin, hostname) {
			logger.Debug("origin matched", zap.String("origin", origin), zap.String("hostname", hostname))
			return true, hostname
		}
	}

	return false, ""
}

// MetricLabel returns hostname when an allow-list bounds the set of hosts and
// OtherOrigin otherwise.
func (v *OriginValidator) MetricLabel(hostname string) string {
	if len(v.origins) == 0 {
		return OtherOrigin
	}
	return hostname
}
