package httputil

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"sublet_monitor/config"
)

const userAgent = "sublet-monitor/1.0"

type Clients struct {
	Sheet *http.Client // sheet export, proxied when PROXY_URL is set
}

func NewClients(proxyCfg config.ProxyConfig, timeout time.Duration) *Clients {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			slog.Info("sheet client using proxy", "host", proxyURL.Host)
		} else {
			slog.Warn("ignoring invalid PROXY_URL", "error", err)
		}
	}

	// Sheet exports redirect to a googleusercontent host.
	return &Clients{
		Sheet: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// NewGet builds a GET request carrying the monitor's User-Agent.
func NewGet(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}
