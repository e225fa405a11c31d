package api

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/ppiankov/ghitriage/internal/util"
	"golang.org/x/net/publicsuffix"
)

// newHTTPClient builds the transport used for every backend call
func newHTTPClient(opts Options) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)
	transport.MaxIdleConnsPerHost = 8
	transport.IdleConnTimeout = 90 * time.Second

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			// Carry the bearer token across same-host redirects only
			if len(via) > 0 && req.URL.Host == via[0].URL.Host {
				if auth := via[0].Header.Get("Authorization"); auth != "" {
					req.Header.Set("Authorization", auth)
				}
			}
			return nil
		},
	}

	if opts.CookieJar {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client.Jar = jar
	}

	return client, nil
}
