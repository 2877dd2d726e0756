package hedgedoc

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// Authenticator bootstraps an anonymous HedgeDoc session
type Authenticator struct {
	logger *zap.Logger
	client *http.Client
	scheme string
}

// NewAuthenticator creates an Authenticator. A nil client gets a traced default client.
func NewAuthenticator(logger *zap.Logger, scheme string, client *http.Client) *Authenticator {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		}
	}
	if scheme == "" {
		scheme = "https"
	}
	return &Authenticator{
		logger: logger.Named("hedgedoc.auth"),
		client: client,
		scheme: scheme,
	}
}

// Acquire fetches the server root and builds the credential set from the
// session cookie it hands out. A missing session cookie is not an error here;
// the server refuses the join later instead.
func (a *Authenticator) Acquire(ctx context.Context, server string) (Credentials, error) {
	rawURL := a.scheme + "://" + server
	origin, err := url.Parse(rawURL)
	if err != nil {
		return nil, &AuthError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &AuthError{URL: rawURL, Err: err}
	}

	a.logger.Debug("fetching session cookie", zap.String("url", rawURL))
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AuthError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, &AuthError{URL: rawURL, Err: err}
	}

	var cookies []*http.Cookie
	for _, header := range resp.Header.Values("Set-Cookie") {
		for _, entry := range splitSetCookie(header) {
			c, err := http.ParseSetCookie(entry)
			if err != nil {
				a.logger.Debug("skipping unparseable cookie", zap.String("entry", entry), zap.Error(err))
				continue
			}
			cookies = append(cookies, c)
		}
	}
	jar.SetCookies(origin, cookies)

	sessionID := ""
	for _, c := range jar.Cookies(origin) {
		if c.Name == SessionCookieName {
			sessionID = c.Value
			break
		}
	}
	if sessionID == "" {
		a.logger.Warn("server did not hand out a session cookie", zap.String("url", rawURL))
	}

	return NewCredentials(sessionID), nil
}

// splitSetCookie splits a comma-joined Set-Cookie value into single entries.
// A comma only starts a new entry when the following segment begins with a
// name=value pair, so commas inside Expires dates stay attached.
func splitSetCookie(header string) []string {
	var out []string
	for _, part := range strings.Split(header, ",") {
		head := part
		if i := strings.IndexByte(part, ';'); i >= 0 {
			head = part[:i]
		}
		if len(out) > 0 && !strings.Contains(head, "=") {
			out[len(out)-1] += "," + part
			continue
		}
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
