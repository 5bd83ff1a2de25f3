package urlbuilder

import (
	"net/url"
	"strings"
)

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// RemoteURL is an embed URL for the remote authoring surface. It is
// immutable: the with* helpers return modified copies.
type RemoteURL struct {
	scheme string
	host   string // host[:port]
	path   string
	params []Param
}

// Scheme returns "http" or "https".
func (u RemoteURL) Scheme() string { return u.scheme }

// Host returns the host name without port.
func (u RemoteURL) Host() string {
	h, _ := splitHostPort(u.host)
	return h
}

// Port returns the explicit port, or "" when none was given.
func (u RemoteURL) Port() string {
	_, p := splitHostPort(u.host)
	return p
}

// Path returns the deployment path including the editor page.
func (u RemoteURL) Path() string { return u.path }

// Params returns a copy of the ordered query parameters.
func (u RemoteURL) Params() []Param {
	return append([]Param(nil), u.params...)
}

// Get returns the first value for key.
func (u RemoteURL) Get(key string) (string, bool) {
	for _, p := range u.params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Count returns how many times key occurs.
func (u RemoteURL) Count(key string) int {
	n := 0
	for _, p := range u.params {
		if p.Key == key {
			n++
		}
	}
	return n
}

// IsZero reports whether u was never built.
func (u RemoteURL) IsZero() bool { return u.scheme == "" && u.host == "" }

// RequestURI returns the path and query.
func (u RemoteURL) RequestURI() string {
	q := encodeParams(u.params)
	if q == "" {
		return u.path
	}
	return u.path + "?" + q
}

func (u RemoteURL) String() string {
	return u.scheme + "://" + u.host + u.RequestURI()
}

// Redacted renders the URL with the access token masked, for logs and
// status output.
func (u RemoteURL) Redacted() string {
	if _, ok := u.Get(ParamToken); !ok {
		return u.String()
	}
	return u.with(ParamToken, "xxxxx").String()
}

// with replaces every occurrence of key by a single value at the position
// of the first occurrence, or appends it.
func (u RemoteURL) with(key, value string) RemoteURL {
	out := make([]Param, 0, len(u.params)+1)
	replaced := false
	for _, p := range u.params {
		if p.Key != key {
			out = append(out, p)
			continue
		}
		if !replaced {
			out = append(out, Param{Key: key, Value: value})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, Param{Key: key, Value: value})
	}
	u.params = out
	return u
}

func encodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func splitHostPort(hostport string) (string, string) {
	u := url.URL{Host: hostport}
	return u.Hostname(), u.Port()
}
