// Package urlbuilder builds authenticated embed URLs for the remote
// process and transform editors.
//
// A URL comes either from the first line of a proxy document or from a
// structured descriptor. Either way the builder pins the studio flags,
// requests a fresh access token through a parameterized query and attaches
// it together with the namespace. Proxy document tokens are keyed by the
// path and query of the first line as written; descriptor tokens by the
// full editor URL with its kind parameter and STUDIO flag. Tokens are
// one-time credentials and are never cached.
package urlbuilder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/iksnae/studio-bridge/internal"
)

// Query parameters the editor pages understand.
const (
	ParamStudio    = "STUDIO"
	ParamShare     = "CSPSHARE"
	ParamToken     = "CSPCHD"
	ParamNamespace = "Namespace"
)

const defaultTokenColumn = "csptoken"

// Descriptor identifies an editor page structurally.
type Descriptor struct {
	HTTPS      bool
	Host       string
	Port       int
	PathPrefix string
	WebApp     string // deployment path of the default web application, e.g. "/csp/user"
	Namespace  string
	Name       string // artifact name passed to the editor, e.g. "Demo.Order"
	Kind       internal.ArtifactKind
}

// Builder creates RemoteURLs. It is safe for concurrent use as long as the
// querier is.
type Builder struct {
	querier   internal.Querier
	query     string
	column    string
	namespace string
}

// Option configures a Builder.
type Option func(*Builder)

// WithTokenQuery overrides the statement used to mint tokens and the column
// holding the token in its single result row.
func WithTokenQuery(query, column string) Option {
	return func(b *Builder) {
		if query != "" {
			b.query = query
		}
		if column != "" {
			b.column = column
		}
	}
}

// WithNamespace sets the namespace attached to URLs that do not carry one.
func WithNamespace(ns string) Option {
	return func(b *Builder) { b.namespace = ns }
}

// New creates a builder that mints tokens through q.
func New(q internal.Querier, opts ...Option) *Builder {
	b := &Builder{
		querier: q,
		query:   internal.DefaultTokenQuery,
		column:  defaultTokenColumn,
	}
	for _, o := range opts {
		if o != nil {
			o(b)
		}
	}
	return b
}

// FromProxyDocument builds a URL from the first line of a proxy document.
// source names the document in errors.
func (b *Builder) FromProxyDocument(ctx context.Context, source, text string) (RemoteURL, error) {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)

	u, err := parseEmbedURL(line)
	if err != nil {
		return RemoteURL{}, &internal.MalformedSourceError{Source: source, Line: line, Err: err}
	}

	key := proxyTokenKey(line)
	u = u.with(ParamStudio, "1").with(ParamShare, "1")
	return b.authorize(ctx, u, key, b.namespace)
}

// FromDescriptor builds a URL for the editor page of d's kind.
func (b *Builder) FromDescriptor(ctx context.Context, d Descriptor) (RemoteURL, error) {
	if d.Kind == internal.KindNone {
		return RemoteURL{}, &internal.ClassificationError{Name: d.Name}
	}
	if d.Host == "" {
		return RemoteURL{}, errors.New("descriptor has no host")
	}
	if d.Name == "" {
		return RemoteURL{}, errors.New("descriptor has no artifact name")
	}

	scheme := "http"
	if d.HTTPS {
		scheme = "https"
	}
	host := d.Host
	if d.Port > 0 {
		host = host + ":" + strconv.Itoa(d.Port)
	}

	u := RemoteURL{
		scheme: scheme,
		host:   host,
		path:   joinPath(d.PathPrefix, d.WebApp, d.Kind.EditorPage()),
	}
	u = u.with(d.Kind.Param(), d.Name).with(ParamStudio, "1")
	// The editor pages mint descriptor tokens for the full URL as it is
	// before CSPSHARE is added.
	key := u.String()
	u = u.with(ParamShare, "1")

	ns := d.Namespace
	if ns == "" {
		ns = b.namespace
	}
	return b.authorize(ctx, u, key, ns)
}

// authorize attaches a token minted for key and the namespace.
func (b *Builder) authorize(ctx context.Context, u RemoteURL, key, ns string) (RemoteURL, error) {
	token, err := b.token(ctx, key)
	if err != nil {
		return RemoteURL{}, err
	}

	u = u.with(ParamToken, token)
	if _, ok := u.Get(ParamNamespace); !ok && ns != "" {
		u = u.with(ParamNamespace, ns)
	}
	internal.LogDebug("built embed URL %s", u.Redacted())
	return u, nil
}

func (b *Builder) token(ctx context.Context, key string) (string, error) {
	if b.querier == nil {
		return "", &internal.AuthenticationError{Path: key, Err: errors.New("no token source configured")}
	}
	rows, err := b.querier.Query(ctx, b.query, key)
	if err != nil {
		return "", &internal.AuthenticationError{Path: key, Err: err}
	}
	if len(rows) == 0 {
		return "", &internal.AuthenticationError{Path: key}
	}
	token := rows[0].String(b.column)
	if token == "" {
		return "", &internal.AuthenticationError{Path: key, Err: fmt.Errorf("empty %s column", b.column)}
	}
	return token, nil
}

func parseEmbedURL(line string) (RemoteURL, error) {
	if line == "" {
		return RemoteURL{}, errors.New("empty first line")
	}
	parsed, err := url.Parse(line)
	if err != nil {
		return RemoteURL{}, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return RemoteURL{}, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return RemoteURL{}, errors.New("missing host")
	}

	u := RemoteURL{scheme: parsed.Scheme, host: parsed.Host, path: parsed.EscapedPath()}
	if parsed.RawQuery != "" {
		for _, part := range strings.Split(parsed.RawQuery, "&") {
			if part == "" {
				continue
			}
			k, v, _ := strings.Cut(part, "=")
			key, err := url.QueryUnescape(k)
			if err != nil {
				return RemoteURL{}, fmt.Errorf("bad query key %q: %w", k, err)
			}
			value, err := url.QueryUnescape(v)
			if err != nil {
				return RemoteURL{}, fmt.Errorf("bad query value %q: %w", v, err)
			}
			u.params = append(u.params, Param{Key: key, Value: value})
		}
	}
	return u, nil
}

// proxyTokenKey returns the path and query of a proxy document's first line
// exactly as written, which is what tokens for that page are minted for.
func proxyTokenKey(line string) string {
	rest := line
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i:]
	}
	return "/"
}

func joinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			segs = append(segs, p)
		}
	}
	return "/" + strings.Join(segs, "/")
}
