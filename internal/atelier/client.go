// Package atelier is a client for the remote system's source-control REST
// API. It runs parameterized queries (token minting, classification),
// discovers the default web application, lists related documents, fetches
// documents and recompiles them.
package atelier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/iksnae/studio-bridge/internal"
)

const (
	apiRoot = "/api/atelier/"
	apiV1   = "/api/atelier/v1/"

	// ClassSupersQuery returns the primary superclass chain of a compiled
	// class, "~"-separated.
	ClassSupersQuery = "SELECT PrimarySuper FROM %Dictionary.CompiledClass WHERE Name = ?"

	defaultCompileFlags = "cuk"
	maxResponseSize     = 16 << 20
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	Connection internal.ConnectionConfig
	// HTTPClient is used for all requests. If nil, a client with a 30s
	// timeout is used.
	HTTPClient *http.Client
}

// Client talks to one namespace of the remote system.
type Client struct {
	baseURL    string
	namespace  string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a client for the configured connection.
func NewClient(config ClientConfig) (*Client, error) {
	conn := config.Connection
	if conn.Host == "" {
		return nil, errors.New("atelier: host is required")
	}
	if conn.Namespace == "" {
		return nil, errors.New("atelier: namespace is required")
	}
	base := conn.BaseURL()
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("atelier: invalid server address %q: %w", base, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		namespace:  conn.Namespace,
		username:   conn.Username,
		password:   conn.Password,
		httpClient: httpClient,
	}, nil
}

// Namespace returns the namespace requests are scoped to.
func (c *Client) Namespace() string { return c.namespace }

// ServerInfo describes the server. It doubles as a connectivity check.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var env envelope[contentResult[ServerInfo]]
	if err := c.do(ctx, http.MethodGet, apiRoot, nil, nil, &env); err != nil {
		return nil, err
	}
	return &env.Result.Content, nil
}

// Query runs a parameterized query in the namespace. Client satisfies
// internal.Querier.
func (c *Client) Query(ctx context.Context, query string, params ...any) ([]internal.Row, error) {
	if params == nil {
		params = []any{}
	}
	var env envelope[contentResult[[]map[string]any]]
	err := c.do(ctx, http.MethodPost, c.nsPath("action/query"), nil, QueryRequest{Query: query, Parameters: params}, &env)
	if err != nil {
		return nil, &internal.QueryError{Query: query, Err: err}
	}
	return rowsOf(env.Result.Content), nil
}

// CSPApps lists the web applications of the namespace.
func (c *Client) CSPApps(ctx context.Context) ([]CSPApp, error) {
	path := apiV1 + url.PathEscape("%SYS") + "/cspapps/" + url.PathEscape(c.namespace)
	var env envelope[contentResult[[]CSPApp]]
	if err := c.do(ctx, http.MethodGet, path, url.Values{"detail": {"1"}}, nil, &env); err != nil {
		return nil, err
	}
	return env.Result.Content, nil
}

// DefaultWebApp returns the path of the namespace's default web
// application.
func (c *Client) DefaultWebApp(ctx context.Context) (string, error) {
	apps, err := c.CSPApps(ctx)
	if err != nil {
		return "", err
	}
	for _, app := range apps {
		if app.Default {
			return app.Name, nil
		}
	}
	return "", fmt.Errorf("namespace %s has no default web application", c.namespace)
}

// GetDoc fetches a document.
func (c *Client) GetDoc(ctx context.Context, name string) (*Document, error) {
	var env envelope[Document]
	if err := c.do(ctx, http.MethodGet, c.nsPath("doc/"+url.PathEscape(name)), nil, nil, &env); err != nil {
		return nil, err
	}
	doc := env.Result
	if doc.Name == "" {
		doc.Name = name
	}
	return &doc, nil
}

// Index describes the named documents.
func (c *Client) Index(ctx context.Context, names ...string) ([]IndexEntry, error) {
	var env envelope[contentResult[[]IndexEntry]]
	if err := c.do(ctx, http.MethodPost, c.nsPath("action/index"), nil, names, &env); err != nil {
		return nil, err
	}
	return env.Result.Content, nil
}

// Others lists the documents related to name.
func (c *Client) Others(ctx context.Context, name string) ([]string, error) {
	entries, err := c.Index(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0].Others, nil
}

// Compile compiles the named documents and returns the compiler console.
func (c *Client) Compile(ctx context.Context, names ...string) ([]string, error) {
	var env envelope[contentResult[[]any]]
	err := c.do(ctx, http.MethodPost, c.nsPath("action/compile"), url.Values{"flags": {defaultCompileFlags}}, names, &env)
	if err != nil {
		return env.Console, err
	}
	return env.Console, nil
}

// Reload recompiles a and refetches it so the server-side copy reflects
// the latest save.
func (c *Client) Reload(ctx context.Context, a internal.Artifact) error {
	console, err := c.Compile(ctx, a.Name)
	for _, line := range console {
		if line = strings.TrimSpace(line); line != "" {
			internal.LogDebug("compile %s: %s", a.Name, line)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", a.Name, err)
	}
	if _, err := c.GetDoc(ctx, a.Name); err != nil {
		return fmt.Errorf("failed to reload %s: %w", a.Name, err)
	}
	return nil
}

// Supers returns the primary superclass chain of a compiled class.
func (c *Client) Supers(ctx context.Context, class internal.Artifact) ([]string, error) {
	rows, err := c.Query(ctx, ClassSupersQuery, class.ClassName())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var supers []string
	for _, s := range strings.Split(rows[0].String("PrimarySuper"), "~") {
		if s != "" {
			supers = append(supers, s)
		}
	}
	return supers, nil
}

// Classify resolves whether class is a process, a transform or neither.
func (c *Client) Classify(ctx context.Context, class internal.Artifact) (internal.ArtifactKind, error) {
	supers, err := c.Supers(ctx, class)
	if err != nil {
		return internal.KindNone, err
	}
	return internal.KindFromSuperclasses(supers), nil
}

func (c *Client) nsPath(rest string) string {
	return apiV1 + url.PathEscape(c.namespace) + "/" + rest
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, requestBody, out any) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := sonic.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("atelier: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("atelier: failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		request.SetBasicAuth(c.username, c.password)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("atelier: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("atelier: failed to read response body: %w", err)
	}

	var status struct {
		Status Status `json:"status"`
	}
	statusErr := sonic.Unmarshal(body, &status)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		remote := &internal.RemoteError{Endpoint: method + " " + path, Status: response.StatusCode}
		if statusErr == nil {
			remote.Messages = status.Status.messages()
		}
		return remote
	}
	if statusErr != nil {
		return fmt.Errorf("atelier: unexpected response from %s %s: %w", method, path, statusErr)
	}

	// Decode before checking reported errors so callers still get the
	// console output of a failed compile.
	if out != nil {
		if err := sonic.Unmarshal(body, out); err != nil {
			return fmt.Errorf("atelier: failed to parse response from %s %s: %w", method, path, err)
		}
	}
	if len(status.Status.Errors) > 0 {
		return &internal.RemoteError{Endpoint: method + " " + path, Status: response.StatusCode, Messages: status.Status.messages()}
	}
	return nil
}
