package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/validation"
)

// Ping reports whether the endpoint answers the version command with HTTP 200.
// Each request is bounded by the read timeout and never retried. An http to https
// redirect upgrades the instance and is followed once.
func (c *Client) Ping(ctx context.Context) bool {
	cmd := VersionCommand()
	target := c.instance.CommandURL(cmd)
	resp, err := c.do(ctx, cmd, target)
	if err == nil && resp.StatusCode() == http.StatusFound {
		next, ok := c.upgradeTarget(target, resp.Headers().Get("Location"))
		if !ok {
			return false
		}
		resp, err = c.do(ctx, cmd, next)
	}
	if err != nil {
		c.logger.Debug(ctx, "Ping failed", "error", err.Error())
		return false
	}
	return resp.StatusCode() == http.StatusOK
}

// Connect pings until the endpoint answers, up to maxAttempts times with
// delay between attempts.
func (c *Client) Connect(ctx context.Context, maxAttempts int, delay time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.Ping(ctx) {
			c.logger.Info(ctx, "Connected to admin endpoint", "url", c.instance.BaseURL(), "attempt", attempt)
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return errors.NewNetworkError(errors.ErrCodeConnect,
		fmt.Sprintf("admin endpoint %s not reachable after %d attempts", c.instance.BaseURL(), maxAttempts), nil)
}

// Deploy deploys an application and returns its externally reachable URL,
// or nil when the server does not report a context root.
func (c *Client) Deploy(ctx context.Context, opts DeployOptions) (*url.URL, error) {
	if opts.Name != "" {
		if err := validation.ValidateName(opts.Name); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidArgument, err.Error())
		}
	}
	if opts.Artifact == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidArgument, "deploy requires an artifact path")
	}

	resp, err := c.Execute(ctx, DeployCommand(opts))
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, errors.NewDeployError(errors.ErrCodeDeployFailed, "deploy failed: "+describe(resp), nil).
			WithContext("status", resp.StatusCode()).
			WithPath(opts.Artifact)
	}

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(baseName(opts.Artifact), ".war")
	}
	root, err := c.contextRoot(ctx, name)
	if err != nil {
		c.logger.Warn(ctx, err, "Could not query context root", "application", name)
		return nil, nil
	}
	if root == "" {
		return nil, nil
	}
	return url.Parse(c.instance.ApplicationURL(root))
}

func (c *Client) contextRoot(ctx context.Context, name string) (string, error) {
	key := "applications.application." + name + ".context-root"
	resp, err := c.Get(ctx, key)
	if err != nil {
		return "", err
	}
	value, _ := resp.Property(key)
	return value, nil
}

// Undeploy removes an application. The response is only checked for
// transport success.
func (c *Client) Undeploy(ctx context.Context, name, instance string) error {
	if err := validation.ValidateName(name); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidArgument, err.Error())
	}
	resp, err := c.Execute(ctx, UndeployCommand(name, instance))
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		c.logger.Warn(ctx, nil, "Undeploy reported failure", "application", name, "detail", describe(resp))
	}
	return nil
}

// Get queries a dotted property path.
func (c *Client) Get(ctx context.Context, pattern string) (*JSONResponse, error) {
	resp, err := c.Execute(ctx, GetCommand(pattern))
	if err != nil {
		return nil, err
	}
	jr, ok := resp.(*JSONResponse)
	if !ok || !jr.IsSuccess() {
		return nil, errors.NewDeployError(errors.ErrCodeDeployFailed, "get "+pattern+" failed: "+describe(resp), nil)
	}
	return jr, nil
}

// Version returns the server's version message.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.Execute(ctx, VersionCommand())
	if err != nil {
		return "", err
	}
	jr, ok := resp.(*JSONResponse)
	if !ok || !jr.IsSuccess() {
		return "", errors.NewDeployError(errors.ErrCodeDeployFailed, "version failed: "+describe(resp), nil)
	}
	return jr.Message, nil
}

// Locations returns the server's filesystem locations keyed by name.
func (c *Client) Locations(ctx context.Context) (map[string]string, error) {
	resp, err := c.Execute(ctx, LocationsCommand())
	if err != nil {
		return nil, err
	}
	jr, ok := resp.(*JSONResponse)
	if !ok || !jr.IsSuccess() {
		return nil, errors.NewDeployError(errors.ErrCodeDeployFailed, "locations failed: "+describe(resp), nil)
	}
	locations := jr.Properties()
	for k, v := range jr.ExtraProperties {
		if s, ok := v.(string); ok {
			locations[k] = s
		}
	}
	return locations, nil
}

// FetchLogs returns log text written since the previous call. It returns ""
// once the server reports the same cursor that was just used.
func (c *Client) FetchLogs(ctx context.Context, instance string) (string, error) {
	c.logMutex.Lock()
	defer c.logMutex.Unlock()

	cursor := c.logCursor
	resp, err := c.Execute(ctx, ViewLogCommand(cursor, instance))
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", errors.NewDeployError(errors.ErrCodeDeployFailed, "view-log failed: "+describe(resp), nil)
	}

	next := nextCursor(resp.Headers().Get(HeaderAppendNext))
	if next == "" || next == cursor {
		return "", nil
	}
	c.logCursor = next
	return string(resp.RawBody()), nil
}

// LogCursor returns the cursor the next FetchLogs call will use.
func (c *Client) LogCursor() string {
	c.logMutex.Lock()
	defer c.logMutex.Unlock()
	return c.logCursor
}

// nextCursor extracts the start parameter from an X-Text-Append-Next value,
// which is either a full URL or a bare query string.
func nextCursor(header string) string {
	if header == "" {
		return ""
	}
	query := header
	if _, q, ok := strings.Cut(header, "?"); ok {
		query = q
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}
	return values.Get("start")
}

func baseName(path string) string {
	path = strings.TrimRight(strings.ReplaceAll(path, "\\", "/"), "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
