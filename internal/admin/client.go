package admin

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
)

// HeaderAppendNext carries the query string for the next log fetch.
const HeaderAppendNext = "X-Text-Append-Next"

// Options configures a Client.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// DeployTimeout bounds deploy commands, which wait for the server to
	// load the application.
	DeployTimeout time.Duration
	// RetryDelay is the pause before the single retry of a transient failure.
	RetryDelay time.Duration
	// Transport replaces the default transport; tests inject one.
	Transport http.RoundTripper
	Logger    logging.Logger
}

// Client drives one ServerInstance.
type Client struct {
	instance      *ServerInstance
	http          *http.Client
	readTimeout   time.Duration
	deployTimeout time.Duration
	retryDelay    time.Duration
	logger        logging.Logger

	logMutex  sync.Mutex
	logCursor string
}

// NewClient creates a client for instance.
func NewClient(instance *ServerInstance, opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 3 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.DeployTimeout <= 0 {
		opts.DeployTimeout = 2 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:       http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
			// A local development server presents a self-signed certificate
			// after the https upgrade; it is accepted without verification.
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			TLSHandshakeTimeout: opts.ConnectTimeout,
		}
	}

	return &Client{
		instance: instance,
		http: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		readTimeout:   opts.ReadTimeout,
		deployTimeout: opts.DeployTimeout,
		retryDelay:    opts.RetryDelay,
		logger:        logger.WithComponent("admin"),
		logCursor:     "0",
	}
}

// Instance returns the server instance the client talks to.
func (c *Client) Instance() *ServerInstance {
	return c.instance
}

// Execute runs cmd and returns the response variant it asked for. Transient
// I/O failures are retried once after the retry delay; an http to https
// redirect upgrades the instance and is followed once.
func (c *Client) Execute(ctx context.Context, cmd Command) (Response, error) {
	target := c.instance.CommandURL(cmd)
	redirected := false
	retried := false

	for {
		resp, err := c.do(ctx, cmd, target)
		if err != nil {
			if !retried && retryable(ctx, err) {
				retried = true
				c.logger.Warn(ctx, err, "Admin request failed, retrying", "command", cmd.Verb, "delay", c.retryDelay.String())
				if err := sleep(ctx, c.retryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, errors.WrapNetwork(err, errors.ErrCodeConnect, "admin request "+cmd.Verb+" failed").
				WithContext("url", redactURL(target))
		}

		switch resp.StatusCode() {
		case http.StatusFound:
			location := resp.Headers().Get("Location")
			next, ok := c.upgradeTarget(target, location)
			if !ok || redirected {
				return nil, errors.NewDeployError(errors.ErrCodeRedirect,
					fmt.Sprintf("unexpected redirect to %q", location), nil)
			}
			redirected = true
			c.logger.Info(ctx, "Admin endpoint redirected to https, upgrading", "location", location)
			target = next
			continue
		case http.StatusUnauthorized:
			return resp, errors.NewDeployError(errors.ErrCodeUnauthorized,
				"admin endpoint rejected the credentials", nil)
		}
		return resp, nil
	}
}

// upgradeTarget validates an http to https redirect and upgrades the
// instance. The returned URL is the location to retry.
func (c *Client) upgradeTarget(current, location string) (string, bool) {
	from, err := url.Parse(current)
	if err != nil || from.Scheme != ProtocolHTTP {
		return "", false
	}
	to, err := from.Parse(location)
	if err != nil || to.Scheme != ProtocolHTTPS {
		return "", false
	}
	port, _ := strconv.Atoi(to.Port())
	c.instance.upgrade(port)
	return to.String(), true
}

// timeout returns the bound for one request of cmd, covering the upload, the
// wait for headers and reading the body.
func (c *Client) timeout(cmd Command) time.Duration {
	if cmd.Verb == VerbDeploy || cmd.Payload != "" {
		return c.deployTimeout
	}
	return c.readTimeout
}

func (c *Client) do(ctx context.Context, cmd Command, target string) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(cmd))
	defer cancel()

	var body io.ReadCloser
	var getBody func() (io.ReadCloser, error)
	if cmd.Payload != "" {
		getBody = uploadBody(cmd.Payload)
		b, err := getBody()
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeDeployFailed, "opening artifact "+cmd.Payload)
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, cmd.method(), target, body)
	if err != nil {
		if body != nil {
			body.Close()
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidArgument, err.Error())
	}
	if getBody != nil {
		req.GetBody = getBody
		req.Header.Set("Content-Type", ContentTypeZip)
	}
	accept := cmd.Accept
	if accept == "" {
		accept = ContentTypeJSON
	}
	req.Header.Set("Accept", accept)
	// the management REST interface rejects state-changing requests without it
	req.Header.Set("X-Requested-By", "payara-dev")
	if c.instance.Password != "" {
		req.SetBasicAuth(c.instance.User, c.instance.Password)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug(ctx, "Admin response", "command", cmd.Verb, "status", httpResp.StatusCode)
	return newResponse(accept, httpResp.StatusCode, httpResp.Header, data), nil
}

// retryable reports whether err is a transient transport failure.
// Validation errors, refused connections and cancellation are not.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var de *errors.DevError
	if stderrors.As(err, &de) {
		return false
	}
	if stderrors.Is(err, syscall.ECONNREFUSED) {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	return u.String()
}
