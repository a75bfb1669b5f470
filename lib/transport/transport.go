// Package transport holds the HTTP plumbing shared by the REST sources: client construction
// and the conversion of failed exchanges into *Error.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"social-signals/lib/restyutil"
	"social-signals/lib/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = time.Minute
	DefaultUserAgent = "social-signals/1.0"

	// response bodies included in errors are cut to this many bytes
	maxBodyExcerpt = 512
)

var ErrTransport = errors.New("transport error")

// Error is returned when a request could not be made or the backend answered with a
// non-success status. It is never retried.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
	// Err is the underlying client error, nil when the backend did answer.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %s - %s", e.Method, e.URL, e.Status, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrTransport
}

// Check converts the result of a resty call into an *Error if the call failed or the status
// is not 2xx, otherwise it returns nil.
func Check(res *resty.Response, err error) error {
	if err != nil {
		out := &Error{Err: err}
		if res != nil && res.Request != nil {
			out.Method = res.Request.Method
			out.URL = res.Request.URL
		}
		return out
	}
	if res.IsSuccess() {
		return nil
	}

	body := res.String()
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt] + "..."
	}
	status := res.Status()
	if status == "" {
		status = fmt.Sprintf("%d %s", res.StatusCode(), http.StatusText(res.StatusCode()))
	}
	return &Error{
		Method:     res.Request.Method,
		URL:        res.Request.URL,
		StatusCode: res.StatusCode(),
		Status:     status,
		Body:       body,
	}
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// MinInterval is a fixed minimum delay between two requests, zero disables it.
	MinInterval time.Duration
	// TracerName names the otel tracer requests are recorded under.
	TracerName string
	// Output receives request/response transcripts when set.
	Output restyutil.InstrumentOutput
}

// NewClient creates a resty client configured the way every source expects.
func NewClient(opts Options) *resty.Client {
	client := resty.New()
	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client.SetHeader("User-Agent", userAgent)

	if opts.MinInterval > 0 {
		// a burst of 1 turns the limiter into a fixed delay between consecutive requests
		limiter := rate.NewLimiter(rate.Every(opts.MinInterval), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "social-signals/http"
	}
	telemetry.InstrumentResty(client, tracerName)
	restyutil.InstrumentClient(client, path.Base(tracerName), opts.Output)

	return client
}
