package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/igolaizola/sonetra/pkg/ratelimit"
)

// DefaultHost is the local development backend.
const DefaultHost = "http://localhost:8001"

type Client struct {
	client    *http.Client
	debug     bool
	ratelimit ratelimit.Lock
	host      string

	// One tracker per workflow, at most one request in flight each.
	analyzeOp    Operation
	transitionOp Operation
	transferOp   Operation
}

type Config struct {
	Host   string
	Wait   time.Duration
	Debug  bool
	Proxy  string
	Client *http.Client
}

func New(cfg *Config) *Client {
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			// Copy the client so a caller-supplied one is not mutated
			proxied := *client
			proxied.Transport = &http.Transport{
				Proxy: http.ProxyURL(u),
			}
			client = &proxied
		}
	}
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		client:    client,
		ratelimit: ratelimit.New(wait),
		debug:     cfg.Debug,
		host:      strings.TrimSuffix(host, "/"),
	}
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

type errStatusCode int

func (e errStatusCode) Error() string {
	return fmt.Sprintf("%d", e)
}

// form builds a multipart request body.
type form struct {
	writer *multipart.Writer
	data   *bytes.Buffer
}

func newForm() *form {
	var buf bytes.Buffer
	return &form{
		writer: multipart.NewWriter(&buf),
		data:   &buf,
	}
}

func (f *form) addFile(field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("couldn't open %q: %w", path, err)
	}
	defer file.Close()
	part, err := f.writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("couldn't create form file %q: %w", field, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("couldn't copy %q to form: %w", path, err)
	}
	return nil
}

func (f *form) addValue(field, value string) error {
	if err := f.writer.WriteField(field, value); err != nil {
		return fmt.Errorf("couldn't write form field %q: %w", field, err)
	}
	return nil
}

func (f *form) close() error {
	return f.writer.Close()
}

// do issues a single request. Each workflow sends exactly one request,
// there is no retry loop.
func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	var body []byte
	var reqBody io.Reader
	var contentType string
	if f, ok := in.(*form); ok {
		reqBody = f.data
		contentType = f.writer.FormDataContentType()
	} else if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("engine: couldn't marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(body)
		contentType = "application/json"
	}
	c.log("engine: do %s %s %s", method, path, string(body))

	// Check if path is absolute
	u := fmt.Sprintf("%s/%s", c.host, path)
	if strings.HasPrefix(path, "http") {
		u = path
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("engine: couldn't create request: %w", err)
	}
	req.Header.Set("accept", "*/*")
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}

	unlock := c.ratelimit.Lock(ctx)
	defer unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: couldn't %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine: couldn't read response body: %w", err)
	}
	c.log("engine: response %s %s %d", method, path, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errMessage := string(respBody)
		if len(errMessage) > 100 {
			errMessage = errMessage[:100] + "..."
		}
		return nil, fmt.Errorf("engine: %s %s returned (%s): %w", method, u, errMessage, errStatusCode(resp.StatusCode))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("engine: couldn't unmarshal response body (%T): %w", out, err)
		}
	}
	return respBody, nil
}
