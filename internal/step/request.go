package step

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/extractor"
	"github.com/torosent/harraw/internal/httpclient"
	"github.com/torosent/harraw/internal/pool"
	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/tracing"
	"github.com/torosent/harraw/internal/variables"
)

// StatusUnreachable is reported when a request produced no HTTP response.
const StatusUnreachable = 520

const userAgent = "harraw"

// Request performs one HTTP call and reports its timing.
type Request struct {
	name    string
	url     string
	method  string
	headers map[string]string
	body    string
	assign  string
	extract []extractor.Rule
	item    *Item
}

// NewRequest builds a Request from `request: {url, method, headers, body}` and
// the optional item-level `assign` and `extract` keys. item is nil for steps
// that are not generated.
func NewRequest(def Definition, item *Item) (*Request, error) {
	name, err := Extract(def, "name")
	if err != nil {
		return nil, err
	}
	block, err := extractBlock(def, "request")
	if err != nil {
		return nil, err
	}
	rawURL, err := Extract(block, "url")
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	if m, ok, err := ExtractOptional(block, "method"); err != nil {
		return nil, err
	} else if ok {
		method = strings.ToUpper(m)
	}

	body, _, err := ExtractOptional(block, "body")
	if err != nil {
		return nil, err
	}
	assign, _, err := ExtractOptional(def, "assign")
	if err != nil {
		return nil, err
	}

	extract, err := extractor.ParseRules(def["extract"])
	if err != nil {
		return nil, fmt.Errorf("request %q: %w", name, err)
	}

	headers := map[string]string{}
	if raw, ok := block["headers"]; ok && raw != nil {
		hmap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("`headers` of %q needs to be a mapping", name)
		}
		for key := range hmap {
			value, err := Extract(hmap, key)
			if err != nil {
				return nil, err
			}
			headers[key] = value
		}
	}

	return &Request{
		name:    name,
		url:     rawURL,
		method:  method,
		headers: headers,
		body:    body,
		assign:  assign,
		extract: extract,
		item:    item,
	}, nil
}

// Name returns the step name before interpolation.
func (r *Request) Name() string { return r.name }

// Item returns the generator binding, or nil.
func (r *Request) Item() *Item { return r.item }

// Execute sends the request through the pooled client for its origin and appends
// exactly one report. Transport failures are reported with StatusUnreachable;
// only interpolation and request construction errors are returned.
func (r *Request) Execute(ctx context.Context, vars *variables.Context, sink *report.Sink, env *Env) error {
	r.item.bind(vars)

	builder, name, err := r.build(vars, env)
	if err != nil {
		return fmt.Errorf("request %q: %w", r.name, err)
	}

	target, err := url.Parse(builder.Target())
	if err != nil {
		return fmt.Errorf("request %q: parse url: %w", name, err)
	}

	client, _ := env.pool().Get(pool.MakePoolKey(target), func() *http.Client {
		return newClient(env)
	})

	ctx, span := tracing.StartRequestSpan(ctx, env.Tracing.Tracer(), name, builder.Method(), builder.Target())
	req, err := builder.Build(ctx)
	if err != nil {
		tracing.EndSpan(span, err)
		return fmt.Errorf("request %q: %w", name, err)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if env.Tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	printer := env.printer()
	if printer.IsVerbose() {
		printer.Verbose("%s %s", req.Method, req.URL)
		for _, key := range sortedKeys(req.Header) {
			printer.Verbose("  %s: %s", key, strings.Join(req.Header[key], ", "))
		}
	}

	begin := time.Now()
	resp, err := client.Do(req)
	var respBody []byte
	if err == nil {
		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
	}
	elapsed := time.Since(begin)

	status := StatusUnreachable
	if resp != nil {
		status = resp.StatusCode
	}
	duration := durationIn(elapsed, env)
	sink.Append(report.Report{Name: name, Duration: duration, Status: status})

	if err != nil {
		tracing.EndSpan(span, err, tracing.AttrStatusCode.Int(status))
		printer.Warn("Error connecting '%s': %v", builder.Target(), err)
		return nil
	}
	tracing.EndSpan(span, nil, tracing.AttrStatusCode.Int(status))

	printer.Step(name, r.describe(builder.Target(), status, duration, env))
	if printer.IsVerbose() {
		for _, key := range sortedKeys(resp.Header) {
			printer.Verbose("  %s: %s", key, strings.Join(resp.Header[key], ", "))
		}
		printer.Verbose("%s", respBody)
	}

	if r.assign != "" {
		vars.Set(r.assign, responseValue(resp, respBody))
	}
	for variable, value := range extractor.Apply(respBody, status, r.extract, printer) {
		vars.Set(variable, value)
	}
	return nil
}

// build interpolates the request parts against vars.
func (r *Request) build(vars *variables.Context, env *Env) (*httpclient.RequestBuilder, string, error) {
	name, err := env.resolve(r.name, vars)
	if err != nil {
		return nil, "", err
	}

	target, err := env.resolve(r.url, vars)
	if err != nil {
		return nil, "", err
	}
	if !strings.HasPrefix(target, "http") {
		base := ""
		if env != nil && env.Config != nil {
			base = env.Config.Base
		}
		target = base + target
	}

	method, err := env.resolve(r.method, vars)
	if err != nil {
		return nil, "", err
	}

	headers := make(map[string]string, len(r.headers))
	for key, value := range r.headers {
		resolved, err := env.resolve(value, vars)
		if err != nil {
			return nil, "", err
		}
		headers[key] = resolved
	}

	body, err := env.resolve(r.body, vars)
	if err != nil {
		return nil, "", err
	}

	builder, err := httpclient.NewRequestBuilder(method, target, headers, body)
	if err != nil {
		return nil, "", err
	}
	return builder, name, nil
}

func (r *Request) describe(target string, status int, duration float64, env *Env) string {
	statusText := console.Name.Render(fmt.Sprint(status))
	if status < 200 || status >= 400 {
		statusText = console.Failure.Render(fmt.Sprint(status))
	}
	unit := "ms"
	if env != nil && env.Config != nil {
		unit = env.Config.DurationUnit()
	}
	return fmt.Sprintf("%s %s %s", console.Key.Render(target), statusText, console.Value.Render(fmt.Sprintf("%.0f%s", duration, unit)))
}

// pool returns the shared client pool. An Env without one gets a throwaway pool
// so clients are simply not shared.
func (e *Env) pool() *pool.ClientPool {
	if e.Pool == nil {
		return pool.NewClientPool()
	}
	return e.Pool
}

func newClient(env *Env) *http.Client {
	cfg := env.Config
	if cfg == nil {
		return httpclient.NewClient(0, false)
	}
	return httpclient.NewClient(cfg.Timeout, cfg.NoCheckCertificate)
}

// durationIn converts elapsed to milliseconds, or nanoseconds when configured.
func durationIn(elapsed time.Duration, env *Env) float64 {
	if env != nil && env.Config != nil && env.Config.Nanosec {
		return float64(elapsed.Nanoseconds())
	}
	return float64(elapsed.Nanoseconds()) / float64(time.Millisecond)
}

// responseValue is what an assigning request stores: status, body (decoded JSON
// when possible) and headers with lowercase names.
func responseValue(resp *http.Response, body []byte) map[string]any {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		decoded = string(body)
	}

	headers := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}

	return map[string]any{
		"status":  resp.StatusCode,
		"body":    decoded,
		"headers": headers,
	}
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

