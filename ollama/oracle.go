// Package ollama provides an implementation of codedoc.Oracle backed by a
// local Ollama server's /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/fwojciec/codedoc"
)

// Defaults match a locally served model with moderate output length.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "qwen2.5-coder:7b"
	DefaultTemperature = 0.2
	DefaultNumPredict  = 1024
)

// DefaultPromptTemplate is the prompt used when a request carries no
// override. It receives an AnalysisRequest.
const DefaultPromptTemplate = `You are an expert software engineer and technical writer.
Analyze the following code unit from the file '{{.Unit.Path}}'.
{{- if .Unit.Symbol}}
The unit declares the symbol '{{.Unit.Symbol}}'.
{{- end}}
Explain its purpose, its behavior, and anything a maintainer should know.
Keep it to 2-3 paragraphs. Mention related symbols by name when relevant.

Code:
` + "```" + `
{{.Unit.Source}}
` + "```" + `
{{- if .Context}}{{if .Context.Snippets}}

Related code for reference:
{{- range .Context.Snippets}}
--- {{if .Symbol}}{{.Symbol}} ({{.UnitID}}){{else}}{{.UnitID}}{{end}} ---
{{.Text}}
{{- end}}
{{- end}}{{end}}

Explanation:
`

// Ensure Oracle implements codedoc.Oracle at compile time.
var _ codedoc.Oracle = (*Oracle)(nil)

// Oracle sends analysis requests to an Ollama server. It is safe for
// concurrent use.
type Oracle struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
	numPredict  int
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithBaseURL sets the Ollama server base URL.
// Defaults to DefaultBaseURL if not specified.
func WithBaseURL(u string) Option {
	return func(o *Oracle) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel sets the model name passed to /api/generate.
func WithModel(m string) Option {
	return func(o *Oracle) {
		o.model = m
	}
}

// WithTemperature sets the sampling temperature. Kept low so identical
// inputs produce near-identical outputs, which the result cache depends on.
func WithTemperature(t float64) Option {
	return func(o *Oracle) {
		o.temperature = t
	}
}

// WithNumPredict caps the number of generated tokens.
func WithNumPredict(n int) Option {
	return func(o *Oracle) {
		o.numPredict = n
	}
}

// WithHTTPClient sets the underlying HTTP client. The client should carry no
// timeout of its own; per-attempt deadlines arrive via context.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Oracle) {
		o.client = c
	}
}

// NewOracle creates a new Ollama-backed Oracle.
func NewOracle(opts ...Option) *Oracle {
	o := &Oracle{
		client:      &http.Client{},
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		numPredict:  DefaultNumPredict,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Analyze sends one unit with its context to the model and returns the
// explanation plus the context unit IDs the explanation mentions by symbol.
func (o *Oracle) Analyze(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
	if req == nil || req.Unit == nil {
		return nil, codedoc.Errorf(codedoc.EINVALID, "analysis request requires a unit")
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, codedoc.Errorf(codedoc.EINVALID, "invalid prompt template: %v", err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: o.temperature,
			NumPredict:  o.numPredict,
		},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, codedoc.Errorf(codedoc.EINTERNAL, "malformed response from ollama: %v", err)
	}

	explanation := strings.TrimSpace(gr.Response)
	if explanation == "" {
		return nil, codedoc.Errorf(codedoc.EINTERNAL, "ollama returned empty response")
	}

	return &codedoc.Analysis{
		Explanation: explanation,
		References:  extractReferences(explanation, req),
	}, nil
}

func buildPrompt(req *codedoc.AnalysisRequest) (string, error) {
	text := req.PromptTemplate
	if text == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, req); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// extractReferences scans the explanation for symbols known from the
// request's context set and returns the matching unit IDs, deduplicated and
// sorted. Symbols are matched on word boundaries so "Read" does not match
// inside "ReadAll".
func extractReferences(explanation string, req *codedoc.AnalysisRequest) []string {
	if req.Context == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, s := range req.Context.Snippets {
		if s.Symbol == "" || seen[s.UnitID] {
			continue
		}
		if containsWord(explanation, s.Symbol) {
			seen[s.UnitID] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	refs := make([]string, 0, len(seen))
	for id := range seen {
		refs = append(refs, id)
	}
	sort.Strings(refs)
	return refs
}

func containsWord(text, word string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(word)
		if (start == 0 || !isWordByte(text[start-1])) &&
			(end == len(text) || !isWordByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// classifyTransportError maps request failures to retryability: deadline
// expiry is ETIMEOUT, everything else (connection refused, DNS, reset) is
// EUNAVAILABLE. Both are retryable.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return codedoc.Errorf(codedoc.ETIMEOUT, "ollama request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return codedoc.Errorf(codedoc.EUNAVAILABLE, "ollama unreachable: %v", err)
}

// classifyStatusError maps HTTP status codes: 429 and 5xx are transient
// (EUNAVAILABLE), other 4xx mean the request itself was rejected (EINVALID).
func classifyStatusError(resp *http.Response) error {
	detail := readErrorDetail(resp.Body)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return codedoc.Errorf(codedoc.EUNAVAILABLE, "ollama returned HTTP %d: %s", resp.StatusCode, detail)
	default:
		return codedoc.Errorf(codedoc.EINVALID, "ollama rejected request with HTTP %d: %s", resp.StatusCode, detail)
	}
}

func readErrorDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return "unreadable body"
	}
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// Ping verifies the server is reachable before a run starts.
func (o *Oracle) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatusError(resp)
	}
	return nil
}
