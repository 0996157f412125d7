package tableaskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type resultPayload struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

type askPayload struct {
	Statement string `json:"statement"`
	Ambiguous bool   `json:"ambiguous"`
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("tableaskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "TableAsk API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 10s)")
	format := fs.String("format", "csv", "export format: csv, json, or parquet")
	out := fs.String("out", "", "export output file (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	run := runner{
		client: client,
		base:   strings.TrimRight(*baseURL, "/"),
		apiKey: strings.TrimSpace(*apiKey),
		stdout: stdout,
		stderr: stderr,
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	switch command {
	case "health":
		return run.getJSON(ctx, "/v1/health")
	case "ready":
		return run.getJSON(ctx, "/v1/ready")
	case "session":
		return run.getJSON(ctx, "/v1/session")
	case "upload":
		if len(rest) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: tableaskctl upload <file>")
			return 2
		}
		return run.upload(ctx, rest[0])
	case "upload-object":
		if len(rest) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: tableaskctl upload-object <key>")
			return 2
		}
		return run.postJSON(ctx, "/v1/file", map[string]any{"object_key": rest[0]}, run.printJSON)
	case "target":
		if len(rest) < 1 {
			_, _ = fmt.Fprintln(stderr, "usage: tableaskctl target <persistent|ephemeral> [path]")
			return 2
		}
		body := map[string]any{"mode": rest[0]}
		if len(rest) > 1 {
			body["path"] = rest[1]
		}
		return run.postJSON(ctx, "/v1/target", body, run.printJSON)
	case "ask":
		if len(rest) < 1 {
			_, _ = fmt.Fprintln(stderr, "usage: tableaskctl ask <question>")
			return 2
		}
		return run.postJSON(ctx, "/v1/ask", map[string]any{"question": strings.Join(rest, " ")}, run.printStatement)
	case "execute":
		return run.postJSON(ctx, "/v1/execute", nil, run.printResult)
	case "query":
		if len(rest) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: tableaskctl query <sql>")
			return 2
		}
		return run.postJSON(ctx, "/v1/query", map[string]any{"sql": rest[0]}, run.printResult)
	case "export":
		return run.export(ctx, *format, *out)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

type runner struct {
	client *http.Client
	base   string
	apiKey string
	stdout io.Writer
	stderr io.Writer
}

func (r runner) getJSON(ctx context.Context, path string) int {
	code, body, err := r.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(r.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	return r.printJSON(body)
}

func (r runner) postJSON(ctx context.Context, path string, payload any, render func([]byte) int) int {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			_, _ = fmt.Fprintf(r.stderr, "encode request: %v\n", err)
			return 1
		}
		reader = bytes.NewReader(encoded)
	}
	code, body, err := r.do(ctx, http.MethodPost, path, "application/json", reader)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(r.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	return render(body)
}

func (r runner) upload(ctx context.Context, filePath string) int {
	data, err := os.ReadFile(filePath)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "read file: %v\n", err)
		return 1
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "build upload request: %v\n", err)
		return 1
	}

	code, body, err := r.do(ctx, http.MethodPost, "/v1/file", writer.FormDataContentType(), &buf)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(r.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	return r.printJSON(body)
}

func (r runner) export(ctx context.Context, format, out string) int {
	path := "/v1/export?format=" + url.QueryEscape(format)
	code, body, err := r.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(r.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	if out == "" {
		_, _ = r.stdout.Write(body)
		return 0
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		_, _ = fmt.Fprintf(r.stderr, "write export file: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(r.stdout, "wrote %d bytes to %s\n", len(body), out)
	return 0
}

func (r runner) do(ctx context.Context, method, path, contentType string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func (r runner) printJSON(raw []byte) int {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
		return 0
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(raw))
	}
	return 0
}

func (r runner) printStatement(raw []byte) int {
	var payload askPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return r.printJSON(raw)
	}
	if payload.Ambiguous {
		_, _ = fmt.Fprintln(r.stderr, "warning: response did not match the expected format; statement is unverified")
	}
	_, _ = fmt.Fprintln(r.stdout, payload.Statement)
	return 0
}

func (r runner) printResult(raw []byte) int {
	var payload resultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return r.printJSON(raw)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.stdout)
	tw.SetStyle(table.StyleLight)
	header := table.Row{}
	for _, column := range payload.Columns {
		header = append(header, column)
	}
	tw.AppendHeader(header)
	for _, row := range payload.Rows {
		rendered := table.Row{}
		for _, cell := range row {
			rendered = append(rendered, cell)
		}
		tw.AppendRow(rendered)
	}
	tw.Render()
	_, _ = fmt.Fprintf(r.stdout, "%d row(s)\n", payload.RowCount)
	return 0
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: tableaskctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                      GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                       GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  session                     GET /v1/session")
	_, _ = fmt.Fprintln(w, "  upload <file>               POST /v1/file (multipart)")
	_, _ = fmt.Fprintln(w, "  upload-object <key>         POST /v1/file (from object store)")
	_, _ = fmt.Fprintln(w, "  target <mode> [path]        POST /v1/target")
	_, _ = fmt.Fprintln(w, "  ask <question>              POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  execute                     POST /v1/execute")
	_, _ = fmt.Fprintln(w, "  query <sql>                 POST /v1/query")
	_, _ = fmt.Fprintln(w, "  export [-format] [-out]     GET /v1/export")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
