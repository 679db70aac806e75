package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/registry"
	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

func utilityTools() []*registry.Tool {
	return []*registry.Tool{
		{
			Name:        "http_request",
			Description: "Make an HTTP request and return the status, headers, and body.",
			Category:    v1alpha1.CategoryUtility,
			Schema: registry.Schema{
				Required: []string{"method", "url"},
				Properties: map[string]registry.Property{
					"method":  {Type: "string", Description: "HTTP method (GET, POST, ...)."},
					"url":     {Type: "string", Description: "URL to request."},
					"headers": {Type: "object", Description: "Request headers."},
					"body":    {Type: "string", Description: "Raw request body."},
				},
			},
			Execute: httpRequest,
		},
		{
			Name:        "download_url",
			Description: "Download a URL and save it to a workspace file.",
			Category:    v1alpha1.CategoryUtility,
			Schema: registry.Schema{
				Required: []string{"url", "save_path"},
				Properties: map[string]registry.Property{
					"url":       {Type: "string", Description: "URL to download."},
					"save_path": {Type: "string", Description: "Destination file in the workspace.", Path: true},
				},
			},
			Execute: downloadURL,
		},
		{
			Name:        "math_op",
			Description: "Perform a math operation: add, subtract, multiply, divide, power, sqrt.",
			Category:    v1alpha1.CategoryUtility,
			Schema: registry.Schema{
				Required: []string{"operation", "a"},
				Properties: map[string]registry.Property{
					"operation": {Type: "string", Description: "One of add, subtract, multiply, divide, power, sqrt."},
					"a":         {Type: "number", Description: "First operand."},
					"b":         {Type: "number", Description: "Second operand (unused for sqrt)."},
				},
			},
			Execute: mathOp,
		},
		{
			Name:        "time_op",
			Description: "Time helpers: now, today, timestamp, or format an RFC 3339 instant with a Go layout.",
			Category:    v1alpha1.CategoryUtility,
			Schema: registry.Schema{
				Required: []string{"operation"},
				Properties: map[string]registry.Property{
					"operation": {Type: "string", Description: "One of now, today, timestamp, format."},
					"value":     {Type: "string", Description: "RFC 3339 instant for the format operation."},
					"layout":    {Type: "string", Description: "Go time layout for the format operation."},
				},
			},
			Execute: timeOp,
		},
		{
			Name:        "sleep",
			Description: "Wait for a number of seconds. Useful for rate limiting or polling.",
			Category:    v1alpha1.CategoryUtility,
			Schema: registry.Schema{
				Required: []string{"seconds"},
				Properties: map[string]registry.Property{
					"seconds": {Type: "number", Description: "Seconds to wait, fractions allowed."},
				},
			},
			Execute: sleep,
		},
	}
}

func httpRequest(ctx context.Context, args map[string]any) (string, error) {
	method := strings.ToUpper(args["method"].(string))
	url := args["url"].(string)

	var body io.Reader
	if raw, ok := args["body"].(string); ok && raw != "" {
		body = strings.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return "", err
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxOutput))
	if err != nil {
		return "", err
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	out, err := json.Marshal(map[string]any{
		"statusCode": resp.StatusCode,
		"headers":    headers,
		"body":       string(respBody),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func downloadURL(ctx context.Context, args map[string]any) (string, error) {
	url := args["url"].(string)
	savePath := args["save_path"].(string)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(savePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("saved %d bytes to %s", n, savePath), nil
}

func mathOp(_ context.Context, args map[string]any) (string, error) {
	op := args["operation"].(string)
	a := args["a"].(float64)
	b, hasB := args["b"].(float64)

	needB := func() error {
		if !hasB {
			return fmt.Errorf("operation %q requires argument b", op)
		}
		return nil
	}

	var result float64
	switch op {
	case "add":
		if err := needB(); err != nil {
			return "", err
		}
		result = a + b
	case "subtract":
		if err := needB(); err != nil {
			return "", err
		}
		result = a - b
	case "multiply":
		if err := needB(); err != nil {
			return "", err
		}
		result = a * b
	case "divide":
		if err := needB(); err != nil {
			return "", err
		}
		if b == 0 {
			return "", fmt.Errorf("division by zero")
		}
		result = a / b
	case "power":
		if err := needB(); err != nil {
			return "", err
		}
		result = math.Pow(a, b)
	case "sqrt":
		if a < 0 {
			return "", fmt.Errorf("cannot take sqrt of a negative number")
		}
		result = math.Sqrt(a)
	default:
		return "", fmt.Errorf("unsupported operation %q", op)
	}

	return fmt.Sprintf("%g", result), nil
}

func timeOp(_ context.Context, args map[string]any) (string, error) {
	op := args["operation"].(string)
	switch op {
	case "now":
		return time.Now().Format(time.RFC3339), nil
	case "today":
		return time.Now().Format("2006-01-02"), nil
	case "timestamp":
		return fmt.Sprintf("%d", time.Now().Unix()), nil
	case "format":
		value, _ := args["value"].(string)
		layout, _ := args["layout"].(string)
		if value == "" || layout == "" {
			return "", fmt.Errorf("format requires value and layout")
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return "", fmt.Errorf("parsing value: %w", err)
		}
		return t.Format(layout), nil
	default:
		return "", fmt.Errorf("unsupported operation %q", op)
	}
}

func sleep(ctx context.Context, args map[string]any) (string, error) {
	secs := args["seconds"].(float64)
	if secs < 0 {
		return "", fmt.Errorf("seconds must not be negative")
	}

	select {
	case <-time.After(time.Duration(secs * float64(time.Second))):
		return fmt.Sprintf("waited %g seconds", secs), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
