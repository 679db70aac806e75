package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/registry"
	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// Browser manages one shared headless browser for all browser tools.
// The browser is launched lazily on first use and reused across calls;
// each tool invocation gets its own page.
type Browser struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	cleanup func()
}

// NewBrowser creates a lazy browser manager. Nothing is launched until
// the first tool call needs a page.
func NewBrowser(cfg config.BrowserConfig, logger *zap.Logger) *Browser {
	return &Browser{cfg: cfg, logger: logger}
}

// get connects to (or launches) the shared browser.
func (b *Browser) get() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	controlURL := b.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(b.cfg.Headless)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launching browser: %w", err)
		}
		controlURL = u
		b.cleanup = l.Cleanup
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if b.cleanup != nil {
			b.cleanup()
			b.cleanup = nil
		}
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	b.logger.Info("browser connected", zap.Bool("headless", b.cfg.Headless))
	b.browser = browser
	return browser, nil
}

// Close shuts the shared browser down. Safe to call when it was never
// launched.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	if b.cleanup != nil {
		b.cleanup()
		b.cleanup = nil
	}
	b.browser = nil
	return err
}

// page opens a fresh page bound to ctx and navigated to url. The
// caller must close it.
func (b *Browser) page(ctx context.Context, url string) (*rod.Page, error) {
	browser, err := b.get()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("waiting for %s to load: %w", url, err)
	}
	return page, nil
}

func browserTools(b *Browser) []*registry.Tool {
	urlProp := registry.Property{Type: "string", Description: "Page URL to open."}
	selectorProp := registry.Property{Type: "string", Description: "CSS selector."}

	return []*registry.Tool{
		{
			Name:        "browser_open",
			Description: "Open a web page and return its HTML content.",
			Category:    v1alpha1.CategoryBrowser,
			Schema: registry.Schema{
				Required:   []string{"url"},
				Properties: map[string]registry.Property{"url": urlProp},
			},
			Execute: b.open,
		},
		{
			Name:        "browser_screenshot",
			Description: "Take a screenshot of a web page and save it to a workspace file.",
			Category:    v1alpha1.CategoryBrowser,
			Schema: registry.Schema{
				Required: []string{"url", "save_path"},
				Properties: map[string]registry.Property{
					"url":       urlProp,
					"save_path": {Type: "string", Description: "Destination PNG file in the workspace.", Path: true},
				},
			},
			Execute: b.screenshot,
		},
		{
			Name:        "browser_click",
			Description: "Open a page, click the element matching a selector, and return the resulting HTML.",
			Category:    v1alpha1.CategoryBrowser,
			Schema: registry.Schema{
				Required: []string{"url", "selector"},
				Properties: map[string]registry.Property{
					"url":      urlProp,
					"selector": selectorProp,
					"wait_for": {Type: "string", Description: "Selector to wait for after the click."},
				},
			},
			Execute: b.click,
		},
		{
			Name:        "browser_type",
			Description: "Open a page, type text into the element matching a selector, optionally submit, and return the resulting HTML.",
			Category:    v1alpha1.CategoryBrowser,
			Schema: registry.Schema{
				Required: []string{"url", "selector", "text"},
				Properties: map[string]registry.Property{
					"url":             urlProp,
					"selector":        selectorProp,
					"text":            {Type: "string", Description: "Text to type."},
					"submit_selector": {Type: "string", Description: "Element to click after typing."},
					"wait_for":        {Type: "string", Description: "Selector to wait for afterwards."},
				},
			},
			Execute: b.typeText,
		},
		{
			Name:        "browser_extract",
			Description: "Open a page and extract text or an attribute from elements matching a selector.",
			Category:    v1alpha1.CategoryBrowser,
			Schema: registry.Schema{
				Required: []string{"url", "selector"},
				Properties: map[string]registry.Property{
					"url":      urlProp,
					"selector": selectorProp,
					"attr":     {Type: "string", Description: "Attribute to extract instead of inner text."},
					"all":      {Type: "boolean", Description: "Extract every match instead of the first.", Default: false},
				},
			},
			Execute: b.extract,
		},
		{
			Name:        "browser_wait",
			Description: "Open a page, wait for an element to appear, and return the page HTML.",
			Category:    v1alpha1.CategoryBrowser,
			Schema: registry.Schema{
				Required: []string{"url", "selector"},
				Properties: map[string]registry.Property{
					"url":      urlProp,
					"selector": selectorProp,
				},
			},
			Execute: b.waitFor,
		},
	}
}

func (b *Browser) open(ctx context.Context, args map[string]any) (string, error) {
	page, err := b.page(ctx, args["url"].(string))
	if err != nil {
		return "", err
	}
	defer page.Close()

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	return clamp(html), nil
}

func (b *Browser) screenshot(ctx context.Context, args map[string]any) (string, error) {
	savePath := args["save_path"].(string)

	page, err := b.page(ctx, args["url"].(string))
	if err != nil {
		return "", err
	}
	defer page.Close()

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("capturing screenshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(savePath, data, 0o644); err != nil {
		return "", err
	}
	return "saved screenshot to " + savePath, nil
}

func (b *Browser) click(ctx context.Context, args map[string]any) (string, error) {
	page, err := b.page(ctx, args["url"].(string))
	if err != nil {
		return "", err
	}
	defer page.Close()

	el, err := page.Element(args["selector"].(string))
	if err != nil {
		return "", fmt.Errorf("finding element: %w", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("clicking element: %w", err)
	}

	if waitFor, ok := args["wait_for"].(string); ok && waitFor != "" {
		if _, err := page.Element(waitFor); err != nil {
			return "", fmt.Errorf("waiting for %q: %w", waitFor, err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	return clamp(html), nil
}

func (b *Browser) typeText(ctx context.Context, args map[string]any) (string, error) {
	page, err := b.page(ctx, args["url"].(string))
	if err != nil {
		return "", err
	}
	defer page.Close()

	el, err := page.Element(args["selector"].(string))
	if err != nil {
		return "", fmt.Errorf("finding element: %w", err)
	}
	if err := el.Input(args["text"].(string)); err != nil {
		return "", fmt.Errorf("typing into element: %w", err)
	}

	if submit, ok := args["submit_selector"].(string); ok && submit != "" {
		btn, err := page.Element(submit)
		if err != nil {
			return "", fmt.Errorf("finding submit element: %w", err)
		}
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return "", fmt.Errorf("clicking submit element: %w", err)
		}
	}
	if waitFor, ok := args["wait_for"].(string); ok && waitFor != "" {
		if _, err := page.Element(waitFor); err != nil {
			return "", fmt.Errorf("waiting for %q: %w", waitFor, err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	return clamp(html), nil
}

func (b *Browser) extract(ctx context.Context, args map[string]any) (string, error) {
	page, err := b.page(ctx, args["url"].(string))
	if err != nil {
		return "", err
	}
	defer page.Close()

	selector := args["selector"].(string)
	attr, _ := args["attr"].(string)
	all := args["all"].(bool)

	extractOne := func(el *rod.Element) (string, error) {
		if attr != "" {
			val, err := el.Attribute(attr)
			if err != nil {
				return "", err
			}
			if val == nil {
				return "", nil
			}
			return *val, nil
		}
		return el.Text()
	}

	if !all {
		el, err := page.Element(selector)
		if err != nil {
			return "", fmt.Errorf("finding element: %w", err)
		}
		text, err := extractOne(el)
		if err != nil {
			return "", err
		}
		return clamp(text), nil
	}

	els, err := page.Elements(selector)
	if err != nil {
		return "", fmt.Errorf("finding elements: %w", err)
	}
	results := make([]string, 0, len(els))
	for _, el := range els {
		text, err := extractOne(el)
		if err != nil {
			return "", err
		}
		results = append(results, text)
	}
	out, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return clamp(string(out)), nil
}

func (b *Browser) waitFor(ctx context.Context, args map[string]any) (string, error) {
	page, err := b.page(ctx, args["url"].(string))
	if err != nil {
		return "", err
	}
	defer page.Close()

	if _, err := page.Element(args["selector"].(string)); err != nil {
		return "", fmt.Errorf("waiting for element: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	return clamp(html), nil
}
