package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// PlaywrightDriver drives Chromium through playwright
type PlaywrightDriver struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
	storagePath string
	logger      *logrus.Logger
	mu          sync.Mutex
}

const browserStateFile = "state.json"

// NewPlaywrightDriver - starts playwright, restores saved storage state and opens a page
func NewPlaywrightDriver(opts Options, logger *logrus.Logger) (*PlaywrightDriver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	stateDir, err := profileDir(opts.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	storagePath := filepath.Join(stateDir, browserStateFile)

	contextOptions := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
		BypassCSP:         playwright.Bool(true),
	}

	if data, err := os.ReadFile(storagePath); err == nil {
		var storageState playwright.StorageState
		if err := json.Unmarshal(data, &storageState); err == nil {
			contextOptions.StorageState = storageState.ToOptionalStorageState()
			logger.Debugf("Restored browser state from %s", storagePath)
		}
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-popup-blocking",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-infobars",
			"--disable-notifications",
		},
	}
	if bin := findChromeBinary(opts.ChromeBinary); opts.ChromeBinary != "" && bin != "" {
		launch.ExecutablePath = playwright.String(bin)
	}

	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(contextOptions)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.OnDialog(func(dialog playwright.Dialog) {
		dialog.Accept()
	})

	return &PlaywrightDriver{
		pw:          pw,
		browser:     browser,
		context:     bctx,
		page:        page,
		storagePath: storagePath,
		logger:      logger,
	}, nil
}

// playwrightSelector prefixes the expression with its selector engine
func playwrightSelector(locator entities.Locator) (string, error) {
	switch locator.Method {
	case entities.MethodXPath:
		return "xpath=" + locator.Expression, nil
	case entities.MethodCSS:
		return "css=" + locator.Expression, nil
	}
	return "", &entities.ConfigurationError{Reason: fmt.Sprintf("unknown locator method %q", locator.Method)}
}

// playwrightError maps playwright failures onto the shared sentinels
func playwrightError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not attached to the DOM"), strings.Contains(msg, "JSHandle is disposed"):
		return fmt.Errorf("%w: %v", entities.ErrStaleHandle, err)
	case isClosedError(err):
		return fmt.Errorf("%w: %v", entities.ErrSessionClosed, err)
	}
	return err
}

func isClosedError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "closed") || strings.Contains(msg, "target closed")
}

func playwrightElement(h interfaces.Handle) (playwright.ElementHandle, error) {
	el, ok := h.(playwright.ElementHandle)
	if !ok {
		return nil, fmt.Errorf("unexpected handle type %T", h)
	}
	return el, nil
}

func (p *PlaywrightDriver) active() (playwright.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == nil {
		return nil, entities.ErrSessionClosed
	}
	return p.page, nil
}

// Locate finds the first element matching locator under root
func (p *PlaywrightDriver) Locate(ctx context.Context, root interfaces.Handle, locator entities.Locator) (interfaces.Handle, error) {
	found, err := p.LocateMany(ctx, root, locator)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", locator, entities.ErrNoSuchElement)
	}
	return found[0], nil
}

// LocateMany finds every element matching locator under root without waiting
func (p *PlaywrightDriver) LocateMany(ctx context.Context, root interfaces.Handle, locator entities.Locator) ([]interfaces.Handle, error) {
	page, err := p.active()
	if err != nil {
		return nil, err
	}
	selector, err := playwrightSelector(locator)
	if err != nil {
		return nil, err
	}

	var found []playwright.ElementHandle
	if root == nil {
		found, err = page.QuerySelectorAll(selector)
	} else {
		el, herr := playwrightElement(root)
		if herr != nil {
			return nil, herr
		}
		found, err = el.QuerySelectorAll(selector)
	}
	if err != nil {
		return nil, playwrightError(err)
	}

	handles := make([]interfaces.Handle, len(found))
	for i, el := range found {
		handles[i] = el
	}
	return handles, nil
}

// Click clicks on an element
func (p *PlaywrightDriver) Click(ctx context.Context, h interfaces.Handle) error {
	el, err := playwrightElement(h)
	if err != nil {
		return err
	}
	return playwrightError(el.Click())
}

// SendKeys types text into an element
func (p *PlaywrightDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	el, err := playwrightElement(h)
	if err != nil {
		return err
	}
	return playwrightError(el.Type(text))
}

// GetAttribute reads an html attribute
func (p *PlaywrightDriver) GetAttribute(ctx context.Context, h interfaces.Handle, name string) (string, error) {
	el, err := playwrightElement(h)
	if err != nil {
		return "", err
	}
	value, err := el.GetAttribute(name)
	return value, playwrightError(err)
}

// GetProperty reads a DOM property as a json value
func (p *PlaywrightDriver) GetProperty(ctx context.Context, h interfaces.Handle, name string) (interface{}, error) {
	el, err := playwrightElement(h)
	if err != nil {
		return nil, err
	}
	prop, err := el.GetProperty(name)
	if err != nil {
		return nil, playwrightError(err)
	}
	value, err := prop.JSONValue()
	return value, playwrightError(err)
}

// GetText returns the rendered text of an element
func (p *PlaywrightDriver) GetText(ctx context.Context, h interfaces.Handle) (string, error) {
	el, err := playwrightElement(h)
	if err != nil {
		return "", err
	}
	text, err := el.InnerText()
	return text, playwrightError(err)
}

// IsDisplayed checks if an element is visible
func (p *PlaywrightDriver) IsDisplayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	el, err := playwrightElement(h)
	if err != nil {
		return false, err
	}
	ok, err := el.IsVisible()
	return ok, playwrightError(err)
}

// IsEnabled checks if an element accepts interaction
func (p *PlaywrightDriver) IsEnabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	el, err := playwrightElement(h)
	if err != nil {
		return false, err
	}
	ok, err := el.IsEnabled()
	return ok, playwrightError(err)
}

// ScrollIntoView scrolls the element into the viewport
func (p *PlaywrightDriver) ScrollIntoView(ctx context.Context, h interfaces.Handle) error {
	el, err := playwrightElement(h)
	if err != nil {
		return err
	}
	return playwrightError(el.ScrollIntoViewIfNeeded())
}

// ExecuteScript runs a script body with `arguments` bound to args.
// Playwright takes a single argument, so args travel as one array.
func (p *PlaywrightDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	page, err := p.active()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []interface{}{}
	}
	expression := "(args) => (function() {\n" + script + "\n}).apply(null, args)"
	result, err := page.Evaluate(expression, args)
	return result, playwrightError(err)
}

// Navigate - navigates to the specified URL
func (p *PlaywrightDriver) Navigate(ctx context.Context, url string) error {
	page, err := p.active()
	if err != nil {
		return err
	}
	p.logger.Infof("Navigating to: %s", url)
	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return playwrightError(err)
}

// CurrentURL returns the current page URL
func (p *PlaywrightDriver) CurrentURL(ctx context.Context) (string, error) {
	page, err := p.active()
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

// SaveState - saves browser state to persistent storage
func (p *PlaywrightDriver) SaveState() error {
	if p.context == nil || p.storagePath == "" {
		return nil
	}
	if _, err := p.context.StorageState(p.storagePath); err != nil {
		if isClosedError(err) {
			return nil
		}
		return fmt.Errorf("failed to save browser state: %w", err)
	}
	return nil
}

// Close - closes the browser and saves state
func (p *PlaywrightDriver) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == nil {
		return nil
	}
	p.page = nil

	var closeErr error
	if err := p.SaveState(); err != nil {
		closeErr = err
	}

	if p.context != nil {
		if err := p.context.Close(); err != nil && !isClosedError(err) {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to close context: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to close context: %w", err)
			}
		}
		p.context = nil
	}

	if p.browser != nil {
		if err := p.browser.Close(); err != nil && !isClosedError(err) {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to close browser: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		}
		p.browser = nil
	}

	if p.pw != nil {
		if err := p.pw.Stop(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("failed to stop playwright: %w", err)
		}
		p.pw = nil
	}

	return closeErr
}
