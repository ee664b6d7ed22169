package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
)

// RodDriver drives Chrome over the devtools protocol. When RemoteURL is
// set it attaches to a running browser, otherwise it launches one.
type RodDriver struct {
	mu       sync.Mutex
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	logger   *logrus.Logger
	closed   bool
}

// NewRodDriver - launches or connects to Chrome and opens a page
func NewRodDriver(opts Options, logger *logrus.Logger) (*RodDriver, error) {
	controlURL := opts.RemoteURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().
			Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if bin := findChromeBinary(opts.ChromeBinary); bin != "" {
			l = l.Bin(bin)
		}
		if opts.ProfileDir != "" {
			dir, err := profileDir(opts.ProfileDir)
			if err != nil {
				return nil, err
			}
			l = l.UserDataDir(dir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("failed to connect to chrome at %s: %w", controlURL, err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		logger.WithError(err).Warn("could not ignore certificate errors")
	}

	var (
		page *rod.Page
		err  error
	)
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		_ = b.Close()
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"control_url": controlURL,
		"stealth":     opts.Stealth,
	}).Info("rod browser ready")

	return &RodDriver{browser: b, page: page, launcher: l, logger: logger}, nil
}

// rodError maps devtools failures onto the shared sentinels
func rodError(err error) error {
	if err == nil {
		return nil
	}
	var notFound *rod.ObjectNotFoundError
	var missing *rod.ElementNotFoundError
	msg := err.Error()
	switch {
	case errors.As(err, &notFound), strings.Contains(msg, "Could not find node"), strings.Contains(msg, "Cannot find context with specified id"):
		return fmt.Errorf("%w: %v", entities.ErrStaleHandle, err)
	case errors.As(err, &missing):
		return fmt.Errorf("%w: %v", entities.ErrNoSuchElement, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case strings.Contains(msg, "use of closed network connection"), strings.Contains(msg, "Target closed"):
		return fmt.Errorf("%w: %v", entities.ErrSessionClosed, err)
	}
	return err
}

func rodElement(ctx context.Context, h interfaces.Handle) (*rod.Element, error) {
	el, ok := h.(*rod.Element)
	if !ok {
		return nil, fmt.Errorf("unexpected handle type %T", h)
	}
	return el.Context(ctx), nil
}

func (r *RodDriver) active(ctx context.Context) (*rod.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, entities.ErrSessionClosed
	}
	return r.page.Context(ctx), nil
}

// Locate finds the first element matching locator under root
func (r *RodDriver) Locate(ctx context.Context, root interfaces.Handle, locator entities.Locator) (interfaces.Handle, error) {
	found, err := r.LocateMany(ctx, root, locator)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", locator, entities.ErrNoSuchElement)
	}
	return found[0], nil
}

// LocateMany finds every element matching locator under root without waiting
func (r *RodDriver) LocateMany(ctx context.Context, root interfaces.Handle, locator entities.Locator) ([]interfaces.Handle, error) {
	page, err := r.active(ctx)
	if err != nil {
		return nil, err
	}

	var found rod.Elements
	switch {
	case root == nil && locator.Method == entities.MethodXPath:
		found, err = page.ElementsX(locator.Expression)
	case root == nil && locator.Method == entities.MethodCSS:
		found, err = page.Elements(locator.Expression)
	case locator.Method == entities.MethodXPath || locator.Method == entities.MethodCSS:
		el, herr := rodElement(ctx, root)
		if herr != nil {
			return nil, herr
		}
		if locator.Method == entities.MethodXPath {
			found, err = el.ElementsX(locator.Expression)
		} else {
			found, err = el.Elements(locator.Expression)
		}
	default:
		return nil, &entities.ConfigurationError{Reason: fmt.Sprintf("unknown locator method %q", locator.Method)}
	}
	if err != nil {
		return nil, rodError(err)
	}

	handles := make([]interfaces.Handle, len(found))
	for i, el := range found {
		handles[i] = el
	}
	return handles, nil
}

// Click clicks on an element with the left button
func (r *RodDriver) Click(ctx context.Context, h interfaces.Handle) error {
	if _, err := r.active(ctx); err != nil {
		return err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return err
	}
	return rodError(el.Click(proto.InputMouseButtonLeft, 1))
}

// SendKeys types text into an element
func (r *RodDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	if _, err := r.active(ctx); err != nil {
		return err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return err
	}
	return rodError(el.Input(text))
}

// GetAttribute reads an html attribute, empty when absent
func (r *RodDriver) GetAttribute(ctx context.Context, h interfaces.Handle, name string) (string, error) {
	if _, err := r.active(ctx); err != nil {
		return "", err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return "", err
	}
	value, err := el.Attribute(name)
	if err != nil {
		return "", rodError(err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// GetProperty reads a DOM property
func (r *RodDriver) GetProperty(ctx context.Context, h interfaces.Handle, name string) (interface{}, error) {
	if _, err := r.active(ctx); err != nil {
		return nil, err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return nil, err
	}
	value, err := el.Property(name)
	if err != nil {
		return nil, rodError(err)
	}
	return value.Val(), nil
}

// GetText returns the rendered text of an element
func (r *RodDriver) GetText(ctx context.Context, h interfaces.Handle) (string, error) {
	if _, err := r.active(ctx); err != nil {
		return "", err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return text, rodError(err)
}

// IsDisplayed checks if an element is visible
func (r *RodDriver) IsDisplayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	if _, err := r.active(ctx); err != nil {
		return false, err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return false, err
	}
	ok, err := el.Visible()
	return ok, rodError(err)
}

// IsEnabled checks if an element accepts interaction
func (r *RodDriver) IsEnabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	if _, err := r.active(ctx); err != nil {
		return false, err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return false, err
	}
	disabled, err := el.Disabled()
	return !disabled, rodError(err)
}

// ScrollIntoView scrolls the element into the viewport
func (r *RodDriver) ScrollIntoView(ctx context.Context, h interfaces.Handle) error {
	if _, err := r.active(ctx); err != nil {
		return err
	}
	el, err := rodElement(ctx, h)
	if err != nil {
		return err
	}
	return rodError(el.ScrollIntoView())
}

// ExecuteScript runs a script body with `arguments` bound to args. Element
// handles are passed as remote objects; the result is returned by value.
func (r *RodDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	page, err := r.active(ctx)
	if err != nil {
		return nil, err
	}
	params := make([]interface{}, len(args))
	for i, arg := range args {
		if el, ok := arg.(*rod.Element); ok {
			params[i] = el.Object
			continue
		}
		params[i] = arg
	}
	res, err := page.Eval("function() {\n"+script+"\n}", params...)
	if err != nil {
		return nil, rodError(err)
	}
	return res.Value.Val(), nil
}

// Navigate navigates to a URL and waits for the load event
func (r *RodDriver) Navigate(ctx context.Context, url string) error {
	page, err := r.active(ctx)
	if err != nil {
		return err
	}
	r.logger.Infof("Navigating to: %s", url)
	if err := page.Navigate(url); err != nil {
		return rodError(err)
	}
	return rodError(page.WaitLoad())
}

// CurrentURL returns the current page URL
func (r *RodDriver) CurrentURL(ctx context.Context) (string, error) {
	page, err := r.active(ctx)
	if err != nil {
		return "", err
	}
	info, err := page.Info()
	if err != nil {
		return "", rodError(err)
	}
	return info.URL, nil
}

// Close closes the browser and kills a launched process
func (r *RodDriver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var closeErr error
	if err := r.browser.Close(); err != nil {
		closeErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
	}
	return closeErr
}
