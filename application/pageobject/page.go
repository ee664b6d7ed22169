package pageobject

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"page_objects/application/wait"
	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// PageState tracks where a page is in its transition
type PageState int

const (
	PageInitial PageState = iota
	PageTransitioning
	PageStable
)

func (s PageState) String() string {
	switch s {
	case PageTransitioning:
		return "transitioning"
	case PageStable:
		return "stable"
	default:
		return "initial"
	}
}

// contingentPrefix marks urls and patterns relative to the parent page url
const contingentPrefix = "./"

// RedirectFunc runs after the page navigated and before arrival is confirmed,
// for pages reached through an intermediate step such as a login form
type RedirectFunc func(ctx context.Context, p *Page) error

// LoadedFunc reports whether the page finished loading
type LoadedFunc func(ctx context.Context, p *Page) (bool, error)

// Page is the root of a view tree, bound to a url or a url pattern
type Page struct {
	structure
	session  *Session
	parent   *Page
	url      string
	pattern  *regexp.Regexp
	timeout  time.Duration
	isLoaded LoadedFunc
	redirect RedirectFunc
	state    PageState
}

// PageOption configures a page
type PageOption func(*pageConfig)

type pageConfig struct {
	url      string
	urlArgs  []interface{}
	pattern  string
	timeout  *time.Duration
	isLoaded LoadedFunc
	redirect RedirectFunc
}

// URL binds the page to a fixed url, filled from args when it holds placeholders
func URL(template string, args ...interface{}) PageOption {
	return func(c *pageConfig) {
		c.url = template
		c.urlArgs = args
	}
}

// Pattern binds the page to any url matching the regular expression
func Pattern(pattern string) PageOption {
	return func(c *pageConfig) { c.pattern = pattern }
}

// PageTimeout overrides the session timeout for transitions
func PageTimeout(d time.Duration) PageOption {
	return func(c *pageConfig) { c.timeout = &d }
}

// IsLoaded sets the readiness predicate checked on arrival
func IsLoaded(fn LoadedFunc) PageOption {
	return func(c *pageConfig) { c.isLoaded = fn }
}

// Redirect sets the callback run after navigating
func Redirect(fn RedirectFunc) PageOption {
	return func(c *pageConfig) { c.redirect = fn }
}

// NewPage - creates a root page and transitions to it
func NewPage(ctx context.Context, session *Session, name string, opts ...PageOption) (*Page, error) {
	return newPage(ctx, session, nil, name, opts)
}

// Open creates a page reached from p; contingent urls resolve against p's url
func (p *Page) Open(ctx context.Context, name string, opts ...PageOption) (*Page, error) {
	return newPage(ctx, p.session, p, name, opts)
}

func newPage(ctx context.Context, session *Session, parent *Page, name string, opts []PageOption) (*Page, error) {
	if session == nil {
		return nil, &entities.ConfigurationError{Reason: fmt.Sprintf("page %q has no session", name)}
	}
	cfg := &pageConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Page{
		structure: structure{name: name, kind: "page"},
		session:   session,
		parent:    parent,
		timeout:   session.timeout,
		isLoaded:  cfg.isLoaded,
		redirect:  cfg.redirect,
	}
	if cfg.timeout != nil {
		p.timeout = *cfg.timeout
	}
	if err := p.bind(cfg); err != nil {
		return nil, fmt.Errorf("page %s: %w", p, err)
	}
	if err := p.transition(ctx, false); err != nil {
		return nil, err
	}
	return p, nil
}

// bind resolves the url or pattern the page transitions to
func (p *Page) bind(cfg *pageConfig) error {
	switch {
	case cfg.url != "":
		url := cfg.url
		if len(cfg.urlArgs) > 0 {
			formatted, err := entities.FormatTemplate(url, cfg.urlArgs...)
			if err != nil {
				return err
			}
			url = formatted
		}
		if strings.HasPrefix(url, contingentPrefix) {
			if p.parent == nil {
				return &entities.ConfigurationError{Reason: fmt.Sprintf("contingent url %q needs a parent page", url)}
			}
			url = p.parent.url + strings.TrimPrefix(url, contingentPrefix)
		}
		p.url = url
	case cfg.pattern != "":
		pattern := cfg.pattern
		if strings.HasPrefix(pattern, contingentPrefix) {
			if p.parent == nil {
				return &entities.ConfigurationError{Reason: fmt.Sprintf("contingent pattern %q needs a parent page", pattern)}
			}
			pattern = regexp.QuoteMeta(p.parent.url) + strings.TrimPrefix(pattern, contingentPrefix)
		}
		re, err := regexp.Compile(`^(?:` + pattern + `)`)
		if err != nil {
			return &entities.ConfigurationError{Reason: fmt.Sprintf("invalid pattern %q: %v", pattern, err)}
		}
		p.pattern = re
	default:
		return &entities.ConfigurationError{Reason: "a page needs a url or a pattern"}
	}
	return nil
}

func (p *Page) fields() logrus.Fields {
	return logrus.Fields{"page": p.String(), "url": p.url}
}

// transition moves the browser to the page. A fixed url is navigated to
// when the location differs (or always, when reload is set); a pattern
// never navigates and waits for the location to match instead.
func (p *Page) transition(ctx context.Context, reload bool) error {
	if err := p.session.check(); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	p.state = PageTransitioning
	driver := p.session.driver

	if p.pattern != nil {
		return p.arrive(ctx, fmt.Sprintf("failed to transition to a url matching %q after %s", p.pattern, p.timeout), func(current string) bool {
			return p.pattern.MatchString(current)
		})
	}

	current, err := driver.CurrentURL(ctx)
	if err != nil {
		p.state = PageInitial
		return fmt.Errorf("%s: %w", p, err)
	}
	if reload || current != p.url {
		p.session.logger.WithFields(p.fields()).WithField("from", current).Info("navigating")
		if err := driver.Navigate(ctx, p.url); err != nil {
			p.state = PageInitial
			return fmt.Errorf("%s: %w", p, err)
		}
		if p.redirect != nil {
			if err := p.redirect(ctx, p); err != nil {
				p.state = PageInitial
				return fmt.Errorf("%s redirect: %w", p, err)
			}
		}
	}
	return p.arrive(ctx, fmt.Sprintf("failed to transition from %q to %q after %s", current, p.url, p.timeout), func(current string) bool {
		return current == p.url
	})
}

// arrive polls until the location satisfies at and the page is loaded
func (p *Page) arrive(ctx context.Context, description string, at func(current string) bool) error {
	current, err := wait.Poll(ctx, pollOptions[string](p.session, p.timeout, description), func() (string, error) {
		current, err := p.session.driver.CurrentURL(ctx)
		if err != nil || !at(current) {
			return "", err
		}
		if p.isLoaded != nil {
			ok, err := p.isLoaded(ctx, p)
			if err != nil || !ok {
				return "", err
			}
		}
		return current, nil
	})
	if err != nil {
		p.state = PageInitial
		return err
	}
	if p.pattern != nil {
		p.url = current
	}
	p.state = PageStable
	p.session.logger.WithFields(p.fields()).Debug("page stable")
	return nil
}

// Get returns to the page if the browser left it, or unconditionally with
// force. Child views are refreshed either way.
func (p *Page) Get(ctx context.Context, force bool) error {
	if err := p.session.check(); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	current, err := p.session.driver.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	if force || current != p.url || p.state != PageStable {
		if err := p.transition(ctx, false); err != nil {
			return err
		}
	}
	p.refreshChildren()
	return nil
}

// Refresh reloads the page and refreshes every child view
func (p *Page) Refresh(ctx context.Context) error {
	if err := p.transition(ctx, true); err != nil {
		return err
	}
	p.refreshChildren()
	return nil
}

// Navigate sends the browser to url without changing what the page is
// bound to. Child views are refreshed; Get brings the browser back.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.session.check(); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	if err := p.session.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	if url != p.url {
		p.state = PageInitial
	}
	p.refreshChildren()
	return nil
}

// CurrentURL returns the browser location
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	if err := p.session.check(); err != nil {
		return "", fmt.Errorf("%s: %w", p, err)
	}
	return p.session.driver.CurrentURL(ctx)
}

// URL returns the url the page is bound to; for pattern pages, the one captured on arrival
func (p *Page) URL() string {
	return p.url
}

// State returns the transition state
func (p *Page) State() PageState {
	return p.state
}

// Timeout returns the transition timeout
func (p *Page) Timeout() time.Duration {
	return p.timeout
}

// Close closes the session and its driver
func (p *Page) Close() error {
	return p.session.Close()
}

// Parent returns the page this one was opened from, nil for a root page
func (p *Page) Parent() Node {
	if p.parent == nil {
		return nil
	}
	return p.parent
}

// Session returns the session the page belongs to
func (p *Page) Session() *Session {
	return p.session
}

func (p *Page) Lineage() []Node {
	return Lineage(p)
}

func (p *Page) Ancestor(index int) (Node, error) {
	return Ancestor(p, index)
}

func (p *Page) AncestorNamed(name string) (Node, error) {
	return AncestorNamed(p, name)
}

func (p *Page) String() string {
	return dotted(p)
}

func (p *Page) rootHandle(context.Context) (interfaces.Handle, error) {
	if err := p.session.check(); err != nil {
		return nil, err
	}
	return nil, nil
}
