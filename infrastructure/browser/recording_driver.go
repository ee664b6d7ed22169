package browser

import (
	"context"
	"reflect"
	"sync"
	"time"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxSelectors caps how many handles keep their selector between navigations
const maxSelectors = 1024

// RecordingDriver decorates a Driver and appends every interaction to a
// journal. Journal failures are logged and never fail the interaction.
type RecordingDriver struct {
	interfaces.Driver
	journal interfaces.Journal
	logger  *logrus.Logger
	session string

	mu        sync.Mutex
	selectors map[interfaces.Handle]string
	limit     int
}

// NewRecordingDriver - wraps driver, tagging each action with a fresh session id
func NewRecordingDriver(driver interfaces.Driver, journal interfaces.Journal, logger *logrus.Logger) *RecordingDriver {
	return &RecordingDriver{
		Driver:    driver,
		journal:   journal,
		logger:    logger,
		session:   uuid.NewString(),
		selectors: map[interfaces.Handle]string{},
		limit:     maxSelectors,
	}
}

// Session returns the id stamped on recorded actions
func (r *RecordingDriver) Session() string {
	return r.session
}

func (r *RecordingDriver) remember(h interfaces.Handle, selector string) {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return
	}
	r.mu.Lock()
	if _, ok := r.selectors[h]; !ok && len(r.selectors) >= r.limit {
		r.selectors = map[interfaces.Handle]string{}
	}
	r.selectors[h] = selector
	r.mu.Unlock()
}

func (r *RecordingDriver) selector(h interfaces.Handle) string {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectors[h]
}

func (r *RecordingDriver) record(action entities.Action, started time.Time, err error) {
	action.Session = r.session
	action.At = started
	action.Duration = time.Since(started)
	if err != nil {
		action.Error = err.Error()
	}
	if jerr := r.journal.Append(action); jerr != nil {
		r.logger.WithError(jerr).WithField("action", action.Type).Warn("failed to journal action")
	}
}

// Locate finds and records the first element matching locator
func (r *RecordingDriver) Locate(ctx context.Context, root interfaces.Handle, locator entities.Locator) (interfaces.Handle, error) {
	started := time.Now()
	h, err := r.Driver.Locate(ctx, root, locator)
	r.remember(h, locator.String())
	r.record(entities.Action{Type: entities.ActionLocate, Selector: locator.String()}, started, err)
	return h, err
}

// LocateMany finds and records every element matching locator
func (r *RecordingDriver) LocateMany(ctx context.Context, root interfaces.Handle, locator entities.Locator) ([]interfaces.Handle, error) {
	started := time.Now()
	found, err := r.Driver.LocateMany(ctx, root, locator)
	for _, h := range found {
		r.remember(h, locator.String())
	}
	r.record(entities.Action{Type: entities.ActionLocate, Selector: locator.String()}, started, err)
	return found, err
}

func (r *RecordingDriver) Click(ctx context.Context, h interfaces.Handle) error {
	started := time.Now()
	err := r.Driver.Click(ctx, h)
	r.record(entities.Action{Type: entities.ActionClick, Selector: r.selector(h)}, started, err)
	return err
}

func (r *RecordingDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	started := time.Now()
	err := r.Driver.SendKeys(ctx, h, text)
	r.record(entities.Action{Type: entities.ActionTypeText, Selector: r.selector(h), Text: text}, started, err)
	return err
}

func (r *RecordingDriver) GetText(ctx context.Context, h interfaces.Handle) (string, error) {
	started := time.Now()
	text, err := r.Driver.GetText(ctx, h)
	r.record(entities.Action{Type: entities.ActionRead, Selector: r.selector(h), Text: text}, started, err)
	return text, err
}

func (r *RecordingDriver) ScrollIntoView(ctx context.Context, h interfaces.Handle) error {
	started := time.Now()
	err := r.Driver.ScrollIntoView(ctx, h)
	r.record(entities.Action{Type: entities.ActionScroll, Selector: r.selector(h)}, started, err)
	return err
}

func (r *RecordingDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	started := time.Now()
	result, err := r.Driver.ExecuteScript(ctx, script, args...)
	var selector string
	if len(args) > 0 {
		selector = r.selector(args[0])
	}
	r.record(entities.Action{Type: entities.ActionScript, Selector: selector, Text: script}, started, err)
	return result, err
}

// Navigate records the navigation and forgets handles from the previous document
func (r *RecordingDriver) Navigate(ctx context.Context, url string) error {
	started := time.Now()
	err := r.Driver.Navigate(ctx, url)
	r.mu.Lock()
	r.selectors = map[interfaces.Handle]string{}
	r.mu.Unlock()
	r.record(entities.Action{Type: entities.ActionNavigate, URL: url}, started, err)
	return err
}

// Close closes the wrapped driver and flushes the journal
func (r *RecordingDriver) Close() error {
	started := time.Now()
	err := r.Driver.Close()
	r.record(entities.Action{Type: entities.ActionClose}, started, err)
	if ferr := r.journal.Flush(); ferr != nil {
		r.logger.WithError(ferr).Warn("failed to flush journal")
	}
	return err
}
