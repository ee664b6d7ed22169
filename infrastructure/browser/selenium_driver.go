package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// SeleniumDriver drives Chrome through chromedriver
type SeleniumDriver struct {
	wd          selenium.WebDriver
	service     *selenium.Service
	logger      *logrus.Logger
	userDataDir string
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chromedriver not found. Please install it or set BROWSER_DRIVER_PATH environment variable")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	}

	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// profileDir - gets or creates the chrome profile directory so sessions survive restarts
func profileDir(configured string) (string, error) {
	dir := configured
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".page_objects", "chrome_profile")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create user data directory: %w", err)
	}
	return dir, nil
}

// NewSeleniumDriver - starts chromedriver and opens a Chrome session
func NewSeleniumDriver(opts Options, logger *logrus.Logger) (*SeleniumDriver, error) {
	driverPath, err := findChromeDriver(opts.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}

	logger.Infof("Using ChromeDriver at: %s", driverPath)

	chromeBinary := findChromeBinary(opts.ChromeBinary)
	if chromeBinary != "" {
		logger.Infof("Using Chrome binary at: %s", chromeBinary)
	}

	userDataDir, err := profileDir(opts.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("failed to setup user data directory: %w", err)
	}
	logger.Infof("Using user data directory: %s", userDataDir)

	port := opts.SeleniumPort
	if port == 0 {
		port = DefaultSeleniumPort
	}
	service, err := selenium.NewChromeDriverService(driverPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	caps := selenium.Capabilities{
		"browserName": "chrome",
	}

	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		fmt.Sprintf("--user-data-dir=%s", userDataDir),
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	chromeCaps := chrome.Capabilities{Args: args}
	if chromeBinary != "" {
		chromeCaps.Path = chromeBinary
	}

	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", port))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found. Please install Google Chrome or set CHROME_BINARY_PATH environment variable. Error: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	return &SeleniumDriver{
		wd:          wd,
		service:     service,
		logger:      logger,
		userDataDir: userDataDir,
	}, nil
}

// seleniumError maps webdriver error strings onto the shared sentinels
func seleniumError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "stale element reference"):
		return fmt.Errorf("%w: %v", entities.ErrStaleHandle, err)
	case strings.Contains(msg, "no such element"):
		return fmt.Errorf("%w: %v", entities.ErrNoSuchElement, err)
	case strings.Contains(msg, "invalid session id"), strings.Contains(msg, "no such window"):
		return fmt.Errorf("%w: %v", entities.ErrSessionClosed, err)
	}
	return err
}

func seleniumBy(locator entities.Locator) (string, error) {
	switch locator.Method {
	case entities.MethodXPath:
		return selenium.ByXPATH, nil
	case entities.MethodCSS:
		return selenium.ByCSSSelector, nil
	}
	return "", &entities.ConfigurationError{Reason: fmt.Sprintf("unknown locator method %q", locator.Method)}
}

func seleniumElement(h interfaces.Handle) (selenium.WebElement, error) {
	el, ok := h.(selenium.WebElement)
	if !ok {
		return nil, fmt.Errorf("unexpected handle type %T", h)
	}
	return el, nil
}

// Locate finds the first element matching locator under root
func (s *SeleniumDriver) Locate(ctx context.Context, root interfaces.Handle, locator entities.Locator) (interfaces.Handle, error) {
	found, err := s.LocateMany(ctx, root, locator)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", locator, entities.ErrNoSuchElement)
	}
	return found[0], nil
}

// LocateMany finds every element matching locator under root
func (s *SeleniumDriver) LocateMany(ctx context.Context, root interfaces.Handle, locator entities.Locator) ([]interfaces.Handle, error) {
	by, err := seleniumBy(locator)
	if err != nil {
		return nil, err
	}

	var elements []selenium.WebElement
	if root == nil {
		elements, err = s.wd.FindElements(by, locator.Expression)
	} else {
		el, herr := seleniumElement(root)
		if herr != nil {
			return nil, herr
		}
		elements, err = el.FindElements(by, locator.Expression)
	}
	if err != nil {
		return nil, seleniumError(err)
	}

	handles := make([]interfaces.Handle, len(elements))
	for i, el := range elements {
		handles[i] = el
	}
	return handles, nil
}

// Click clicks on an element
func (s *SeleniumDriver) Click(ctx context.Context, h interfaces.Handle) error {
	el, err := seleniumElement(h)
	if err != nil {
		return err
	}
	return seleniumError(el.Click())
}

// SendKeys types text into an element
func (s *SeleniumDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	el, err := seleniumElement(h)
	if err != nil {
		return err
	}
	return seleniumError(el.SendKeys(text))
}

// GetAttribute reads an html attribute
func (s *SeleniumDriver) GetAttribute(ctx context.Context, h interfaces.Handle, name string) (string, error) {
	el, err := seleniumElement(h)
	if err != nil {
		return "", err
	}
	value, err := el.GetAttribute(name)
	if err != nil && !strings.Contains(err.Error(), "nil return value") {
		return "", seleniumError(err)
	}
	return value, nil
}

// GetProperty reads a DOM property through a script
func (s *SeleniumDriver) GetProperty(ctx context.Context, h interfaces.Handle, name string) (interface{}, error) {
	return s.ExecuteScript(ctx, "return arguments[0][arguments[1]];", h, name)
}

// GetText returns the visible text of an element
func (s *SeleniumDriver) GetText(ctx context.Context, h interfaces.Handle) (string, error) {
	el, err := seleniumElement(h)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return text, seleniumError(err)
}

// IsDisplayed checks if an element is visible
func (s *SeleniumDriver) IsDisplayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	el, err := seleniumElement(h)
	if err != nil {
		return false, err
	}
	ok, err := el.IsDisplayed()
	return ok, seleniumError(err)
}

// IsEnabled checks if an element accepts interaction
func (s *SeleniumDriver) IsEnabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	el, err := seleniumElement(h)
	if err != nil {
		return false, err
	}
	ok, err := el.IsEnabled()
	return ok, seleniumError(err)
}

// ScrollIntoView scrolls the element to the center of the viewport
func (s *SeleniumDriver) ScrollIntoView(ctx context.Context, h interfaces.Handle) error {
	_, err := s.ExecuteScript(ctx, "arguments[0].scrollIntoView({block: 'center'});", h)
	return err
}

// ExecuteScript runs a script body; element handles are passed through
func (s *SeleniumDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	result, err := s.wd.ExecuteScript(script, args)
	return result, seleniumError(err)
}

// Navigate navigates to a URL
func (s *SeleniumDriver) Navigate(ctx context.Context, url string) error {
	s.logger.Infof("Navigating to: %s", url)
	return seleniumError(s.wd.Get(url))
}

// CurrentURL returns the current page URL
func (s *SeleniumDriver) CurrentURL(ctx context.Context) (string, error) {
	url, err := s.wd.CurrentURL()
	return url, seleniumError(err)
}

// Close - closes browser and stops ChromeDriver service
func (s *SeleniumDriver) Close() error {
	var closeErr error
	if s.wd != nil {
		if err := s.wd.Quit(); err != nil {
			closeErr = fmt.Errorf("failed to quit webdriver: %w", err)
		}
		s.wd = nil
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("failed to stop chromedriver: %w", err)
		}
		s.service = nil
	}
	return closeErr
}
