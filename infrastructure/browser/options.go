package browser

import (
	"fmt"
	"strings"

	"page_objects/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Backend names accepted by New
const (
	BackendStatic     = "static"
	BackendSelenium   = "selenium"
	BackendPlaywright = "playwright"
	BackendRod        = "rod"
)

// DefaultSeleniumPort is the port chromedriver listens on
const DefaultSeleniumPort = 9515

// Options selects and configures a driver backend
type Options struct {
	Backend      string
	DriverPath   string
	ChromeBinary string
	SeleniumPort int
	Headless     bool
	Stealth      bool
	ProfileDir   string
	RemoteURL    string
}

// New - starts the configured backend
func New(opts Options, logger *logrus.Logger) (interfaces.Driver, error) {
	if logger == nil {
		logger = logrus.New()
	}
	switch strings.ToLower(opts.Backend) {
	case BackendStatic, "":
		return NewStaticDriver(logger), nil
	case BackendSelenium:
		return NewSeleniumDriver(opts, logger)
	case BackendPlaywright:
		return NewPlaywrightDriver(opts, logger)
	case BackendRod:
		return NewRodDriver(opts, logger)
	}
	return nil, fmt.Errorf("unknown driver backend %q (expected static, selenium, playwright or rod)", opts.Backend)
}
