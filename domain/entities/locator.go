package entities

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Method is the strategy used to evaluate a locator expression
type Method string

const (
	MethodXPath Method = "xpath"
	MethodCSS   Method = "css"
)

var (
	positionalPlaceholder = regexp.MustCompile(`%[sdv]`)
	keyedPlaceholder      = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// Locator identifies zero or more elements relative to a root.
// A Locator is a value: formatting returns a new Locator and never
// changes the template it was derived from.
type Locator struct {
	Method     Method `json:"method" yaml:"method"`
	Expression string `json:"expression" yaml:"expression"`
}

// XPath - creates an xpath locator
func XPath(expression string) Locator {
	return Locator{Method: MethodXPath, Expression: expression}
}

// CSS - creates a css selector locator
func CSS(expression string) Locator {
	return Locator{Method: MethodCSS, Expression: expression}
}

// NewLocator - validates method and expression and builds a locator
func NewLocator(method string, expression string) (Locator, error) {
	m := Method(strings.ToLower(strings.TrimSpace(method)))
	switch m {
	case MethodXPath, MethodCSS:
	case "css_selector", "css selector":
		m = MethodCSS
	default:
		return Locator{}, &ConfigurationError{Reason: fmt.Sprintf("unknown locator method %q (expected xpath or css)", method)}
	}
	if strings.TrimSpace(expression) == "" {
		return Locator{}, &ConfigurationError{Reason: fmt.Sprintf("empty %s expression", m)}
	}
	return Locator{Method: m, Expression: expression}, nil
}

// SelectLocator - picks the single locator out of a method->expression set.
// Declarations must name exactly one selector.
func SelectLocator(selectors map[string]string) (Locator, error) {
	var given []string
	for method, expression := range selectors {
		if expression != "" {
			given = append(given, method)
		}
	}
	switch len(given) {
	case 0:
		return Locator{}, &ConfigurationError{Reason: "no selector given, pick one (e.g. xpath: '//*')"}
	case 1:
		return NewLocator(given[0], selectors[given[0]])
	default:
		sort.Strings(given)
		return Locator{}, &ConfigurationError{Reason: fmt.Sprintf("pick one selector, got %s", strings.Join(given, ", "))}
	}
}

// IsZero reports whether the locator was never set
func (l Locator) IsZero() bool {
	return l.Method == "" && l.Expression == ""
}

// Formattable reports whether the expression still holds placeholders
func (l Locator) Formattable() bool {
	return positionalPlaceholder.MatchString(l.Expression) || keyedPlaceholder.MatchString(l.Expression)
}

// Format - fills positional placeholders and returns the frozen locator
func (l Locator) Format(args ...interface{}) (Locator, error) {
	expression, err := FormatTemplate(l.Expression, args...)
	if err != nil {
		return Locator{}, fmt.Errorf("locator %s: %w", l, err)
	}
	return Locator{Method: l.Method, Expression: expression}, nil
}

// FormatNamed - fills {name} placeholders and returns the frozen locator
func (l Locator) FormatNamed(values map[string]interface{}) (Locator, error) {
	expression, err := FormatNamedTemplate(l.Expression, values)
	if err != nil {
		return Locator{}, fmt.Errorf("locator %s: %w", l, err)
	}
	return Locator{Method: l.Method, Expression: expression}, nil
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Method, l.Expression)
}

// FormatTemplate - fills positional fmt placeholders (%s, %d, %v) in a template.
// Used for locators and page urls alike.
func FormatTemplate(template string, args ...interface{}) (string, error) {
	if keyedPlaceholder.MatchString(template) {
		return "", &ConfigurationError{Reason: "expected keyed arguments for {name} placeholders, not positional ones"}
	}
	want := len(positionalPlaceholder.FindAllString(template, -1))
	if want == 0 {
		return "", &ConfigurationError{Reason: fmt.Sprintf("%q has no placeholders to format", template)}
	}
	if len(args) != want {
		return "", &ConfigurationError{Reason: fmt.Sprintf("%q expects %d arguments, got %d", template, want, len(args))}
	}
	// %s and %d are accepted interchangeably, as with string indexes in declarations
	return fmt.Sprintf(positionalPlaceholder.ReplaceAllString(template, "%v"), args...), nil
}

// FormatNamedTemplate - fills {name} placeholders in a template
func FormatNamedTemplate(template string, values map[string]interface{}) (string, error) {
	if positionalPlaceholder.MatchString(template) {
		return "", &ConfigurationError{Reason: "expected positional arguments for fmt placeholders, not keyed ones"}
	}
	if !keyedPlaceholder.MatchString(template) {
		return "", &ConfigurationError{Reason: fmt.Sprintf("%q has no placeholders to format", template)}
	}
	var missing []string
	result := keyedPlaceholder.ReplaceAllStringFunc(template, func(m string) string {
		name := keyedPlaceholder.FindStringSubmatch(m)[1]
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return fmt.Sprint(v)
	})
	if len(missing) > 0 {
		return "", &ConfigurationError{Reason: fmt.Sprintf("%q is missing values for %s", template, strings.Join(missing, ", "))}
	}
	return result, nil
}
