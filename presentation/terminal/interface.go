package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"page_objects/application/pageobject"
	"page_objects/domain/interfaces"
	"page_objects/infrastructure/definition"

	"github.com/sirupsen/logrus"
)

// TerminalInterface is an interactive inspector: it opens declared pages and
// resolves views by dotted path, printing what it finds
type TerminalInterface struct {
	session    *pageobject.Session
	definition *definition.Definition
	journal    interfaces.Journal
	logger     *logrus.Logger
	reader     *bufio.Reader
	out        io.Writer

	page     *pageobject.Page
	declared pageobject.PageDeclaration
	views    *pageobject.Registry
}

// NewTerminalInterface - builds an inspector over session. The definition and the
// journal are optional.
func NewTerminalInterface(session *pageobject.Session, def *definition.Definition, journal interfaces.Journal, in io.Reader, out io.Writer) *TerminalInterface {
	if def == nil {
		def = &definition.Definition{}
	}
	views, _ := pageobject.NewRegistry()
	return &TerminalInterface{
		session:    session,
		definition: def,
		journal:    journal,
		logger:     session.Logger(),
		reader:     bufio.NewReader(in),
		out:        out,
		views:      views,
	}
}

const help = `Commands:
  open <page|url> [args...]   open a declared root page or a raw url
  go <page> [args...]         open a page declared under the current one
  pages                       list the pages that can be opened
  views                       list the views declared on the current page
  text <path>                 print the text of a view
  items <path>                print the items of a container, or the keys of a mapping
  snapshot <path>             print a json snapshot of a view
  click <path>                click a view
  type <path> <text>          type text into a view
  select <path> <key>         select a menu entry
  url                         print the browser location
  refresh                     reload the current page
  journal [n]                 print the last n recorded interactions
  help                        show this help
  quit                        leave`

// Run reads commands until quit or end of input
func (t *TerminalInterface) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, "Page object inspector")
	fmt.Fprintln(t.out, "=================")
	fmt.Fprintln(t.out, "Type 'help' for commands, or 'quit' to leave")
	fmt.Fprintln(t.out)

	for {
		fmt.Fprint(t.out, "> ")
		input, err := t.reader.ReadString('\n')
		if err != nil && (err != io.EOF || input == "") {
			if err == io.EOF {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" || input == "q" {
			fmt.Fprintln(t.out, "Bye!")
			return nil
		}

		if err := t.Execute(ctx, input); err != nil {
			fmt.Fprintf(t.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Execute runs a single command line
func (t *TerminalInterface) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]
	t.logger.WithField("command", command).Debug("inspect command")

	switch command {
	case "help":
		fmt.Fprintln(t.out, help)
		return nil
	case "open":
		if len(args) == 0 {
			return fmt.Errorf("usage: open <page|url> [args...]")
		}
		return t.open(ctx, args[0], args[1:])
	case "go":
		if len(args) == 0 {
			return fmt.Errorf("usage: go <page> [args...]")
		}
		return t.openChild(ctx, args[0], args[1:])
	case "pages":
		t.listPages()
		return nil
	case "journal":
		return t.printJournal(args)
	}

	if t.page == nil {
		return fmt.Errorf("no page open, use 'open' first")
	}
	switch command {
	case "views":
		for _, name := range t.views.Names() {
			d, _ := t.views.Lookup(name)
			fmt.Fprintf(t.out, "  %s (%s) %s\n", name, kindOf(d), d.Locator)
		}
		return nil
	case "url":
		current, err := t.page.CurrentURL(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, current)
		return nil
	case "refresh":
		return t.page.Refresh(ctx)
	}

	if len(args) == 0 {
		return fmt.Errorf("usage: %s <path>", command)
	}
	v, err := t.views.Resolve(ctx, t.page, args[0])
	if err != nil {
		return err
	}

	switch command {
	case "text":
		text, err := v.Core().Text(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, text)
	case "items":
		return t.printItems(ctx, v)
	case "snapshot":
		snap, err := v.Core().Snapshot(ctx)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, string(data))
	case "click":
		if b, ok := v.(*pageobject.Button); ok {
			return b.Click(ctx)
		}
		return v.Core().Click(ctx)
	case "type":
		if len(args) < 2 {
			return fmt.Errorf("usage: type <path> <text>")
		}
		return v.Core().SendKeys(ctx, strings.Join(args[1:], " "))
	case "select":
		menu, ok := v.(*pageobject.Menu)
		if !ok {
			return fmt.Errorf("%s is not a menu", v)
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: select <path> <key>")
		}
		item, err := menu.Select(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "selected %s\n", item)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", command)
	}
	return nil
}

func kindOf(d pageobject.Declaration) pageobject.Kind {
	if d.Kind == "" {
		return pageobject.KindView
	}
	return d.Kind
}

// open transitions to a declared root page, or to a raw url when no page has that name
func (t *TerminalInterface) open(ctx context.Context, target string, args []string) error {
	decl, err := t.definition.Page(target)
	if err != nil {
		if !strings.Contains(target, "://") {
			return err
		}
		decl = pageobject.PageDeclaration{Name: "page", URL: target}
	}
	page, err := decl.Open(ctx, t.session, anyArgs(args)...)
	if err != nil {
		return err
	}
	return t.enter(page, decl)
}

func (t *TerminalInterface) openChild(ctx context.Context, name string, args []string) error {
	if t.page == nil {
		return fmt.Errorf("no page open, use 'open' first")
	}
	decl, err := t.declared.Page(name)
	if err != nil {
		return err
	}
	page, err := decl.OpenFrom(ctx, t.page, anyArgs(args)...)
	if err != nil {
		return err
	}
	return t.enter(page, decl)
}

func (t *TerminalInterface) enter(page *pageobject.Page, decl pageobject.PageDeclaration) error {
	views, err := decl.Registry()
	if err != nil {
		return err
	}
	t.page, t.declared, t.views = page, decl, views
	fmt.Fprintf(t.out, "on %s (%s)\n", page, page.URL())
	return nil
}

func (t *TerminalInterface) listPages() {
	if t.page != nil {
		for _, p := range t.declared.Pages {
			fmt.Fprintf(t.out, "  go %s\n", p.Name)
		}
	}
	for _, name := range t.definition.Names() {
		fmt.Fprintf(t.out, "  open %s\n", name)
	}
}

func (t *TerminalInterface) printItems(ctx context.Context, v pageobject.Viewer) error {
	if m, ok := v.(interface {
		Keys(ctx context.Context) ([]string, error)
	}); ok {
		keys, err := m.Keys(ctx)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintf(t.out, "  %s\n", key)
		}
		return nil
	}

	c, ok := v.(interface {
		Viewers(ctx context.Context) ([]pageobject.Viewer, error)
	})
	if !ok {
		return fmt.Errorf("%s has no items", v)
	}
	items, err := c.Viewers(ctx)
	if err != nil {
		return err
	}
	for i, item := range items {
		text, err := item.Core().Text(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "  %d. %s\n", i+1, text)
	}
	return nil
}

func (t *TerminalInterface) printJournal(args []string) error {
	if t.journal == nil {
		return fmt.Errorf("recording is off, restart with --record")
	}
	n := 20
	if len(args) > 0 {
		if _, err := fmt.Sscan(args[0], &n); err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
	}
	actions, err := t.journal.Load()
	if err != nil {
		return err
	}
	if len(actions) > n {
		actions = actions[len(actions)-n:]
	}
	for _, a := range actions {
		status := "ok"
		if a.Failed() {
			status = "failed: " + a.Error
		}
		target := a.Selector
		if target == "" {
			target = a.URL
		}
		fmt.Fprintf(t.out, "  %s %-8s %s (%s) %s\n", a.At.Format("15:04:05.000"), a.Type, target, a.Duration, status)
	}
	return nil
}

// Close closes the session and its driver
func (t *TerminalInterface) Close() error {
	return t.session.Close()
}

func anyArgs(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
