package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/account-overlay/internal/dom"
	"github.com/mmeshcher/account-overlay/internal/events"
	"github.com/mmeshcher/account-overlay/internal/storefront"
	"github.com/mmeshcher/account-overlay/internal/widget"
)

// defaultPage содержит минимальную шапку витрины с якорями виджета.
const defaultPage = `<!doctype html>
<html><body>
<div class="account-widget dropdown">
  <button class="btn account-menu-btn header-actions-btn" type="button"
          data-account-overlay-trigger aria-expanded="false" aria-haspopup="true">
    <span class="account-menu-name" data-account-name></span>
  </button>
  <div class="dropdown-menu dropdown-menu-end account-menu-dropdown js-account-menu-dropdown">
    <div data-account-overlay-content></div>
  </div>
</div>
</body></html>`

var (
	renderPagePath    string
	renderOptionsPath string
	renderEvent       string
	renderEmail       string
	renderPassword    string
	renderLoginPath   string
	renderFull        bool
	renderRepeat      int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Trigger the overlay on a page and print the rendered account menu",
	Args:  cobra.NoArgs,
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderPagePath, "page", "p", "", "HTML page with the widget anchors (default: built-in header)")
	renderCmd.Flags().StringVarP(&renderOptionsPath, "options", "o", "", "YAML file with widget options")
	renderCmd.Flags().StringVarP(&renderEvent, "event", "e", "hover", "Trigger interaction: hover or click")
	renderCmd.Flags().StringVar(&renderEmail, "email", "", "Log in as this customer before rendering")
	renderCmd.Flags().StringVar(&renderPassword, "password", "", "Customer password")
	renderCmd.Flags().StringVar(&renderLoginPath, "login-path", "/account/login", "Login endpoint path")
	renderCmd.Flags().BoolVar(&renderFull, "full", false, "Print the whole page instead of the content region")
	renderCmd.Flags().IntVar(&renderRepeat, "repeat", 1, "Number of trigger interactions")
}

func runRender(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	logger := newLogger()
	defer logger.Sync()

	opts, err := loadOptions(renderOptionsPath)
	if err != nil {
		return err
	}

	doc, err := loadPage(renderPagePath)
	if err != nil {
		return err
	}

	client, err := storefront.NewClient(serverURL)
	if err != nil {
		return err
	}

	if renderEmail != "" {
		if err := client.Login(ctx, renderLoginPath, renderEmail, renderPassword); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		logger.Info("logged in", zap.String("email", renderEmail))
	}

	return render(ctx, renderParams{
		doc:     doc,
		fetcher: client,
		opts:    opts,
		event:   renderEvent,
		repeat:  renderRepeat,
		full:    renderFull,
		logger:  logger,
		out:     cmd.OutOrStdout(),
	})
}

type renderParams struct {
	doc     *dom.Document
	fetcher widget.Fetcher
	opts    widget.Options
	event   string
	repeat  int
	full    bool
	logger  *zap.Logger
	out     io.Writer
}

func render(ctx context.Context, p renderParams) error {
	domEvent, err := triggerEvent(p.event)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	bus.Subscribe(events.OverlayLoaded, func(events.Event) {
		p.logger.Debug("account overlay loaded")
	})

	w := widget.New(p.doc, p.fetcher, bus, widget.WithOptions(p.opts), widget.WithLogger(p.logger))
	defer w.Close()

	w.Init(ctx)
	select {
	case <-w.Ready():
	case <-ctx.Done():
		return fmt.Errorf("widget init: %w", ctx.Err())
	}

	cfg := w.Config()
	trigger, ok := p.doc.QuerySelector(cfg.TriggerSelector)
	if !ok {
		return fmt.Errorf("trigger %q not found on page", cfg.TriggerSelector)
	}

	for i := 0; i < max(p.repeat, 1); i++ {
		if trigger.Dispatch(domEvent) == 0 {
			return fmt.Errorf("widget does not listen to %s: loadOnHover=%t loadOnClick=%t",
				p.event, cfg.LoadOnHover, cfg.LoadOnClick)
		}
		w.Wait()
	}

	p.logger.Info("overlay rendered", zap.Stringer("state", w.State()))

	if p.full {
		markup, err := p.doc.HTML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(p.out, markup)
		return err
	}

	content, ok := p.doc.QuerySelector(cfg.ContentSelector)
	if !ok {
		return fmt.Errorf("content %q not found on page", cfg.ContentSelector)
	}
	_, err = io.WriteString(p.out, content.InnerHTML())
	return err
}

func triggerEvent(name string) (string, error) {
	switch name {
	case "hover":
		return "mouseenter", nil
	case "click":
		return "click", nil
	default:
		return "", fmt.Errorf("unknown event %q, want hover or click", name)
	}
}

func loadPage(path string) (*dom.Document, error) {
	if path == "" {
		return dom.ParseString(defaultPage)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	return dom.Parse(f)
}

func loadOptions(path string) (widget.Options, error) {
	var opts widget.Options
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options: %w", err)
	}
	return opts, nil
}
