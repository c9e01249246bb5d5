package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/account-overlay/internal/storefront"
	"github.com/mmeshcher/account-overlay/internal/widget"
)

var configOptionsPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Fetch the remote widget configuration and print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().StringVarP(&configOptionsPath, "options", "o", "", "YAML file with widget options")
}

// configView представляет widget.Config для вывода.
type configView struct {
	OverlayURL      string `yaml:"overlayUrl"`
	ConfigURL       string `yaml:"configUrl"`
	TriggerSelector string `yaml:"triggerSelector"`
	ContentSelector string `yaml:"contentSelector"`
	NameSelector    string `yaml:"nameSelector"`
	LoginURL        string `yaml:"loginUrl"`
	CacheTimeout    string `yaml:"cacheTimeout"`
	HideDelay       string `yaml:"hideDelay"`
	LoadOnHover     bool   `yaml:"loadOnHover"`
	LoadOnClick     bool   `yaml:"loadOnClick"`
	EnableCaching   bool   `yaml:"enableCaching"`
}

func newConfigView(c widget.Config) configView {
	return configView{
		OverlayURL:      c.OverlayURL,
		ConfigURL:       c.ConfigURL,
		TriggerSelector: c.TriggerSelector,
		ContentSelector: c.ContentSelector,
		NameSelector:    c.NameSelector,
		LoginURL:        c.LoginURL,
		CacheTimeout:    c.CacheTimeout.String(),
		HideDelay:       c.HideDelay.String(),
		LoadOnHover:     c.LoadOnHover,
		LoadOnClick:     c.LoadOnClick,
		EnableCaching:   c.EnableCaching,
	}
}

func runConfig(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	opts, err := loadOptions(configOptionsPath)
	if err != nil {
		return err
	}

	client, err := storefront.NewClient(serverURL)
	if err != nil {
		return err
	}

	cfg := widget.NewConfig(opts)
	remote, err := client.FetchConfig(ctx, cfg.ConfigURL)
	if err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}

	out, err := yaml.Marshal(newConfigView(widget.Merge(cfg, remote)))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
