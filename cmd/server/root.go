package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studentreg/internal/platform/config"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "studentreg",
		Short:         "Student registration service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"optional config file (yaml, json or toml); environment variables override it")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newCatalogCmd(opts))
	return root
}

// loadConfig layers the optional config file under the environment.
func (o *rootOptions) loadConfig(overrides map[string]any) (config.Config, error) {
	v := config.New()
	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read config %s: %w", o.configFile, err)
		}
	}
	applyOverrides(v, overrides)
	return config.Load(v)
}

func applyOverrides(v *viper.Viper, overrides map[string]any) {
	for k, val := range overrides {
		v.Set(k, val)
	}
}
