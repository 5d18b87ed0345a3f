package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esxctl/esxctl/internal/config"
)

var (
	configURL      string
	configUsername string
	configPassword string
	configInsecure bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the host connection configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the host connection settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			URL:      configURL,
			Username: configUsername,
			Password: configPassword,
			Insecure: configInsecure,
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Connection configuration written to %s\n", path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the stored connection settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("url = %s\n", cfg.URL)
		fmt.Printf("username = %s\n", cfg.Username)
		fmt.Printf("password = %s\n", maskSecret(cfg.Password))
		fmt.Printf("insecure = %t\n", cfg.Insecure)
		return nil
	},
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func init() {
	configSetCmd.Flags().StringVar(&configURL, "url", "", "host URL, e.g. https://esxi.example.com/sdk")
	configSetCmd.Flags().StringVar(&configUsername, "username", "", "host user name")
	configSetCmd.Flags().StringVar(&configPassword, "password", "", "host password")
	configSetCmd.Flags().BoolVar(&configInsecure, "insecure", false, "skip TLS certificate verification")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}
