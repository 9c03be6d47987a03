package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-form-filler/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the stored API key",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key <key>",
	Short: "Validate and store the API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := settings.Open(cfg.SettingsPath)
		if err != nil {
			return err
		}
		if err := store.SetAPIKey(cfg.Provider, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✔ API key saved: "+settings.Mask(strings.TrimSpace(args[0]))))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether an API key is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := settings.Open(cfg.SettingsPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Settings: "+store.Path()))
		fmt.Fprintln(out, mutedStyle.Render("Provider: "+cfg.Provider))

		key := settings.ResolveAPIKey("", cfg.APIKey, store)
		switch {
		case key == "":
			fmt.Fprintln(out, failureStyle.Render("✘ API key not configured"))
		case strings.TrimSpace(cfg.APIKey) != "":
			fmt.Fprintln(out, successStyle.Render("✔ API key configured: "+settings.Mask(key)+" (from flag or environment)"))
		default:
			fmt.Fprintln(out, successStyle.Render("✔ API key configured: "+settings.Mask(key)))
		}
		return nil
	},
}

var clearKeyCmd = &cobra.Command{
	Use:   "clear-key",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := settings.Open(cfg.SettingsPath)
		if err != nil {
			return err
		}
		if err := store.Delete(settings.APIKeyEntry); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("API key removed"))
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(setKeyCmd, showCmd, clearKeyCmd)
}
