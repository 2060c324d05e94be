package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show or replace the saved context document",
}

var contextGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the saved context document",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, api, err := session()
		if err != nil {
			return err
		}
		res, err := api.GetContext(cmd.Context())
		if err != nil {
			return err
		}
		if res.ContextData == "" {
			fmt.Println(dimText("No context saved yet. Run `querymate interview`."))
			return nil
		}
		fmt.Println(documentStyle.Render(res.ContextData))
		return nil
	},
}

var contextSetCmd = &cobra.Command{
	Use:   "set <file|->",
	Short: "Replace the saved context document with a file's contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, api, err := session()
		if err != nil {
			return err
		}

		var raw []byte
		if args[0] == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		if _, err := api.SaveContext(cmd.Context(), string(raw)); err != nil {
			return err
		}
		fmt.Println(okText("Context saved."))
		return nil
	},
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Show or rotate the widget API key",
}

var keyGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, api, err := session()
		if err != nil {
			return err
		}
		res, err := api.GetApiKey(cmd.Context())
		if err != nil {
			return err
		}
		if res.ApiKey == "" {
			fmt.Println(dimText("No API key yet. Run `querymate key rotate`."))
			return nil
		}
		fmt.Println(res.ApiKey)
		return nil
	},
}

var keyRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Issue a new API key; the old one stops working immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, api, err := session()
		if err != nil {
			return err
		}
		res, err := api.RotateApiKey(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(okText("New API key issued:"))
		fmt.Println(res.ApiKey)
		return nil
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Print the script tag that embeds the widget",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, api, err := session()
		if err != nil {
			return err
		}
		res, err := api.GetApiKey(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(res.EmbedCode)
		if res.ApiKey == "" {
			fmt.Println(dimText("Replace the placeholder after running `querymate key rotate`."))
		}
		return nil
	},
}

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Show or change widget appearance",
}

var widgetGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print widget settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, api, err := session()
		if err != nil {
			return err
		}
		settings, err := api.GetWidgetSettings(cmd.Context())
		if err != nil {
			return err
		}
		printSettings(settings)
		return nil
	},
}

var widgetSetCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "Replace widget settings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := parseSettings(args)
		if err != nil {
			return err
		}
		_, api, err := session()
		if err != nil {
			return err
		}
		saved, err := api.UpdateWidgetSettings(cmd.Context(), settings)
		if err != nil {
			return err
		}
		printSettings(saved)
		return nil
	},
}

func init() {
	contextCmd.AddCommand(contextGetCmd, contextSetCmd)
	keyCmd.AddCommand(keyGetCmd, keyRotateCmd)
	widgetCmd.AddCommand(widgetGetCmd, widgetSetCmd)
}

func parseSettings(args []string) (map[string]string, error) {
	settings := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		settings[strings.TrimSpace(k)] = v
	}
	return settings, nil
}

func printSettings(settings map[string]string) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-16s %s\n", k, settings[k])
	}
}
