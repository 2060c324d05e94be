package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"querymate-be/pkg/client"
)

var (
	configPath string
	baseURL    string

	errorText = color.New(color.FgRed).SprintFunc()
	okText    = color.New(color.FgGreen).SprintFunc()
	botText   = color.New(color.FgCyan, color.Bold).SprintFunc()
	dimText   = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "querymate",
	Short: "Build and manage your QueryMate chatbot context from the terminal",
	Long: `QueryMate interviews you about your business and turns the answers into the
context document your customer-support widget answers from.

Quick Start:
  querymate register            # create an account
  querymate interview           # answer a few questions
  querymate key rotate          # issue an API key
  querymate embed               # print the widget snippet`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints a user-facing message on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(client.Describe(err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.querymate.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "server", "", "API base URL (overrides the config file)")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(contextCmd, keyCmd, widgetCmd, embedCmd)
}

// session loads the stored config and returns a client for it.
func session() (*cliConfig, *client.Client, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return cfg, client.New(cfg.BaseURL, client.WithToken(cfg.Token)), nil
}
