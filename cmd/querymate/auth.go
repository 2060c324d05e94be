package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"querymate-be/pkg/client"
)

var (
	authEmail    string
	authPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, true)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, false)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := session()
		if err != nil {
			return err
		}
		cfg.Token = ""
		if err := cfg.save(); err != nil {
			return err
		}
		fmt.Println(okText("Logged out."))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "account password (prompted when empty)")
	}
}

func authenticate(cmd *cobra.Command, register bool) error {
	cfg, api, err := session()
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	email := authEmail
	if email == "" {
		email = prompt(in, "Email: ")
	}
	password := authPassword
	if password == "" {
		password = prompt(in, "Password: ")
	}

	creds := client.Credentials{Email: email, Password: password}
	var res *client.AuthResponse
	if register {
		res, err = api.Register(cmd.Context(), creds)
	} else {
		res, err = api.Login(cmd.Context(), creds)
	}
	if err != nil {
		return err
	}

	cfg.Token, cfg.Email = res.Token, res.Email
	if err := cfg.save(); err != nil {
		return err
	}
	fmt.Println(okText(fmt.Sprintf("Logged in as %s.", res.Email)))
	return nil
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
