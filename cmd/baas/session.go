package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-name>",
		Short: "Sign in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.password == "" {
				return fmt.Errorf("password is required (--password or BAAS_PASSWORD)")
			}
			token, err := c.app.Membership.Login(cmd.Context(), args[0], c.password)
			if err != nil {
				return err
			}
			if _, err := c.app.Membership.LoadUser(cmd.Context()); err != nil {
				c.log.WithError(err).Warn("Signed in but the user could not be loaded")
			}
			return c.printJSON(token)
		},
	}
}

func newLogoutCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token and forget the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Membership.Logout(cmd.Context())
		},
	}
}

func newWhoamiCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.app.Membership.LoadUser(cmd.Context())
			if err != nil {
				return err
			}
			return c.printJSON(user)
		},
	}
}

func newTokenCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.app.Token(cmd.Context())
			if err != nil {
				return err
			}
			if token == nil {
				return fmt.Errorf("not signed in")
			}
			return c.printJSON(token)
		},
	}
}
