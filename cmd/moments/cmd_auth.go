package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/moments/internal/service"
)

func (a *app) signUpCmd() *cobra.Command {
	var email, password, username string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and its profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.svc.SignUp(cmd.Context(), email, password, username)
			if err != nil {
				return err
			}
			if resp.AccessToken == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "account created; confirm your email, then run `moments signin`")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s (%s)\n", username, email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) signInCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.SignIn(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.svc.Me(cmd.Context())
			if errors.Is(err, service.ErrNotAuthenticated) {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", sess.Email, sess.UserID)
			return nil
		},
	}
}
