// Package auth holds the Google sign-in and task list discovery commands.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/pkg/browser"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/keyring"
	"github.com/julianstephens/trainsync/internal/services/google"
)

// loginTimeout bounds how long the browser consent flow may take.
const loginTimeout = 5 * time.Minute

var (
	openBrowser = browser.OpenURL
	tokenStore  google.TokenStore = google.KeyringTokenStore{}
)

type AuthCmd struct {
	Login  LoginCmd  `cmd:"" help:"Sign in to Google and store the token in the OS keyring."`
	Logout LogoutCmd `cmd:"" help:"Forget the stored Google token."`
	Status StatusCmd `cmd:"" help:"Show whether a Google token is stored." default:"1"`
}

type LoginCmd struct{}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	oauthCfg, err := google.LoadOAuthConfig(ctx.Config.Google.CredentialsFile)
	if err != nil {
		return err
	}

	bg, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	ctx.Println("Opening your browser to sign in to Google...")
	tok, err := google.Login(bg, oauthCfg, openBrowser, promptCode)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	if err := tokenStore.Save(tok); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	ctx.Println("✓ Signed in. The token is stored in the OS keyring.")
	return nil
}

// promptCode asks for the authorization code when no browser could be opened.
func promptCode(authURL string) (string, error) {
	fmt.Printf("\nOpen this URL in a browser and approve access:\n\n  %s\n\n", authURL)
	var code string
	err := huh.NewInput().
		Title("Authorization code").
		Description("Paste the 'code' parameter of the page you were redirected to").
		Value(&code).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("code cannot be empty")
			}
			return nil
		}).
		Run()
	return strings.TrimSpace(code), err
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	if err := tokenStore.Delete(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			ctx.Println("ℹ Not signed in")
			return nil
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	ctx.Println("✓ Signed out of Google")
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	tok, err := tokenStore.Load()
	if err != nil {
		if errors.Is(err, google.ErrNotAuthenticated) {
			ctx.Println("❌ Not signed in to Google")
			return nil
		}
		return err
	}

	ctx.Println("✓ Signed in to Google")
	if tok.RefreshToken == "" {
		ctx.Println("⚠ No refresh token stored; sign in again when the access token expires")
	}
	if !tok.Expiry.IsZero() {
		state := "valid until"
		if tok.Expiry.Before(time.Now()) {
			state = "expired at (refreshed on next use)"
		}
		ctx.Printf("  Access token %s %s\n", state, tok.Expiry.Local().Format(time.RFC1123))
	}
	if id := ctx.Config.Google.TaskListID; id != "" {
		ctx.Printf("  Task list: %s\n", id)
	}
	ctx.Printf("  Calendar: %s\n", ctx.Config.Google.CalendarID)
	return nil
}
