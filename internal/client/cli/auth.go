package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bizportal/internal/client/session"
	"github.com/dmitrijs2005/bizportal/internal/cryptox"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for an email and password and starts a session. The
// password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	user, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", displayName(user))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.auth.Logout(ctx)
}

func (a *App) WhoAmI(ctx context.Context) error {
	user, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	printProfile(a, user)
	return nil
}

// Profile reloads the profile from the server and caches it.
func (a *App) Profile(ctx context.Context) error {
	user, err := a.auth.RefreshProfile(ctx)
	if err != nil {
		return err
	}
	printProfile(a, user)
	return nil
}

func displayName(u *session.UserProfile) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func printProfile(a *App, u *session.UserProfile) {
	fmt.Fprintf(a.out, "Name:    %s\n", u.Name)
	fmt.Fprintf(a.out, "Email:   %s\n", u.Email)
	fmt.Fprintf(a.out, "Role:    %s\n", u.Role)
	if u.Company != "" {
		fmt.Fprintf(a.out, "Company: %s\n", u.Company)
	}
	if u.TenantID != "" {
		fmt.Fprintf(a.out, "Tenant:  %s\n", u.TenantID)
	}
}
