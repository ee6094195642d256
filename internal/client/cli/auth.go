package cli

import (
	"context"

	"github.com/dmitrijs2005/adullam/internal/common"
)

// getSimpleText, getOptionalText and getPassword are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText   = GetSimpleText
	getOptionalText = GetOptionalText
	getPassword     = GetPassword
)

// Register prompts for credentials and names and creates an account.
//
// When the backend issues a session right away the user is signed in;
// otherwise the account awaits email confirmation. A failed profile insert
// is reported but the account itself stays created.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	first, err := getSimpleText(a.reader, "Enter first name", a.out)
	if err != nil {
		return err
	}
	last, err := getSimpleText(a.reader, "Enter last name", a.out)
	if err != nil {
		return err
	}

	err = a.manager.Signup(ctx, email, string(password), first, last)
	if err != nil && !a.isLoggedIn() {
		printlnFn("Registration failed:", describe(err))
		return err
	}
	if err != nil {
		printlnFn("Account created, but the profile could not be saved:", describe(err))
		return err
	}

	if a.isLoggedIn() {
		printlnFn("Success! You are signed in.")
	} else {
		printlnFn("Success! Check your email to confirm the account, then log in.")
	}
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.manager.Login(ctx, email, string(password)); err != nil {
		a.log.Debug(ctx, "login failed", "email", email, "error", err)
		printlnFn("Login unsuccessful:", describe(err))
		return err
	}

	printlnFn("Login successful")
	return nil
}

// Logout signs out. Local state is cleared even when the backend call fails.
func (a *App) Logout(ctx context.Context) error {
	if err := a.manager.Logout(ctx); err != nil {
		printlnFn("Signed out locally; backend sign-out failed:", describe(err))
		return err
	}
	printlnFn("Signed out")
	return nil
}

// describe turns a taxonomy error into a short message for the terminal.
func describe(err error) string {
	switch common.Kind(err) {
	case common.ErrInvalidCredentials:
		return "invalid email or password"
	case common.ErrEmailInUse:
		return "this email is already registered"
	case common.ErrWeakPassword:
		return "the password is too weak"
	case common.ErrNotAuthenticated:
		return "please log in first"
	case common.ErrPermissionDenied:
		return "permission denied"
	case common.ErrNotFound:
		return "not found"
	case common.ErrConstraintViolation:
		return "the data was rejected by the server"
	case common.ErrRateLimited:
		return "too many attempts, try again later"
	case common.ErrNetwork:
		return "the server is unreachable"
	}
	return err.Error()
}
