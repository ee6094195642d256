package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) WhoAmI(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}
func (f *fakeExec) EditProfile(ctx context.Context) error {
	f.calls = append(f.calls, "profile")
	return nil
}
func (f *fakeExec) Avatar(ctx context.Context, path string) error {
	f.calls = append(f.calls, "avatar")
	f.args = append(f.args, path)
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return nil
}
func (f *fakeExec) Count(ctx context.Context, table string) error {
	f.calls = append(f.calls, "count")
	f.args = append(f.args, table)
	return nil
}

// capturePrint swaps printlnFn for a recorder for the duration of the test.
func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	out := capturePrint(t)

	input := strings.Join([]string{
		"help",
		"login",
		"help",
		"whoami",
		"profile",
		"avatar /tmp/my photo.png",
		"refresh",
		"count events",
		"logout",
		"foobar",
		"exit",
		"whoami",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, rdr(input))

	require.Equal(t, []string{"login", "whoami", "profile", "avatar", "refresh", "count", "logout"}, exec.calls)
	require.Equal(t, []string{"/tmp/my photo.png", "events"}, exec.args)

	require.Contains(t, *out, "Available commands: register, login, refresh, count <table>, exit")
	require.Contains(t, *out, "Available commands: whoami, profile, avatar <path>, refresh, count <table>, logout, exit")
	require.Contains(t, *out, "Unknown command: foobar")
	require.Contains(t, *out, "adullam status> ")
	require.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("avatar\ncount\ncount a b\n\nquit\n"))

	require.Empty(t, exec.calls)
	require.Contains(t, *out, "Usage: avatar <path>")
	require.Contains(t, *out, "Usage: count <table>")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	capturePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("register"))

	require.Equal(t, []string{"register"}, exec.calls)
}
