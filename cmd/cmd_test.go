package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/session"
	"github.com/cppla/gympoints/utils"
)

type cli struct {
	t       *testing.T
	dir     string
	session string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "gym.db"))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("PUBLIC_BASE_URL", "https://gym.example.com/")
	return &cli{t: t, dir: dir, session: filepath.Join(dir, "session.yaml")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	root := rootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", filepath.Join(c.dir, "missing.json")}, args...))
	err := root.ExecuteContext(c.t.Context())
	return out.String(), err
}

func (c *cli) member(args ...string) (string, error) {
	c.t.Helper()
	return c.run(append([]string{"member", "--session-file", c.session}, args...)...)
}

func (c *cli) mustMember(args ...string) string {
	c.t.Helper()
	out, err := c.member(args...)
	require.NoError(c.t, err, "member %v", args)
	return out
}

func TestMigrateSeedsCatalogue(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("migrate", "--seed")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
	assert.Contains(t, out, "seeded 6 prizes")

	out, err = c.run("prizes", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 prizes")

	out, err = c.run("prizes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Garrafa Squeeze")
	assert.Contains(t, out, "Mensalidade Grátis")
}

func TestPrizesAdd(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("prizes", "add", "--name", "Shaker", "--points", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "Shaker (50 points)")

	_, err = c.run("prizes", "add", "--name", "Hidden", "--points", "70", "--unavailable")
	require.NoError(t, err)

	out, err = c.run("prizes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Shaker")
	assert.NotContains(t, out, "Hidden")

	out, err = c.run("prizes", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Hidden")

	_, err = c.run("prizes", "add", "--name", "Free", "--points", "0")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestMemberJourney(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("migrate", "--seed")
	require.NoError(t, err)

	_, err = c.member("whoami")
	assert.ErrorIs(t, err, services.ErrNotLoggedIn)

	out := c.mustMember("register", "--name", "Ana", "--email", "ana@example.com", "--phone", "111", "--address", "Rua A")
	assert.Contains(t, out, "welcome Ana")

	id, err := session.NewFileSlot(c.session).Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	out = c.mustMember("checkin")
	assert.Contains(t, out, "+10 points")
	assert.Contains(t, out, "streak 1 (Iniciante)")

	_, err = c.member("checkin")
	assert.ErrorIs(t, err, services.ErrAlreadyCheckedIn)

	out = c.mustMember("whoami")
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, "https://gym.example.com/?ref=ana%40example.com")
	assert.Contains(t, out, "Dedicado in 6 days")

	// Bruno signs up through Ana's link, which replaces the terminal session.
	c.mustMember("register", "--name", "Bruno", "--email", "bruno@example.com", "--phone", "222",
		"--address", "Rua B", "--ref", "https://gym.example.com/?ref=ana%40example.com")

	_, err = c.member("redeem", "1")
	assert.ErrorIs(t, err, services.ErrInsufficientPoints)

	c.mustMember("login", "ana@example.com")
	out = c.mustMember("redeem", "1")
	assert.Contains(t, out, "code GYM-")
	assert.Contains(t, out, "10 points left")

	out = c.mustMember("history", "--redemptions")
	assert.Contains(t, out, "Garrafa Squeeze")
	assert.Contains(t, out, "pending")

	out = c.mustMember("history")
	assert.Equal(t, 2, strings.Count(out, "\n"), out)

	out, err = c.run("prizes", "fulfil", "1", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "is now completed")

	_, err = c.run("prizes", "fulfil", "1", "cancelled")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	out, err = c.run("leaderboard", "--limit", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Ana")
	assert.Contains(t, lines[2], "Bruno")

	c.mustMember("logout")
	_, err = c.member("checkin")
	assert.ErrorIs(t, err, services.ErrNotLoggedIn)
}

func TestRegisterUnknownReferrer(t *testing.T) {
	c := newCLI(t)
	_, err := c.member("register", "--name", "Caio", "--email", "caio@example.com", "--phone", "3",
		"--address", "Rua C", "--ref", "ghost@example.com")
	assert.ErrorIs(t, err, services.ErrReferrerNotFound)

	id, err := session.NewFileSlot(c.session).Load(t.Context())
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestOneShotCommandsLogEngineEvents(t *testing.T) {
	c := newCLI(t)
	logPath := filepath.Join(c.dir, "logs", "gympoints.log")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_PATH", logPath)

	c.mustMember("register", "--name", "Ana", "--email", "ana@example.com", "--phone", "111", "--address", "Rua A")
	c.mustMember("checkin")

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"member registered"`)
	assert.Contains(t, string(raw), `"msg":"member checked in"`)
}

func TestSweepCommand(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "reset 0 streaks")
}

func TestAdminToken(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("admin-token", "--subject", "desk-1", "--hours", "1")
	require.NoError(t, err)

	claims, err := utils.ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "desk-1", claims.Subject)
	assert.Equal(t, utils.RoleAdmin, claims.Role)
}

func TestAdminTokenNeedsSecret(t *testing.T) {
	c := newCLI(t)
	t.Setenv("JWT_SECRET", "")
	_, err := c.run("admin-token")
	assert.Error(t, err)
}
