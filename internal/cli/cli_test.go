package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/handler"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func sqliteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("REDIS_URL", "")
	return path
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "sweep", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	_, err := execute(t, "sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestMigrateSQLite(t *testing.T) {
	sqliteEnv(t)

	out, err := execute(t, "migrate", "--backfill-stock")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrations applied")
	assert.Contains(t, out, "Backfilled stock for 0 variant(s)")

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.NotContains(t, out, "Backfilled")
}

func TestSweepOnEmptyStore(t *testing.T) {
	sqliteEnv(t)

	out, err := execute(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Expired 0 hold(s)")
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "cli-test-key")

	out, err := execute(t, "token", "--sub", "org-1", "--role", "organizer", "--groups", "cse,year-3")
	require.NoError(t, err)

	actor, err := handler.NewAuthenticator("cli-test-key").Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "org-1", actor.ID)
	assert.Equal(t, model.RoleOrganizer, actor.Role)
	assert.Equal(t, []string{"cse", "year-3"}, actor.Groups)
}

func TestTokenErrors(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	_, err := execute(t, "token", "--sub", "p-1")
	assert.ErrorContains(t, err, "JWT_SIGNING_KEY")

	t.Setenv("JWT_SIGNING_KEY", "k")
	_, err = execute(t, "token", "--sub", "p-1", "--role", "admin")
	assert.ErrorContains(t, err, "invalid role")

	_, err = execute(t, "token")
	assert.Error(t, err)
}

func TestServeRequiresSigningKey(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("JWT_SIGNING_KEY", "")
	_, err := execute(t, "serve")
	assert.ErrorContains(t, err, "JWT_SIGNING_KEY")
}
