package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/store"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "zaloga", cmd.Use)

	for _, name := range []string{"serve", "export"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "d", dbFlag.Shorthand)
	assert.Equal(t, "zaloga.sqlite3", dbFlag.DefValue)

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "info", levelFlag.DefValue)
}

func TestOpenDatabaseCreatesAdminOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zaloga.sqlite3")

	var out bytes.Buffer
	database, err := openDatabase(ctx, path, "Boss", &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Username: Boss")
	var password string
	for _, line := range strings.Split(out.String(), "\n") {
		if p, ok := strings.CutPrefix(line, "  Password: "); ok {
			password = p
		}
	}
	require.Len(t, password, 16)

	user, err := store.GetUserByUsername(ctx, database, "Boss")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)))
	database.Close()

	out.Reset()
	database, err = openDatabase(ctx, path, "Boss", &out)
	require.NoError(t, err)
	defer database.Close()
	assert.Empty(t, out.String(), "existing database must not be re-initialized")
}

func TestExportCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zaloga.sqlite3")

	database, err := openDatabase(ctx, path, "Admin", &bytes.Buffer{})
	require.NoError(t, err)
	item, err := store.CreateItem(ctx, database, "Vase", 5, "")
	require.NoError(t, err)
	_, err = store.TransferToDisplay(ctx, database, item.ID, 2)
	require.NoError(t, err)
	database.Close()

	run := func(args ...string) (string, error) {
		cmd := NewRootCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"export", "--db", path}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,item,type,quantity", lines[0])
	assert.Contains(t, out, ",Vase,input,5")
	assert.Contains(t, out, ",Vase,transfer,2")

	out, err = run("--type", "transfer")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	_, err = run("--date", "yesterday")
	assert.Error(t, err)

	_, err = run("--db", filepath.Join(t.TempDir(), "missing.sqlite3"))
	assert.Error(t, err)
}

func TestSetupLoggerRoutesErrors(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "zaloga.log")
	cleanup, err := setupLogger(logPath, "warn", &stdout, &stderr)
	require.NoError(t, err)
	defer cleanup()

	slog.Info("hidden")
	slog.Warn("careful")
	slog.Error("broken")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "careful")
	assert.NotContains(t, stdout.String(), "broken")
	assert.Contains(t, stderr.String(), "broken")

	_, err = setupLogger("", "loud", &stdout, &stderr)
	assert.Error(t, err)
}
