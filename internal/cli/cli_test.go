package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/config"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var fixedNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

// writeConfig creates a config file pointing at a fresh SQLite database.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`server:
  log_level: error
database:
  driver: sqlite
  url: %s
auth:
  jwt_secret: %s
`, filepath.Join(dir, "scry.db"), testSecret)
	path := filepath.Join(dir, "scry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	clock = func() time.Time { return fixedNow }
	t.Cleanup(func() { clock = time.Now })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores flag variables; cobra keeps them between executions.
func resetFlags() {
	cfgFile, verbose = "", false
	dueDeck, dueLimit, dueJSON = "", 0, false
	reviewJSON = false
	cardDeck, cardNote, cardSource, cardTags = "", "", "", nil
	statsDeck, statsJSON = "", false
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, writeConfig(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scry "+Version)
	assert.Contains(t, out, "go version:")
}

func TestStudySession(t *testing.T) {
	cfg := writeConfig(t)
	deck := uuid.New()

	out, err := run(t, cfg, "card", "add", "--deck", deck.String(), "--note", "capital of France", "--tag", "geo")
	require.NoError(t, err)
	cardID, err := uuid.Parse(strings.TrimSpace(out))
	require.NoError(t, err)

	out, err = run(t, cfg, "due")
	require.NoError(t, err)
	assert.Contains(t, out, cardID.String())
	assert.Contains(t, out, "capital of France")
	assert.Contains(t, out, "again 2026-04-02 10:01")

	out, err = run(t, cfg, "review", cardID.String(), "good")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded good for "+cardID.String())
	assert.Contains(t, out, "learning")

	out, err = run(t, cfg, "due", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out), "card is due in ten minutes")

	out, err = run(t, cfg, "stats", "--json", "--deck", deck.String())
	require.NoError(t, err)
	var stats map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats["total_cards"])
	assert.Equal(t, 1, stats["learning_cards"])
	assert.Equal(t, 1, stats["reviewed_today"])
	assert.Equal(t, 1, stats["streak"])

	out, err = run(t, cfg, "heatmap")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[0], "2026-03-27 to 2026-04-02: 1 total")
	assert.True(t, strings.HasPrefix(lines[7], "2026-04-02    1 █"))
}

func TestReviewErrors(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "review", uuid.NewString(), "great")
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = run(t, cfg, "review", uuid.NewString(), "good")
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	_, err = run(t, cfg, "review", "not-a-uuid", "good")
	assert.ErrorContains(t, err, "invalid card ID")
}

func TestHeatmapRejectsTimeframe(t *testing.T) {
	_, err := run(t, writeConfig(t), "heatmap", "decade")
	assert.ErrorIs(t, err, domain.ErrInvalidTimeframe)
}

func TestCardAddRequiresDeck(t *testing.T) {
	_, err := run(t, writeConfig(t), "card", "add", "--deck", "")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, writeConfig(t), "token", "mobile")
	require.NoError(t, err)

	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "mobile", claims.Subject)
}

func TestMigrateCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrate up: ok\n", out)

	out, err = run(t, cfg, "migrate", "status")
	require.NoError(t, err)
	assert.Equal(t, "migrate status: ok\n", out)

	_, err = run(t, cfg, "migrate", "sideways")
	assert.Error(t, err)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", bar(0, 10, 40))
	assert.Equal(t, "█", bar(1, 1000, 40))
	assert.Equal(t, strings.Repeat("█", 40), bar(10, 10, 40))
	assert.Equal(t, strings.Repeat("█", 20), bar(5, 10, 40))
}
