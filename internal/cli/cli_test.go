package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/next-trace/scg-health-router/adapters/inmemory"
	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/internal/app"
	"github.com/next-trace/scg-health-router/internal/cli"
	"github.com/next-trace/scg-health-router/internal/config"
	"github.com/next-trace/scg-health-router/memory"
	"github.com/next-trace/scg-health-router/notifier"
)

const prefix = "arn:aws:sns:eu-west-2:123456789012:acp_"

const event = `{
  "source": "aws.health",
  "detail": {
    "eventArn": "arn:aws:health:eu-west-2::event/x",
    "affectedEntities": [
      {"entityValue": "i-1", "tags": {"PROJECT-SERVICE": "orders"}},
      {"entityValue": "i-2", "tags": [{"key": "PROJECT-SERVICE", "value": "billing"}]}
    ]
  }
}`

var baseArgs = []string{"--region", "eu-west-2", "--account", "123456789012", "--topic-prefix", "acp_"}

// harness runs the command tree against an in-memory router.
type harness struct {
	adapter *inmemory.Adapter
	cfg     *config.Config
	opts    int
}

func newHarness() *harness {
	ad := inmemory.New()
	ad.AddChannel(prefix + "orders")
	ad.AddChannel(prefix + "billing")
	ad.AddChannel(prefix + "search")

	return &harness{adapter: ad}
}

func (h *harness) factory(
	_ context.Context,
	cfg *config.Config,
	_ *zap.Logger,
	extra ...notifier.Option,
) (*notifier.Router, func(), error) {
	h.cfg = cfg
	h.opts = len(extra)

	r, ad := memory.New(cfg.Naming, zap.NewNop(), append(app.Options(cfg), extra...)...)
	ad.Lister.Channels = h.adapter.Lister.Channels
	h.adapter = ad

	return r, func() {}, nil
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := cli.NewRootCommand(h.factory)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, baseArgs...))

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func TestRoute_PublishesToServiceChannels(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, event, "route")
	require.NoError(t, err)

	var res notifier.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"orders", "billing"}, res.Services)
	assert.Equal(t, []string{prefix + "orders", prefix + "billing"}, res.Dispatched)
	assert.False(t, res.Broadcast)

	require.Len(t, h.adapter.Sent(), 2)
	assert.Equal(t, "eu-west-2", h.cfg.Naming.Region)
	assert.Equal(t, 0, h.opts)
}

func TestRoute_DryRunSkipsDispatch(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, event, "route", "--dry-run")
	require.NoError(t, err)

	var res notifier.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Dispatched, 2)
	assert.Empty(t, h.adapter.Sent())
	assert.Equal(t, 1, h.opts)
}

func TestRoute_ReadsEventFile(t *testing.T) {
	h := newHarness()

	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(event), 0o600))

	_, err := h.run(t, "", "route", "--event", path)
	require.NoError(t, err)
	assert.Len(t, h.adapter.Sent(), 2)
}

func TestRoute_MalformedEvent(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "{", "route")
	require.ErrorIs(t, err, berr.ErrMalformedEvent)
	assert.Nil(t, h.cfg)
}

func TestResolve_PrintsServices(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, event, "resolve")
	require.NoError(t, err)
	assert.Equal(t, "orders\nbilling\n", out)
	assert.Empty(t, h.adapter.Sent())
}

func TestChannels_PrintsDirectory(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "", "channels")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "SERVICE")
	assert.Contains(t, lines[1], "billing")
	assert.Contains(t, lines[2], "orders")
	assert.Contains(t, lines[3], prefix+"search")
}

func TestMissingNamingIsInvalidConfig(t *testing.T) {
	h := newHarness()

	cmd := cli.NewRootCommand(h.factory)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"channels", "--region", "eu-west-2"})

	t.Setenv("AWS_ACCOUNT_ID", "")
	t.Setenv("AWS_ACCOUNT", "")
	t.Setenv("SNS_TOPIC_PREFIX", "")

	err := cmd.ExecuteContext(t.Context())
	require.ErrorIs(t, err, berr.ErrInvalidConfig)
}

func TestConfigFileSuppliesNaming(t *testing.T) {
	h := newHarness()

	path := filepath.Join(t.TempDir(), "healthctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
region: eu-west-2
account: "123456789012"
topic_prefix: acp_
subject: Custom Alert
`), 0o600))

	cmd := cli.NewRootCommand(h.factory)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(event))
	cmd.SetArgs([]string{"route", "--config", path})

	require.NoError(t, cmd.ExecuteContext(t.Context()))
	assert.Equal(t, "Custom Alert", h.cfg.Subject)

	sent := h.adapter.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Custom Alert", sent[0].Subject)
}

func TestConfigFileMissing(t *testing.T) {
	h := newHarness()

	cmd := cli.NewRootCommand(h.factory)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"channels", "--config", filepath.Join(t.TempDir(), "absent.yaml")})

	require.ErrorIs(t, cmd.ExecuteContext(t.Context()), berr.ErrInvalidConfig)
}
