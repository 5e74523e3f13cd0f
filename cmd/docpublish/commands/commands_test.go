package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpublish/internal/config"
	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/publish"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
	helpers "git.home.luguber.info/inful/docpublish/internal/testutil/testutils"
	"git.home.luguber.info/inful/docpublish/internal/versioning"
)

func TestParseLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv(LogLevelEnv, "WARN")
	assert.Equal(t, slog.LevelWarn, parseLogLevel(true))
	t.Setenv(LogLevelEnv, "bogus")
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))
}

func TestCLI_ParsesPublishFlags(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Bind(&Global{Ctx: context.Background()}))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"-c", "site.yaml", "publish", "--strict", "--fail-on-empty", "--no-commit"})
	require.NoError(t, err)
	assert.Equal(t, "publish", ctx.Command())
	assert.True(t, cli.Publish.Strict)
	assert.True(t, cli.Publish.FailOnEmpty)
	assert.True(t, cli.Publish.NoCommit)
	assert.Equal(t, "site.yaml", filepath.Base(cli.Config))
}

func TestPublishCmd_ExitStatus(t *testing.T) {
	empty := ferrors.RepositoryError("output tree unchanged").WithCause(perrors.ErrEmptyCommit).Info().Build()
	failedReport := &publish.Report{Results: []publish.BuildResult{{
		Version: versioning.Version{SourceRef: "v1.0.0", Label: "v1.0.0 stable"},
		Outcome: publish.OutcomeFailed,
	}}}

	tests := []struct {
		name     string
		cmd      PublishCmd
		report   *publish.Report
		err      error
		wantCode int // -1: nil error, 0: passthrough
	}{
		{name: "empty is success", report: &publish.Report{Empty: true}, err: empty, wantCode: -1},
		{name: "empty fails on request", cmd: PublishCmd{FailOnEmpty: true}, report: &publish.Report{Empty: true}, err: empty, wantCode: ferrors.ExitEmpty},
		{name: "failed version tolerated", report: failedReport, wantCode: -1},
		{name: "strict failed version", cmd: PublishCmd{Strict: true}, report: failedReport, wantCode: ferrors.ExitBuild},
		{name: "fatal passthrough", cmd: PublishCmd{Strict: true}, err: errors.New("boom"), wantCode: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cmd.exitStatus(tt.report, tt.err)
			switch tt.wantCode {
			case -1:
				assert.NoError(t, got)
			case 0:
				assert.Equal(t, tt.err, got)
			default:
				var exitErr *ExitError
				require.True(t, errors.As(got, &exitErr))
				assert.Equal(t, tt.wantCode, exitErr.Code)
			}
		})
	}
}

func TestLoadConfig_MissingFileIsConfigError(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryConfig, ferrors.GetCategory(err))
	assert.Equal(t, ferrors.ExitConfig, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRunVersions(t *testing.T) {
	repo := helpers.SetupTestGitRepo(t)
	repo.WriteFile("mkdocs.yml", "site_name: Demo\n")
	repo.CommitAndTag("v0.9.0")
	repo.CommitAndTag("v0.10.0")
	repo.Tag("latest")
	repo.Tag("not-a-version")

	cfg := &config.Config{Repository: repo.Path, Aliases: config.AliasConfig{HeadTags: []string{"latest"}}}
	cfg.ApplyDefaults()

	var buf bytes.Buffer
	require.NoError(t, RunVersions(&buf, cfg))
	out := buf.String()
	assert.Contains(t, out, "prerelease (main branch)")
	assert.Contains(t, out, "v0.10.0 stable")
	assert.Contains(t, out, "v0.9.0 stable")
	assert.NotContains(t, out, "not-a-version")
	assert.Contains(t, out, "3 versions")
	assert.Contains(t, out, "0 published")
}

func TestRunHistory_RequiresDatabase(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	err := RunHistory(&Global{Ctx: context.Background()}, &bytes.Buffer{}, cfg, 5)
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryConfig, ferrors.GetCategory(err))
}

func TestRunHistory_ListsRuns(t *testing.T) {
	cfg := &config.Config{History: config.HistoryConfig{Database: filepath.Join(t.TempDir(), "history.db")}}
	cfg.ApplyDefaults()

	var buf bytes.Buffer
	require.NoError(t, RunHistory(&Global{Ctx: context.Background()}, &buf, cfg, 5))
	assert.Contains(t, buf.String(), "STATUS")
}

func TestWatchCmd_OptionsOverrideConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	opts := (&WatchCmd{}).options(cfg)
	assert.Equal(t, config.DefaultDebounce, opts.Debounce)
	assert.True(t, opts.RunOnStart)

	opts = (&WatchCmd{Every: 5 * time.Minute, NoInitial: true}).options(cfg)
	assert.Equal(t, 5*time.Minute, opts.Every)
	assert.False(t, opts.RunOnStart)
}

func TestRunInit_SeedsFromFlags(t *testing.T) {
	dir := t.TempDir()
	cmd := &InitCmd{Repository: "/srv/docs-repo", Preset: "hugo"}
	path := filepath.Join(dir, config.DefaultPath)

	var buf bytes.Buffer
	require.NoError(t, RunInit(&buf, path, cmd.seed(), false))
	assert.Contains(t, buf.String(), "builder hugo")
	assert.Contains(t, buf.String(), "publish --dry-run")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs-repo", cfg.Repository)
	assert.Equal(t, config.PresetHugo, cfg.Builder.Preset)
	assert.Equal(t, "docs/hugo.yaml", cfg.Builder.ConfigFile)
	assert.Equal(t, []string{"latest"}, cfg.Aliases.HeadTags)

	err = RunInit(&buf, path, cmd.seed(), false)
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryConfig, ferrors.GetCategory(err))
	require.NoError(t, RunInit(&buf, path, cmd.seed(), true))
}
