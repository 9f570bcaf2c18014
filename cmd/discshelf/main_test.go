package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"discshelf/internal/api"
	"discshelf/internal/collection"
	"discshelf/internal/config"
	"discshelf/internal/normalize"
	"discshelf/internal/testsupport"
)

type cliEnv struct {
	t          *testing.T
	cfg        *config.Config
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	provider := testsupport.NewProviderServer(t, testsupport.ProviderFixture{
		Search: map[string][]map[string]any{
			"Inception": {{"id": 27205, "title": "Inception", "release_date": "2010-07-15"}},
			"Heat": {
				{"id": 949, "title": "Heat", "release_date": "1995-12-15"},
				{"id": 11498, "title": "Heat", "release_date": "1986-03-14"},
			},
		},
	})
	db := testsupport.NewStaticServer(t, map[string]any{
		"/8/8/3/883929800815.json": map[string]any{"title": "Inception", "year": 2010, "edition": "Steelbook"},
	})
	cfg := testsupport.NewConfig(t,
		testsupport.WithTMDBBaseURL(provider.URL),
		testsupport.WithOpenDBURL(db.URL),
		testsupport.WithoutUPCLookup(),
	)
	cfg.Logging.Level = "error"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "discshelf.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{t: t, cfg: cfg, configPath: path}
}

func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("discshelf %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestLookupJSON(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("--json", "lookup", "883929800815")
	var resp api.LookupResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if resp.Selected == nil || resp.Selected.ExternalID != 27205 {
		t.Fatalf("expected Inception to be selected, got %+v", resp)
	}
	if resp.UPC != "883929800815" || resp.EditionNote != "Steelbook" {
		t.Fatalf("unexpected lookup response %+v", resp)
	}
}

func TestLookupTableShowsChoices(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("lookup", "Heat")
	if !strings.Contains(out, "1995") || !strings.Contains(out, "1986") {
		t.Fatalf("expected both candidates in output:\n%s", out)
	}
}

func TestAddListRemoveFlow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("add", "883929800815")
	if !strings.Contains(out, "Added Inception (2010) [Steelbook]") {
		t.Fatalf("unexpected add output:\n%s", out)
	}
	out = env.mustRun("add", "883929800815")
	if !strings.Contains(out, "already in the collection") {
		t.Fatalf("expected duplicate notice:\n%s", out)
	}

	out = env.mustRun("--json", "list")
	var listed api.MoviesResponse
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if listed.Count != 1 || listed.Backend != config.BackendFile || listed.ReadOnly {
		t.Fatalf("unexpected list response %+v", listed)
	}
	record := listed.Movies[0]
	if record.Status != collection.StatusPendingEnrichment || record.UPC != "883929800815" {
		t.Fatalf("unexpected record %+v", record)
	}

	out = env.mustRun("--json", "remove", "--record-id", record.RecordID)
	var removed api.DeleteMovieResponse
	if err := json.Unmarshal([]byte(out), &removed); err != nil {
		t.Fatalf("decode remove: %v\n%s", err, out)
	}
	if !removed.Removed {
		t.Fatal("expected the record to be removed")
	}
	out = env.mustRun("list")
	if !strings.Contains(out, "Collection is empty") {
		t.Fatalf("expected empty collection:\n%s", out)
	}
}

func TestAddRequiresPickForChoices(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("", "add", "Heat")
	if !errors.Is(err, errNeedsChoice) {
		t.Fatalf("expected errNeedsChoice, got %v", err)
	}
	if !strings.Contains(out, "1986") {
		t.Fatalf("expected choices to be rendered:\n%s", out)
	}

	out = env.mustRun("add", "Heat", "--pick", "2")
	if !strings.Contains(out, "Added Heat (1986)") {
		t.Fatalf("unexpected add output:\n%s", out)
	}
}

func TestAddManualStoresNeedsMatch(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("add", "--manual", "--upc", "012345678905", "Obscure", "Festival", "Cut")
	out := env.mustRun("--json", "list", "--filter", "festival")
	var listed api.MoviesResponse
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if listed.Count != 1 {
		t.Fatalf("expected one record, got %+v", listed)
	}
	record := listed.Movies[0]
	if record.Title != "Obscure Festival Cut" || record.Status != collection.StatusNeedsMatch || record.UPC != "012345678905" {
		t.Fatalf("unexpected manual record %+v", record)
	}
}

func TestRemoveRequiresCriteria(t *testing.T) {
	env := newCLIEnv(t)

	if _, err := env.run("", "remove"); err == nil {
		t.Fatal("expected remove without criteria to fail")
	}
}

func TestScanFeedConfirm(t *testing.T) {
	feed := newScanFeed(true)

	steps := []struct {
		line string
		want bool
		done bool
	}{
		{"883929800815", false, false},
		{"883929800815", true, true},
		{"883929800815", false, false},
		{"0883929800815", false, false},
		{"5051892000000", false, false},
		{"Heat", true, false},
		{"   ", false, false},
	}
	for i, step := range steps {
		q, ok := feed.Accept(step.line)
		if ok != step.want {
			t.Fatalf("step %d (%q): accept=%v want %v", i, step.line, ok, step.want)
		}
		if step.done {
			feed.Done(q)
		}
	}
}

func TestScanFeedConfirmRequiresFreshPairAfterFailure(t *testing.T) {
	feed := newScanFeed(true)

	feed.Accept("5051892000000")
	if _, ok := feed.Accept("5051892000000"); !ok {
		t.Fatal("expected confirmed code to be accepted")
	}
	if _, ok := feed.Accept("5051892000000"); ok {
		t.Fatal("expected a single further read to wait for confirmation")
	}
	if _, ok := feed.Accept("5051892000000"); !ok {
		t.Fatal("expected an unfinished code to be accepted again once confirmed")
	}
}

func TestScanFeedWithoutConfirm(t *testing.T) {
	feed := newScanFeed(false)

	q, ok := feed.Accept("  883929800815\r")
	if !ok || q.Kind != normalize.QueryCode || q.Value != "883929800815" {
		t.Fatalf("unexpected first read %+v ok=%v", q, ok)
	}
	if _, ok := feed.Accept("883929800815"); !ok {
		t.Fatal("expected a code that was never finished to be accepted again")
	}
	feed.Done(q)
	if _, ok := feed.Accept("883929800815"); ok {
		t.Fatal("expected a finished code to be skipped")
	}
}

func TestScanAddsConfirmedCodes(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("883929800815\n883929800815\nHeat\n", "scan", "--confirm")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	if !strings.Contains(out, "added Inception (2010)") {
		t.Fatalf("expected Inception to be added:\n%s", out)
	}
	if !strings.Contains(out, "Heat: 2 candidates") {
		t.Fatalf("expected Heat to need a choice:\n%s", out)
	}
	if !strings.Contains(out, "1 added, 1 need attention") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestScanSkipsAddedCodeButRetriesMissedCode(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("883929800815\n883929800815\n5051892000000\n5051892000000\n", "scan")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	if n := strings.Count(out, "883929800815:"); n != 1 {
		t.Fatalf("expected the added code to be looked up once, got %d:\n%s", n, out)
	}
	if n := strings.Count(out, "5051892000000:"); n != 2 {
		t.Fatalf("expected the unmatched code to be retried, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, "1 added, 2 need attention") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected init to refuse to overwrite")
	}

	shown := env.mustRun("config", "show")
	if !strings.Contains(shown, "********") || strings.Contains(shown, "'test'") || strings.Contains(shown, `"test"`) {
		t.Fatalf("expected provider key to be masked:\n%s", shown)
	}
	if !strings.Contains(shown, "[store]") || !strings.Contains(shown, "movies.json") {
		t.Fatalf("expected backend in output:\n%s", shown)
	}

	validated := env.mustRun("config", "validate")
	if !strings.Contains(validated, "Configuration valid") {
		t.Fatalf("unexpected validate output:\n%s", validated)
	}
}

func TestServeRefusesSecondInstance(t *testing.T) {
	env := newCLIEnv(t)
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(env.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = env.run("", "serve")
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}
}
