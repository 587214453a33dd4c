// Package main tests document the expected behavior of the duofeed CLI.
//
// These are BLACK BOX tests - they test the CLI by executing the binary
// and checking stdout/stderr output.
//
// External dependencies mocked:
// - HTTP APIs (Gmail, GroupMe) via DUOFEED_GMAIL_URL and DUOFEED_GROUPME_URL
// - Token storage via DUOFEED_CONFIG_DIR
//
// Test requirements (this file serves as documentation):
// - CLI has root command with version info
// - "auth" command validates its provider argument
// - "feed" command shows every item across two columns
// - "feed" keeps going when one source fails
// - "config" prints the effective configuration without secrets
package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gauthierbraillon/duofeed/internal/partition"
)

var binaryPath string

// TestMain builds the binary once before running tests.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "duofeed-test")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(dir, "duofeed")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = "."
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(dir)
		panic("failed to build binary: " + err.Error())
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// runCLI executes the CLI binary with given arguments and environment.
// Every run gets an empty config dir and no ambient credentials unless env overrides them.
func runCLI(t *testing.T, env map[string]string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"DUOFEED_CONFIG=",
		"DUOFEED_CONFIG_DIR="+t.TempDir(),
		"DUOFEED_FIXTURE=",
		"GROUPME_ACCESS_TOKEN=",
	)
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	exitCode = 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("failed to run command: %v", err)
	}

	return outBuf.String(), errBuf.String(), exitCode
}

// runCLISimple runs CLI without custom environment.
func runCLISimple(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	return runCLI(t, nil, args...)
}

func decodeLayout(t *testing.T, stdout string) partition.Result {
	t.Helper()
	var r partition.Result
	if err := json.Unmarshal([]byte(stdout), &r); err != nil {
		t.Fatalf("json output should decode as a layout: %v\n%s", err, stdout)
	}
	return r
}

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRootCommand_Help verifies help output shows available commands.
func TestRootCommand_Help(t *testing.T) {
	stdout, _, _ := runCLISimple(t, "--help")
	output := strings.ToLower(stdout)

	for _, want := range []string{"duofeed", "usage", "auth", "feed", "serve", "config"} {
		if !strings.Contains(output, want) {
			t.Errorf("help should contain %q, got:\n%s", want, stdout)
		}
	}
}

// TestRootCommand_Version verifies version output.
func TestRootCommand_Version(t *testing.T) {
	stdout, _, _ := runCLISimple(t, "--version")

	if !strings.HasPrefix(stdout, "duofeed version ") {
		t.Errorf("version should show duofeed and version, got:\n%s", stdout)
	}
}

// TestAuthCommand_RequiresProvider verifies auth needs a provider argument.
func TestAuthCommand_RequiresProvider(t *testing.T) {
	_, stderr, exitCode := runCLISimple(t, "auth")

	if exitCode == 0 {
		t.Error("should fail without provider argument")
	}
	if !strings.Contains(strings.ToLower(stderr), "provider") {
		t.Errorf("error should mention provider, got:\n%s", stderr)
	}
}

// TestAuthCommand_RejectsInvalidProvider verifies only gmail is accepted.
func TestAuthCommand_RejectsInvalidProvider(t *testing.T) {
	_, stderr, exitCode := runCLISimple(t, "auth", "twitter")

	if exitCode == 0 {
		t.Error("should fail with invalid provider")
	}
	if !strings.Contains(strings.ToLower(stderr), "invalid") {
		t.Errorf("error should mention invalid, got:\n%s", stderr)
	}
}

// TestAuthCommand_RequiresCredentials verifies a helpful message without client credentials.
func TestAuthCommand_RequiresCredentials(t *testing.T) {
	env := map[string]string{"DUOFEED_GMAIL_CLIENT_ID": "", "DUOFEED_GMAIL_CLIENT_SECRET": ""}
	_, stderr, exitCode := runCLI(t, env, "auth", "gmail")

	if exitCode == 0 {
		t.Error("should fail without client credentials")
	}
	if !strings.Contains(stderr, "DUOFEED_GMAIL_CLIENT_ID") {
		t.Errorf("error should name the missing variables, got:\n%s", stderr)
	}
}

// TestFeedCommand_Help verifies feed help shows layout options.
func TestFeedCommand_Help(t *testing.T) {
	stdout, _, _ := runCLISimple(t, "feed", "--help")
	output := strings.ToLower(stdout)

	for _, want := range []string{"fixture", "limit", "type", "strategy", "format", "policy"} {
		if !strings.Contains(output, want) {
			t.Errorf("feed help should contain %q, got:\n%s", want, stdout)
		}
	}
}

// TestFeedCommand_SeedFallback verifies the sample feed is shown when nothing is configured.
func TestFeedCommand_SeedFallback(t *testing.T) {
	stdout, _, exitCode := runCLISimple(t, "feed")

	if exitCode != 0 {
		t.Fatalf("feed should succeed, got exit code %d", exitCode)
	}
	for _, want := range []string{"Internship fair next week", "Jane Smith", "CS Study Group", "balance score:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output should contain %q, got:\n%s", want, stdout)
		}
	}
}

// TestFeedCommand_JSONFromFixture verifies every fixture item lands in exactly one column.
func TestFeedCommand_JSONFromFixture(t *testing.T) {
	fixture := writeFixture(t, `{"feedItems":[
		{"id":"e1","type":"email","sender":"Ana","subject":"Lab report","timestamp":"September 26, 2025"},
		{"id":"p1","type":"post","posterName":"Lee","timestamp":"September 25, 2025"},
		{"id":"g1","type":"group","groupName":"Roommates","timestamp":"September 24, 2025"},
		{"id":"e2","type":"email","sender":"Sam","subject":"Dinner","timestamp":"not a date"}
	]}`)

	stdout, stderr, exitCode := runCLISimple(t, "feed", "--fixture", fixture, "--format", "json")

	if exitCode != 0 {
		t.Fatalf("feed should succeed, got exit code %d\n%s", exitCode, stderr)
	}
	r := decodeLayout(t, stdout)
	if n := len(r.Column1) + len(r.Column2); n != 4 {
		t.Errorf("user should see all 4 items, got %d", n)
	}
	if r.Strategy == "" {
		t.Error("layout should name the winning strategy")
	}
	if !strings.Contains(stderr, "not a date") {
		t.Errorf("unparseable timestamp should be reported on stderr, got:\n%s", stderr)
	}
}

// TestFeedCommand_FiltersAndStrategy verifies --type, --limit and --strategy.
func TestFeedCommand_FiltersAndStrategy(t *testing.T) {
	stdout, _, exitCode := runCLISimple(t, "feed", "--format", "json", "--type", "post", "--limit", "1", "--strategy", "alternating")

	if exitCode != 0 {
		t.Fatalf("feed should succeed, got exit code %d", exitCode)
	}
	r := decodeLayout(t, stdout)
	if r.Strategy != partition.StrategyAlternating {
		t.Errorf("requested strategy should be used, got %q", r.Strategy)
	}
	if len(r.Column1) != 1 || len(r.Column2) != 0 || r.Column1[0].ID != "seed-post-1" {
		t.Errorf("want only the newest post, got %+v / %+v", r.Column1, r.Column2)
	}
}

// TestFeedCommand_RejectsBadFlags verifies invalid input fails with a helpful error.
func TestFeedCommand_RejectsBadFlags(t *testing.T) {
	cases := map[string][]string{
		"unknown partition strategy": {"feed", "--strategy", "masonry"},
		"unknown feed item type":     {"feed", "--type", "tweet"},
		"invalid format":             {"feed", "--format", "html"},
		"unknown scoring policy":     {"feed", "--policy", "fair"},
	}

	for want, args := range cases {
		t.Run(want, func(t *testing.T) {
			_, stderr, exitCode := runCLISimple(t, args...)

			if exitCode == 0 {
				t.Error("should fail")
			}
			if !strings.Contains(stderr, want) {
				t.Errorf("error should mention %q, got:\n%s", want, stderr)
			}
		})
	}
}

// TestFeedCommand_LiveSources verifies feed fetches Gmail and GroupMe and
// still shows emails when GroupMe fails.
func TestFeedCommand_LiveSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/gmail/v1/users/me/messages":
			_, _ = w.Write([]byte(`{"messages":[{"id":"m1"}]}`))
		case "/gmail/v1/users/me/messages/m1":
			_, _ = w.Write([]byte(`{"id":"m1","labelIds":["UNREAD"],"snippet":"Due Friday",
				"internalDate":"1758650400000",
				"payload":{"headers":[{"name":"Subject","value":"Lab report due"},{"name":"From","value":"Ana <ana@example.com>"}]}}`))
		case "/groupme/groups":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	configDir := t.TempDir()
	tokenData := `{"access_token":"test-token","token_type":"Bearer"}`
	if err := os.WriteFile(filepath.Join(configDir, "gmail_token.json"), []byte(tokenData), 0600); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{
		"DUOFEED_CONFIG_DIR":   configDir,
		"DUOFEED_GMAIL_URL":    server.URL,
		"DUOFEED_GROUPME_URL":  server.URL + "/groupme",
		"GROUPME_ACCESS_TOKEN": "test-token",
	}

	stdout, stderr, exitCode := runCLI(t, env, "feed")

	if exitCode != 0 {
		t.Errorf("feed should succeed with partial sources, got exit code %d", exitCode)
	}
	if !strings.Contains(stdout, "Lab report due") {
		t.Errorf("output should contain the email subject, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, "GroupMe") || !strings.Contains(stderr, "GROUPME_ACCESS_TOKEN") {
		t.Errorf("GroupMe failure should be reported on stderr, got:\n%s", stderr)
	}
}

// TestConfigCommand_RedactsSecrets verifies config shows settings without secrets.
func TestConfigCommand_RedactsSecrets(t *testing.T) {
	env := map[string]string{"GROUPME_ACCESS_TOKEN": "super-secret", "DUOFEED_LAYOUT_POLICY": "symmetric"}
	stdout, _, exitCode := runCLI(t, env, "config")

	if exitCode != 0 {
		t.Fatalf("config should succeed, got exit code %d", exitCode)
	}
	if strings.Contains(stdout, "super-secret") {
		t.Errorf("config output should not reveal the access token:\n%s", stdout)
	}
	for _, want := range []string{"Config directory:", "policy: symmetric", "********"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config output should contain %q, got:\n%s", want, stdout)
		}
	}
}
