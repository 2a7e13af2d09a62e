package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/savekeep-go/internal/core/domain"
)

const testConfig = `storage:
  max_save_points: 3
security:
  secret: correct horse battery staple
  salt: savekeep-test-salt
  iterations: 1000
autosave:
  interval: 1h
log:
  level: warn
`

// testEnv is a save root plus a configuration file pointing at it.
type testEnv struct {
	t      *testing.T
	root   string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "savekeep.yaml")
	if err := os.WriteFile(cfg, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &testEnv{t: t, root: filepath.Join(dir, "saves"), config: cfg}
}

// run executes one invocation with a fresh app and returns stdout.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(strings.NewReader(stdin), &stdout, &stderr)
	argv := append([]string{"savekeep", "--config", e.config, "--root", e.root}, args...)
	err := app.Run(argv)
	return stdout.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("savekeep %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func decodeJSON[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v
}

func (e *testEnv) newGame(args ...string) pointRow {
	e.t.Helper()
	rows := decodeJSON[[]pointRow](e.t, e.mustRun(append([]string{"-o", "json", "new"}, args...)...))
	if len(rows) != 1 {
		e.t.Fatalf("new returned %d rows", len(rows))
	}
	return rows[0]
}

func TestSlotsEmptyRoot(t *testing.T) {
	env := newTestEnv(t)
	rows := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "slots"))
	if len(rows) != 0 {
		t.Errorf("slots = %+v, want none", rows)
	}
}

func TestMissingSecret(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.config, []byte("log:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := env.run("", "slots")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestNewSetGet(t *testing.T) {
	env := newTestEnv(t)
	created := env.newGame("--name", "Campaign", "--player", "Alice", "--level", "3", "--scene", "Forest")
	if created.SlotID <= 0 || created.SerialID <= 0 {
		t.Fatalf("new = %+v", created)
	}
	if created.Name != "Campaign" || created.PlayerName != "Alice" || created.PlayerLevel != 3 || created.SceneName != "Forest" {
		t.Errorf("new = %+v", created)
	}

	slotArg := fmt.Sprint(created.SlotID)
	env.mustRun("set", "--slot", slotArg, "--key", "Gold", "--value", "42", "--kind", "int")
	env.mustRun("set", "--slot", slotArg, "--key", "Hero", "--value", "Zed")

	values := decodeJSON[[]valueRow](t, env.mustRun("-o", "json", "get", "--slot", slotArg))
	got := map[string]valueRow{}
	for _, v := range values {
		got[v.Key] = v
	}
	if v := got["Gold"]; v.Kind != "int" || v.Value != float64(42) {
		t.Errorf("Gold = %+v", v)
	}
	if v := got["Hero"]; v.Kind != "string" || v.Value != "Zed" {
		t.Errorf("Hero = %+v", v)
	}

	points := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "points", "--slot", slotArg))
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	if points[0].SerialID == created.SerialID {
		t.Error("newest save point should not be the first one")
	}

	// An older save point does not carry later values.
	old := decodeJSON[[]valueRow](t, env.mustRun("-o", "json", "get",
		"--slot", slotArg, "--serial", fmt.Sprint(created.SerialID)))
	for _, v := range old {
		if v.Key == "Gold" || v.Key == "Hero" {
			t.Errorf("first save point holds %q", v.Key)
		}
	}
}

func TestRetentionCapsSavePoints(t *testing.T) {
	env := newTestEnv(t)
	created := env.newGame()
	slotArg := fmt.Sprint(created.SlotID)
	for i := range 5 {
		env.mustRun("set", "--slot", slotArg, "--key", "Step", "--value", fmt.Sprint(i), "--kind", "int")
	}
	points := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "points", "--slot", slotArg))
	if len(points) != 3 {
		t.Errorf("points = %d, want 3", len(points))
	}
	out := env.mustRun("prune")
	if !strings.Contains(out, "pruned 0 save points") {
		t.Errorf("prune output = %q", out)
	}
}

func TestUnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("", "get", "--slot", "12345")
	if !errors.Is(err, domain.ErrSlotNotFound) {
		t.Errorf("get err = %v, want ErrSlotNotFound", err)
	}
	_, err = env.run("", "remove", "--slot", "12345")
	if !errors.Is(err, domain.ErrSlotNotFound) {
		t.Errorf("remove err = %v, want ErrSlotNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	env := newTestEnv(t)
	created := env.newGame()
	env.mustRun("remove", "--slot", fmt.Sprint(created.SlotID))
	if _, err := os.Stat(filepath.Join(env.root, fmt.Sprint(created.SlotID))); !os.IsNotExist(err) {
		t.Errorf("slot directory still present: %v", err)
	}
	rows := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "slots"))
	if len(rows) != 0 {
		t.Errorf("slots = %+v", rows)
	}
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t)
	created := env.newGame()

	rows := decodeJSON[[]verifyRow](t, env.mustRun("-o", "json", "verify"))
	if len(rows) != 1 || rows[0].Status != "ok" {
		t.Fatalf("verify = %+v", rows)
	}

	files, _ := filepath.Glob(filepath.Join(env.root, fmt.Sprint(created.SlotID), "*"+domain.DataExtension))
	if len(files) != 1 {
		t.Fatalf("data files = %v", files)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(files[0], data, 0o600); err != nil {
		t.Fatal(err)
	}

	exitCode := -1
	prevExiter, prevErr := cli.OsExiter, cli.ErrWriter
	cli.OsExiter = func(code int) { exitCode = code }
	cli.ErrWriter = &bytes.Buffer{}
	defer func() { cli.OsExiter, cli.ErrWriter = prevExiter, prevErr }()

	out, err := env.run("", "-o", "json", "verify")
	if err == nil {
		t.Fatal("verify of a corrupted save point should fail")
	}
	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	rows = decodeJSON[[]verifyRow](t, out)
	if len(rows) != 1 || rows[0].Status != "failed" || rows[0].Code == "" {
		t.Errorf("verify = %+v", rows)
	}
}

func TestBackupCreateListRestore(t *testing.T) {
	env := newTestEnv(t)
	first := env.newGame()

	created := decodeJSON[[]backupRow](t, env.mustRun("-o", "json", "backup", "create"))
	if len(created) != 1 || created[0].Kind != "backup" {
		t.Fatalf("backup create = %+v", created)
	}

	second := env.newGame()
	if rows := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "slots")); len(rows) != 2 {
		t.Fatalf("slots before restore = %d, want 2", len(rows))
	}

	env.mustRun("backup", "verify", created[0].Name)
	out := env.mustRun("backup", "restore", created[0].Name)
	if !strings.Contains(out, "1 slots") {
		t.Errorf("restore output = %q", out)
	}

	rows := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "slots"))
	if len(rows) != 1 || rows[0].SlotID != first.SlotID {
		t.Errorf("slots after restore = %+v, want only %d (not %d)", rows, first.SlotID, second.SlotID)
	}

	list := decodeJSON[[]backupRow](t, env.mustRun("-o", "json", "backup", "list"))
	kinds := map[string]int{}
	for _, b := range list {
		kinds[b.Kind]++
	}
	if kinds["backup"] != 1 || kinds["pre-restore"] != 1 {
		t.Errorf("backup list = %+v", list)
	}
}

func TestBackupRestoreUnknown(t *testing.T) {
	env := newTestEnv(t)
	env.newGame()
	_, err := env.run("", "backup", "restore", "Backup_01ARZ3NDEKTSV4RRFFQ69G5FAV.tar.gz")
	if !errors.Is(err, domain.ErrBackupNotFound) {
		t.Errorf("err = %v, want ErrBackupNotFound", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("config", "show")
	if strings.Contains(out, "correct horse battery staple") {
		t.Error("config show printed the secret")
	}
	for _, key := range []string{"security.secret", "storage.max_save_points", "autosave.interval"} {
		if !strings.Contains(out, key) {
			t.Errorf("config show missing %s:\n%s", key, out)
		}
	}
}

func TestShell(t *testing.T) {
	env := newTestEnv(t)
	script := strings.Join([]string{
		"new",
		"state Bob 7 Castle",
		"set Gold 7 int",
		"get Gold",
		"save",
		"bogus",
		"exit",
	}, "\n")
	out, err := env.run(script, "-o", "json", "shell", "--no-history")
	if err != nil {
		t.Fatalf("shell: %v", err)
	}
	for _, want := range []string{"slot ", "saved slot", `"Gold"`, `unknown command "bogus"`} {
		if !strings.Contains(out, want) {
			t.Errorf("shell output missing %q:\n%s", want, out)
		}
	}

	rows := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "slots"))
	if len(rows) != 1 || rows[0].PlayerName != "Bob" || rows[0].PlayerLevel != 7 {
		t.Errorf("slots = %+v", rows)
	}
}

func TestPlay(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("-o", "json", "play", "--duration", "200ms", "--fps", "50")
	summary := decodeJSON[[]playSummary](t, out)
	if len(summary) != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	s := summary[0]
	if s.Frames == 0 || s.SlotID == 0 || s.SerialID == 0 {
		t.Errorf("summary = %+v", s)
	}
	if s.PlayTime <= 0 {
		t.Errorf("play time = %v, want > 0", s.PlayTime)
	}

	rows := decodeJSON[[]pointRow](t, env.mustRun("-o", "json", "slots"))
	if len(rows) != 1 || rows[0].SlotID != s.SlotID {
		t.Errorf("slots = %+v", rows)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run("", "-o", "xml", "slots"); err == nil {
		t.Error("expected an error for -o xml")
	}
}

func TestAlternateCipherAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	extra := testConfig + "metrics:\n  addr: 127.0.0.1:0\n"
	extra = strings.Replace(extra, "  iterations: 1000\n", "  iterations: 1000\n  cipher: chacha20-poly1305\n", 1)
	if err := os.WriteFile(env.config, []byte(extra), 0o600); err != nil {
		t.Fatal(err)
	}

	summary := decodeJSON[[]playSummary](t, env.mustRun("-o", "json", "play", "--duration", "100ms"))
	if len(summary) != 1 || summary[0].SerialID == 0 {
		t.Fatalf("summary = %+v", summary)
	}
	rows := decodeJSON[[]verifyRow](t, env.mustRun("-o", "json", "verify"))
	if len(rows) != 1 || rows[0].Status != "ok" {
		t.Errorf("verify = %+v", rows)
	}
}
