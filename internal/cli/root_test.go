package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/plantdash/plantdash/internal/cli/commands"
	"github.com/plantdash/plantdash/internal/storage"
)

func TestRootCommand(t *testing.T) {
	out := &bytes.Buffer{}
	env := &commands.Env{APIURL: "http://localhost:8000", Store: storage.NewMemoryStore(), Out: out}
	root := NewRootCmd(env)

	want := []string{"login", "logout", "whoami", "theme", "lang", "plants", "reports", "dash", "version"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %q", name)
		}
	}

	root.SetArgs([]string{"--api-url", "http://backend:9000", "version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out.String(), "plantdash version") {
		t.Errorf("unexpected output %q", out.String())
	}
	if env.APIURL != "http://backend:9000" {
		t.Errorf("expected --api-url to be applied, got %q", env.APIURL)
	}
}
