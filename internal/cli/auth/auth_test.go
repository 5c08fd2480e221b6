package auth

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gokeyring "github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/services"
)

func newContext(t *testing.T) *cli.Context {
	t.Helper()
	return &cli.Context{
		Config:     config.Default(),
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Out:        &bytes.Buffer{},
	}
}

func output(ctx *cli.Context) string {
	return ctx.Out.(*bytes.Buffer).String()
}

func TestStatusAndLogout(t *testing.T) {
	gokeyring.MockInit()
	ctx := newContext(t)

	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output(ctx), "Not signed in") {
		t.Errorf("unexpected status output:\n%s", output(ctx))
	}

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}
	if err := tokenStore.Save(tok); err != nil {
		t.Fatalf("failed to save token: %v", err)
	}

	ctx.Out = &bytes.Buffer{}
	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if out := output(ctx); !strings.Contains(out, "✓ Signed in") || !strings.Contains(out, "valid until") {
		t.Errorf("unexpected status output:\n%s", out)
	}

	if err := (&LogoutCmd{}).Run(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := tokenStore.Load(); err == nil {
		t.Error("token still stored after logout")
	}

	ctx.Out = &bytes.Buffer{}
	if err := (&LogoutCmd{}).Run(ctx); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if !strings.Contains(output(ctx), "Not signed in") {
		t.Errorf("unexpected logout output:\n%s", output(ctx))
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	ctx := newContext(t)
	if err := (&LoginCmd{}).Run(ctx); err == nil {
		t.Error("expected an error without google.credentials_file")
	}
}

func stubLists(t *testing.T, lists []services.TaskList, err error) {
	t.Helper()
	prev := listTaskLists
	listTaskLists = func(context.Context, config.Config) ([]services.TaskList, error) {
		return lists, err
	}
	t.Cleanup(func() { listTaskLists = prev })
}

func TestTasklistsCmd(t *testing.T) {
	lists := []services.TaskList{{ID: "L1", Title: "My Tasks"}, {ID: "L2", Title: "Training"}}

	t.Run("list marks current", func(t *testing.T) {
		stubLists(t, lists, nil)
		ctx := newContext(t)
		ctx.Config.Google.TaskListID = "L2"

		if err := (&TasklistsCmd{}).Run(ctx); err != nil {
			t.Fatalf("tasklists failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(output(ctx)), "\n")
		if len(lines) != 2 || !strings.HasPrefix(lines[1], "* Training") {
			t.Errorf("unexpected listing:\n%s", output(ctx))
		}
	})

	t.Run("select saves choice", func(t *testing.T) {
		stubLists(t, lists, nil)
		prev := chooseList
		chooseList = func(ls []services.TaskList, current string) (string, error) {
			return ls[1].ID, nil
		}
		t.Cleanup(func() { chooseList = prev })

		ctx := newContext(t)
		if err := (&TasklistsCmd{Select: true}).Run(ctx); err != nil {
			t.Fatalf("tasklists --select failed: %v", err)
		}
		cfg, err := config.Load(ctx.ConfigPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if cfg.Google.TaskListID != "L2" {
			t.Errorf("task_list_id = %q, want L2", cfg.Google.TaskListID)
		}
	})

	t.Run("remote failure", func(t *testing.T) {
		stubLists(t, nil, errors.New("boom"))
		if err := (&TasklistsCmd{}).Run(newContext(t)); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("no lists", func(t *testing.T) {
		stubLists(t, nil, nil)
		if err := (&TasklistsCmd{}).Run(newContext(t)); err == nil {
			t.Error("expected an error for an account without lists")
		}
	})
}
