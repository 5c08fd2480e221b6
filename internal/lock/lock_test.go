package lock

import (
	stderrors "errors"
	"os"
	"testing"

	"github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int {
	return m.pid
}

func (m *mockProcess) PPid() int {
	return 0
}

func (m *mockProcess) Executable() string {
	return m.executable
}

// fakeProcesses replaces the process table for one test.
func fakeProcesses(t *testing.T, table map[int]string) {
	t.Helper()
	oldFind, oldPid := findProcessFunc, getpidFunc
	t.Cleanup(func() {
		findProcessFunc, getpidFunc = oldFind, oldPid
	})
	getpidFunc = func() int { return 100 }
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := table[pid]
		if !ok {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: exe}, nil
	}
}

func TestAcquireRelease(t *testing.T) {
	fakeProcesses(t, map[int]string{100: "trainsync"})
	l := New(t.TempDir())

	release, err := l.Acquire()
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	content, _ := os.ReadFile(l.Path())
	if string(content) != "100|trainsync" {
		t.Errorf("lockfile content = %q", content)
	}

	if _, err := l.Acquire(); !stderrors.Is(err, ErrSweepInProgress) {
		t.Errorf("second Acquire() error = %v, want ErrSweepInProgress", err)
	}

	release()
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("lockfile should be removed on release")
	}
	if release, err := l.Acquire(); err != nil {
		t.Errorf("Acquire() after release failed: %v", err)
	} else {
		release()
	}
}

func TestAcquireTakesOverStaleLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "dead process", content: "4242|trainsync"},
		{name: "recycled pid", content: "4243|trainsync"},
		{name: "malformed", content: "garbage"},
		{name: "bad pid", content: "abc|trainsync"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeProcesses(t, map[int]string{100: "trainsync", 4243: "bash"})
			l := New(t.TempDir())
			if err := os.WriteFile(l.Path(), []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			release, err := l.Acquire()
			if err != nil {
				t.Fatalf("Acquire() failed: %v", err)
			}
			release()
		})
	}
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	fakeProcesses(t, map[int]string{100: "trainsync", 200: "trainsync"})
	l := New(t.TempDir())
	if err := os.WriteFile(l.Path(), []byte("200|trainsync"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Acquire(); !stderrors.Is(err, ErrSweepInProgress) {
		t.Errorf("Acquire() error = %v, want ErrSweepInProgress", err)
	}
	content, _ := os.ReadFile(l.Path())
	if string(content) != "200|trainsync" {
		t.Error("a live holder's lockfile must not be touched")
	}
}
