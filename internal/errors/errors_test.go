package errors

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"nil error", Format(nil), ""},
		{"plain error", Format(errors.New("sheet is empty")), "Error: sheet is empty"},
		{
			"kinded error",
			Format(New(KindStoreAccess, "sqlite.load", "sheet %q not found", "training")),
			`Error: sqlite.load: sheet "training" not found`,
		},
		{"formatted", Formatf("row %d: %s", 4, "bad time"), "Error: row 4: bad time"},
		{"format without args", Formatf("no rows"), "Error: no rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

// runFatal re-executes the test binary with env set so that the named test
// takes its exiting branch, and returns the exit code and stderr.
func runFatal(t *testing.T, test, env string) (int, string) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^"+test+"$")
	cmd.Env = append(os.Environ(), env+"=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return 0, stderr.String()
	}
	var exit *exec.ExitError
	if !errors.As(err, &exit) {
		t.Fatalf("failed to run subprocess: %v", err)
	}
	return exit.ExitCode(), stderr.String()
}

func TestFatal(t *testing.T) {
	if os.Getenv("TRAINSYNC_TEST_FATAL") == "1" {
		Fatal(Wrap(KindRemoteTransient, "tasks.insert", errors.New("quota exceeded")))
		return
	}
	code, stderr := runFatal(t, "TestFatal", "TRAINSYNC_TEST_FATAL")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if want := "Error: tasks.insert: quota exceeded"; !strings.Contains(stderr, want) {
		t.Errorf("stderr = %q, want to contain %q", stderr, want)
	}
}

func TestFatalNil(t *testing.T) {
	if os.Getenv("TRAINSYNC_TEST_FATAL_NIL") == "1" {
		Fatal(nil)
		os.Exit(0)
	}
	if code, _ := runFatal(t, "TestFatalNil", "TRAINSYNC_TEST_FATAL_NIL"); code != 0 {
		t.Errorf("Fatal(nil) exited with %d", code)
	}
}

func TestFatalf(t *testing.T) {
	if os.Getenv("TRAINSYNC_TEST_FATALF") == "1" {
		Fatalf("lock held by pid %d", 4242)
		return
	}
	code, stderr := runFatal(t, "TestFatalf", "TRAINSYNC_TEST_FATALF")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if want := "Error: lock held by pid 4242"; !strings.Contains(stderr, want) {
		t.Errorf("stderr = %q, want to contain %q", stderr, want)
	}
}

func TestKindSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"same kind", New(KindMalformedTime, "schedule.Resolve", "bad input %q", "abc"), ErrMalformedTime, true},
		{"different kind", New(KindMalformedTime, "schedule.Resolve", "bad"), ErrOutOfRangeTime, false},
		{"wrapped", fmt.Errorf("row 4: %w", Wrap(KindRemoteNotFound, "tasks.get", errors.New("404"))), ErrRemoteNotFound, true},
		{"plain error", errors.New("boom"), ErrStoreAccess, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.sentinel); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.sentinel, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("sweep aborted: %w", Wrap(KindStoreAccess, "rowstore.read", errors.New("no such table")))
	if got := KindOf(err); got != KindStoreAccess {
		t.Errorf("KindOf() = %v, want %v", got, KindStoreAccess)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
	if !IsNotFound(Wrap(KindRemoteNotFound, "calendar.get", errors.New("gone"))) {
		t.Error("IsNotFound() = false, want true")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindRemoteTransient, "tasks.insert", errors.New("quota exceeded"))
	if got, want := err.Error(), "tasks.insert: quota exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if Wrap(KindRemoteTransient, "tasks.insert", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if got, want := (&Error{Kind: KindInvalidAction}).Error(), "invalid_action"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
