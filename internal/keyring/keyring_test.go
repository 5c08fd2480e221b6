package keyring

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

// secret bundles the accessors of one keyring entry.
type secret struct {
	name   string
	value  string
	get    func() (string, error)
	set    func(string) error
	delete func() error
}

var secrets = []secret{
	{
		name:   "connection string",
		value:  "postgresql://trainsync@localhost:5432/trainsync?sslmode=disable",
		get:    GetConnectionString,
		set:    SetConnectionString,
		delete: DeleteConnectionString,
	},
	{
		name:   "oauth token",
		value:  `{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`,
		get:    GetToken,
		set:    SetToken,
		delete: DeleteToken,
	},
}

func TestSecretLifecycle(t *testing.T) {
	for _, s := range secrets {
		t.Run(s.name, func(t *testing.T) {
			keyring.MockInit()

			if _, err := s.get(); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get before set = %v, want ErrNotFound", err)
			}
			if err := s.set(s.value); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			got, err := s.get()
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got != s.value {
				t.Errorf("get = %q, want %q", got, s.value)
			}
			if err := s.delete(); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if _, err := s.get(); !errors.Is(err, ErrNotFound) {
				t.Errorf("get after delete = %v, want ErrNotFound", err)
			}
			if err := s.delete(); !errors.Is(err, ErrNotFound) {
				t.Errorf("second delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	keyring.MockInit()
	for _, s := range secrets {
		if err := s.set(""); err == nil {
			t.Errorf("%s: expected an error for an empty value", s.name)
		}
	}
}

func TestSecretsAreIndependent(t *testing.T) {
	keyring.MockInit()
	if err := SetConnectionString(secrets[0].value); err != nil {
		t.Fatal(err)
	}
	if _, err := GetToken(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetToken() = %v, want ErrNotFound", err)
	}
}

func TestUnavailableKeyring(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus not running"))
	t.Cleanup(keyring.MockInit)

	if _, err := GetToken(); !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("GetToken() = %v, want ErrKeyringUnavailable", err)
	}
	if IsAvailable() {
		t.Error("IsAvailable() = true with a failing keyring")
	}
}

func TestIsAvailable(t *testing.T) {
	keyring.MockInit()
	if !IsAvailable() {
		t.Error("IsAvailable() = false with the mock keyring")
	}
}
