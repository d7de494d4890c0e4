package uuidv7

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNew_VersionAndVariant(t *testing.T) {
	u, err := New()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if u.Version() != 7 {
		t.Fatalf("version=%d", u.Version())
	}
	if u.Variant() != uuid.RFC4122 {
		t.Fatalf("variant=%v", u.Variant())
	}
}

func TestNew_TimeOrdered(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// Same-millisecond ties can order either way; later must never sort earlier
	// by more than the random tail allows at the timestamp prefix.
	if string(b[:6]) < string(a[:6]) {
		t.Fatalf("timestamp prefix regressed: %s then %s", a, b)
	}
}

func TestNewString_Parseable(t *testing.T) {
	got, err := NewString()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestNew_ReadError(t *testing.T) {
	orig := rand.Reader
	rand.Reader = failingReader{}
	defer func() { rand.Reader = orig }()

	if _, err := New(); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewString(); err == nil {
		t.Fatal("expected error")
	}
}
