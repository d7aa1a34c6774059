package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGetSecret(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return []byte("hunter2"), nil }

	var out bytes.Buffer
	got, err := GetSecret(&out, "Enter value: ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("want hunter2, got %q", got)
	}
	if !strings.Contains(out.String(), "Enter value: ") {
		t.Fatalf("prompt not printed: %q", out.String())
	}
	// The typed secret must never appear in the prompt output.
	if strings.Contains(out.String(), "hunter2") {
		t.Fatalf("secret echoed: %q", out.String())
	}
}

func TestGetSecret_ReadError(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return nil, errors.New("no tty") }

	var out bytes.Buffer
	if _, err := GetSecret(&out, "Enter value: "); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetMultiline(t *testing.T) {
	in := strings.NewReader("-----BEGIN KEY-----\nabc\n-----END KEY-----\n\n")
	var out bytes.Buffer

	got, err := GetMultiline(in, &out, "Enter value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "-----BEGIN KEY-----\nabc\n-----END KEY-----"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestGetMultiline_EOFWithoutBlankLine(t *testing.T) {
	in := strings.NewReader("line1\nline2")
	var out bytes.Buffer

	got, err := GetMultiline(in, &out, "Enter value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "line1\nline2" {
		t.Fatalf("unexpected result: %q", got)
	}
}
