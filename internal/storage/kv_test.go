package storage

import (
	"path/filepath"
	"testing"
)

func openTestKV(t *testing.T) *KV {
	t.Helper()
	kv, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestSetGet(t *testing.T) {
	kv := openTestKV(t)

	if err := kv.Set("k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := kv.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", got, ok, err)
	}
	if got != "v1" {
		t.Errorf("Get() = %q, want %q", got, "v1")
	}
}

func TestSetReplaces(t *testing.T) {
	kv := openTestKV(t)

	if err := kv.Set("k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set("k", "v2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, _, _ := kv.Get("k")
	if got != "v2" {
		t.Errorf("Get() after replace = %q, want %q", got, "v2")
	}
}

func TestGetMissing(t *testing.T) {
	kv := openTestKV(t)

	_, ok, err := kv.Get("absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() reported a missing key as present")
	}
}

func TestDelete(t *testing.T) {
	kv := openTestKV(t)

	if err := kv.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := kv.Get("k"); ok {
		t.Error("key still present after Delete")
	}

	// deleting again is a no-op
	if err := kv.Delete("k"); err != nil {
		t.Errorf("Delete() of absent key error = %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	kv, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := kv.Set(KeySessionToken, "tok"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	kv2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer kv2.Close()

	got, ok, err := kv2.Get(KeySessionToken)
	if err != nil || !ok {
		t.Fatalf("Get() after reopen = %v, %v, %v", got, ok, err)
	}
	if got != "tok" {
		t.Errorf("Get() after reopen = %q, want %q", got, "tok")
	}
}
