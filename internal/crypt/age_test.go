package crypt

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}
	cipher := New([]age.Recipient{id.Recipient()}, []age.Identity{id})

	plain := []byte("ACGTACGTACGT")
	var sealed bytes.Buffer
	if err := cipher.Encrypt(&sealed, bytes.NewReader(plain)); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(sealed.Bytes(), plain) {
		t.Error("ciphertext contains the plaintext")
	}

	var opened bytes.Buffer
	if err := cipher.Decrypt(&opened, bytes.NewReader(sealed.Bytes())); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(opened.Bytes(), plain) {
		t.Errorf("round trip = %q, want %q", opened.Bytes(), plain)
	}
}

func TestEncryptWithoutRecipients(t *testing.T) {
	cipher := New(nil, nil)
	if err := cipher.Encrypt(&bytes.Buffer{}, bytes.NewReader([]byte("x"))); err == nil {
		t.Error("Encrypt without recipients succeeded")
	}
	if err := cipher.Decrypt(&bytes.Buffer{}, bytes.NewReader([]byte("x"))); err == nil {
		t.Error("Decrypt without identities succeeded")
	}
}

func TestLoadRecipientsAndIdentities(t *testing.T) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}
	dir := t.TempDir()

	pub := filepath.Join(dir, "recipients.txt")
	content := "# team key\n\n" + id.Recipient().String() + "\n"
	if err := os.WriteFile(pub, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	recipients, err := LoadRecipients(pub)
	if err != nil {
		t.Fatalf("LoadRecipients: %v", err)
	}
	if len(recipients) != 1 {
		t.Fatalf("got %d recipients, want 1", len(recipients))
	}

	key := filepath.Join(dir, "key.txt")
	if err := os.WriteFile(key, []byte(id.String()+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	identities, err := LoadIdentities(key)
	if err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("got %d identities, want 1", len(identities))
	}

	cipher := New(recipients, identities)
	var sealed, opened bytes.Buffer
	if err := cipher.Encrypt(&sealed, bytes.NewReader([]byte("payload"))); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if err := cipher.Decrypt(&opened, &sealed); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if opened.String() != "payload" {
		t.Errorf("round trip = %q", opened.String())
	}
}
