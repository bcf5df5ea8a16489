// Package crypt provides the envelope-encryption collaborator used for data
// files, implemented with age X25519 recipients and identities.
package crypt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// Age encrypts to a set of recipients and decrypts with a set of
// identities. Either list may be empty when only one direction is used.
type Age struct {
	recipients []age.Recipient
	identities []age.Identity
}

// New returns a cipher over the given key material.
func New(recipients []age.Recipient, identities []age.Identity) *Age {
	return &Age{recipients: recipients, identities: identities}
}

// LoadRecipients reads X25519 recipients from files, one per line, ignoring
// blank lines and # comments.
func LoadRecipients(paths ...string) ([]age.Recipient, error) {
	var recipients []age.Recipient
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			r, err := age.ParseX25519Recipient(line)
			if err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("parse recipient in %s: %w", p, err)
			}
			recipients = append(recipients, r)
		}
		err = scanner.Err()
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	return recipients, nil
}

// LoadIdentities reads identities from a key file.
func LoadIdentities(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identities in %s: %w", path, err)
	}
	return ids, nil
}

// Encrypt envelope-encrypts src into dst for all recipients.
func (a *Age) Encrypt(dst io.Writer, src io.Reader) error {
	if len(a.recipients) == 0 {
		return fmt.Errorf("crypt: no recipients configured")
	}
	w, err := age.Encrypt(dst, a.recipients...)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

// Decrypt opens an envelope from src into dst using the identities.
func (a *Age) Decrypt(dst io.Writer, src io.Reader) error {
	if len(a.identities) == 0 {
		return fmt.Errorf("crypt: no identities configured")
	}
	r, err := age.Decrypt(src, a.identities...)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, r)
	return err
}
