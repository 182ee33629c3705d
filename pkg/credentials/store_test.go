// Zhmc is a client library for the IBM Z Hardware Management Console
// Web Services API.
// Copyright (C) 2025  Matthew Burns
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package credentials

import (
	"strings"
	"testing"
)

func TestEncryptorRoundTrip(t *testing.T) {
	enc, err := NewEncryptor("test-passphrase")
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}

	plaintext := "my-secret-password"
	encrypted, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	if encrypted == plaintext {
		t.Fatal("encrypted text equals plaintext")
	}
	decrypted, err := enc.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("failed to decrypt: %v", err)
	}
	if decrypted != plaintext {
		t.Fatalf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptorNonceVaries(t *testing.T) {
	enc, err := NewEncryptor("test-passphrase")
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}
	a, err := enc.Encrypt("same")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := enc.Encrypt("same")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext are identical")
	}
}

func TestEncryptorWrongPassphrase(t *testing.T) {
	enc1, _ := NewEncryptor("passphrase-one")
	enc2, _ := NewEncryptor("passphrase-two")

	encrypted, err := enc1.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := enc2.Decrypt(encrypted); err == nil {
		t.Fatal("decrypt with wrong passphrase succeeded")
	}
}

func TestEncryptorEmptyInputs(t *testing.T) {
	if _, err := NewEncryptor(""); err == nil {
		t.Fatal("empty passphrase accepted")
	}
	enc, _ := NewEncryptor("x")
	if _, err := enc.Encrypt(""); err == nil {
		t.Fatal("empty plaintext accepted")
	}
	if _, err := enc.Decrypt(""); err == nil {
		t.Fatal("empty ciphertext accepted")
	}
	if _, err := enc.Decrypt("not-base64!!!"); err == nil {
		t.Fatal("invalid base64 accepted")
	}
}

func TestStoreSetGetDelete(t *testing.T) {
	s, err := NewStore("test-passphrase")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Set("hmc1.example.com", "operator", "secret1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("hmc1.example.com", "admin", "secret2"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := s.Get("hmc1.example.com", "operator")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "secret1" {
		t.Fatalf("password = %q", got)
	}

	s.Delete("hmc1.example.com", "operator")
	if _, err := s.Get("hmc1.example.com", "operator"); err == nil {
		t.Fatal("get after delete succeeded")
	}
	// The other entry is untouched.
	if got, err := s.Get("hmc1.example.com", "admin"); err != nil || got != "secret2" {
		t.Fatalf("admin password = %q, %v", got, err)
	}
}

func TestStorePasswordCallback(t *testing.T) {
	s, err := NewStore("test-passphrase")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Set("hmc1", "operator", "secret"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cb := s.PasswordCallback()
	got, err := cb("hmc1", "operator")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if got != "secret" {
		t.Fatalf("callback password = %q", got)
	}
	if _, err := cb("hmc1", "unknown"); err == nil {
		t.Fatal("callback for unknown user succeeded")
	}
}

func TestRedactToken(t *testing.T) {
	if got := RedactToken(""); got != "" {
		t.Fatalf("empty token = %q", got)
	}
	if got := RedactToken("short"); got != "********" {
		t.Fatalf("short token = %q", got)
	}
	got := RedactToken("4hnp56xljrqyegbnmvqhq6vvpd7nhnmdmafpvmrghqhs3g1v8o")
	if !strings.HasPrefix(got, "4hnp") || !strings.HasSuffix(got, "8o") {
		t.Fatalf("redacted token = %q", got)
	}
	if strings.Contains(got, "jrqyegbn") {
		t.Fatalf("redacted token leaks middle: %q", got)
	}
}

func TestRedactPassword(t *testing.T) {
	if got := RedactPassword(""); got != "" {
		t.Fatalf("empty password = %q", got)
	}
	if got := RedactPassword("hunter2"); got != "[REDACTED]" {
		t.Fatalf("password = %q", got)
	}
}
