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
	"fmt"
	"sync"
)

// Store holds HMC passwords keyed by host and userid. Passwords are kept
// AES-GCM encrypted in memory; plaintext only exists transiently while a
// Session logs on. The zero Store is not usable; call NewStore.
type Store struct {
	enc     *Encryptor
	mu      sync.RWMutex
	entries map[string]string // host\x00userid -> encrypted password
}

// NewStore creates a credential store whose entries are encrypted with a
// key derived from passphrase.
func NewStore(passphrase string) (*Store, error) {
	enc, err := NewEncryptor(passphrase)
	if err != nil {
		return nil, err
	}
	return &Store{
		enc:     enc,
		entries: make(map[string]string),
	}, nil
}

// Set stores the password for host/userid.
func (s *Store) Set(host, userid, password string) error {
	encrypted, err := s.enc.Encrypt(password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}
	s.mu.Lock()
	s.entries[storeKey(host, userid)] = encrypted
	s.mu.Unlock()
	return nil
}

// Get returns the decrypted password for host/userid.
func (s *Store) Get(host, userid string) (string, error) {
	s.mu.RLock()
	encrypted, ok := s.entries[storeKey(host, userid)]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no credentials stored for %s@%s", userid, host)
	}
	return s.enc.Decrypt(encrypted)
}

// Delete removes the entry for host/userid if present.
func (s *Store) Delete(host, userid string) {
	s.mu.Lock()
	delete(s.entries, storeKey(host, userid))
	s.mu.Unlock()
}

// PasswordCallback adapts the store to the Session password-retrieval
// callback signature.
func (s *Store) PasswordCallback() func(host, userid string) (string, error) {
	return s.Get
}

func storeKey(host, userid string) string {
	return host + "\x00" + userid
}
