// Copyright 2025.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/google/uuid"
)

const backupSuffix = ".bak"

// connectionsManager owns the connections file. Every mutation is a full
// read-modify-write under mu.
type connectionsManager struct {
	filePath string
	mu       sync.Mutex
}

func newConnectionsManager(filePath string) *connectionsManager {
	return &connectionsManager{filePath: filePath}
}

// parseProfiles loads the file and assigns identifiers to profiles that have
// none. assigned reports whether any identifier was added.
func (m *connectionsManager) parseProfiles() (profiles []*domain.ConnectionProfile, assigned bool, err error) {
	parser := &ConnectionsParser{}
	profiles, err = parser.Parse(m.filePath)
	if err != nil {
		return nil, false, err
	}
	for _, p := range profiles {
		if p.ConnectionID == nil {
			id := uuid.New()
			p.ConnectionID = &id
			assigned = true
		}
	}
	return profiles, assigned, nil
}

func (m *connectionsManager) load() ([]*domain.ConnectionProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parseProfiles()
}

func (m *connectionsManager) save(profiles []*domain.ConnectionProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeFile(profiles)
}

// writeFile replaces the connections file atomically, keeping the previous
// content as a one-slot backup.
func (m *connectionsManager) writeFile(profiles []*domain.ConnectionProfile) error {
	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	if err := m.backupCurrentFile(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lazycrm-tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = tmp.Close()
		return err
	}

	writer := &ConnectionsWriter{}
	if err := writer.Write(tmp, profiles); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), m.filePath)
}

func (m *connectionsManager) addProfile(profile *domain.ConnectionProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profiles, _, err := m.parseProfiles()
	if err != nil {
		return err
	}

	for _, p := range profiles {
		if strings.EqualFold(p.ConnectionName, profile.ConnectionName) {
			return fmt.Errorf("%w: %q", domain.ErrProfileExists, profile.ConnectionName)
		}
		if profile.ConnectionID != nil && *p.ConnectionID == *profile.ConnectionID {
			return fmt.Errorf("%w: id %s", domain.ErrProfileExists, profile.ConnectionID)
		}
	}

	return m.writeFile(append(profiles, profile))
}

func (m *connectionsManager) updateProfile(profile *domain.ConnectionProfile) error {
	if profile.ConnectionID == nil {
		return fmt.Errorf("%w: profile %q has no id", domain.ErrProfileNotFound, profile.ConnectionName)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	profiles, _, err := m.parseProfiles()
	if err != nil {
		return err
	}

	found := -1
	for i, p := range profiles {
		if *p.ConnectionID == *profile.ConnectionID {
			found = i
			continue
		}
		if strings.EqualFold(p.ConnectionName, profile.ConnectionName) {
			return fmt.Errorf("%w: %q", domain.ErrProfileExists, profile.ConnectionName)
		}
	}

	if found < 0 {
		return fmt.Errorf("%w: %q", domain.ErrProfileNotFound, profile.ConnectionName)
	}

	profiles[found] = profile
	return m.writeFile(profiles)
}

func (m *connectionsManager) deleteProfile(profile *domain.ConnectionProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profiles, _, err := m.parseProfiles()
	if err != nil {
		return err
	}

	kept := make([]*domain.ConnectionProfile, 0, len(profiles))
	found := false
	for _, p := range profiles {
		if sameProfile(p, profile) {
			found = true
			continue
		}
		kept = append(kept, p)
	}

	if !found {
		return fmt.Errorf("%w: %q", domain.ErrProfileNotFound, profile.ConnectionName)
	}

	return m.writeFile(kept)
}

// sameProfile matches by identifier, or by name when target has none.
func sameProfile(stored, target *domain.ConnectionProfile) bool {
	if target.ConnectionID != nil {
		return *stored.ConnectionID == *target.ConnectionID
	}
	return stored.ConnectionName == target.ConnectionName
}

// backupCurrentFile copies the connections file to <file>.bak with 0600
// perms, overwriting it each time, but only if the source exists.
func (m *connectionsManager) backupCurrentFile() error {
	src, err := os.Open(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer func() { _ = src.Close() }()

	// #nosec G304 -- backup path is derived from the connections file
	dst, err := os.OpenFile(m.filePath+backupSuffix, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}
