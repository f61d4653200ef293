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
	"strings"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"go.uber.org/zap"
)

type profileRepo struct {
	connections *connectionsManager
	logger      *zap.SugaredLogger
}

// NewProfileRepo stores profiles in the XML connections file at path.
func NewProfileRepo(logger *zap.SugaredLogger, path string) *profileRepo {
	return &profileRepo{
		connections: newConnectionsManager(path),
		logger:      logger,
	}
}

// load reads all profiles. Identifiers assigned to legacy entries are written
// back so they stay stable across runs.
func (r *profileRepo) load() ([]*domain.ConnectionProfile, error) {
	profiles, assigned, err := r.connections.load()
	if err != nil {
		return nil, fmt.Errorf("failed to read connections file: %w", err)
	}
	if assigned {
		r.logger.Infow("assigned identifiers to connections without one", "path", r.connections.filePath)
		if err := r.connections.save(profiles); err != nil {
			r.logger.Warnw("failed to persist assigned identifiers", "error", err)
		}
	}
	return profiles, nil
}

func (r *profileRepo) ListProfiles(query string) ([]*domain.ConnectionProfile, error) {
	profiles, err := r.load()
	if err != nil {
		return nil, err
	}

	if query == "" {
		return profiles, nil
	}
	return r.filterProfiles(profiles, query), nil
}

func (r *profileRepo) GetProfile(name string) (*domain.ConnectionProfile, error) {
	profiles, err := r.load()
	if err != nil {
		return nil, err
	}

	var folded *domain.ConnectionProfile
	for _, p := range profiles {
		if p.ConnectionName == name {
			return p, nil
		}
		if folded == nil && strings.EqualFold(p.ConnectionName, name) {
			folded = p
		}
	}
	if folded != nil {
		return folded, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrProfileNotFound, name)
}

func (r *profileRepo) AddProfile(p *domain.ConnectionProfile) error {
	if err := r.connections.addProfile(p); err != nil {
		return fmt.Errorf("failed to add profile: %w", err)
	}
	return nil
}

func (r *profileRepo) UpdateProfile(p *domain.ConnectionProfile) error {
	if err := r.connections.updateProfile(p); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (r *profileRepo) DeleteProfile(p *domain.ConnectionProfile) error {
	if err := r.connections.deleteProfile(p); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func (r *profileRepo) filterProfiles(profiles []*domain.ConnectionProfile, query string) []*domain.ConnectionProfile {
	queryLower := strings.ToLower(query)
	filtered := make([]*domain.ConnectionProfile, 0)

	for _, p := range profiles {
		if r.matchesQuery(p, queryLower) {
			filtered = append(filtered, p)
		}
	}

	return filtered
}

func (r *profileRepo) matchesQuery(p *domain.ConnectionProfile, queryLower string) bool {
	for _, field := range []string{
		p.ConnectionName,
		p.ServerName,
		p.OrganizationFriendlyName,
		p.OrganizationURLName,
		p.UserName,
	} {
		if strings.Contains(strings.ToLower(field), queryLower) {
			return true
		}
	}
	return false
}
