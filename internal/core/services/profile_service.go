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

package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/Adembc/lazycrm/internal/core/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type profileService struct {
	profileRepository ports.ProfileRepository
	resolver          *Resolver
	cipher            ports.SecretCipher
	logger            *zap.SugaredLogger
	now               func() time.Time

	mu sync.Mutex
	// live holds the profiles that own a session, keyed by connection id.
	live map[uuid.UUID]*domain.ConnectionProfile
}

// NewProfileService creates a new instance of profileService.
func NewProfileService(logger *zap.SugaredLogger, pr ports.ProfileRepository, resolver *Resolver, cipher ports.SecretCipher) *profileService {
	return &profileService{
		profileRepository: pr,
		resolver:          resolver,
		cipher:            cipher,
		logger:            logger,
		now:               time.Now,
		live:              make(map[uuid.UUID]*domain.ConnectionProfile),
	}
}

// ListProfiles returns profiles sorted with the most recently used on top.
func (s *profileService) ListProfiles(query string) ([]*domain.ConnectionProfile, error) {
	profiles, err := s.profileRepository.ListProfiles(query)
	if err != nil {
		s.logger.Errorw("failed to list profiles", "error", err)
		return nil, err
	}

	// Sort: used first, by LastUsedOn desc, then by name asc.
	sort.Sort(domain.ByName(profiles))
	sort.SliceStable(profiles, func(i, j int) bool {
		ui := !profiles[i].LastUsedOn.IsZero()
		uj := !profiles[j].LastUsedOn.IsZero()
		if ui != uj {
			return ui
		}
		return profiles[i].LastUsedOn.After(profiles[j].LastUsedOn)
	})

	return profiles, nil
}

// GetProfile returns the named profile, with its live session when one exists.
func (s *profileService) GetProfile(name string) (*domain.ConnectionProfile, error) {
	p, err := s.profileRepository.GetProfile(name)
	if err != nil {
		return nil, err
	}
	return s.liveOrStored(p), nil
}

func (s *profileService) liveOrStored(p *domain.ConnectionProfile) *domain.ConnectionProfile {
	if p.ConnectionID == nil {
		return p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.live[*p.ConnectionID]; ok {
		return live
	}
	return p
}

func (s *profileService) remember(p *domain.ConnectionProfile) {
	if p.ConnectionID == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[*p.ConnectionID] = p
}

func (s *profileService) forget(id *uuid.UUID) *domain.ConnectionProfile {
	if id == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.live[*id]
	delete(s.live, *id)
	return p
}

// validateProfile performs core validation of profile fields.
func validateProfile(p *domain.ConnectionProfile) error {
	if strings.TrimSpace(p.ConnectionName) == "" {
		return fmt.Errorf("%w: connection name is required", domain.ErrInvalidProfile)
	}
	if p.UseConnectionString {
		if strings.TrimSpace(p.ConnectionString) == "" {
			return fmt.Errorf("%w: connection string is required", domain.ErrInvalidProfile)
		}
		if _, err := domain.ParseConnectionString(p.ConnectionString); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidProfile, err)
		}
		return nil
	}
	if strings.TrimSpace(p.ServerName) == "" && strings.TrimSpace(p.OriginalURL) == "" {
		return fmt.Errorf("%w: organization url or server name is required", domain.ErrInvalidProfile)
	}
	if p.OriginalURL != "" {
		u, err := url.Parse(p.OriginalURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%w: organization url %q is not a valid absolute url", domain.ErrInvalidProfile, p.OriginalURL)
		}
	}
	if p.ServerPort != nil && (*p.ServerPort < 1 || *p.ServerPort > 65535) {
		return fmt.Errorf("%w: port must be a number between 1 and 65535", domain.ErrInvalidProfile)
	}
	if (p.UseOnline || p.UseIfd || p.IsCustomAuth) && strings.TrimSpace(p.UserName) == "" {
		return fmt.Errorf("%w: user name is required for this authentication mode", domain.ErrInvalidProfile)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", domain.ErrInvalidProfile)
	}
	return nil
}

// AddProfile validates and stores a new profile. A non-empty password is
// encrypted onto the profile first.
func (s *profileService) AddProfile(p *domain.ConnectionProfile, password string) error {
	if err := validateProfile(p); err != nil {
		s.logger.Warnw("validation failed on add", "error", err, "name", p.ConnectionName)
		return err
	}
	if p.ConnectionID == nil {
		id := uuid.New()
		p.ConnectionID = &id
	}
	if err := p.SetSecret(s.cipher, password); err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}
	err := s.profileRepository.AddProfile(p)
	if err != nil {
		s.logger.Errorw("failed to add profile", "error", err, "name", p.ConnectionName)
	}
	return err
}

// UpdateProfile replaces original with edited. A non-empty password replaces
// the stored secret; otherwise the original secret is kept, unless the edit
// turns SavePassword off, which erases it. A live session is dropped when the
// edit invalidates it.
func (s *profileService) UpdateProfile(original, edited *domain.ConnectionProfile, password string) error {
	if err := validateProfile(edited); err != nil {
		s.logger.Warnw("validation failed on update", "error", err, "name", edited.ConnectionName)
		return err
	}
	edited.ConnectionID = original.ConnectionID
	switch {
	case original.SavePassword && !edited.SavePassword && password == "":
		// saving turned off drops the stored password
		edited.EraseSecret()
	case edited.SecretIsEmpty():
		original.CopySecretTo(edited)
	}
	if err := edited.SetSecret(s.cipher, password); err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	broken := edited.IsBrokenByEdit(original)
	if err := s.profileRepository.UpdateProfile(edited); err != nil {
		s.logger.Errorw("failed to update profile", "error", err, "name", original.ConnectionName)
		return err
	}

	if live := s.liveOrStored(original); live.Session() != nil {
		if broken {
			s.logger.Infow("edit invalidates live session", "name", edited.ConnectionName)
			closeSession(live.Session())
			live.DetachSession()
		}
		live.UpdateAfterEdit(edited)
	}
	return nil
}

// DeleteProfile removes a profile from the repository.
func (s *profileService) DeleteProfile(p *domain.ConnectionProfile) error {
	err := s.profileRepository.DeleteProfile(p)
	if err != nil {
		s.logger.Errorw("failed to delete profile", "error", err, "name", p.ConnectionName)
		return err
	}
	if live := s.forget(p.ConnectionID); live != nil && live.Session() != nil {
		closeSession(live.Session())
		live.DetachSession()
	}
	return nil
}

// Connect resolves the named profile into a live session and records its
// refreshed metadata and last use.
func (s *profileService) Connect(ctx context.Context, name string, forceNew bool) (*domain.ConnectionProfile, error) {
	p, err := s.GetProfile(name)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("connection start", "name", name, "force_new", forceNew)
	if _, err := s.resolver.Resolve(ctx, p, forceNew); err != nil {
		return p, err
	}
	s.remember(p)

	p.LastUsedOn = s.now()
	if err := s.profileRepository.UpdateProfile(p); err != nil {
		s.logger.Errorw("failed to record connection metadata", "name", name, "error", err)
	}

	s.logger.Infow("connection end", "name", name, "organization", p.Organization, "version", p.OrganizationVersion)
	return p, nil
}

// ConnectionString returns a connection string equivalent to p.
func (s *profileService) ConnectionString(p *domain.ConnectionProfile) (string, error) {
	return s.resolver.ConnectionStringFor(p)
}
