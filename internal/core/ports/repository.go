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

package ports

import (
	"context"

	"github.com/Adembc/lazycrm/internal/core/domain"
)

type ProfileRepository interface {
	ListProfiles(query string) ([]*domain.ConnectionProfile, error)
	GetProfile(name string) (*domain.ConnectionProfile, error)
	AddProfile(profile *domain.ConnectionProfile) error
	UpdateProfile(profile *domain.ConnectionProfile) error
	DeleteProfile(profile *domain.ConnectionProfile) error
}

type ProfileService interface {
	ListProfiles(query string) ([]*domain.ConnectionProfile, error)
	GetProfile(name string) (*domain.ConnectionProfile, error)
	AddProfile(profile *domain.ConnectionProfile, password string) error
	UpdateProfile(original, edited *domain.ConnectionProfile, password string) error
	DeleteProfile(profile *domain.ConnectionProfile) error
	Connect(ctx context.Context, name string, forceNew bool) (*domain.ConnectionProfile, error)
	ConnectionString(profile *domain.ConnectionProfile) (string, error)
}

type ConfigProvider interface {
	HomeDir() string
	ConfigPath(elems ...string) string
	LogPath(filename string) string
	GetEnvOrDefault(envVar, defaultValue string) string
	ExpandPath(path string) string
}

type FlagsProvider interface {
	IsDebug() bool
	ConfigDir() string
	GetFlag(name string) string
}
