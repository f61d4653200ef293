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

package crm

import (
	"sync"

	"github.com/Adembc/lazycrm/internal/core/domain"
)

// session is the result of one probe. It satisfies domain.Session and
// io.Closer. It does not implement domain.TimeoutSetter: the probe issues no
// requests after it is built; the HTTP client timeout and the request context
// bound the probe itself.
type session struct {
	ready   bool
	lastErr string
	scheme  domain.AuthScheme
	org     domain.OrganizationInfo
	orgURL  string

	mu     sync.Mutex
	closed bool
}

func (s *session) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && !s.closed
}

func (s *session) LastError() string                     { return s.lastErr }
func (s *session) AuthScheme() domain.AuthScheme         { return s.scheme }
func (s *session) Organization() domain.OrganizationInfo { return s.org }
func (s *session) ConnectedOrgURL() string               { return s.orgURL }

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
