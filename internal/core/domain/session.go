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

package domain

import "time"

// EndpointType identifies one of the endpoints an organization publishes.
type EndpointType string

const (
	EndpointOrganizationService     EndpointType = "OrganizationService"
	EndpointOrganizationDataService EndpointType = "OrganizationDataService"
	EndpointWebApplication          EndpointType = "WebApplication"
)

// OrganizationInfo is what a live session reports about the organization it
// is connected to.
type OrganizationInfo struct {
	UniqueName   string
	FriendlyName string
	Version      string
	Endpoints    map[EndpointType]string
}

// Endpoint returns the published URL for t, or an empty string.
func (o OrganizationInfo) Endpoint(t EndpointType) string {
	if o.Endpoints == nil {
		return ""
	}
	return o.Endpoints[t]
}

// Session is a live session built by a session provider. A session that is
// not ready carries the provider's last diagnostic in LastError.
type Session interface {
	IsReady() bool
	LastError() string
	AuthScheme() AuthScheme
	Organization() OrganizationInfo
	// ConnectedOrgURL is the organization URL the session actually reached.
	ConnectedOrgURL() string
}

// TimeoutSetter is implemented by sessions exposing a per-request timeout.
type TimeoutSetter interface {
	SetTimeout(d time.Duration)
}
