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

// AuthType is the authentication provider recorded on a profile after a
// successful resolution.
type AuthType string

const (
	AuthTypeNone             AuthType = "None"
	AuthTypeActiveDirectory  AuthType = "ActiveDirectory"
	AuthTypeFederation       AuthType = "Federation"
	AuthTypeLiveID           AuthType = "LiveId"
	AuthTypeOnlineFederation AuthType = "OnlineFederation"
)

// ParseAuthType maps a persisted value back to an AuthType. Unknown values
// become AuthTypeNone.
func ParseAuthType(s string) AuthType {
	switch AuthType(s) {
	case AuthTypeActiveDirectory, AuthTypeFederation, AuthTypeLiveID, AuthTypeOnlineFederation:
		return AuthType(s)
	default:
		return AuthTypeNone
	}
}

// AuthScheme is the scheme a live session actually negotiated with the server.
type AuthScheme int

const (
	AuthSchemeUnknown AuthScheme = iota
	AuthSchemeAD
	AuthSchemeClaims
	AuthSchemeIFD
	AuthSchemeLive
	AuthSchemeOAuth
	AuthSchemeOffice365
)

func (s AuthScheme) String() string {
	switch s {
	case AuthSchemeAD:
		return "AD"
	case AuthSchemeClaims:
		return "Claims"
	case AuthSchemeIFD:
		return "IFD"
	case AuthSchemeLive:
		return "Live"
	case AuthSchemeOAuth:
		return "OAuth"
	case AuthSchemeOffice365:
		return "Office365"
	default:
		return "Unknown"
	}
}

// AuthType classifies the negotiated scheme. ok is false for schemes that have
// no AuthType counterpart (OAuth, Unknown); callers leave the profile's
// AuthType untouched in that case.
func (s AuthScheme) AuthType() (t AuthType, ok bool) {
	switch s {
	case AuthSchemeAD, AuthSchemeClaims:
		return AuthTypeActiveDirectory, true
	case AuthSchemeIFD:
		return AuthTypeFederation, true
	case AuthSchemeLive:
		return AuthTypeLiveID, true
	case AuthSchemeOffice365:
		return AuthTypeOnlineFederation, true
	default:
		return "", false
	}
}
