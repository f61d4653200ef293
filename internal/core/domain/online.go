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

import (
	"net/url"
	"strings"
)

const onlineHostSuffix = ".dynamics.com"

var onlineRegions = map[string]string{
	"crm":   "NorthAmerica",
	"crm2":  "SouthAmerica",
	"crm3":  "Canada",
	"crm4":  "EMEA",
	"crm5":  "APAC",
	"crm6":  "Oceania",
	"crm7":  "Japan",
	"crm8":  "India",
	"crm9":  "NorthAmerica2",
	"crm11": "UnitedKingdom",
}

// OnlineRegion maps the second label of an online host name
// (contoso.crm4.dynamics.com) to its region. Unknown labels give "".
func OnlineRegion(hostname string) string {
	labels := strings.Split(strings.ToLower(hostname), ".")
	if len(labels) < 2 {
		return ""
	}
	return onlineRegions[labels[1]]
}

// OnlineRegionLabel is the inverse of OnlineRegion: it returns the host label
// serving region, matched case-insensitively. Unknown regions give "crm".
func OnlineRegionLabel(region string) string {
	for label, name := range onlineRegions {
		if strings.EqualFold(name, region) {
			return label
		}
	}
	return "crm"
}

// IsOnlineHost reports whether host belongs to the online service.
func IsOnlineHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), onlineHostSuffix)
}

// OrgAndRegionFromURL splits an organization URL into the organization URL
// name and the online region. onPrem is true for hosts outside the online
// service, in which case region is empty.
func OrgAndRegionFromURL(raw string) (orgName, region string, onPrem bool, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false, err
	}
	host := u.Hostname()
	if !IsOnlineHost(host) {
		return firstLabel(host), "", true, nil
	}
	return firstLabel(host), OnlineRegion(host), false, nil
}

// DiscoveryEndpoint returns the discovery service URL serving serverName's
// domain: contoso.crm4.dynamics.com gives https://disco.crm4.dynamics.com/XRMServices/2011/Discovery.svc.
func DiscoveryEndpoint(serverName string) string {
	domain := serverName
	if i := strings.IndexByte(serverName, '.'); i >= 0 {
		domain = serverName[i+1:]
	}
	return "https://disco." + domain + "/XRMServices/2011/Discovery.svc"
}

func firstLabel(host string) string {
	if i := strings.IndexByte(host, '.'); i >= 0 {
		return host[:i]
	}
	return host
}
