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
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/Adembc/lazycrm/internal/core/ports"
	"go.uber.org/zap"
)

const (
	regionalInstancesPath = "/api/discovery/v9.0/Instances"
	// GlobalInstancesURL lists the organizations of the signed-in user across
	// every region.
	GlobalInstancesURL = "https://globaldisco.crm.dynamics.com/api/discovery/v2.0/Instances"
)

type instancesResponse struct {
	Value []instance `json:"value"`
}

type instance struct {
	URLName      string `json:"UrlName"`
	UniqueName   string `json:"UniqueName"`
	FriendlyName string `json:"FriendlyName"`
	Version      string `json:"Version"`
	URL          string `json:"Url"`
}

func (i instance) organization() ports.DiscoveredOrganization {
	return ports.DiscoveredOrganization{
		URLName:      i.URLName,
		UniqueName:   i.UniqueName,
		FriendlyName: i.FriendlyName,
		Version:      i.Version,
		URL:          i.URL,
	}
}

// NewDirectory returns the discovery directory for kind.
func NewDirectory(kind domain.DiscoveryKind, client *http.Client, logger *zap.SugaredLogger) (ports.DiscoveryDirectory, error) {
	switch kind {
	case domain.DiscoveryRegional, "":
		return &regionalDirectory{client: client, logger: logger}, nil
	case domain.DiscoveryGlobal:
		return &globalDirectory{client: client, logger: logger, instancesURL: GlobalInstancesURL}, nil
	default:
		return nil, fmt.Errorf("unknown discovery kind %q", kind)
	}
}

// regionalDirectory asks the discovery service of the endpoint's own region.
type regionalDirectory struct {
	client *http.Client
	logger *zap.SugaredLogger
}

func (d *regionalDirectory) Organizations(ctx context.Context, endpoint string, creds ports.Credentials) ([]ports.DiscoveredOrganization, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid discovery endpoint %q", endpoint)
	}
	target := u.Scheme + "://" + u.Host + regionalInstancesPath
	return listInstances(ctx, d.client, d.logger, target, creds)
}

// globalDirectory ignores the regional endpoint and asks the global service.
type globalDirectory struct {
	client       *http.Client
	logger       *zap.SugaredLogger
	instancesURL string
}

func (d *globalDirectory) Organizations(ctx context.Context, _ string, creds ports.Credentials) ([]ports.DiscoveredOrganization, error) {
	return listInstances(ctx, d.client, d.logger, d.instancesURL, creds)
}

func listInstances(ctx context.Context, client *http.Client, logger *zap.SugaredLogger, target string, creds ports.Credentials) ([]ports.DiscoveredOrganization, error) {
	var body instancesResponse
	if err := getJSON(ctx, client, target, creds, &body); err != nil {
		logger.Warnw("organization discovery failed", "url", target, "error", err)
		return nil, fmt.Errorf("list instances: %w", err)
	}

	orgs := make([]ports.DiscoveredOrganization, 0, len(body.Value))
	for _, inst := range body.Value {
		orgs = append(orgs, inst.organization())
	}
	logger.Debugw("organizations discovered", "url", target, "count", len(orgs))
	return orgs, nil
}
