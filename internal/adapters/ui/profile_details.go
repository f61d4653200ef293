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

package ui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type ProfileDetails struct {
	*tview.TextView
}

func NewProfileDetails() *ProfileDetails {
	details := &ProfileDetails{
		TextView: tview.NewTextView(),
	}
	details.build()
	return details
}

func (pd *ProfileDetails) build() {
	pd.TextView.SetDynamicColors(true).
		SetWrap(true).
		SetBorder(true).
		SetTitle("Details").
		SetBorderColor(tcell.Color238).
		SetTitleColor(tcell.Color250)
}

// renderCustomInformation builds key chips for the details view.
func renderCustomInformation(info map[string]string) string {
	if len(info) == 0 {
		return "-"
	}
	chips := make([]string, 0, len(info))
	for _, k := range slices.Sorted(maps.Keys(info)) {
		chips = append(chips, fmt.Sprintf("[black:#5FAFFF] %s=%s [-:-:-]", k, info[k]))
	}
	return strings.Join(chips, " ")
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (pd *ProfileDetails) UpdateProfile(p *domain.ConnectionProfile) {
	lastUsed := p.LastUsedOn.Format("2006-01-02 15:04:05")
	if p.LastUsedOn.IsZero() {
		lastUsed = "Never"
	}
	sessionState := "[#8A8A8A]not connected[-]"
	if s := p.Session(); s != nil && s.IsReady() {
		sessionState = "[#A0FFA0]connected[-]"
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("[::b]%s[-]\n\n", p.ConnectionName))
	text.WriteString(fmt.Sprintf("Mode: [white]%s[-]\nAuth type: [white]%s[-]\nSession: %s\n\n",
		authModeLabel(p), valueOrDash(string(p.AuthType)), sessionState))

	if p.UseConnectionString {
		text.WriteString(fmt.Sprintf("Connection string: [white]%s[-]\n", maskConnectionString(p.ConnectionString)))
	} else {
		text.WriteString(fmt.Sprintf("URL: [white]%s[-]\n", valueOrDash(p.OrganizationURL())))
		text.WriteString(fmt.Sprintf("Server: [white]%s[-]\nPort: [white]%d[-]\nSSL: [white]%t[-]\n",
			valueOrDash(p.ServerName), p.Port(), p.UseSsl))
		if p.UseIfd {
			text.WriteString(fmt.Sprintf("Home realm: [white]%s[-]\n", valueOrDash(p.HomeRealmURL)))
		}
		user := "(current Windows user)"
		if p.IsCustomAuth || p.UseOnline || p.UseIfd {
			user = p.UserName
			if p.UserDomain != "" {
				user = p.UserDomain + `\` + p.UserName
			}
		}
		text.WriteString(fmt.Sprintf("User: [white]%s[-]\nPassword saved: [white]%t[-]\n", user, p.SavePassword && !p.SecretIsEmpty()))
	}

	text.WriteString(fmt.Sprintf("\nOrganization: [white]%s[-]\nFriendly name: [white]%s[-]\nVersion: [white]%s[-]\n",
		valueOrDash(p.Organization), valueOrDash(p.OrganizationFriendlyName), valueOrDash(p.OrganizationVersion)))
	text.WriteString(fmt.Sprintf("Timeout: [white]%s[-]\nLast used: %s\nCustom info: %s\n\n",
		p.Timeout, lastUsed, renderCustomInformation(p.CustomInformation)))

	text.WriteString("[::b]Commands:[-]\n")
	text.WriteString("  Enter: Connect\n  r: Reconnect (new session)\n  c: Copy connection string\n  a: Add connection\n  e: Edit connection\n  d: Delete connection")

	pd.TextView.SetText(text.String())
}

func (pd *ProfileDetails) ShowEmpty() {
	pd.TextView.SetText("No connections match the current filter.")
}
