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
	"strings"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/mattn/go-runewidth"
)

// cellPad pads a string with spaces so its display width is at least `width` cells.
func cellPad(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// cellTruncate shortens s to width display cells, marking the cut with "…".
func cellTruncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func authModeLabel(p *domain.ConnectionProfile) string {
	switch {
	case p.UseConnectionString:
		return "Connection string"
	case p.UseOnline && p.UseOsdp:
		return "Online (Office 365)"
	case p.UseOnline:
		return "Online"
	case p.UseIfd:
		return "IFD"
	default:
		return "Active Directory"
	}
}

func modeIndicator(p *domain.ConnectionProfile) string {
	switch {
	case p.UseConnectionString:
		return "C"
	case p.UseOnline:
		return "O"
	case p.UseIfd:
		return "F"
	default:
		return "A"
	}
}

func formatProfileLine(p *domain.ConnectionProfile) (primary, secondary string) {
	connected := " "
	if s := p.Session(); s != nil && s.IsReady() {
		connected = "*"
	}
	target := p.OrganizationFriendlyName
	if target == "" {
		target = p.ServerName
	}
	primary = fmt.Sprintf("%s%s %s %s Last used: %s",
		connected, modeIndicator(p),
		cellPad(cellTruncate(p.ConnectionName, 24), 24),
		cellPad(cellTruncate(target, 28), 28),
		humanizeDuration(p.LastUsedOn))
	secondary = ""
	return
}

// maskConnectionString hides the password of a connection string for display.
func maskConnectionString(s string) string {
	cs, err := domain.ParseConnectionString(s)
	if err != nil {
		return "(invalid connection string)"
	}
	for _, key := range []string{"Password", "ClientSecret"} {
		if cs.Has(key) {
			cs.Set(key, "********")
		}
	}
	return cs.String()
}

func humanizeDuration(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		m := int(d.Minutes())
		return fmt.Sprintf("%dm ago", m)
	}
	if d < 48*time.Hour {
		h := int(d.Hours())
		return fmt.Sprintf("%dh ago", h)
	}
	if d < 60*24*time.Hour {
		days := int(d.Hours()) / 24
		return fmt.Sprintf("%dd ago", days)
	}
	if d < 365*24*time.Hour {
		months := int(d.Hours()) / (24 * 30)
		if months < 1 {
			months = 1
		}
		return fmt.Sprintf("%dmo ago", months)
	}
	years := int(d.Hours()) / (24 * 365)
	if years < 1 {
		years = 1
	}
	return fmt.Sprintf("%dy ago", years)
}

func headerText(version, commit string) string {
	return fmt.Sprintf("[::b]%s[-:-:-] [#8A8A8A]%s (%s)[-]", AppName, version, commit)
}

func DefaultStatusText() string {
	return "[#8A8A8A]Enter connect • r reconnect • c copy • a add • e edit • d delete • s sort • / search • q quit[-]"
}
