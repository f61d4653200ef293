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
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type ProfileFormMode int

const (
	ProfileFormAdd ProfileFormMode = iota
	ProfileFormEdit
)

// Authentication modes offered by the profile form and the add command.
const (
	ModeActiveDirectory = iota
	ModeIfd
	ModeOnline
	ModeConnectionString
)

var modeOptions = []string{"Active Directory", "IFD", "Online", "Connection string"}

// ParseMode maps a mode name ("ad", "ifd", "online", "connection-string") to
// its form mode.
func ParseMode(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ad", "active-directory":
		return ModeActiveDirectory, nil
	case "ifd":
		return ModeIfd, nil
	case "online":
		return ModeOnline, nil
	case "connection-string", "cs":
		return ModeConnectionString, nil
	default:
		return 0, fmt.Errorf("unknown authentication mode %q", s)
	}
}

const (
	labelName             = "Name"
	labelMode             = "Authentication"
	labelConnectionString = "Connection string"
	labelURL              = "Organization URL"
	labelServer           = "Server"
	labelPort             = "Port"
	labelOrganization     = "Organization"
	labelUseSSL           = "Use SSL"
	labelCustomAuth       = "Custom credentials"
	labelDomain           = "Domain"
	labelUser             = "User"
	labelPassword         = "Password"
	labelSavePassword     = "Save password"
	labelHomeRealm        = "Home realm URL"
	labelTimeout          = "Timeout"
)

// ProfileDraft is the raw, user-typed content of a profile, as entered in
// the profile form or on the command line.
type ProfileDraft struct {
	Name             string
	Mode             int
	ConnectionString string
	URL              string
	Server           string
	Port             string
	Organization     string
	UseSSL           bool
	CustomAuth       bool
	Domain           string
	User             string
	Password         string
	SavePassword     bool
	HomeRealm        string
	Timeout          string
}

func valuesFromProfile(p *domain.ConnectionProfile) ProfileDraft {
	if p == nil {
		return ProfileDraft{Mode: ModeActiveDirectory, Timeout: domain.DefaultTimeout.String()}
	}
	v := ProfileDraft{
		Name:             p.ConnectionName,
		ConnectionString: p.ConnectionString,
		URL:              p.OriginalURL,
		Server:           p.ServerName,
		Organization:     p.OrganizationURLName,
		UseSSL:           p.UseSsl,
		CustomAuth:       p.IsCustomAuth,
		Domain:           p.UserDomain,
		User:             p.UserName,
		SavePassword:     p.SavePassword,
		HomeRealm:        p.HomeRealmURL,
		Timeout:          p.Timeout.String(),
	}
	if p.ServerPort != nil {
		v.Port = strconv.Itoa(*p.ServerPort)
	}
	switch {
	case p.UseConnectionString:
		v.Mode = ModeConnectionString
	case p.UseOnline:
		v.Mode = ModeOnline
	case p.UseIfd:
		v.Mode = ModeIfd
	default:
		v.Mode = ModeActiveDirectory
	}
	return v
}

// parseTimeout accepts a Go duration ("90s", "2m") or a number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.DefaultTimeout, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return d, nil
}

// BuildProfile turns a draft into a profile. Editing starts from a copy
// of original so fields the form does not show are kept.
func BuildProfile(v ProfileDraft, original *domain.ConnectionProfile) (*domain.ConnectionProfile, error) {
	var p *domain.ConnectionProfile
	if original != nil {
		p = original.Clone()
	} else {
		p = domain.NewConnectionProfile(false)
	}

	p.ConnectionName = strings.TrimSpace(v.Name)
	p.UseConnectionString = false
	p.UseIfd = false
	p.UseOnline = false
	p.UseOsdp = false
	p.HomeRealmURL = ""
	p.SavePassword = v.SavePassword

	timeout, err := parseTimeout(v.Timeout)
	if err != nil {
		return nil, err
	}
	p.Timeout = timeout

	if v.Mode == ModeConnectionString {
		p.UseConnectionString = true
		p.ConnectionString = strings.TrimSpace(v.ConnectionString)
		return p, nil
	}
	p.ConnectionString = ""

	p.UserDomain = strings.TrimSpace(v.Domain)
	p.UserName = strings.TrimSpace(v.User)
	p.OriginalURL = strings.TrimSpace(v.URL)
	p.ServerName = strings.TrimSpace(v.Server)
	p.OrganizationURLName = strings.TrimSpace(v.Organization)
	p.UseSsl = v.UseSSL
	p.ServerPort = nil
	if port := strings.TrimSpace(v.Port); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", port)
		}
		p.ServerPort = &n
	}

	if p.OriginalURL != "" {
		if err := applyOrganizationURL(p, v.Mode); err != nil {
			return nil, err
		}
	}

	switch v.Mode {
	case ModeOnline:
		if !domain.IsOnlineHost(p.ServerName) {
			return nil, errors.New("online connections need an organization URL such as https://contoso.crm4.dynamics.com")
		}
		p.UseOnline = true
		p.UseOsdp = true
		p.UseSsl = true
		p.IsCustomAuth = true
		p.UserDomain = ""
	case ModeIfd:
		p.UseIfd = true
		p.IsCustomAuth = true
		p.HomeRealmURL = strings.TrimSpace(v.HomeRealm)
	default:
		p.IsCustomAuth = v.CustomAuth
	}
	return p, nil
}

// applyOrganizationURL derives server, port, SSL and organization name from
// the organization URL typed by the user.
func applyOrganizationURL(p *domain.ConnectionProfile, mode int) error {
	u, err := url.Parse(p.OriginalURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid organization url %q", p.OriginalURL)
	}
	p.UseSsl = strings.EqualFold(u.Scheme, "https")
	p.ServerName = u.Hostname()
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port in %q", p.OriginalURL)
		}
		p.ServerPort = &n
	} else {
		p.ServerPort = nil
	}

	switch mode {
	case ModeOnline:
		org, _, _, err := domain.OrgAndRegionFromURL(p.OriginalURL)
		if err != nil {
			return err
		}
		p.OrganizationURLName = org
	case ModeIfd:
		// contoso.crm.contoso.com: the organization is the first label and
		// the server is the rest
		if i := strings.IndexByte(p.ServerName, '.'); i > 0 {
			p.OrganizationURLName = p.ServerName[:i]
			p.ServerName = p.ServerName[i+1:]
		}
	default:
		if seg := strings.Trim(u.Path, "/"); seg != "" {
			p.OrganizationURLName = strings.SplitN(seg, "/", 2)[0]
		}
	}
	return nil
}

type ProfileForm struct {
	*tview.Form
	mode     ProfileFormMode
	original *domain.ConnectionProfile
	onSave   func(profile, original *domain.ConnectionProfile, password string)
	onCancel func()
}

func NewProfileForm(mode ProfileFormMode, original *domain.ConnectionProfile) *ProfileForm {
	form := &ProfileForm{
		Form:     tview.NewForm(),
		mode:     mode,
		original: original,
	}
	form.build()
	return form
}

func (pf *ProfileForm) build() {
	title := "Add Connection"
	if pf.mode == ProfileFormEdit && pf.original != nil {
		title = fmt.Sprintf("Edit Connection: %s", pf.original.ConnectionName)
	}
	pf.Form.SetBorder(true).
		SetTitle(title).
		SetTitleAlign(tview.AlignLeft).
		SetBorderColor(tcell.Color238)

	v := valuesFromProfile(pf.original)
	pf.Form.AddInputField(labelName, v.Name, 40, nil, nil)
	pf.Form.AddDropDown(labelMode, modeOptions, v.Mode, nil)
	pf.Form.AddInputField(labelConnectionString, v.ConnectionString, 60, nil, nil)
	pf.Form.AddInputField(labelURL, v.URL, 60, nil, nil)
	pf.Form.AddInputField(labelServer, v.Server, 40, nil, nil)
	pf.Form.AddInputField(labelPort, v.Port, 6, tview.InputFieldInteger, nil)
	pf.Form.AddInputField(labelOrganization, v.Organization, 30, nil, nil)
	pf.Form.AddCheckbox(labelUseSSL, v.UseSSL, nil)
	pf.Form.AddCheckbox(labelCustomAuth, v.CustomAuth, nil)
	pf.Form.AddInputField(labelDomain, v.Domain, 30, nil, nil)
	pf.Form.AddInputField(labelUser, v.User, 40, nil, nil)
	pf.Form.AddPasswordField(labelPassword, "", 40, '*', nil)
	pf.Form.AddCheckbox(labelSavePassword, v.SavePassword, nil)
	pf.Form.AddInputField(labelHomeRealm, v.HomeRealm, 60, nil, nil)
	pf.Form.AddInputField(labelTimeout, v.Timeout, 10, nil, nil)

	pf.Form.AddButton("Save", pf.handleSave)
	pf.Form.AddButton("Cancel", pf.handleCancel)
	pf.Form.SetCancelFunc(pf.handleCancel)
}

func (pf *ProfileForm) inputText(label string) string {
	if field, ok := pf.Form.GetFormItemByLabel(label).(*tview.InputField); ok {
		return field.GetText()
	}
	return ""
}

func (pf *ProfileForm) checked(label string) bool {
	if box, ok := pf.Form.GetFormItemByLabel(label).(*tview.Checkbox); ok {
		return box.IsChecked()
	}
	return false
}

func (pf *ProfileForm) values() ProfileDraft {
	mode := ModeActiveDirectory
	if dd, ok := pf.Form.GetFormItemByLabel(labelMode).(*tview.DropDown); ok {
		mode, _ = dd.GetCurrentOption()
	}
	return ProfileDraft{
		Name:             pf.inputText(labelName),
		Mode:             mode,
		ConnectionString: pf.inputText(labelConnectionString),
		URL:              pf.inputText(labelURL),
		Server:           pf.inputText(labelServer),
		Port:             pf.inputText(labelPort),
		Organization:     pf.inputText(labelOrganization),
		UseSSL:           pf.checked(labelUseSSL),
		CustomAuth:       pf.checked(labelCustomAuth),
		Domain:           pf.inputText(labelDomain),
		User:             pf.inputText(labelUser),
		Password:         pf.inputText(labelPassword),
		SavePassword:     pf.checked(labelSavePassword),
		HomeRealm:        pf.inputText(labelHomeRealm),
		Timeout:          pf.inputText(labelTimeout),
	}
}

func (pf *ProfileForm) handleSave() {
	v := pf.values()
	profile, err := BuildProfile(v, pf.original)
	if err != nil {
		pf.Form.SetTitle("Error: " + err.Error())
		return
	}
	if pf.onSave != nil {
		pf.onSave(profile, pf.original, v.Password)
	}
}

func (pf *ProfileForm) handleCancel() {
	if pf.onCancel != nil {
		pf.onCancel()
	}
}

func (pf *ProfileForm) OnSave(fn func(profile, original *domain.ConnectionProfile, password string)) *ProfileForm {
	pf.onSave = fn
	return pf
}

func (pf *ProfileForm) OnCancel(fn func()) *ProfileForm {
	pf.onCancel = fn
	return pf
}
