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

package file

import (
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/google/uuid"
)

const (
	// lastUsedLayout is the invariant-culture date format of the connections file.
	lastUsedLayout = "01/02/2006 15:04:05"
	// ticksPerDuration converts between time.Duration and 100ns ticks.
	ticksPerDuration = 100
)

type connectionsDocument struct {
	XMLName     xml.Name           `xml:"CrmConnections"`
	Connections []connectionRecord `xml:"ConnectionDetail"`
}

// connectionRecord is the on-disk shape of one profile. Element names and
// order match the connections file written by earlier tools.
type connectionRecord struct {
	AuthType                   string             `xml:"AuthType"`
	ConnectionID               string             `xml:"ConnectionId"`
	ConnectionName             string             `xml:"ConnectionName"`
	ConnectionString           string             `xml:"ConnectionString"`
	UseConnectionString        string             `xml:"UseConnectionString"`
	IsCustomAuth               string             `xml:"IsCustomAuth"`
	UseIfd                     string             `xml:"UseIfd"`
	UseOnline                  string             `xml:"UseOnline"`
	UseOsdp                    string             `xml:"UseOsdp"`
	UserDomain                 string             `xml:"UserDomain"`
	UserName                   string             `xml:"UserName"`
	UserPassword               string             `xml:"UserPassword"`
	SavePassword               string             `xml:"SavePassword"`
	UseSsl                     string             `xml:"UseSsl"`
	ServerName                 string             `xml:"ServerName"`
	ServerPort                 string             `xml:"ServerPort"`
	OriginalURL                string             `xml:"OriginalUrl"`
	Organization               string             `xml:"Organization"`
	OrganizationURLName        string             `xml:"OrganizationUrlName"`
	OrganizationFriendlyName   string             `xml:"OrganizationFriendlyName"`
	OrganizationServiceURL     string             `xml:"OrganizationServiceUrl"`
	OrganizationDataServiceURL string             `xml:"OrganizationDataServiceUrl"`
	OrganizationVersion        string             `xml:"OrganizationVersion"`
	HomeRealmURL               string             `xml:"HomeRealmUrl"`
	Timeout                    string             `xml:"Timeout"`
	WebApplicationURL          string             `xml:"WebApplicationUrl"`
	LastUsedOn                 string             `xml:"LastUsedOn"`
	CustomInformation          *customInformation `xml:"CustomInformation,omitempty"`
}

// customInformation is a free-form map stored as <Key>Value</Key> children.
type customInformation map[string]string

func (c customInformation) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, key := range slices.Sorted(maps.Keys(c)) {
		if !isXMLName(key) {
			return fmt.Errorf("custom information key %q is not a valid element name", key)
		}
		el := xml.StartElement{Name: xml.Name{Local: key}}
		if err := e.EncodeElement(c[key], el); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// isXMLName reports whether s can be written as an element name and read back.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

func (c *customInformation) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	out := customInformation{}
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			out[t.Name.Local] = value
		case xml.EndElement:
			*c = out
			return nil
		}
	}
	*c = out
	return nil
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func newConnectionRecord(p *domain.ConnectionProfile) connectionRecord {
	r := connectionRecord{
		AuthType:                   string(p.AuthType),
		ConnectionName:             p.ConnectionName,
		ConnectionString:           p.ConnectionString,
		UseConnectionString:        formatBool(p.UseConnectionString),
		IsCustomAuth:               formatBool(p.IsCustomAuth),
		UseIfd:                     formatBool(p.UseIfd),
		UseOnline:                  formatBool(p.UseOnline),
		UseOsdp:                    formatBool(p.UseOsdp),
		UserDomain:                 p.UserDomain,
		UserName:                   p.UserName,
		SavePassword:               formatBool(p.SavePassword),
		UseSsl:                     formatBool(p.UseSsl),
		ServerName:                 p.ServerName,
		OriginalURL:                p.OriginalURL,
		Organization:               p.Organization,
		OrganizationURLName:        p.OrganizationURLName,
		OrganizationFriendlyName:   p.OrganizationFriendlyName,
		OrganizationServiceURL:     p.OrganizationServiceURL,
		OrganizationDataServiceURL: p.OrganizationDataServiceURL,
		OrganizationVersion:        p.OrganizationVersion,
		HomeRealmURL:               p.HomeRealmURL,
		Timeout:                    strconv.FormatInt(int64(p.Timeout)/ticksPerDuration, 10),
		WebApplicationURL:          p.WebApplicationURL,
	}
	if p.ConnectionID != nil {
		r.ConnectionID = p.ConnectionID.String()
	}
	if p.SavePassword {
		r.UserPassword = p.EncryptedSecret()
	}
	if p.ServerPort != nil {
		r.ServerPort = strconv.Itoa(*p.ServerPort)
	}
	if !p.LastUsedOn.IsZero() {
		r.LastUsedOn = p.LastUsedOn.In(time.Local).Format(lastUsedLayout)
	}
	if p.CustomInformation != nil {
		ci := customInformation(p.CustomInformation)
		r.CustomInformation = &ci
	}
	return r
}

// profile converts r back into a domain profile. Unparsable optional values
// fall back to their defaults.
func (r connectionRecord) profile() *domain.ConnectionProfile {
	p := domain.NewConnectionProfile(false)
	if id, err := uuid.Parse(strings.TrimSpace(r.ConnectionID)); err == nil {
		p.ConnectionID = &id
	}
	p.AuthType = domain.ParseAuthType(r.AuthType)
	p.ConnectionName = r.ConnectionName
	p.ConnectionString = r.ConnectionString
	p.UseConnectionString = parseBool(r.UseConnectionString)
	p.IsCustomAuth = parseBool(r.IsCustomAuth)
	p.UseIfd = parseBool(r.UseIfd)
	p.UseOnline = parseBool(r.UseOnline)
	p.UseOsdp = parseBool(r.UseOsdp)
	p.UserDomain = r.UserDomain
	p.UserName = r.UserName
	p.SavePassword = parseBool(r.SavePassword)
	p.SetEncryptedSecret(r.UserPassword)
	p.UseSsl = parseBool(r.UseSsl)
	p.ServerName = r.ServerName
	if port, err := strconv.Atoi(strings.TrimSpace(r.ServerPort)); err == nil {
		p.ServerPort = &port
	}
	p.OriginalURL = r.OriginalURL
	p.Organization = r.Organization
	p.OrganizationURLName = r.OrganizationURLName
	p.OrganizationFriendlyName = r.OrganizationFriendlyName
	p.OrganizationServiceURL = r.OrganizationServiceURL
	p.OrganizationDataServiceURL = r.OrganizationDataServiceURL
	p.OrganizationVersion = r.OrganizationVersion
	p.HomeRealmURL = r.HomeRealmURL
	if ticks, err := strconv.ParseInt(strings.TrimSpace(r.Timeout), 10, 64); err == nil && ticks > 0 {
		p.Timeout = time.Duration(ticks * ticksPerDuration)
	}
	p.WebApplicationURL = r.WebApplicationURL
	if t, err := time.ParseInLocation(lastUsedLayout, strings.TrimSpace(r.LastUsedOn), time.Local); err == nil && t.Year() > 1 {
		p.LastUsedOn = t
	}
	if r.CustomInformation != nil {
		p.CustomInformation = map[string]string(*r.CustomInformation)
	}
	return p
}
