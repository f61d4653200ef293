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
	"os"

	"github.com/Adembc/lazycrm/internal/core/domain"
)

type ConnectionsParser struct{}

// Parse reads the connections file at path. A missing file yields no profiles.
func (p *ConnectionsParser) Parse(path string) ([]*domain.ConnectionProfile, error) {
	// #nosec G304 -- path comes from the application config
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return p.ParseReader(file)
}

func (p *ConnectionsParser) ParseReader(r io.Reader) ([]*domain.ConnectionProfile, error) {
	var doc connectionsDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode connections: %w", err)
	}

	profiles := make([]*domain.ConnectionProfile, 0, len(doc.Connections))
	for _, record := range doc.Connections {
		profiles = append(profiles, record.profile())
	}
	return profiles, nil
}
