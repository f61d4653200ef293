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
	"bufio"
	"encoding/xml"
	"io"

	"github.com/Adembc/lazycrm/internal/core/domain"
)

type ConnectionsWriter struct{}

func (w *ConnectionsWriter) Write(writer io.Writer, profiles []*domain.ConnectionProfile) error {
	bufWriter := bufio.NewWriter(writer)

	doc := connectionsDocument{Connections: make([]connectionRecord, 0, len(profiles))}
	for _, p := range profiles {
		doc.Connections = append(doc.Connections, newConnectionRecord(p))
	}

	if _, err := bufWriter.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(bufWriter)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if _, err := bufWriter.WriteString("\n"); err != nil {
		return err
	}
	return bufWriter.Flush()
}
