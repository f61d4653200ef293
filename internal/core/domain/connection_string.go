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
	"fmt"
	"strings"
)

const (
	requireNewInstanceKey = "RequireNewInstance"
	usernameDirective     = "username="
)

type connectionStringPair struct {
	key   string
	value string
}

// ConnectionString is an ordered set of key=value pairs separated by ';'.
// Keys are matched case-insensitively and the last occurrence of a key wins.
type ConnectionString struct {
	pairs []connectionStringPair
}

// ParseConnectionString splits s into pairs. Values may be wrapped in single or
// double quotes; a doubled quote inside a quoted value is a literal quote.
func ParseConnectionString(s string) (*ConnectionString, error) {
	cs := &ConnectionString{}
	i := 0
	for i < len(s) {
		// key
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			if rest := strings.TrimSpace(strings.Trim(s[i:], ";")); rest != "" {
				return nil, fmt.Errorf("connection string: key %q has no value", rest)
			}
			break
		}
		key := strings.TrimSpace(strings.TrimLeft(s[i:i+eq], "; \t"))
		if key == "" {
			return nil, fmt.Errorf("connection string: empty key at offset %d", i)
		}
		if semi := strings.IndexByte(key, ';'); semi >= 0 {
			return nil, fmt.Errorf("connection string: key %q has no value", strings.TrimSpace(key[:semi]))
		}
		i += eq + 1

		// skip leading blanks of the value
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}

		var value string
		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			quote := s[i]
			i++
			var b strings.Builder
			closed := false
			for i < len(s) {
				if s[i] == quote {
					if i+1 < len(s) && s[i+1] == quote {
						b.WriteByte(quote)
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("connection string: unterminated quoted value for key %q", key)
			}
			value = b.String()
			for i < len(s) && s[i] != ';' {
				if s[i] != ' ' && s[i] != '\t' {
					return nil, fmt.Errorf("connection string: unexpected character after quoted value for key %q", key)
				}
				i++
			}
		} else {
			end := strings.IndexByte(s[i:], ';')
			if end < 0 {
				end = len(s) - i
			}
			value = strings.TrimSpace(s[i : i+end])
			i += end
		}
		if i < len(s) && s[i] == ';' {
			i++
		}
		cs.Set(key, value)
	}
	return cs, nil
}

func (c *ConnectionString) index(key string) int {
	for i, p := range c.pairs {
		if strings.EqualFold(p.key, key) {
			return i
		}
	}
	return -1
}

// Get returns the value for key and whether it is present.
func (c *ConnectionString) Get(key string) (string, bool) {
	if i := c.index(key); i >= 0 {
		return c.pairs[i].value, true
	}
	return "", false
}

func (c *ConnectionString) Has(key string) bool {
	return c.index(key) >= 0
}

// Set adds key or replaces its value in place.
func (c *ConnectionString) Set(key, value string) {
	if i := c.index(key); i >= 0 {
		c.pairs[i].value = value
		return
	}
	c.pairs = append(c.pairs, connectionStringPair{key: key, value: value})
}

func (c *ConnectionString) Len() int {
	return len(c.pairs)
}

func (c *ConnectionString) String() string {
	parts := make([]string, 0, len(c.pairs))
	for _, p := range c.pairs {
		parts = append(parts, p.key+"="+quoteConnectionStringValue(p.value))
	}
	return strings.Join(parts, ";")
}

func quoteConnectionStringValue(v string) string {
	if v == "" {
		return v
	}
	needsQuote := strings.ContainsAny(v, ";'\"") || strings.TrimSpace(v) != v
	if !needsQuote {
		return v
	}
	if !strings.Contains(v, "\"") {
		return "\"" + v + "\""
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	return "\"" + strings.ReplaceAll(v, "\"", "\"\"") + "\""
}

// EnsureRequireNewInstance appends a RequireNewInstance=True directive unless
// the string already carries one. The rest of s is left byte-for-byte intact.
func EnsureRequireNewInstance(s string) string {
	if cs, err := ParseConnectionString(s); err == nil {
		if cs.Has(requireNewInstanceKey) {
			return s
		}
	} else if strings.Contains(strings.ToLower(s), strings.ToLower(requireNewInstanceKey)+"=") {
		return s
	}
	if s != "" && !strings.HasSuffix(s, ";") {
		s += ";"
	}
	return s + requireNewInstanceKey + "=True;"
}

// HasUsernameDirective reports whether s names an explicit user.
func HasUsernameDirective(s string) bool {
	return strings.Contains(strings.ToLower(s), usernameDirective)
}
