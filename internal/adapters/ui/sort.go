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
	"sort"
	"strings"

	"github.com/Adembc/lazycrm/internal/core/domain"
)

type SortMode int

const (
	SortByLastUsedDesc SortMode = iota
	SortByLastUsedAsc
	SortByNameAsc
	SortByNameDesc
)

func (m SortMode) String() string {
	switch m {
	case SortByLastUsedDesc:
		return "Last used ↓"
	case SortByLastUsedAsc:
		return "Last used ↑"
	case SortByNameAsc:
		return "Name ↑"
	case SortByNameDesc:
		return "Name ↓"
	default:
		return "Last used ↓"
	}
}

// ToggleField switches between the name and last used fields, keeping the
// direction.
func (m SortMode) ToggleField() SortMode {
	switch m {
	case SortByLastUsedDesc:
		return SortByNameDesc
	case SortByLastUsedAsc:
		return SortByNameAsc
	case SortByNameAsc:
		return SortByLastUsedAsc
	default:
		return SortByLastUsedDesc
	}
}

func (m SortMode) Reverse() SortMode {
	switch m {
	case SortByLastUsedDesc:
		return SortByLastUsedAsc
	case SortByLastUsedAsc:
		return SortByLastUsedDesc
	case SortByNameAsc:
		return SortByNameDesc
	default:
		return SortByNameAsc
	}
}

func sortProfilesForUI(profiles []*domain.ConnectionProfile, mode SortMode) {
	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		switch mode {
		case SortByNameAsc:
			return strings.ToLower(a.ConnectionName) < strings.ToLower(b.ConnectionName)
		case SortByNameDesc:
			return strings.ToLower(a.ConnectionName) > strings.ToLower(b.ConnectionName)
		case SortByLastUsedAsc:
			if a.LastUsedOn.Equal(b.LastUsedOn) {
				return a.ConnectionName < b.ConnectionName
			}
			return a.LastUsedOn.Before(b.LastUsedOn)
		default:
			if a.LastUsedOn.Equal(b.LastUsedOn) {
				return a.ConnectionName < b.ConnectionName
			}
			return a.LastUsedOn.After(b.LastUsedOn)
		}
	})
}
