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
	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type ProfileList struct {
	*tview.List
	profiles          []*domain.ConnectionProfile
	onSelectionChange func(*domain.ConnectionProfile)
}

func NewProfileList() *ProfileList {
	list := &ProfileList{
		List: tview.NewList(),
	}
	list.build()
	return list
}

func (pl *ProfileList) build() {
	pl.List.ShowSecondaryText(false)
	pl.List.SetBorder(true).
		SetTitle("Connections").
		SetTitleAlign(tview.AlignLeft).
		SetBorderColor(tcell.Color238).
		SetTitleColor(tcell.Color250)
	pl.List.SetSelectedBackgroundColor(tcell.Color24).
		SetSelectedTextColor(tcell.Color255).
		SetHighlightFullLine(true)

	pl.List.SetChangedFunc(func(index int, _, _ string, _ rune) {
		if index >= 0 && index < len(pl.profiles) && pl.onSelectionChange != nil {
			pl.onSelectionChange(pl.profiles[index])
		}
	})
}

// UpdateProfiles replaces the list content, keeping the selection on the same
// profile when it is still present.
func (pl *ProfileList) UpdateProfiles(profiles []*domain.ConnectionProfile) {
	selectedName := ""
	if p, ok := pl.GetSelectedProfile(); ok {
		selectedName = p.ConnectionName
	}

	pl.profiles = profiles
	pl.List.Clear()

	selected := 0
	for i, p := range profiles {
		primary, secondary := formatProfileLine(p)
		pl.List.AddItem(primary, secondary, 0, nil)
		if p.ConnectionName == selectedName {
			selected = i
		}
	}

	if len(profiles) > 0 {
		pl.List.SetCurrentItem(selected)
		if pl.onSelectionChange != nil {
			pl.onSelectionChange(profiles[selected])
		}
	}
}

func (pl *ProfileList) GetSelectedProfile() (*domain.ConnectionProfile, bool) {
	idx := pl.List.GetCurrentItem()
	if idx >= 0 && idx < len(pl.profiles) {
		return pl.profiles[idx], true
	}
	return nil, false
}

func (pl *ProfileList) OnSelectionChange(fn func(*domain.ConnectionProfile)) *ProfileList {
	pl.onSelectionChange = fn
	return pl
}
