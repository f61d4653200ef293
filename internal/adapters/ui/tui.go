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
	"github.com/Adembc/lazycrm/internal/core/ports"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const AppName = "lazycrm"

type App interface {
	Run() error
}

type tui struct {
	logger  *zap.SugaredLogger
	version string
	commit  string

	app            *tview.Application
	profileService ports.ProfileService

	header      *tview.TextView
	searchBar   *SearchBar
	hintBar     *tview.TextView
	profileList *ProfileList
	details     *ProfileDetails
	statusBar   *tview.TextView

	root    *tview.Flex
	left    *tview.Flex
	content *tview.Flex

	sortMode      SortMode
	searchVisible bool
}

func NewTUI(logger *zap.SugaredLogger, ps ports.ProfileService, version, commit string) App {
	return &tui{
		logger:         logger,
		app:            tview.NewApplication(),
		profileService: ps,
		version:        version,
		commit:         commit,
		sortMode:       SortByLastUsedDesc,
	}
}

func (t *tui) Run() error {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorw("panic recovered", "error", r)
		}
	}()
	t.app.EnableMouse(true)
	t.initializeTheme().buildComponents().buildLayout().bindEvents().loadInitialData()
	t.app.SetRoot(t.root, true)
	t.logger.Infow("starting TUI application", "version", t.version, "commit", t.commit)
	if err := t.app.Run(); err != nil {
		t.logger.Errorw("application run error", "error", err)
		return err
	}
	return nil
}

func (t *tui) initializeTheme() *tui {
	tview.Styles.PrimitiveBackgroundColor = tcell.Color232
	tview.Styles.ContrastBackgroundColor = tcell.Color235
	tview.Styles.BorderColor = tcell.Color238
	tview.Styles.TitleColor = tcell.Color250
	tview.Styles.PrimaryTextColor = tcell.Color252
	return t
}

func (t *tui) buildComponents() *tui {
	t.header = tview.NewTextView().
		SetDynamicColors(true).
		SetText(headerText(t.version, t.commit))
	t.searchBar = NewSearchBar().
		OnSearch(t.handleSearchInput).
		OnEscape(t.hideSearchBar)
	t.hintBar = tview.NewTextView().SetDynamicColors(true)
	t.hintBar.SetText("[#8A8A8A]Press / to search, ? for help[-]")
	t.profileList = NewProfileList().
		OnSelectionChange(t.handleProfileSelectionChange)
	t.details = NewProfileDetails()
	t.statusBar = tview.NewTextView().SetDynamicColors(true)
	t.statusBar.SetText(DefaultStatusText())
	return t
}

func (t *tui) buildLayout() *tui {
	t.left = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.hintBar, 1, 0, false).
		AddItem(t.profileList, 0, 1, true)

	t.content = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(t.left, 0, 3, true).
		AddItem(t.details, 0, 2, false)

	t.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.header, 1, 0, false).
		AddItem(t.content, 0, 1, true).
		AddItem(t.statusBar, 1, 0, false)
	return t
}

func (t *tui) bindEvents() *tui {
	t.root.SetInputCapture(t.handleGlobalKeys)
	return t
}

func (t *tui) loadInitialData() *tui {
	t.refreshProfileList()
	if p, ok := t.profileList.GetSelectedProfile(); ok {
		t.details.UpdateProfile(p)
	} else {
		t.details.ShowEmpty()
	}
	return t
}
