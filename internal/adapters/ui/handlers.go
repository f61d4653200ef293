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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// =============================================================================
// Event Handlers (handle user input/events)
// =============================================================================

func (t *tui) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	// Don't handle global keys when search has focus
	if t.app.GetFocus() == t.searchBar {
		return event
	}

	switch event.Rune() {
	case 'q':
		t.handleQuit()
		return nil
	case '/':
		t.handleSearchToggle()
		return nil
	case 'a':
		t.handleProfileAdd()
		return nil
	case 'e':
		t.handleProfileEdit()
		return nil
	case 'd':
		t.handleProfileDelete()
		return nil
	case 'r':
		t.handleProfileConnect(true)
		return nil
	case 's':
		t.handleSortToggle()
		return nil
	case 'S':
		t.handleSortReverse()
		return nil
	case 'c':
		t.handleCopyConnectionString()
		return nil
	case '?':
		t.handleHelpShow()
		return nil
	}

	if event.Key() == tcell.KeyEnter {
		t.handleProfileConnect(false)
		return nil
	}

	return event
}

func (t *tui) handleQuit() {
	t.app.Stop()
}

func (t *tui) handleSortToggle() {
	t.sortMode = t.sortMode.ToggleField()
	t.showStatusTemp("Sort: " + t.sortMode.String())
	t.refreshProfileList()
}

func (t *tui) handleSortReverse() {
	t.sortMode = t.sortMode.Reverse()
	t.showStatusTemp("Sort: " + t.sortMode.String())
	t.refreshProfileList()
}

func (t *tui) handleCopyConnectionString() {
	p, ok := t.profileList.GetSelectedProfile()
	if !ok {
		return
	}
	cs, err := t.profileService.ConnectionString(p)
	if err != nil {
		if errors.Is(err, domain.ErrMissingSecret) {
			t.showStatusTemp("No saved password for " + p.ConnectionName)
			return
		}
		t.showStatusTemp("Failed to build connection string: " + err.Error())
		return
	}
	if err := clipboard.WriteAll(cs); err != nil {
		t.logger.Warnw("clipboard write failed", "error", err)
		t.showStatusTemp("Failed to copy to clipboard")
		return
	}
	t.showStatusTemp("Copied connection string of " + p.ConnectionName)
}

func (t *tui) handleSearchInput(query string) {
	filtered, err := t.profileService.ListProfiles(query)
	if err != nil {
		t.showStatusTemp("Failed to list connections: " + err.Error())
		return
	}
	sortProfilesForUI(filtered, t.sortMode)
	t.profileList.UpdateProfiles(filtered)
	if len(filtered) == 0 {
		t.details.ShowEmpty()
	}
}

func (t *tui) handleSearchToggle() {
	t.showSearchBar()
}

func (t *tui) handleProfileSelectionChange(p *domain.ConnectionProfile) {
	t.details.UpdateProfile(p)
}

func (t *tui) handleProfileAdd() {
	form := NewProfileForm(ProfileFormAdd, nil).
		OnSave(t.handleProfileSave).
		OnCancel(t.handleFormCancel)
	t.app.SetRoot(form, true)
}

func (t *tui) handleProfileEdit() {
	if p, ok := t.profileList.GetSelectedProfile(); ok {
		form := NewProfileForm(ProfileFormEdit, p).
			OnSave(t.handleProfileSave).
			OnCancel(t.handleFormCancel)
		t.app.SetRoot(form, true)
	}
}

func (t *tui) handleProfileSave(profile, original *domain.ConnectionProfile, password string) {
	var err error
	if original != nil {
		err = t.profileService.UpdateProfile(original, profile, password)
	} else {
		err = t.profileService.AddProfile(profile, password)
	}
	if err != nil {
		// Stay on form; show a small modal with the error
		t.showErrorModal(fmt.Sprintf("Save failed: %v", err))
		return
	}

	t.refreshProfileList()
	t.handleFormCancel()
}

func (t *tui) handleProfileDelete() {
	if p, ok := t.profileList.GetSelectedProfile(); ok {
		t.showDeleteConfirmModal(p)
	}
}

// handleProfileConnect resolves the selected profile off the UI goroutine and
// reports the outcome in the status bar.
func (t *tui) handleProfileConnect(forceNew bool) {
	p, ok := t.profileList.GetSelectedProfile()
	if !ok {
		return
	}
	name := p.ConnectionName
	t.statusBar.SetText(fmt.Sprintf("[#FFD75F]Connecting to %s...[-]", name))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(p))
		defer cancel()

		connected, err := t.profileService.Connect(ctx, name, forceNew)
		t.app.QueueUpdateDraw(func() {
			if err != nil {
				t.logger.Warnw("connection failed", "name", name, "error", err)
				t.showErrorModal(connectFailureText(name, err))
				return
			}
			t.refreshProfileList()
			t.details.UpdateProfile(connected)
			t.showStatusTemp(fmt.Sprintf("Connected to %s (%s)", name, connected.OrganizationFriendlyName))
		})
	}()
}

// connectTimeout leaves room for the online race plus its single retry.
func connectTimeout(p *domain.ConnectionProfile) time.Duration {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}
	return 2 * timeout
}

func connectFailureText(name string, err error) string {
	var connErr *domain.ConnectionError
	var notFound *domain.OrganizationNotFoundError
	switch {
	case errors.As(err, &notFound):
		return fmt.Sprintf("Connection to %s failed:\n\norganization %q was not found by discovery", name, notFound.URLName)
	case errors.As(err, &connErr) && connErr.Diagnostic != "":
		return fmt.Sprintf("Connection to %s failed:\n\n%s", name, connErr.Diagnostic)
	case errors.Is(err, domain.ErrMissingSecret):
		return fmt.Sprintf("Connection to %s failed:\n\nno password is saved for this connection", name)
	default:
		return fmt.Sprintf("Connection to %s failed:\n\n%v", name, err)
	}
}

func (t *tui) handleFormCancel() {
	t.returnToMain()
}

func (t *tui) handleHelpShow() {
	t.showHelpModal()
}

func (t *tui) handleModalClose() {
	t.returnToMain()
}

// =============================================================================
// UI Display Functions (show UI elements/modals)
// =============================================================================

func (t *tui) showSearchBar() {
	t.left.Clear()
	t.left.AddItem(t.searchBar, 3, 0, true)
	t.left.AddItem(t.profileList, 0, 1, false)
	t.app.SetFocus(t.searchBar)
	t.searchVisible = true
}

func (t *tui) showErrorModal(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Close"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) { t.handleModalClose() })
	t.app.SetRoot(modal, true)
}

func (t *tui) showDeleteConfirmModal(p *domain.ConnectionProfile) {
	msg := fmt.Sprintf("Delete connection %s (%s)?\n\nThis action cannot be undone.",
		p.ConnectionName, authModeLabel(p))

	modal := tview.NewModal().
		SetText(msg).
		AddButtons([]string{"Cancel", "Confirm"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			if buttonIndex == 1 {
				if err := t.profileService.DeleteProfile(p); err != nil {
					t.showStatusTemp("Delete failed: " + err.Error())
				}
				t.refreshProfileList()
			}
			t.handleModalClose()
		})

	t.app.SetRoot(modal, true)
}

func (t *tui) showHelpModal() {
	text := "Keyboard shortcuts:\n\n" +
		"  ↑/↓            Navigate\n" +
		"  Enter          Connect\n" +
		"  r              Reconnect with a new session\n" +
		"  c              Copy connection string\n" +
		"  a              Add connection\n" +
		"  e              Edit connection\n" +
		"  d              Delete connection\n" +
		"  s              Sort field (Name / Last used)\n" +
		"  Shift+S        Reverse order (↑/↓)\n" +
		"  /              Focus search\n" +
		"  q              Quit\n" +
		"  ?              Help\n"

	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Close"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			t.handleModalClose()
		})

	t.app.SetRoot(modal, true)
}

// =============================================================================
// UI State Management (hide UI elements)
// =============================================================================

func (t *tui) hideSearchBar() {
	t.left.Clear()
	t.left.AddItem(t.hintBar, 1, 0, false)
	t.left.AddItem(t.profileList, 0, 1, true)
	t.app.SetFocus(t.profileList)
	t.searchVisible = false
}

// =============================================================================
// Internal Operations (perform actual work)
// =============================================================================

func (t *tui) refreshProfileList() {
	query := ""
	if t.searchVisible {
		query = t.searchBar.InputField.GetText()
	}
	t.updateListTitle()
	filtered, err := t.profileService.ListProfiles(query)
	if err != nil {
		t.logger.Errorw("failed to list profiles", "error", err)
		t.showStatusTemp("Failed to list connections: " + err.Error())
		return
	}
	sortProfilesForUI(filtered, t.sortMode)
	t.profileList.UpdateProfiles(filtered)
	if len(filtered) == 0 {
		t.details.ShowEmpty()
	}
}

func (t *tui) updateListTitle() {
	if t.profileList != nil {
		t.profileList.SetTitle(" Connections | Sort: " + t.sortMode.String() + " ")
	}
}

func (t *tui) returnToMain() {
	t.app.SetRoot(t.root, true)
}

// showStatusTemp displays a temporary message in the status bar and then restores the default text.
func (t *tui) showStatusTemp(msg string) {
	if t.statusBar == nil {
		return
	}
	t.statusBar.SetText("[#A0FFA0]" + msg + "[-]")
	time.AfterFunc(2*time.Second, func() {
		if t.app != nil {
			t.app.QueueUpdateDraw(func() {
				if t.statusBar != nil {
					t.statusBar.SetText(DefaultStatusText())
				}
			})
		}
	})
}
