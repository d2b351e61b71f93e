// Package dialogs provides the modal collaborators the tool machine asks for
// text and category choices.
package dialogs

import (
	"strings"

	"geosketch/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// TextPrompt asks for a line of text in a modal form. OnCancel, when set,
// runs after the form is dismissed without text.
type TextPrompt struct {
	window   fyne.Window
	title    string
	OnCancel func()
}

// NewTextPrompt creates a prompt shown over window.
func NewTextPrompt(window fyne.Window) *TextPrompt {
	return &TextPrompt{window: window, title: "Enter Text"}
}

// RequestText shows the form and returns immediately. commit runs when the
// user confirms non-blank text.
func (p *TextPrompt) RequestText(_ geometry.Point2D, initial string, commit func(string)) {
	entry := widget.NewEntry()
	entry.SetText(initial)
	entry.SetPlaceHolder("Text")

	dlg := dialog.NewForm(p.title, "OK", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Text", entry)},
		func(ok bool) {
			text := strings.TrimSpace(entry.Text)
			if ok && text != "" {
				commit(text)
				return
			}
			if p.OnCancel != nil {
				p.OnCancel()
			}
		}, p.window)
	entry.OnSubmitted = func(string) { dlg.Submit() }
	dlg.Resize(fyne.NewSize(360, 140))
	dlg.Show()
	p.window.Canvas().Focus(entry)
}

// CategoryChooser asks the user to pick one option from a list.
type CategoryChooser struct {
	window fyne.Window
}

// NewCategoryChooser creates a chooser shown over window.
func NewCategoryChooser(window fyne.Window) *CategoryChooser {
	return &CategoryChooser{window: window}
}

// Choose shows the options and returns immediately. commit runs when an
// option is confirmed.
func (c *CategoryChooser) Choose(title string, options []string, commit func(string)) {
	if len(options) == 0 {
		return
	}
	sel := widget.NewRadioGroup(options, nil)
	sel.SetSelected(options[0])

	dlg := dialog.NewCustomConfirm(title, "OK", "Cancel", sel, func(ok bool) {
		if ok && sel.Selected != "" {
			commit(sel.Selected)
		}
	}, c.window)
	dlg.Show()
}
