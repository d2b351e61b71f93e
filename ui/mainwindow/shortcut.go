package mainwindow

import (
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// desktopShortcut binds a key with the platform's primary modifier.
type desktopShortcut struct {
	key fyne.KeyName
}

func (d *desktopShortcut) shortcut() *desktop.CustomShortcut {
	mod := fyne.KeyModifierControl
	if runtime.GOOS == "darwin" {
		mod = fyne.KeyModifierSuper
	}
	return &desktop.CustomShortcut{KeyName: d.key, Modifier: mod}
}
