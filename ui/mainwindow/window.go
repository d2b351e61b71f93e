// Package mainwindow provides the main application window.
package mainwindow

import (
	"encoding/json"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"geosketch/internal/app"
	"geosketch/internal/config"
	"geosketch/internal/export"
	"geosketch/internal/image"
	"geosketch/internal/logging"
	"geosketch/internal/overlay"
	"geosketch/internal/surface"
	"geosketch/internal/tool"
	"geosketch/internal/version"
	"geosketch/ui/canvas"
	"geosketch/ui/dialogs"
	"geosketch/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"
)

const prefKeyLastDir = "lastDirectory"

// Surface ids mounted by the shell.
const (
	FreehandID surface.ID = 1
	GeoID      surface.ID = 2
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	ws    *app.Workspace
	prefs *prefs.Prefs
	log   zerolog.Logger

	tabs      *container.AppTabs
	canvases  map[surface.ID]*canvas.SurfaceCanvas
	statusBar *widget.Label

	toolSelect   *widget.Select
	modeSelect   *widget.Select
	widthSlider  *widget.Slider
	rotateSlider *widget.Slider
	rotateLabel  *widget.Label
	prefsDirty   atomic.Bool
}

// New creates the main window, its workspace and both surfaces.
func New(fyneApp fyne.App, settings *config.Settings, p *prefs.Prefs) (*MainWindow, error) {
	win := fyneApp.NewWindow("geosketch")

	mw := &MainWindow{
		Window:   win,
		app:      fyneApp,
		prefs:    p,
		log:      logging.Component("ui"),
		canvases: make(map[surface.ID]*canvas.SurfaceCanvas),
	}

	text := dialogs.NewTextPrompt(win)
	ws, err := app.NewWorkspace(settings, text, dialogs.NewCategoryChooser(win))
	if err != nil {
		return nil, err
	}
	text.OnCancel = ws.CancelText
	mw.ws = ws
	ws.SetConfig(p.RestoreTool(ws.Config()))

	ws.Mount(FreehandID, surface.KindFreehand)
	ws.Mount(GeoID, surface.KindGeo)

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	ws.SetActive(FreehandID)

	return mw, nil
}

// Workspace returns the workspace behind the window.
func (mw *MainWindow) Workspace() *app.Workspace { return mw.ws }

func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Ready")

	free := canvas.NewSurfaceCanvas(mw.ws, FreehandID)
	geo := canvas.NewSurfaceCanvas(mw.ws, GeoID)
	mw.canvases[FreehandID] = free
	mw.canvases[GeoID] = geo

	freeTab := container.NewTabItem("Sketch", container.NewScroll(free))
	geoTab := container.NewTabItem("Map", container.NewScroll(geo))
	mw.tabs = container.NewAppTabs(freeTab, geoTab)
	mw.tabs.OnSelected = func(item *container.TabItem) {
		id := FreehandID
		if item == geoTab {
			id = GeoID
		}
		mw.ws.SetActive(id)
		mw.syncRotation(id)
	}

	content := container.NewBorder(
		mw.createToolbar(),
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		mw.tabs,
	)
	mw.SetContent(content)

	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			mw.ws.Escape()
		}
	})
}

func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	cfg := mw.ws.Config()

	modes := make([]string, len(tool.Modes))
	for i, m := range tool.Modes {
		modes[i] = string(m)
	}
	mw.modeSelect = widget.NewSelect(modes, func(s string) {
		mw.ws.SetMode(tool.Mode(s))
	})
	mw.modeSelect.SetSelected(string(cfg.Mode))

	tools := make([]string, len(tool.Tools))
	for i, t := range tool.Tools {
		tools[i] = string(t)
	}
	mw.toolSelect = widget.NewSelect(tools, func(s string) {
		mw.ws.SetTool(tool.Tool(s))
	})
	mw.toolSelect.SetSelected(string(cfg.Tool))

	colorBtn := widget.NewButton("Color", mw.onPickColor)

	mw.widthSlider = widget.NewSlider(1, 20)
	mw.widthSlider.Step = 1
	mw.widthSlider.SetValue(cfg.StrokeWidth)
	mw.widthSlider.OnChanged = func(v float64) {
		c := mw.ws.Config()
		c.StrokeWidth = v
		mw.ws.SetConfig(c)
	}

	dashes := []string{string(overlay.DashSolid), string(overlay.DashDashed), string(overlay.DashDotted)}
	lineDash := widget.NewSelect(dashes, func(s string) {
		c := mw.ws.Config()
		c.LineDash = overlay.ParseDashStyle(s)
		mw.ws.SetConfig(c)
	})
	lineDash.SetSelected(string(cfg.LineDash))
	rectDash := widget.NewSelect(dashes, func(s string) {
		c := mw.ws.Config()
		c.RectangleDash = overlay.ParseDashStyle(s)
		mw.ws.SetConfig(c)
	})
	rectDash.SetSelected(string(cfg.RectangleDash))

	eraserShape := widget.NewSelect([]string{image.EraserCircle.String(), image.EraserSquare.String()}, func(s string) {
		c := mw.ws.Config()
		c.EraserShape = image.EraserCircle
		if s == image.EraserSquare.String() {
			c.EraserShape = image.EraserSquare
		}
		mw.ws.SetConfig(c)
	})
	eraserShape.SetSelected(cfg.EraserShape.String())
	eraserSize := widget.NewSlider(5, 100)
	eraserSize.Step = 1
	eraserSize.SetValue(cfg.EraserSize)
	eraserSize.OnChanged = func(v float64) {
		c := mw.ws.Config()
		c.EraserSize = v
		mw.ws.SetConfig(c)
	}

	mw.rotateLabel = widget.NewLabel("0°")
	mw.rotateSlider = widget.NewSlider(0, 359)
	mw.rotateSlider.Step = 1
	mw.rotateSlider.OnChanged = func(v float64) {
		if id, ok := mw.ws.Active(); ok {
			mw.ws.SetRotation(id, v)
		}
		mw.rotateLabel.SetText(strconv.Itoa(int(v)) + "°")
	}

	return container.NewVBox(
		container.NewHBox(
			widget.NewLabel("Mode:"), mw.modeSelect,
			widget.NewLabel("Tool:"), mw.toolSelect,
			colorBtn,
			widget.NewLabel("Line:"), lineDash,
			widget.NewLabel("Rect:"), rectDash,
			widget.NewLabel("Eraser:"), eraserShape,
		),
		container.NewGridWithColumns(3,
			container.NewBorder(nil, nil, widget.NewLabel("Width"), nil, mw.widthSlider),
			container.NewBorder(nil, nil, widget.NewLabel("Eraser size"), nil, eraserSize),
			container.NewBorder(nil, nil, widget.NewLabel("Rotate"), mw.rotateLabel, mw.rotateSlider),
		),
	)
}

func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Load Image into Sketch...", mw.onLoadImage),
		fyne.NewMenuItem("Load Base Features...", mw.onLoadFeatures),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export GeoJSON...", mw.onExportGeoJSON),
		fyne.NewMenuItem("Save Screenshot...", mw.onSaveScreenshot),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset Rotation", func() { mw.rotateSlider.SetValue(0) }),
		fyne.NewMenuItem("Clear Surface", mw.onClear),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, helpMenu))

	undo := &desktopShortcut{key: fyne.KeyZ}
	redo := &desktopShortcut{key: fyne.KeyY}
	mw.Canvas().AddShortcut(undo.shortcut(), func(fyne.Shortcut) { mw.onUndo() })
	mw.Canvas().AddShortcut(redo.shortcut(), func(fyne.Shortcut) { mw.onRedo() })
}

func (mw *MainWindow) setupEventHandlers() {
	mw.ws.On(app.EventConfigChanged, func(data interface{}) {
		cfg, ok := data.(tool.Config)
		if !ok {
			return
		}
		mw.prefs.StoreTool(cfg)
		mw.prefsDirty.Store(true)
		if mw.toolSelect.Selected != string(cfg.Tool) {
			mw.toolSelect.SetSelected(string(cfg.Tool))
		}
		if mw.modeSelect.Selected != string(cfg.Mode) {
			mw.modeSelect.SetSelected(string(cfg.Mode))
		}
	})

	mw.ws.On(app.EventActiveChanged, func(data interface{}) {
		if id, ok := data.(surface.ID); ok {
			mw.updateStatus(fmt.Sprintf("Surface %d active", id))
		}
	})
}

// SavePreferencesIfChanged writes preferences when tool settings changed
// since the last save.
func (mw *MainWindow) SavePreferencesIfChanged() {
	if !mw.prefsDirty.Load() {
		return
	}
	mw.SavePreferences()
}

// SavePreferences writes preferences to disk.
func (mw *MainWindow) SavePreferences() {
	mw.prefsDirty.Store(false)
	if err := mw.prefs.Save(); err != nil {
		mw.log.Warn().Err(err).Msg("saving preferences")
	}
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) activeID() surface.ID {
	if id, ok := mw.ws.Active(); ok {
		return id
	}
	return FreehandID
}

func (mw *MainWindow) syncRotation(id surface.ID) {
	s, ok := mw.ws.Session(id)
	if !ok {
		return
	}
	mw.rotateSlider.SetValue(s.Rotation())
}

func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
	mw.prefsDirty.Store(true)
}

func (mw *MainWindow) onPickColor() {
	picker := dialog.NewColorPicker("Stroke Color", "", func(c color.Color) {
		cfg := mw.ws.Config()
		cfg.Color = color.RGBAModel.Convert(c).(color.RGBA)
		mw.ws.SetConfig(cfg)
	}, mw.Window)
	picker.Advanced = true
	picker.SetColor(mw.ws.Config().Color)
	picker.Show()
}

func (mw *MainWindow) onUndo() {
	if !mw.ws.Undo(mw.activeID()) {
		mw.updateStatus("Nothing to undo")
	}
}

func (mw *MainWindow) onRedo() {
	if !mw.ws.Redo(mw.activeID()) {
		mw.updateStatus("Nothing to redo")
	}
}

func (mw *MainWindow) onClear() {
	id := mw.activeID()
	dialog.ShowConfirm("Clear Surface", "Remove all drawings, pins and annotations?", func(ok bool) {
		if !ok {
			return
		}
		mw.ws.Clear(id)
		mw.rotateSlider.SetValue(0)
		mw.updateStatus("Surface cleared")
	}, mw.Window)
}

func (mw *MainWindow) onLoadImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.ws.LoadImage(FreehandID, path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Loaded " + filepath.Base(path))
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(image.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onLoadFeatures() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()
		mw.saveLastDir(reader.URI().Path())

		var fc geom.GeoJSONFeatureCollection
		if err := json.NewDecoder(reader).Decode(&fc); err != nil {
			dialog.ShowError(fmt.Errorf("reading features: %w", err), mw.Window)
			return
		}
		skipped, err := mw.ws.LoadFeatures(GeoID, fc)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus(fmt.Sprintf("Loaded %d features (%d skipped)", len(fc)-skipped, skipped))
		mw.tabs.SelectIndex(1)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".geojson", ".json"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportGeoJSON() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		mw.saveLastDir(writer.URI().Path())

		data, err := export.GeoJSON(mw.ws.Export())
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if _, err := writer.Write(data); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + writer.URI().Name())
	}, mw.Window)
	fd.SetFileName("drawings.geojson")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveScreenshot() {
	id := mw.activeID()
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()
		if filepath.Ext(path) != ".png" {
			path += ".png"
		}
		mw.saveLastDir(path)
		if err := mw.writeScreenshot(id, path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Saved " + filepath.Base(path))
	}, mw.Window)
	fd.SetFileName(fmt.Sprintf("surface-%d.png", id))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) writeScreenshot(id surface.ID, path string) error {
	img, err := mw.ws.RenderImage(id)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About geosketch",
		version.String()+"\n\nSketch, pin and annotate on rotatable drawing and map surfaces.",
		mw.Window)
}
