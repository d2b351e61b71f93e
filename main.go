// Package main provides the entry point for the geosketch application.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"geosketch/internal/app"
	"geosketch/internal/config"
	"geosketch/internal/logging"
	"geosketch/internal/version"
	"geosketch/ui/mainwindow"
	"geosketch/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
)

const appID = "org.geosketch.app"

func main() {
	configDir := flag.String("config", defaultConfigDir(), "directory holding "+config.FileName)
	image := flag.String("image", "", "image to load into the sketch surface")
	flag.Parse()

	settings, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "geosketch: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(nil, settings.LogLevel)
	log := logging.Component("main")
	log.Info().Str("version", version.String()).Msg("starting")

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(&app.SketchTheme{})

	appPrefs := prefs.Load()
	win, err := mainwindow.New(a, settings, appPrefs)
	if err != nil {
		log.Fatal().Err(err).Msg("creating main window")
	}

	if *image != "" {
		if err := win.Workspace().LoadImage(mainwindow.FreehandID, *image); err != nil {
			log.Error().Err(err).Str("path", *image).Msg("loading image")
		}
	}

	setupHotReload(win)

	win.SetOnClosed(win.SavePreferences)
	win.ShowAndRun()
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "geosketch")
}

// setupHotReload restarts into a rebuilt binary after the user confirms.
func setupHotReload(win *mainwindow.MainWindow) {
	log := logging.Component("reload")
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		log.Warn().Msg("unable to determine executable path")
		return
	}

	log.Info().Str("path", reloader.ExecPath()).
		Str("modified", reloader.StartupTime().Format("15:04:05")).Msg("watching")

	reloader.OnTick(win.SavePreferencesIfChanged)

	reloader.OnNewBinary(func() {
		log.Info().Msg("newer binary detected")
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(restart bool) {
				if !restart {
					reloader.ResetBaseline()
					reloader.Start()
					return
				}
				win.SavePreferences()
				log.Info().Msg("restarting")
				if err := reloader.Restart(); err != nil {
					log.Error().Err(err).Msg("restart failed")
				}
			}, win.Window)
	})

	reloader.Start()
}
