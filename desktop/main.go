// Command jsblock-desktop opens a folder of jsblock pages in a native
// window, with running enabled and live reload on.
package main

import (
	"log"
	"os"
	"path/filepath"
	goruntime "runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
)

const appTitle = "jsblock"

func main() {
	app := NewApp()
	if len(os.Args) > 1 {
		app.initialDir = os.Args[1]
	}

	err := wails.Run(&options.App{
		Title:            appTitle,
		Width:            1280,
		Height:           800,
		MinWidth:         800,
		MinHeight:        600,
		BackgroundColour: &options.RGBA{R: 251, G: 250, B: 246, A: 1},
		Menu:             buildMenu(app),
		AssetServer:      &assetserver.Options{Handler: app.Handler()},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind:             []any{app},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   appTitle,
				Message: "Editable, runnable JavaScript examples in markdown pages.",
			},
		},
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func buildMenu(app *App) *menu.Menu {
	m := menu.NewMenu()
	if goruntime.GOOS == "darwin" {
		m.Append(menu.AppMenu())
	}

	file := m.AddSubmenu("File")
	file.AddText("Open Page...", keys.CmdOrCtrl("o"), func(*menu.CallbackData) { app.OpenFile() })
	file.AddText("Open Folder...", keys.CmdOrCtrl("shift+o"), func(*menu.CallbackData) { app.OpenDirectory() })
	file.AddText("Close Folder", keys.CmdOrCtrl("w"), func(*menu.CallbackData) { app.CloseDirectory() })
	if goruntime.GOOS != "darwin" {
		file.AddSeparator()
		file.AddText("Exit", keys.OptionOrAlt("F4"), func(*menu.CallbackData) { app.Quit() })
	}

	// the editors need the standard copy and paste bindings
	m.Append(menu.EditMenu())

	view := m.AddSubmenu("View")
	view.AddText("Reload", keys.CmdOrCtrl("shift+r"), func(*menu.CallbackData) { app.Reload() })
	view.AddText("Home", keys.CmdOrCtrl("h"), func(*menu.CallbackData) { app.Home() })
	return m
}

// defaultDirectory is where the folder dialog starts: ~/Documents when it
// exists, else the home directory.
func defaultDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	if docs := filepath.Join(home, "Documents"); isDir(docs) {
		return docs
	}
	return home
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
