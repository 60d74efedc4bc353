package api

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"leafscan/internal/camera"
	"leafscan/internal/history"
	"leafscan/internal/models"
	"leafscan/internal/scan"
)

type App struct {
	ScanService   *scan.Service
	History       *history.Store
	Camera        *camera.Session
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) ScanPageHandler(w http.ResponseWriter, r *http.Request) {
	tmplPath := filepath.Join("web", "templates", "scan.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}

	data := struct {
		Snapshot scan.Snapshot
		Camera   camera.Status
	}{
		Snapshot: app.ScanService.Snapshot(),
		Camera:   app.Camera.Status(),
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (app *App) HistoryPageHandler(w http.ResponseWriter, r *http.Request) {
	tmplPath := filepath.Join("web", "templates", "history.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}

	data := struct {
		Results []models.ScanResult
	}{
		Results: app.History.LoadAll(),
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (app *App) HistoryDetailHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	result := app.History.GetByID(id)
	if result == nil {
		http.NotFound(w, r)
		return
	}

	tmplPath := filepath.Join("web", "templates", "result.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, result); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (app *App) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.History.Clear(); err != nil {
		app.renderError(w, "Failed to clear history")
		return
	}
	app.renderSuccess(w, "History cleared")
}

func (app *App) SettingsPageHandler(w http.ResponseWriter, r *http.Request) {
	tmplPath := filepath.Join("web", "templates", "settings.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}

	snap := app.ScanService.Snapshot()
	data := struct {
		Locale        string
		ShareLocation bool
		HasLocation   bool
	}{
		Locale:        snap.Locale,
		ShareLocation: snap.ShareLocation,
		HasLocation:   snap.HasLocation,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (app *App) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	app.ScanService.SetLocale(r.FormValue("locale"))
	app.ScanService.SetLocationSharing(r.FormValue("share_location") == "on")
	app.renderSuccess(w, "Settings saved")
}

func (app *App) DeveloperPageHandler(w http.ResponseWriter, r *http.Request) {
	tmplPath := filepath.Join("web", "templates", "developer.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, nil); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (app *App) renderError(w http.ResponseWriter, message string) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, `<div class="alert alert-error">%s</div>`, template.HTMLEscapeString(message))
}

func (app *App) renderSuccess(w http.ResponseWriter, message string) {
	fmt.Fprintf(w, `<div class="alert alert-success">%s</div>`, template.HTMLEscapeString(message))
}
