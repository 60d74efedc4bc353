package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", app.ScanPageHandler)
	r.Get("/ping", PingHandler)

	r.Post("/scan/analyze", app.AnalyzeHandler)
	r.Post("/scan/reset", app.ResetScanHandler)

	r.Post("/camera/start", app.CameraStartHandler)
	r.Post("/camera/stop", app.CameraStopHandler)
	r.Post("/camera/facing", app.CameraFacingHandler)
	r.Post("/camera/torch", app.CameraTorchHandler)
	r.Post("/camera/capture", app.CameraCaptureHandler)
	r.Get("/camera/status", app.CameraStatusHandler)

	r.Get("/history", app.HistoryPageHandler)
	r.Get("/history/{id}", app.HistoryDetailHandler)
	r.Post("/history/clear", app.ClearHistoryHandler)

	r.Get("/settings", app.SettingsPageHandler)
	r.Post("/settings", app.UpdateSettingsHandler)
	r.Post("/settings/location", app.UpdateLocationHandler)

	r.Get("/developer", app.DeveloperPageHandler)

	fileServer := http.FileServer(http.Dir("./web/static"))
	r.Handle("/static/*", http.StripPrefix("/static", fileServer))

	return r
}
