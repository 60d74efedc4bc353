package api

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"

	"leafscan/internal/camera"
	"leafscan/internal/imaging"
	"leafscan/internal/models"
	"leafscan/internal/scan"
)

// AnalyzeHandler accepts either a user-selected photo file or an
// already-captured data URL, normalizes it and runs one analysis. The
// response is the rendered result card, or an inline error fragment.
func (app *App) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	imageDataURL, ok := app.resolveImage(w, r)
	if !ok {
		return
	}

	result, err := app.ScanService.Analyze(r.Context(), imageDataURL)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrBusy):
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `<div class="alert alert-error">An analysis is already running, please wait</div>`)
		case errors.Is(err, scan.ErrStale):
			w.WriteHeader(http.StatusOK)
		default:
			app.renderError(w, "Analysis failed, please try again")
		}
		return
	}

	app.renderResult(w, result)
}

func (app *App) resolveImage(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		if err := r.ParseForm(); err != nil {
			app.renderError(w, "Invalid request")
			return "", false
		}
	}

	// Camera captures arrive as a ready-made data URL.
	if captured := r.FormValue("image"); captured != "" {
		if _, err := imaging.DecodeDataURL(captured); err != nil {
			app.renderError(w, "Invalid captured image")
			return "", false
		}
		return captured, true
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		app.renderError(w, "No image provided")
		return "", false
	}
	defer file.Close()

	dataURL, err := imaging.NormalizeFile(file, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, imaging.ErrNotImage) {
			app.renderError(w, "Only image files are allowed")
		} else {
			app.renderError(w, "Failed to read image")
		}
		return "", false
	}

	return dataURL, true
}

func (app *App) ResetScanHandler(w http.ResponseWriter, r *http.Request) {
	app.ScanService.Reset()
	w.Header().Set("HX-Redirect", "/")
	w.WriteHeader(http.StatusOK)
}

func (app *App) renderResult(w http.ResponseWriter, result *models.ScanResult) {
	tmplPath := filepath.Join("web", "templates", "partials", "result_card.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		fmt.Fprintf(w, `<div class="result"><h3>%s</h3><p>%s (%.0f%%)</p></div>`,
			template.HTMLEscapeString(result.CropName),
			template.HTMLEscapeString(result.DiseaseName),
			result.ConfidencePct)
		return
	}

	if err := tmpl.Execute(w, result); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

// UpdateLocationHandler records a one-shot position fix supplied by the
// browser's geolocation permission flow.
func (app *App) UpdateLocationHandler(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.FormValue("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if latErr != nil || lonErr != nil {
		app.renderError(w, "Invalid coordinates")
		return
	}

	app.ScanService.UpdateLocation(models.Location{Latitude: lat, Longitude: lon})
	app.renderSuccess(w, "Location updated")
}

// Camera handlers drive the session state machine; each responds with
// the refreshed camera status fragment.

func (app *App) CameraStartHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Camera.Start(); err != nil && !errors.Is(err, camera.ErrAlreadyOpen) {
		app.renderError(w, "Failed to start camera")
		return
	}
	app.renderCameraStatus(w)
}

func (app *App) CameraStopHandler(w http.ResponseWriter, r *http.Request) {
	app.Camera.Stop()
	app.renderCameraStatus(w)
}

func (app *App) CameraFacingHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Camera.ToggleFacing(); err != nil {
		app.renderError(w, "Camera is not open")
		return
	}
	app.renderCameraStatus(w)
}

func (app *App) CameraTorchHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Camera.ToggleTorch(); err != nil {
		if errors.Is(err, camera.ErrTorchUnsupported) {
			app.renderError(w, "Torch is not supported on this camera")
		} else {
			app.renderError(w, "Camera is not ready")
		}
		return
	}
	app.renderCameraStatus(w)
}

// CameraCaptureHandler grabs a still from the live track and returns a
// preview fragment whose hidden field feeds AnalyzeHandler.
func (app *App) CameraCaptureHandler(w http.ResponseWriter, r *http.Request) {
	dataURL, err := app.Camera.Capture(r.Context())
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) {
			app.renderError(w, "Camera is still starting, try again in a moment")
		} else {
			app.renderError(w, "Failed to capture photo")
		}
		return
	}

	app.renderCapturePreview(w, dataURL)
}

// renderCapturePreview embeds the captured data URL exactly once, in the
// preview image; the analyze form reads it back from the DOM on submit.
func (app *App) renderCapturePreview(w http.ResponseWriter, dataURL string) {
	tmplPath := filepath.Join("web", "templates", "partials", "capture_preview.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		fmt.Fprintf(w, `<form hx-post="/scan/analyze" hx-target="#scan-result" hx-vals='js:{image: document.getElementById("captured-photo").src}'>
	<img id="captured-photo" class="capture-preview" src="%s" alt="Captured photo">
	<button type="submit">Analyze</button>
</form>`, dataURL)
		return
	}

	data := struct {
		ImageURL template.URL
	}{ImageURL: template.URL(dataURL)}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (app *App) CameraStatusHandler(w http.ResponseWriter, r *http.Request) {
	app.renderCameraStatus(w)
}

func (app *App) renderCameraStatus(w http.ResponseWriter) {
	tmplPath := filepath.Join("web", "templates", "partials", "camera_status.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		status := app.Camera.Status()
		fmt.Fprintf(w, `<div class="camera-status" data-state="%s">%s</div>`,
			template.HTMLEscapeString(string(status.State)),
			template.HTMLEscapeString(string(status.Facing)))
		return
	}

	if err := tmpl.Execute(w, app.Camera.Status()); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}
