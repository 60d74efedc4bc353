package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"leafscan/internal/ai"
	"leafscan/internal/api"
	"leafscan/internal/camera"
	"leafscan/internal/history"
	"leafscan/internal/scan"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	maxUploadSize := os.Getenv("MAX_UPLOAD_SIZE")
	if maxUploadSize == "" {
		maxUploadSize = "10485760"
	}
	maxSize, err := strconv.ParseInt(maxUploadSize, 10, 64)
	if err != nil {
		log.Fatal("Invalid MAX_UPLOAD_SIZE:", err)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./leafscan.db"
	}

	locale := os.Getenv("LEAFSCAN_LOCALE")
	if locale == "" {
		locale = "en"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY is required")
	}

	db, err := history.NewDB(dbPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	store := history.NewStore(db)
	diagnoser := ai.NewOpenAIClient(apiKey)
	scanService := scan.NewService(diagnoser, store, locale)

	cameraDevice := camera.NewIPCameraDevice(camera.IPCameraConfig{
		RearSnapshotURL:  os.Getenv("CAMERA_REAR_URL"),
		FrontSnapshotURL: os.Getenv("CAMERA_FRONT_URL"),
		TorchControlURL:  os.Getenv("CAMERA_TORCH_URL"),
	})
	cameraSession := camera.NewSession(cameraDevice)

	app := &api.App{
		ScanService:   scanService,
		History:       store,
		Camera:        cameraSession,
		MaxUploadSize: maxSize,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", port)
	log.Printf("Database path: %s", dbPath)
	log.Printf("Default locale: %s", locale)
	log.Printf("Max upload size: %d bytes", maxSize)
	if os.Getenv("CAMERA_REAR_URL") == "" {
		log.Printf("No rear camera configured, camera capture will be unavailable")
	}

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}
