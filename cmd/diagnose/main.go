package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"leafscan/internal/ai"
	"leafscan/internal/imaging"
)

var (
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
)

func printInfo(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

func main() {
	var (
		filePath = flag.String("file", "", "Path to a crop photo to diagnose")
		locale   = flag.String("locale", "en", "Language code for the diagnosis text")
		lat      = flag.Float64("lat", 0, "Latitude of the field (optional)")
		lon      = flag.Float64("lon", 0, "Longitude of the field (optional)")
	)
	flag.Parse()

	if *filePath == "" {
		printError("A photo is required: diagnose -file leaf.jpg")
		os.Exit(1)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		printError("OPENAI_API_KEY is not set")
		os.Exit(1)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		printError("Failed to open %s: %v", *filePath, err)
		os.Exit(1)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(*filePath))
	dataURL, err := imaging.NormalizeFile(f, contentType)
	if err != nil {
		printError("Failed to read image: %v", err)
		os.Exit(1)
	}

	req := ai.DiagnosisRequest{
		ImageDataURL: dataURL,
		Locale:       *locale,
	}
	if *lat != 0 || *lon != 0 {
		req.Latitude = lat
		req.Longitude = lon
	}

	printInfo("Analyzing %s...", *filePath)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := ai.NewOpenAIClient(apiKey)
	diagnosis, err := client.DiagnoseImage(ctx, req)
	if err != nil {
		printError("Analysis failed: %v", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Crop: %s\n", diagnosis.CropName)

	if !diagnosis.DiseaseDetected {
		fmt.Printf("%s No disease detected (confidence %.0f%%)\n",
			successColor("[+]"), diagnosis.ConfidencePct)
		return
	}

	fmt.Printf("%s %s (confidence %.0f%%, danger %.0f%%)\n",
		warningColor("[!]"), diagnosis.DiseaseName, diagnosis.ConfidencePct, diagnosis.DangerLevel)

	if diagnosis.DiseaseDescription != "" {
		fmt.Println()
		fmt.Println(diagnosis.DiseaseDescription)
	}

	printSection("Symptoms", diagnosis.Symptoms)
	printSection("Treatments", diagnosis.Treatments)
	printSection("Prevention", diagnosis.PreventionTips)
}

func printSection(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}
