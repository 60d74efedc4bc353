package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	openAIAPIURL = "https://api.openai.com/v1/chat/completions"
	openAIModel  = "gpt-4o"
)

type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: openAIAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string              `json:"role"`
	Content []openAIContentPart `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIClient) DiagnoseImage(ctx context.Context, req DiagnosisRequest) (*Diagnosis, error) {
	prompt := buildDiagnosisPrompt(req)

	reqBody := openAIRequest{
		Model: openAIModel,
		Messages: []openAIMessage{
			{
				Role: "user",
				Content: []openAIContentPart{
					{
						Type: "text",
						Text: prompt,
					},
					{
						Type: "image_url",
						ImageURL: &openAIImageURL{
							URL: req.ImageDataURL,
						},
					},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if openAIResp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}

	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	diagnosis, err := ParseDiagnosis(openAIResp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diagnosis: %w", err)
	}

	return diagnosis, nil
}

func buildDiagnosisPrompt(req DiagnosisRequest) string {
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}

	prompt := "You are an expert agronomist. Analyze this photo of a crop plant and " +
		"respond with ONLY a JSON object, no other text, with exactly these fields:\n" +
		`{"crop_name": string, "disease_detected": bool, "disease_name": string, ` +
		`"confidence_percentage": number 0-100, "danger_level": number 0-100, ` +
		`"symptoms": [string], "treatments": [string], "prevention_tips": [string], ` +
		`"disease_description": string}` + "\n" +
		"If the plant is healthy, set disease_detected to false and leave the disease " +
		"fields empty. danger_level measures severity of the disease, not detection " +
		"certainty.\n" +
		fmt.Sprintf("Write all text values in the language with code %q.", locale)

	if req.Latitude != nil && req.Longitude != nil {
		prompt += fmt.Sprintf("\nThe photo was taken near latitude %.4f, longitude %.4f; "+
			"consider diseases common to that region and season.", *req.Latitude, *req.Longitude)
	}

	return prompt
}
