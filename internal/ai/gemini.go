package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// File API polling: exponential backoff starting at pollBaseDelay,
	// capped at pollMaxDelay, giving up after pollMaxAttempts.
	pollBaseDelay   = 2 * time.Second
	pollMaxDelay    = 30 * time.Second
	pollMaxAttempts = 30
)

// GeminiEngine analyzes videos with Google's Gemini multimodal models. It
// uploads both assets to the provider's ephemeral File API storage, waits
// for the video to become ready, and issues one structured-output request.
type GeminiEngine struct {
	client    *genai.Client
	modelName string
}

func NewGeminiEngine(cfg Config) (Engine, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEngine{
		client:    client,
		modelName: cfg.GeminiModelName,
	}, nil
}

func (e *GeminiEngine) Close() error {
	return e.client.Close()
}

func (e *GeminiEngine) FindCharacterMoments(ctx context.Context, videoPath, screenshotPath, characterName string) ([]Moment, error) {
	log.Printf("Uploading assets to Gemini File API for character %q", characterName)

	videoFile, err := e.uploadFile(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video to Gemini: %w", err)
	}
	// Remote ephemeral assets are always deleted, matching the worker's
	// local cleanup discipline.
	defer e.deleteFile(videoFile.Name)

	imgFile, err := e.uploadFile(ctx, screenshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to upload screenshot to Gemini: %w", err)
	}
	defer e.deleteFile(imgFile.Name)

	videoFile, err = e.waitForFile(ctx, videoFile)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(
		"You are an expert video analysis AI.\n"+
			"1. Look at the attached image. This character's name is '%s'.\n"+
			"2. Watch the attached video carefully.\n"+
			"3. Find every distinct scene or moment where '%s' is clearly visible.\n"+
			"4. Return a list of those moments, including the start and end timestamps (in seconds), "+
			"a brief description of what they are doing, and your confidence score.",
		characterName, characterName,
	)

	model := e.client.GenerativeModel(e.modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = momentsSchema()

	resp, err := model.GenerateContent(ctx,
		genai.FileData{URI: imgFile.URI, MIMEType: imgFile.MIMEType},
		genai.FileData{URI: videoFile.URI, MIMEType: videoFile.MIMEType},
		genai.Text(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	moments, err := parseMoments([]byte(extractText(resp)))
	if err != nil {
		return nil, err
	}

	log.Printf("Gemini analysis found %d moments for character %q", len(moments), characterName)
	return moments, nil
}

func (e *GeminiEngine) uploadFile(ctx context.Context, path string) (*genai.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opts := &genai.UploadFileOptions{
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
	}
	return e.client.UploadFile(ctx, "", f, opts)
}

// waitForFile polls the File API until the uploaded video is ready. The
// provider transcodes uploads asynchronously; prompting before the file is
// ACTIVE fails. Attempts are bounded so a provider that never settles
// surfaces as a timeout instead of a hung job.
func (e *GeminiEngine) waitForFile(ctx context.Context, file *genai.File) (*genai.File, error) {
	delay := pollBaseDelay

	for attempt := 0; file.State == genai.FileStateProcessing; attempt++ {
		if attempt >= pollMaxAttempts {
			return nil, fmt.Errorf("timed out waiting for Gemini to process %s after %d attempts", file.Name, pollMaxAttempts)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > pollMaxDelay {
			delay = pollMaxDelay
		}

		refreshed, err := e.client.GetFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to poll Gemini file %s: %w", file.Name, err)
		}
		file = refreshed
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("Gemini failed to process the uploaded video file")
	}
	return file, nil
}

func (e *GeminiEngine) deleteFile(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.client.DeleteFile(ctx, name); err != nil {
		log.Printf("Failed to delete Gemini file %s: %v", name, err)
	}
}

// momentsSchema constrains the structured output to exactly the shape the
// pipeline persists.
func momentsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"moments": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"action":           {Type: genai.TypeString, Description: "A short description of what the character is doing in this scene."},
						"start_timestamp":  {Type: genai.TypeNumber, Description: "The timestamp in seconds when the character first appears in this scene."},
						"end_timestamp":    {Type: genai.TypeNumber, Description: "The timestamp in seconds when the character leaves or the scene ends."},
						"confidence_score": {Type: genai.TypeNumber, Description: "A score between 0.0 and 1.0 indicating how confident you are this is the correct character."},
					},
					Required: []string{"start_timestamp", "end_timestamp"},
				},
			},
		},
		Required: []string{"moments"},
	}
}

// parseMoments decodes and validates an engine response. A response that
// fails to parse or violates the timestamp/confidence contract is an
// engine error; the job layer never sees malformed moments.
func parseMoments(raw []byte) ([]Moment, error) {
	var result struct {
		Moments []Moment `json:"moments"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("Gemini returned malformed JSON: %w", err)
	}

	for i, m := range result.Moments {
		if m.StartTimestamp < 0 {
			return nil, fmt.Errorf("moment %d: negative start timestamp %f", i, m.StartTimestamp)
		}
		if m.EndTimestamp < m.StartTimestamp {
			return nil, fmt.Errorf("moment %d: end timestamp %f before start %f", i, m.EndTimestamp, m.StartTimestamp)
		}
		if m.ConfidenceScore < 0 || m.ConfidenceScore > 1 {
			return nil, fmt.Errorf("moment %d: confidence score %f outside [0,1]", i, m.ConfidenceScore)
		}
	}
	return result.Moments, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
