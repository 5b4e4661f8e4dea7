package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/rbright/murmur/internal/fault"
	"github.com/rbright/murmur/internal/recording"
)

// ServerEngine posts recordings to a local whisper.cpp server (`/inference`).
type ServerEngine struct {
	url      string
	language string
	client   *http.Client
}

func NewServerEngine(url, language string, client *http.Client) *ServerEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return &ServerEngine{url: url, language: language, client: client}
}

func (e *ServerEngine) Transcribe(ctx context.Context, rec recording.Recording) (string, error) {
	path, err := writeTempWAV(rec)
	if err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrRecognition, err)
	}
	defer os.Remove(path)

	audioData, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read wav: %w", fault.ErrRecognition, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrRecognition, err)
	}
	if _, err := part.Write(audioData); err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrRecognition, err)
	}
	_ = writer.WriteField("response_format", "json")
	_ = writer.WriteField("temperature", "0.0")
	if e.language != "" {
		_ = writer.WriteField("language", e.language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrRecognition, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, &body)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", fault.ErrRecognition, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: post %s: %w", fault.ErrRecognition, e.url, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", fault.ErrRecognition, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: whisper server returned %d: %s", fault.ErrRecognition, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("%w: parse response: %w", fault.ErrRecognition, err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("%w: whisper server: %s", fault.ErrRecognition, decoded.Error)
	}
	return strings.TrimSpace(decoded.Text), nil
}
