package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

type GeminiConfig struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
	Temperature     float32
}

// Gemini is the Vertex AI backed Model.
type Gemini struct {
	client *genai.Client
	conf   GeminiConfig
}

func NewGemini(ctx context.Context, conf GeminiConfig) (*Gemini, error) {
	var opts []option.ClientOption
	if conf.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.CredentialsFile))
	}
	client, err := genai.NewClient(ctx, conf.ProjectID, conf.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	if conf.Model == "" {
		conf.Model = "gemini-1.5-flash"
	}
	return &Gemini{client: client, conf: conf}, nil
}

func (g *Gemini) Close() error { return g.client.Close() }

// Generate runs one chat turn. A fresh GenerativeModel per call keeps the
// system instruction local to the request.
func (g *Gemini) Generate(ctx context.Context, system string, history []Turn, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.conf.Model)
	m.SetTemperature(g.conf.Temperature)
	m.SetMaxOutputTokens(1024)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := m.StartChat()
	for _, t := range history {
		role := "user"
		if t.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Text)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to call model: %w", err)
	}
	return responseText(resp)
}

const transcribePrompt = "Transcribe this voice message exactly as spoken, in its original language. Reply with the transcript only."

// Transcribe sends the audio inline and returns the model's transcript.
func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	m := g.client.GenerativeModel(g.conf.Model)
	m.SetTemperature(0)
	resp, err := m.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: audio}, genai.Text(transcribePrompt))
	if err != nil {
		return "", fmt.Errorf("failed to transcribe: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response generated")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text in response")
	}
	return b.String(), nil
}
