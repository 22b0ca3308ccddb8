// Package voice provides speech-to-text and text-to-speech via the OpenAI
// audio API. Generation and embeddings go through Genkit, but Genkit has no
// audio surface, so this package talks to the API directly.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmptyAudio indicates transcription was attempted with no audio data.
var ErrEmptyAudio = errors.New("audio file is required")

// maxAudioResponseBytes caps synthesized audio reads. tts-1 output for a
// short spoken answer is well under this.
const maxAudioResponseBytes = 32 << 20 // 32 MiB

// Config holds the audio model selection.
type Config struct {
	STTModel string // e.g. "whisper-1"
	TTSModel string // e.g. "tts-1"
	TTSVoice string // e.g. "alloy"
	Logger   *slog.Logger
}

// Client wraps the OpenAI audio endpoints.
// The API key is read from OPENAI_API_KEY by the underlying client.
//
// Client is safe for concurrent use.
type Client struct {
	api      openai.Client
	sttModel string
	ttsModel string
	ttsVoice string
	logger   *slog.Logger
}

// NewClient creates a Client. Extra request options (base URL, custom HTTP
// client) are passed through to the OpenAI SDK; tests use them to point at a
// fake server.
func NewClient(cfg Config, opts ...option.RequestOption) *Client {
	if cfg.STTModel == "" {
		cfg.STTModel = "whisper-1"
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = "tts-1"
	}
	if cfg.TTSVoice == "" {
		cfg.TTSVoice = "alloy"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		api:      openai.NewClient(opts...),
		sttModel: cfg.STTModel,
		ttsModel: cfg.TTSModel,
		ttsVoice: cfg.TTSVoice,
		logger:   cfg.Logger,
	}
}

// Transcribe converts spoken audio to text.
// filename carries the format hint the API uses to decode the audio.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error) {
	if audio == nil {
		return "", ErrEmptyAudio
	}

	transcription, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, contentType),
		Model: openai.AudioModel(c.sttModel),
	})
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}

	text := strings.TrimSpace(transcription.Text)
	c.logger.Debug("transcribed audio", "filename", filename, "text_length", len(text))
	return text, nil
}

// Synthesize converts text to spoken audio and returns the MP3 bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(c.ttsModel),
		Voice: openai.AudioSpeechNewParamsVoice(c.ttsVoice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("closing speech response body", "error", err)
		}
	}()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading synthesized audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio returned")
	}

	c.logger.Debug("synthesized speech", "text_length", len(text), "audio_bytes", len(audio))
	return audio, nil
}
