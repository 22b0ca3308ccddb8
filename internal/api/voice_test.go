package api

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

// doVoice sends a multipart request with an optional audio part.
func (d *testDeps) doVoice(t *testing.T, withAudio bool) *httptest.ResponseRecorder {
	t.Helper()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	if withAudio {
		part, err := mw.CreateFormFile("audio", "question.webm")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte("fake-webm-bytes"))
	} else {
		_ = mw.WriteField("note", "no audio here")
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/voice", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	d.server.Handler().ServeHTTP(w, req)
	return w
}

func TestVoice_RoundTrip(t *testing.T) {
	d := newTestDeps(t)
	d.engine.chunks = []string{"The plan is to ship in March."}

	w := d.doVoice(t, true)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /v1/voice = %d, body %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", got)
	}
	if got := w.Header().Get("X-Transcribed-Text"); got != "what is the plan" {
		t.Errorf("X-Transcribed-Text = %q", got)
	}
	if got := w.Header().Get("X-Response-Text"); got != "The plan is to ship in March." {
		t.Errorf("X-Response-Text = %q", got)
	}
	if got := w.Body.String(); got != "mp3-bytes" {
		t.Errorf("body = %q, want the synthesized audio", got)
	}
	if d.engine.gotVoiceQuery != "what is the plan" {
		t.Errorf("engine received %q, want the transcript", d.engine.gotVoiceQuery)
	}
	if d.speech.synthesized != "The plan is to ship in March." {
		t.Errorf("synthesized %q, want the generated answer", d.speech.synthesized)
	}
}

func TestVoice_MissingAudio(t *testing.T) {
	d := newTestDeps(t)

	w := d.doVoice(t, false)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w); got != "Audio file is required" {
		t.Errorf("error = %q, want %q", got, "Audio file is required")
	}
}

func TestVoice_Auth(t *testing.T) {
	d := newTestDeps(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/voice", nil)
	w := httptest.NewRecorder()
	d.server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w); got != "Missing Authorization header" {
		t.Errorf("error = %q", got)
	}
}

func TestVoice_HeaderSanitization(t *testing.T) {
	d := newTestDeps(t)
	d.speech.transcript = "line one\r\nline two"
	d.engine.chunks = []string{"answer\nwith newline"}

	w := d.doVoice(t, true)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-Transcribed-Text"); got != "line one  line two" {
		t.Errorf("X-Transcribed-Text = %q, newlines must be stripped", got)
	}
	if got := w.Header().Get("X-Response-Text"); got != "answer with newline" {
		t.Errorf("X-Response-Text = %q", got)
	}
}

func TestVoice_Failures(t *testing.T) {
	t.Run("transcription fails", func(t *testing.T) {
		d := newTestDeps(t)
		d.speech.transcribeErr = errors.New("upstream 500")

		w := d.doVoice(t, true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
		if got := decodeError(t, w); got != "Failed to transcribe audio" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("silent audio", func(t *testing.T) {
		d := newTestDeps(t)
		d.speech.transcript = ""

		w := d.doVoice(t, true)
		if got := decodeError(t, w); got != "Could not transcribe audio" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("synthesis fails", func(t *testing.T) {
		d := newTestDeps(t)
		d.speech.synthesizeErr = errors.New("upstream 500")

		w := d.doVoice(t, true)
		if got := decodeError(t, w); got != "Failed to synthesize speech" {
			t.Errorf("error = %q", got)
		}
	})
}
