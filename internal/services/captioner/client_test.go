package captioner_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"alttag/internal/services/captioner"
)

func TestGenerateCaptionSuccess(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"alt_text":"a photo of a red bicycle","confidence":1.5}`))
	}))
	defer server.Close()

	client := captioner.NewClient(server.URL, "secret")
	result, err := client.GenerateCaption(context.Background(), captioner.Request{
		ImageURL:        "https://pics.test/bike.jpg",
		AttachmentTitle: "Bike",
		PostTitle:       "Cycling Guide",
	})
	if err != nil {
		t.Fatalf("GenerateCaption: %v", err)
	}
	if result.Caption != "a photo of a red bicycle" {
		t.Fatalf("caption = %q", result.Caption)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want clamp to 1.0", result.Confidence)
	}
	if result.Raw == "" {
		t.Fatal("raw payload not preserved")
	}

	if captured["image_url"] != "https://pics.test/bike.jpg" {
		t.Fatalf("image_url = %v", captured["image_url"])
	}
	reqContext, _ := captured["context"].(map[string]any)
	if reqContext["attachment_title"] != "Bike" || reqContext["post_title"] != "Cycling Guide" {
		t.Fatalf("context = %v", reqContext)
	}
	rules, _ := captured["rules"].(map[string]any)
	if rules["max_words"] != float64(18) || rules["alt_text_mode"] != true {
		t.Fatalf("rules = %v", rules)
	}
}

func TestGenerateCaptionFallsBackToCaptionField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"caption":"sunset over water","confidence":-0.2}`))
	}))
	defer server.Close()

	client := captioner.NewClient(server.URL, "")
	result, err := client.GenerateCaption(context.Background(), captioner.Request{ImageURL: "https://pics.test/s.jpg"})
	if err != nil {
		t.Fatalf("GenerateCaption: %v", err)
	}
	if result.Caption != "sunset over water" {
		t.Fatalf("caption = %q", result.Caption)
	}
	if result.Confidence != 0 {
		t.Fatalf("confidence = %v, want clamp to 0", result.Confidence)
	}
}

func TestGenerateCaptionMissingEndpoint(t *testing.T) {
	client := captioner.NewClient("", "token")
	_, err := client.GenerateCaption(context.Background(), captioner.Request{ImageURL: "https://pics.test/x.jpg"})

	var provErr *captioner.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
	if provErr.Code != captioner.CodeMissingEndpoint {
		t.Fatalf("code = %q", provErr.Code)
	}
}

func TestGenerateCaptionNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := captioner.NewClient(server.URL, "")
	_, err := client.GenerateCaption(context.Background(), captioner.Request{ImageURL: "https://pics.test/x.jpg"})

	var provErr *captioner.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
	if provErr.Code != captioner.CodeNetworkError {
		t.Fatalf("code = %q", provErr.Code)
	}
	if !strings.Contains(provErr.Message, "request mode: url") {
		t.Fatalf("message missing request mode: %q", provErr.Message)
	}
}

func TestGenerateCaptionHTTPErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"could not fetch image","fetch_url":"https://cdn.test/orig.jpg","upstream_status":404}`))
	}))
	defer server.Close()

	client := captioner.NewClient(server.URL, "")
	_, err := client.GenerateCaption(context.Background(), captioner.Request{ImageURL: "https://pics.test/x.jpg"})

	var provErr *captioner.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
	if provErr.Code != captioner.CodeHTTPError {
		t.Fatalf("code = %q", provErr.Code)
	}
	for _, fragment := range []string{
		"HTTP 502",
		"could not fetch image",
		"upstream status 404",
		"image URL: https://cdn.test/orig.jpg",
		"request mode: url",
	} {
		if !strings.Contains(provErr.Message, fragment) {
			t.Fatalf("message %q missing %q", provErr.Message, fragment)
		}
	}
}

func TestGenerateCaptionHTTPErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html><body>Worker exploded\nbadly</body></html>"))
	}))
	defer server.Close()

	client := captioner.NewClient(server.URL, "")
	_, err := client.GenerateCaption(context.Background(), captioner.Request{ImageURL: "https://pics.test/x.jpg"})

	var provErr *captioner.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
	if !strings.Contains(provErr.Message, "Worker exploded badly") {
		t.Fatalf("stripped body not in message: %q", provErr.Message)
	}
}

func TestGenerateCaptionParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := captioner.NewClient(server.URL, "")
	_, err := client.GenerateCaption(context.Background(), captioner.Request{ImageURL: "https://pics.test/x.jpg"})

	var provErr *captioner.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
	if provErr.Code != captioner.CodeParseError {
		t.Fatalf("code = %q", provErr.Code)
	}
}

func TestGenerateCaptionDirectUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	content := []byte("fake jpeg bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"alt_text":"a photo","confidence":0.9}`))
	}))
	defer server.Close()

	client := captioner.NewClient(server.URL, "", captioner.WithDirectUpload(true))
	if _, err := client.GenerateCaption(context.Background(), captioner.Request{
		ImageURL: "https://pics.test/photo.jpg",
		FilePath: path,
		MimeType: "image/jpeg",
	}); err != nil {
		t.Fatalf("GenerateCaption: %v", err)
	}

	if captured["image_source"] != "bytes" {
		t.Fatalf("image_source = %v", captured["image_source"])
	}
	if captured["image_mime_type"] != "image/jpeg" {
		t.Fatalf("image_mime_type = %v", captured["image_mime_type"])
	}
	if captured["image_filename"] != "photo.jpg" {
		t.Fatalf("image_filename = %v", captured["image_filename"])
	}
	decoded, err := base64.StdEncoding.DecodeString(captured["image_data_base64"].(string))
	if err != nil || string(decoded) != string(content) {
		t.Fatalf("inline data round trip failed: %v %q", err, decoded)
	}
	// URL reference is retained alongside the inline bytes.
	if captured["image_url"] != "https://pics.test/photo.jpg" {
		t.Fatalf("image_url = %v", captured["image_url"])
	}
}

func TestGenerateCaptionDirectUploadFallsBackToURL(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"alt_text":"a photo","confidence":0.9}`))
	}))
	defer server.Close()

	client := captioner.NewClient(server.URL, "", captioner.WithDirectUpload(true))
	if _, err := client.GenerateCaption(context.Background(), captioner.Request{
		ImageURL: "https://pics.test/photo.jpg",
		FilePath: filepath.Join(t.TempDir(), "missing.jpg"),
	}); err != nil {
		t.Fatalf("GenerateCaption: %v", err)
	}

	if _, ok := captured["image_source"]; ok {
		t.Fatal("unreadable file should fall back to URL mode")
	}
	if captured["image_url"] != "https://pics.test/photo.jpg" {
		t.Fatalf("image_url = %v", captured["image_url"])
	}
}
