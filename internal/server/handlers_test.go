package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/agrovision/internal/config"
	"github.com/hyperjump/agrovision/internal/crop"
	"github.com/hyperjump/agrovision/internal/disease"
	"github.com/hyperjump/agrovision/internal/inference"
	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/internal/storage"
	"go.uber.org/zap"
)

const testImageSize = 8

var (
	testLabels  = []string{"apple", "banana", "chickpea", "cotton", "maize", "rice"}
	testProbs   = []float32{0.05, 0.10, 0.02, 0.03, 0.20, 0.60}
	testClasses = []string{"Apple___Apple_scab", "Tomato___Early_blight", "Tomato___healthy"}
)

type fakeChat struct {
	configured bool
	answer     string
	err        error
	panics     bool
	got        []models.ChatRequest
}

func (f *fakeChat) Answer(_ context.Context, req models.ChatRequest) (string, error) {
	if f.panics {
		panic("boom")
	}
	f.got = append(f.got, req)
	return f.answer, f.err
}

func (f *fakeChat) Configured() bool { return f.configured }

type testDeps struct {
	cropModel    *inference.MockClassifier
	diseaseModel *inference.MockClassifier
	chat         *fakeChat
	history      storage.PredictionLog
}

func newTestServer(t *testing.T, deps testDeps) *Server {
	t.Helper()
	if deps.cropModel == nil {
		deps.cropModel = inference.NewMockClassifier(len(crop.FeatureColumns), testProbs)
	}
	if deps.diseaseModel == nil {
		deps.diseaseModel = inference.NewMockClassifier(testImageSize*testImageSize*3, []float32{0.1, 0.7, 0.2})
	}
	if deps.chat == nil {
		deps.chat = &fakeChat{answer: "ok"}
	}
	cropSvc, err := crop.NewService(deps.cropModel, testLabels, crop.WithCacheSize(-1))
	if err != nil {
		t.Fatal(err)
	}
	diseaseSvc, err := disease.NewService(deps.diseaseModel, testClasses, disease.WithImageSize(testImageSize))
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	dir := t.TempDir()
	cfg.Crop.ModelPath = filepath.Join(dir, "crop.onnx")
	cfg.Crop.LabelsPath = filepath.Join(dir, "labels.json")
	cfg.Disease.ModelPath = filepath.Join(dir, "disease.onnx")
	cfg.Disease.ClassesPath = filepath.Join(dir, "classes.json")
	return NewServer(cropSvc, diseaseSvc, deps.chat, deps.history, cfg, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func pngUpload(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 160, B: 40, A: 255})
		}
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "leaf.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(fw, img); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

const validCrop = `{"soil_type":"Sandy","season":"Summer","rainfall_level":"Low","weather":"Warm","ph_range":"Neutral"}`

func TestHandleRootAndHealth(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()

	rec := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status: %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("healthz body: %v", got)
	}

	rec = doJSON(t, h, http.MethodGet, "/", "")
	if got := decode[map[string]string](t, rec); got["message"] != "Smart Agriculture API is running" {
		t.Errorf("root body: %v", got)
	}
}

func TestHandlePredictCrop(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/predict-crop", validCrop)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	resp := decode[models.CropResponse](t, rec)
	if len(resp.Recommendations) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(resp.Recommendations))
	}
	want := []string{"rice", "maize", "banana"}
	for i, r := range resp.Recommendations {
		if r.Crop != want[i] {
			t.Errorf("rank %d: got %s, want %s", i, r.Crop, want[i])
		}
		if r.Confidence <= 0 || r.Confidence >= 100 {
			t.Errorf("confidence out of range: %v", r.Confidence)
		}
	}
	if resp.Recommendations[0].Confidence != crop.Confidence(float64(testProbs[5])) {
		t.Errorf("top confidence: %v", resp.Recommendations[0].Confidence)
	}
}

func TestHandlePredictCrop_InvalidValue(t *testing.T) {
	model := inference.NewMockClassifier(len(crop.FeatureColumns), testProbs)
	h := newTestServer(t, testDeps{cropModel: model}).Handler()
	body := `{"soil_type":"Peaty","season":"Summer","rainfall_level":"Low","weather":"Warm","ph_range":"Neutral"}`
	rec := doJSON(t, h, http.MethodPost, "/predict-crop", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if got := decode[models.ErrorResponse](t, rec); got.Error != "Invalid input value provided" {
		t.Errorf("error: %q", got.Error)
	}
	if model.Calls() != 0 {
		t.Errorf("model invoked %d times for invalid input", model.Calls())
	}
}

func TestHandlePredictCrop_MalformedBody(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()
	tests := []struct {
		name string
		body string
	}{
		{"not json", "soil=sandy"},
		{"missing field", `{"soil_type":"Sandy","season":"Summer","rainfall_level":"Low","weather":"Warm"}`},
		{"wrong type", `{"soil_type":1,"season":"Summer","rainfall_level":"Low","weather":"Warm","ph_range":"Neutral"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/predict-crop", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status: got %d, want 422", rec.Code)
			}
		})
	}
}

func TestHandlePredictCrop_InferenceFailure(t *testing.T) {
	model := inference.NewMockClassifier(len(crop.FeatureColumns), testProbs)
	model.Fn = func([]float32) []float32 { return []float32{1} }
	h := newTestServer(t, testDeps{cropModel: model}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/predict-crop", validCrop)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", rec.Code)
	}
	if got := decode[models.ErrorResponse](t, rec); got.Error != "Internal Server Error" {
		t.Errorf("error body leaks detail: %q", got.Error)
	}
}

func TestHandlePredictDisease(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()
	body, contentType := pngUpload(t, "file")
	req := httptest.NewRequest(http.MethodPost, "/predict-disease", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	got := decode[models.DiseaseResponse](t, rec)
	if got.Disease != "Tomato   Early blight" {
		t.Errorf("disease: %q", got.Disease)
	}
	if got.Confidence != 70 {
		t.Errorf("confidence: %v", got.Confidence)
	}
}

func TestHandlePredictDisease_MissingFile(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()
	body, contentType := pngUpload(t, "image")
	req := httptest.NewRequest(http.MethodPost, "/predict-disease", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rec.Code)
	}
}

func TestHandlePredictDisease_Undecodable(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	_, _ = fw.Write([]byte("not an image"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/predict-disease", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
}

func TestHandleChat(t *testing.T) {
	fc := &fakeChat{answer: "Use drip irrigation."}
	h := newTestServer(t, testDeps{chat: fc}).Handler()
	body := `{"question":"How much water?","crop_result":{"recommendations":[{"crop":"rice","confidence":87.76}]}}`
	rec := doJSON(t, h, http.MethodPost, "/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if got := decode[models.ChatResponse](t, rec); got.Answer != "Use drip irrigation." {
		t.Errorf("answer: %q", got.Answer)
	}
	if len(fc.got) != 1 || fc.got[0].Question != "How much water?" || !models.HasContext(fc.got[0].CropResult) {
		t.Errorf("backend request: %+v", fc.got)
	}
}

func TestHandleChat_Errors(t *testing.T) {
	rec := doJSON(t, newTestServer(t, testDeps{}).Handler(), http.MethodPost, "/chat", `{"crop_result":null}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing question: got %d", rec.Code)
	}

	fc := &fakeChat{err: errors.New("upstream 503")}
	rec = doJSON(t, newTestServer(t, testDeps{chat: fc}).Handler(), http.MethodPost, "/chat", `{"question":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("backend failure: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "503") {
		t.Errorf("error body leaks upstream detail: %s", rec.Body.String())
	}
}

func TestRecoverer(t *testing.T) {
	h := newTestServer(t, testDeps{chat: &fakeChat{panics: true}}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/chat", `{"question":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", rec.Code)
	}
	if got := decode[models.ErrorResponse](t, rec); got.Error != "Internal Server Error" {
		t.Errorf("body: %q", got.Error)
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allowed origin: got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("credentials: got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin echoed: %q", got)
	}
}

func TestHandleStatusAndHistory_LogDisabled(t *testing.T) {
	h := newTestServer(t, testDeps{}).Handler()

	rec := doJSON(t, h, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	st := decode[models.StatusResponse](t, rec)
	if st.PredictionLog.Enabled {
		t.Error("prediction log should be disabled")
	}
	if st.Crop.Classes != len(testLabels) || st.Disease.Classes != len(testClasses) {
		t.Errorf("class counts: %+v %+v", st.Crop, st.Disease)
	}
	if st.Chat.Configured {
		t.Error("chat should report unconfigured")
	}
	for _, a := range st.Artifacts {
		if !a.Missing {
			t.Errorf("artifact %s should be missing", a.Name)
		}
	}

	rec = doJSON(t, h, http.MethodGet, "/history", "")
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("history: got %d, want 501", rec.Code)
	}
}

func TestHistory_RecordsPredictions(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "log.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	h := newTestServer(t, testDeps{history: store}).Handler()

	if rec := doJSON(t, h, http.MethodPost, "/predict-crop", validCrop); rec.Code != http.StatusOK {
		t.Fatalf("crop: %d", rec.Code)
	}
	body, contentType := pngUpload(t, "file")
	req := httptest.NewRequest(http.MethodPost, "/predict-disease", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("disease: %d", rec.Code)
	}
	// rejected input is not a served prediction
	doJSON(t, h, http.MethodPost, "/predict-crop", `{"soil_type":"x","season":"x","rainfall_level":"x","weather":"x","ph_range":"x"}`)

	rec = doJSON(t, h, http.MethodGet, "/history?limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
	hist := decode[models.HistoryResponse](t, rec)
	if len(hist.Predictions) != 2 {
		t.Fatalf("expected 2 records, got %d", len(hist.Predictions))
	}

	rec = doJSON(t, h, http.MethodGet, "/history?kind=crop", "")
	hist = decode[models.HistoryResponse](t, rec)
	if len(hist.Predictions) != 1 || hist.Predictions[0].Kind != "crop" {
		t.Errorf("crop history: %+v", hist.Predictions)
	}

	st := decode[models.StatusResponse](t, doJSON(t, h, http.MethodGet, "/status", ""))
	if !st.PredictionLog.Enabled || st.PredictionLog.Crop != 1 || st.PredictionLog.Disease != 1 {
		t.Errorf("log status: %+v", st.PredictionLog)
	}

	for _, q := range []string{"limit=0", "limit=abc", "kind=weather"} {
		if rec := doJSON(t, h, http.MethodGet, "/history?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, rec.Code)
		}
	}
}
