package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hyperjump/agrovision/internal/crop"
	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/internal/storage"
	"go.uber.org/zap"
)

const internalError = "Internal Server Error"

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Smart Agriculture API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredictCrop(w http.ResponseWriter, r *http.Request) {
	req, err := models.DecodeCropRequest(r.Body)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	resp, err := s.crop.Recommend(r.Context(), req)
	if errors.Is(err, crop.ErrInvalidInput) {
		s.respondJSON(w, http.StatusOK, models.ErrorResponse{Error: crop.InvalidInputMessage})
		return
	}
	if err != nil {
		s.logger.Error("crop prediction failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, internalError)
		return
	}
	s.record(r.Context(), storage.KindCrop, req, resp)
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictDisease(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.config.Server.MaxUploadMB)<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusUnprocessableEntity, "field required: file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("reading upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, internalError)
		return
	}
	resp, err := s.disease.Detect(r.Context(), bytes.NewReader(data))
	if err != nil {
		s.logger.Error("disease prediction failed",
			zap.String("filename", header.Filename),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, internalError)
		return
	}
	s.record(r.Context(), storage.KindDisease, map[string]any{
		"filename": header.Filename,
		"bytes":    len(data),
	}, resp)
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := models.DecodeChatRequest(r.Body)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Debug("chat request",
		zap.Int("question_len", len(req.Question)),
		zap.Bool("crop_context", models.HasContext(req.CropResult)),
		zap.Bool("disease_context", models.HasContext(req.DiseaseResult)),
	)
	answer, err := s.chat.Answer(r.Context(), req)
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, internalError)
		return
	}
	s.respondJSON(w, http.StatusOK, models.ChatResponse{Answer: answer})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := models.StatusResponse{
		Status: "ok",
		Crop: models.ModelStatus{
			ModelPath: s.config.Crop.ModelPath,
			Classes:   len(s.crop.Labels()),
		},
		Disease: models.ModelStatus{
			ModelPath: s.config.Disease.ModelPath,
			Classes:   len(s.disease.Classes()),
		},
		Chat: models.ChatStatus{Configured: s.chat.Configured()},
	}
	if resp.Chat.Configured {
		resp.Chat.Model = s.config.Chat.Model
	}

	if s.history != nil {
		resp.PredictionLog.Enabled = true
		var err error
		if resp.PredictionLog.Crop, err = s.history.Count(ctx, storage.KindCrop); err != nil {
			s.logger.Error("status: count crop predictions failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, internalError)
			return
		}
		if resp.PredictionLog.Disease, err = s.history.Count(ctx, storage.KindDisease); err != nil {
			s.logger.Error("status: count disease predictions failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, internalError)
			return
		}
	}

	usage, total, err := storage.ArtifactUsage(map[string]string{
		"crop_model":      s.config.Crop.ModelPath,
		"crop_labels":     s.config.Crop.LabelsPath,
		"disease_model":   s.config.Disease.ModelPath,
		"disease_classes": s.config.Disease.ClassesPath,
		"database":        s.config.Storage.DatabasePath,
	})
	if err != nil {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	} else {
		resp.DiskUsageBytes = total
		resp.Artifacts = make([]models.ArtifactStatus, 0, len(usage))
		for _, u := range usage {
			resp.Artifacts = append(resp.Artifacts, models.ArtifactStatus{
				Name:    u.Name,
				Path:    u.Path,
				Bytes:   u.Bytes,
				Missing: u.Missing,
			})
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "prediction log not enabled")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	kind := storage.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", storage.KindCrop, storage.KindDisease:
	default:
		s.respondError(w, http.StatusBadRequest, "kind must be crop or disease")
		return
	}

	preds, err := s.history.Recent(r.Context(), kind, limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, internalError)
		return
	}
	resp := models.HistoryResponse{Predictions: make([]models.PredictionRecord, 0, len(preds))}
	for _, p := range preds {
		resp.Predictions = append(resp.Predictions, models.PredictionRecord{
			ID:        p.ID,
			Kind:      string(p.Kind),
			Input:     p.Input,
			Output:    p.Output,
			CreatedAt: p.CreatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// record appends a served prediction to the log. Failures are logged and
// never affect the response.
func (s *Server) record(ctx context.Context, kind storage.Kind, input, output any) {
	if s.history == nil {
		return
	}
	in, err := json.Marshal(input)
	if err != nil {
		s.logger.Warn("prediction log: marshal input failed", zap.Error(err))
		return
	}
	out, err := json.Marshal(output)
	if err != nil {
		s.logger.Warn("prediction log: marshal output failed", zap.Error(err))
		return
	}
	if err := s.history.Record(ctx, &storage.Prediction{Kind: kind, Input: in, Output: out}); err != nil {
		s.logger.Warn("prediction log: record failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}
