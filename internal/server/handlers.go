package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/ridewise/internal/chat"
	"github.com/hyperjump/ridewise/internal/models"
	"go.uber.org/zap"
)

const uploadSuccessMessage = "File uploaded and processed successfully"

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if limit := s.config.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	file, header, err := r.FormFile(s.config.UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	res, err := s.ingester.Ingest(r.Context(), file, header.Filename)
	if err != nil {
		s.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.UploadResponse{Message: uploadSuccessMessage, Rows: res.Rows})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if !s.storage.Ready() {
			s.respondError(w, http.StatusBadRequest, chat.ErrNotReady.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("chat request", zap.String("user_id", req.UserID), zap.Int("question_len", len(req.Question)))
	answer, err := s.answerer.Answer(r.Context(), req.Question, req.UserID)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, models.ChatResponse{Answer: answer})
	case errors.Is(err, chat.ErrNotReady), errors.Is(err, chat.ErrBadRequest):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("chat failed", zap.String("user_id", req.UserID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "ready": s.storage.Ready()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.storage.Current()
	if !ok {
		s.respondJSON(w, http.StatusOK, models.StatusResponse{})
		return
	}
	loadedAt := snap.LoadedAt
	s.respondJSON(w, http.StatusOK, models.StatusResponse{
		Ready:      true,
		Rows:       snap.Rows(),
		Generation: snap.Generation,
		Source:     snap.Source,
		Digest:     snap.Digest,
		LoadedAt:   &loadedAt,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
