package models

import "time"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question string `json:"question"`
	UserID   string `json:"userId"`
}

// ChatResponse is the successful response of POST /chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// UploadResponse is the successful response of POST /upload.
type UploadResponse struct {
	Message string `json:"message"`
	Rows    int    `json:"rows"`
}

// StatusResponse describes the currently published data set.
type StatusResponse struct {
	Ready      bool       `json:"ready"`
	Rows       int        `json:"rows"`
	Generation string     `json:"generation,omitempty"`
	Source     string     `json:"source,omitempty"`
	Digest     string     `json:"digest,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
}
