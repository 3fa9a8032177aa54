package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// FileHandler stores uploads under a flat directory with uuid-based names so
// original filenames never collide or traverse paths.
type FileHandler struct {
	UploadDir string
}

type UploadResponse struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	storedName := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(h.UploadDir, storedName))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(UploadResponse{
		FileURL:  "/files/download/" + storedName,
		FileName: header.Filename,
		FileType: header.Header.Get("Content-Type"),
	})
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	// The stored name is a uuid plus extension; reject anything that
	// resolves outside the upload directory.
	name := filepath.Base(mux.Vars(r)["filename"])
	path := filepath.Join(h.UploadDir, name)

	if _, err := os.Stat(path); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}
