package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"teamdir.org/internal/access"
	"teamdir.org/internal/assets"
)

// Uploaded files may be raw camera output; the pipeline shrinks them before
// storage.
const maxUploadBytes = 32 << 20

// handleUpload serves POST /v1/uploads: multipart form with a "file" part
// and an optional "kind" selecting the destination bucket. Anyone allowed to
// edit an image-bearing entity may upload.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermission(w, r, access.PermEvents, access.PermPhotos, access.PermPeople) {
		return
	}
	if a.assets == nil {
		writeError(w, r, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read file")
		return
	}

	bucket, err := a.uploadBucket(r.FormValue("kind"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	opts := assets.Options{
		Bucket:                 bucket,
		Folder:                 strings.Trim(r.FormValue("folder"), "/"),
		GenerateUniqueFileName: r.FormValue("unique") != "false",
		Compression:            compressionFromForm(r),
	}

	result, err := a.assets.Upload(r.Context(), assets.Upload{
		Filename: header.Filename,
		Data:     data,
	}, opts)
	if err != nil {
		var cerr *assets.CompressionError
		if errors.As(err, &cerr) {
			writeError(w, r, http.StatusUnprocessableEntity, cerr.Error())
			return
		}
		writeError(w, r, http.StatusBadGateway, "upload failed")
		return
	}

	var meta any
	if result.CompressionInfo != nil {
		meta = result.CompressionInfo
	}
	a.recorder.RecordMeta(r.Context(), "asset.upload", "objects", nil, nil, result, meta, result.Object)
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) uploadBucket(kind string) (string, error) {
	switch strings.TrimSpace(kind) {
	case "", "photo":
		return a.uploads.PhotoBucket, nil
	case "event":
		return a.uploads.EventBucket, nil
	case "avatar":
		return a.uploads.AvatarBucket, nil
	default:
		return "", errors.New("unknown upload kind")
	}
}

// compressionFromForm builds the compression settings: cap 1 MB, fit within
// 1200px, JPEG quality 0.8 unless overridden. "compress=false" skips the pass
// entirely.
func compressionFromForm(r *http.Request) *assets.Compression {
	if r.FormValue("compress") == "false" {
		return nil
	}
	comp := &assets.Compression{
		MaxSizeMB:        1,
		MaxWidthOrHeight: 1200,
		Quality:          0.8,
		FileType:         r.FormValue("file_type"),
	}
	if v := r.FormValue("max_size_mb"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			comp.MaxSizeMB = f
		}
	}
	if v := r.FormValue("max_width_or_height"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			comp.MaxWidthOrHeight = n
		}
	}
	if v := r.FormValue("quality"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			comp.Quality = f
		}
	}
	return comp
}
