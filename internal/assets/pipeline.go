package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"teamdir.org/internal/ids"
)

// ObjectStorage accepts bytes and returns a public URL for the stored object.
// Write-only from this package's perspective.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, bucket, object string) error
}

// Compression configures the single-pass resize/re-encode step. Quality is in
// (0, 1]. FileType accepts "image/jpeg", "image/png" or the bare format name.
type Compression struct {
	MaxSizeMB        float64
	MaxWidthOrHeight int
	Quality          float64
	FileType         string
}

// Options configures one upload.
type Options struct {
	Bucket                 string
	Folder                 string
	GenerateUniqueFileName bool
	Compression            *Compression
}

// Upload is a user-selected file.
type Upload struct {
	Filename string
	Data     []byte
}

// CompressionInfo reports the effect of the compression pass.
type CompressionInfo struct {
	OriginalBytes   int     `json:"original_bytes"`
	CompressedBytes int     `json:"compressed_bytes"`
	Ratio           float64 `json:"ratio"`
}

// Result is the outcome of a successful upload.
type Result struct {
	URL             string           `json:"url"`
	Bucket          string           `json:"bucket"`
	Object          string           `json:"object"`
	CompressionInfo *CompressionInfo `json:"compression_info,omitempty"`
}

// Pipeline compresses images and writes them to object storage. It retains no
// local state between uploads.
type Pipeline struct {
	storage ObjectStorage
}

func NewPipeline(storage ObjectStorage) (*Pipeline, error) {
	if storage == nil {
		return nil, errors.New("object storage is required")
	}
	return &Pipeline{storage: storage}, nil
}

// Process runs only the compression step and returns the bytes that would be
// uploaded. Exposed for previews and tests.
func (p *Pipeline) Process(file Upload, comp *Compression) ([]byte, string, *CompressionInfo, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if comp == nil {
		return file.Data, contentTypeForExt(ext), nil, nil
	}

	format, err := targetFormat(comp.FileType, ext)
	if err != nil {
		return nil, "", nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(file.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", nil, &CompressionError{Reason: "decode image", Cause: err}
	}

	if comp.MaxWidthOrHeight > 0 {
		bounds := img.Bounds()
		if bounds.Dx() > comp.MaxWidthOrHeight || bounds.Dy() > comp.MaxWidthOrHeight {
			// Fit preserves aspect ratio; the longer dimension lands
			// exactly on MaxWidthOrHeight.
			img = imaging.Fit(img, comp.MaxWidthOrHeight, comp.MaxWidthOrHeight, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	var encodeOpts []imaging.EncodeOption
	if format == imaging.JPEG {
		encodeOpts = append(encodeOpts, imaging.JPEGQuality(jpegQuality(comp.Quality)))
	}
	if err := imaging.Encode(&buf, img, format, encodeOpts...); err != nil {
		return nil, "", nil, &CompressionError{Reason: "encode image", Cause: err}
	}

	// One compression pass only; an oversized result aborts the upload
	// instead of iteratively shrinking.
	if comp.MaxSizeMB > 0 {
		limit := int(comp.MaxSizeMB * 1024 * 1024)
		if buf.Len() > limit {
			return nil, "", nil, &CompressionError{
				Reason: fmt.Sprintf("result %d bytes exceeds limit %d bytes", buf.Len(), limit),
			}
		}
	}

	info := &CompressionInfo{
		OriginalBytes:   len(file.Data),
		CompressedBytes: buf.Len(),
	}
	if info.OriginalBytes > 0 {
		info.Ratio = float64(info.CompressedBytes) / float64(info.OriginalBytes)
	}
	return buf.Bytes(), contentTypeForFormat(format), info, nil
}

// Upload compresses the file per the options and writes it under
// bucket/folder. Expected failures come back as *CompressionError or
// *UploadError; callers must not assume success.
func (p *Pipeline) Upload(ctx context.Context, file Upload, opts Options) (Result, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return Result{}, errors.New("assets: bucket is required")
	}
	if len(file.Data) == 0 {
		return Result{}, &CompressionError{Reason: "empty file"}
	}
	// Without a filename there is no extension and no non-unique object name.
	if strings.TrimSpace(file.Filename) == "" {
		return Result{}, &CompressionError{Reason: "missing filename"}
	}

	data, contentType, info, err := p.Process(file, opts.Compression)
	if err != nil {
		return Result{}, err
	}

	object := objectName(file.Filename, opts)
	if opts.Compression != nil {
		// Re-encoding may change the format; keep the extension honest.
		if ext := extForContentType(contentType); ext != "" {
			object = replaceExt(object, ext)
		}
	}

	url, err := p.storage.Put(ctx, opts.Bucket, object, data, contentType)
	if err != nil {
		return Result{}, &UploadError{Bucket: opts.Bucket, Object: object, Cause: err}
	}

	return Result{URL: url, Bucket: opts.Bucket, Object: object, CompressionInfo: info}, nil
}

// Remove deletes a stored object. Best effort: entity deletion never depends
// on it.
func (p *Pipeline) Remove(ctx context.Context, bucket, object string) error {
	return p.storage.Remove(ctx, bucket, object)
}

func objectName(filename string, opts Options) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if opts.GenerateUniqueFileName {
		name = strings.ToLower(ids.New()) + strings.ToLower(filepath.Ext(filename))
	}
	if folder := strings.Trim(opts.Folder, "/"); folder != "" {
		return folder + "/" + name
	}
	return name
}

func replaceExt(object, ext string) string {
	old := filepath.Ext(object)
	return strings.TrimSuffix(object, old) + ext
}

func targetFormat(fileType, fallbackExt string) (imaging.Format, error) {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	ft = strings.TrimPrefix(ft, "image/")
	if ft == "" {
		ft = strings.TrimPrefix(fallbackExt, ".")
	}
	switch ft {
	case "", "jpg", "jpeg":
		return imaging.JPEG, nil
	case "png":
		return imaging.PNG, nil
	default:
		// No webp or other encoders available; reject instead of
		// silently re-encoding to something else.
		return 0, &CompressionError{Reason: fmt.Sprintf("unsupported target type %q", fileType)}
	}
}

func jpegQuality(quality float64) int {
	if quality <= 0 || quality > 1 {
		return 80
	}
	q := int(quality * 100)
	if q < 1 {
		q = 1
	}
	return q
}

func contentTypeForFormat(format imaging.Format) string {
	switch format {
	case imaging.PNG:
		return "image/png"
	default:
		return "image/jpeg"
	}
}

func contentTypeForExt(ext string) string {
	switch strings.TrimPrefix(ext, ".") {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ""
	}
}
