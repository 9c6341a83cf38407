package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

type memStorage struct {
	putFn    func(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error)
	objects  map[string][]byte
	lastType string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Put(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, bucket, object, data, contentType)
	}
	m.objects[bucket+"/"+object] = data
	m.lastType = contentType
	return "https://cdn.example.org/" + bucket + "/" + object, nil
}

func (m *memStorage) Remove(_ context.Context, bucket, object string) error {
	delete(m.objects, bucket+"/"+object)
	return nil
}

func testImageJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 7 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func newTestPipeline(t *testing.T, storage ObjectStorage) *Pipeline {
	t.Helper()
	p, err := NewPipeline(storage)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestUploadResizesToFitLongerDimension(t *testing.T) {
	storage := newMemStorage()
	p := newTestPipeline(t, storage)

	file := Upload{Filename: "banner.jpg", Data: testImageJPEG(t, 800, 400)}
	res, err := p.Upload(context.Background(), file, Options{
		Bucket:                 "event_images",
		Folder:                 "events",
		GenerateUniqueFileName: true,
		Compression: &Compression{
			MaxSizeMB:        1,
			MaxWidthOrHeight: 120,
			Quality:          0.8,
			FileType:         "image/jpeg",
		},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	stored, ok := storage.objects["event_images/"+res.Object]
	if !ok {
		t.Fatalf("object not stored: %s", res.Object)
	}
	img, err := imaging.Decode(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("decode stored image: %v", err)
	}
	// 800x400 fit into 120 => 120x60, aspect preserved.
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 60 {
		t.Fatalf("unexpected dimensions %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	if res.CompressionInfo == nil || res.CompressionInfo.CompressedBytes != len(stored) {
		t.Fatalf("compression info mismatch: %+v", res.CompressionInfo)
	}
	if storage.lastType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", storage.lastType)
	}
}

func TestUploadKeepsSmallerImagesUnscaled(t *testing.T) {
	storage := newMemStorage()
	p := newTestPipeline(t, storage)

	file := Upload{Filename: "thumb.jpg", Data: testImageJPEG(t, 64, 48)}
	res, err := p.Upload(context.Background(), file, Options{
		Bucket:      "photos",
		Compression: &Compression{MaxWidthOrHeight: 1200, Quality: 0.8},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	img, err := imaging.Decode(bytes.NewReader(storage.objects["photos/"+res.Object]))
	if err != nil {
		t.Fatalf("decode stored image: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("image must not be upscaled, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestUploadGeneratesUniqueNames(t *testing.T) {
	storage := newMemStorage()
	p := newTestPipeline(t, storage)
	file := Upload{Filename: "team photo.jpg", Data: testImageJPEG(t, 32, 32)}
	opts := Options{Bucket: "photos", Folder: "gallery", GenerateUniqueFileName: true}

	first, err := p.Upload(context.Background(), file, opts)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := p.Upload(context.Background(), file, opts)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if first.Object == second.Object {
		t.Fatalf("expected distinct object names, both %q", first.Object)
	}
	if !strings.HasPrefix(first.Object, "gallery/") {
		t.Fatalf("folder prefix missing: %q", first.Object)
	}
	if !strings.HasSuffix(first.Object, ".jpg") {
		t.Fatalf("original extension lost: %q", first.Object)
	}
}

func TestUploadWithoutUniqueNameRisksOverwrite(t *testing.T) {
	storage := newMemStorage()
	p := newTestPipeline(t, storage)
	file := Upload{Filename: "same.jpg", Data: testImageJPEG(t, 32, 32)}
	opts := Options{Bucket: "photos"}

	first, err := p.Upload(context.Background(), file, opts)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := p.Upload(context.Background(), file, opts)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first.Object != second.Object {
		t.Fatalf("expected original filename reuse, got %q vs %q", first.Object, second.Object)
	}
}

func TestUploadRejectsMissingFilename(t *testing.T) {
	p := newTestPipeline(t, newMemStorage())

	for _, unique := range []bool{false, true} {
		_, err := p.Upload(context.Background(), Upload{Filename: "  ", Data: testImageJPEG(t, 32, 32)}, Options{
			Bucket:                 "photos",
			GenerateUniqueFileName: unique,
		})
		var cerr *CompressionError
		if !errors.As(err, &cerr) {
			t.Fatalf("unique=%v: expected CompressionError, got %v", unique, err)
		}
	}
}

func TestUploadRejectsOversizedResult(t *testing.T) {
	p := newTestPipeline(t, newMemStorage())

	file := Upload{Filename: "huge.jpg", Data: testImageJPEG(t, 600, 600)}
	_, err := p.Upload(context.Background(), file, Options{
		Bucket: "photos",
		// Absurdly small cap: a single pass cannot satisfy it.
		Compression: &Compression{MaxSizeMB: 0.0001, MaxWidthOrHeight: 600, Quality: 0.9},
	})

	var cerr *CompressionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompressionError, got %v", err)
	}
}

func TestUploadRejectsUnsupportedTargetType(t *testing.T) {
	p := newTestPipeline(t, newMemStorage())

	file := Upload{Filename: "pic.jpg", Data: testImageJPEG(t, 32, 32)}
	_, err := p.Upload(context.Background(), file, Options{
		Bucket:      "photos",
		Compression: &Compression{FileType: "image/webp"},
	})

	var cerr *CompressionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompressionError for webp target, got %v", err)
	}
}

func TestUploadWrapsStorageFailure(t *testing.T) {
	storage := newMemStorage()
	storage.putFn = func(context.Context, string, string, []byte, string) (string, error) {
		return "", errors.New("connection reset")
	}
	p := newTestPipeline(t, storage)

	_, err := p.Upload(context.Background(), Upload{Filename: "x.jpg", Data: testImageJPEG(t, 16, 16)}, Options{Bucket: "photos"})

	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if uerr.Bucket != "photos" {
		t.Fatalf("unexpected bucket in error: %q", uerr.Bucket)
	}
}

func TestUploadRejectsGarbageImage(t *testing.T) {
	p := newTestPipeline(t, newMemStorage())

	_, err := p.Upload(context.Background(), Upload{Filename: "notes.txt", Data: []byte("not an image")}, Options{
		Bucket:      "photos",
		Compression: &Compression{MaxWidthOrHeight: 100},
	})

	var cerr *CompressionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompressionError, got %v", err)
	}
}
