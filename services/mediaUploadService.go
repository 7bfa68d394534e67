package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// MediaUploader moves device-local media to durable storage.
type MediaUploader interface {
	UploadImage(ctx context.Context, localURI, objectPath string) (string, error)
	UploadVideo(ctx context.Context, localURI, objectPath string, onProgress func(fraction float64)) (VideoUpload, error)
}

type VideoUpload struct {
	RemoteURL    string `json:"remoteUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

var localMediaSchemes = []string{"file://", "content://", "ph://", "assets-library://"}

// IsLocalMediaURI reports whether uri points at media on the device rather
// than at an uploaded object.
func IsLocalMediaURI(uri string) bool {
	if uri == "" {
		return false
	}
	if strings.HasPrefix(uri, "/") {
		return true
	}
	for _, scheme := range localMediaSchemes {
		if strings.HasPrefix(uri, scheme) {
			return true
		}
	}
	return false
}

// mediaResolver substitutes uploaded URLs for local URIs. Upload failures keep
// the local URI so the record still has something to display.
type mediaResolver struct {
	uploader MediaUploader
	log      logrus.FieldLogger
}

func (m mediaResolver) image(ctx context.Context, uri, objectPath string) string {
	if !IsLocalMediaURI(uri) || m.uploader == nil {
		return uri
	}
	remote, err := m.uploader.UploadImage(ctx, uri, objectPath)
	if err != nil {
		m.log.WithField("object", objectPath).WithError(err).Warn("image upload failed, keeping local uri")
		return uri
	}
	return remote
}

func (m mediaResolver) video(ctx context.Context, uri, objectPath string) (string, string) {
	if !IsLocalMediaURI(uri) || m.uploader == nil {
		return uri, ""
	}
	up, err := m.uploader.UploadVideo(ctx, uri, objectPath, nil)
	if err != nil {
		m.log.WithField("object", objectPath).WithError(err).Warn("video upload failed, keeping local uri")
		return uri, ""
	}
	return up.RemoteURL, up.ThumbnailURL
}

// mediaObjectPath builds "<folder>/<owner>/<name><ext>" keeping the source
// extension.
func mediaObjectPath(folder, ownerID, name, uri string) string {
	if ownerID == "" {
		ownerID = "anonymous"
	}
	return path.Join(folder, ownerID, name+strings.ToLower(filepath.Ext(uri)))
}

const (
	maxImageWidth     = 1600
	maxThumbnailWidth = 480
)

// StorageUploader writes media into a Cloud Storage bucket. Only files under
// stagingDir are read; with no staging directory every local URI is refused.
// Images are downscaled and re-encoded as JPEG. A poster image next to a video
// (same base name, .jpg) becomes its thumbnail.
type StorageUploader struct {
	bucket     *storage.BucketHandle
	bucketName string
	stagingDir string
}

func NewStorageUploader(bucket *storage.BucketHandle, bucketName, stagingDir string) *StorageUploader {
	return &StorageUploader{bucket: bucket, bucketName: bucketName, stagingDir: stagingDir}
}

// stagedFile resolves uri to a regular file inside the staging directory,
// following symlinks before the containment check.
func (u *StorageUploader) stagedFile(uri string) (string, error) {
	if u.stagingDir == "" {
		return "", validationError("local media uploads are disabled")
	}
	root, err := filepath.EvalSymlinks(filepath.Clean(u.stagingDir))
	if err != nil {
		return "", fmt.Errorf("failed to resolve staging directory: %w", err)
	}
	p := localFilePath(uri)
	if !filepath.IsAbs(p) {
		return "", validationError("media %q is not a staged file", uri)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(p))
	if err != nil {
		return "", validationError("media %q is not a staged file", uri)
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", validationError("media %q is outside the staging directory", uri)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", validationError("media %q is not a staged file", uri)
	}
	return resolved, nil
}

func (u *StorageUploader) UploadImage(ctx context.Context, localURI, objectPath string) (string, error) {
	filePath, err := u.stagedFile(localURI)
	if err != nil {
		return "", err
	}
	data, err := encodeImageFile(filePath, maxImageWidth)
	if err != nil {
		return "", err
	}
	objectPath = strings.TrimSuffix(objectPath, path.Ext(objectPath)) + ".jpg"
	if err := u.write(ctx, objectPath, "image/jpeg", bytes.NewReader(data), nil, int64(len(data))); err != nil {
		return "", err
	}
	return u.publicURL(objectPath), nil
}

func (u *StorageUploader) UploadVideo(ctx context.Context, localURI, objectPath string, onProgress func(float64)) (VideoUpload, error) {
	filePath, err := u.stagedFile(localURI)
	if err != nil {
		return VideoUpload{}, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		return VideoUpload{}, fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return VideoUpload{}, fmt.Errorf("failed to stat video: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filePath)))
	if contentType == "" {
		contentType = "video/mp4"
	}
	if err := u.write(ctx, objectPath, contentType, f, onProgress, info.Size()); err != nil {
		return VideoUpload{}, err
	}

	result := VideoUpload{RemoteURL: u.publicURL(objectPath)}
	poster := strings.TrimSuffix(filePath, filepath.Ext(filePath)) + ".jpg"
	if poster, err := u.stagedFile(poster); err == nil {
		thumb, err := encodeImageFile(poster, maxThumbnailWidth)
		if err == nil {
			thumbPath := strings.TrimSuffix(objectPath, path.Ext(objectPath)) + "_thumb.jpg"
			if err := u.write(ctx, thumbPath, "image/jpeg", bytes.NewReader(thumb), nil, int64(len(thumb))); err == nil {
				result.ThumbnailURL = u.publicURL(thumbPath)
			}
		}
	}
	return result, nil
}

func (u *StorageUploader) write(ctx context.Context, objectPath, contentType string, r io.Reader, onProgress func(float64), size int64) error {
	w := u.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType

	src := r
	if onProgress != nil && size > 0 {
		src = &progressReader{r: r, total: size, onProgress: onProgress}
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", objectPath, err)
	}
	return nil
}

func (u *StorageUploader) publicURL(objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, (&url.URL{Path: objectPath}).EscapedPath())
}

// localFilePath turns a file:// URI into a path. Other device schemes are
// returned as is and never resolve to a staged file.
func localFilePath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if parsed, err := url.Parse(uri); err == nil {
			return parsed.Path
		}
		return strings.TrimPrefix(uri, "file://")
	}
	return uri
}

func encodeImageFile(filePath string, maxWidth int) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return encodeJPEG(img, maxWidth)
}

func encodeJPEG(img image.Image, maxWidth int) ([]byte, error) {
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

type progressReader struct {
	r          io.Reader
	read       int64
	total      int64
	onProgress func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.onProgress(float64(p.read) / float64(p.total))
	}
	return n, err
}
