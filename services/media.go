package services

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/storage"
	"github.com/adi27online/meruglobalconnect/utils"
)

const (
	MaxImageSize  = 5 << 20
	MaxResumeSize = 5 << 20

	avatarSize      = 512
	matrimonyBound  = 1280
	attachmentBound = 1920
	jpegQuality     = 85

	// Decoding allocates width*height*4 bytes, so dimensions are checked
	// from the header first.
	maxImageSide   = 10000
	maxImagePixels = 40_000_000
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

var resumeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Upload is one file taken from a multipart form.
type Upload struct {
	Filename string
	Data     []byte
}

// FileInfo describes a stored upload.
type FileInfo struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
}

type MediaService struct {
	Deps
	files storage.FileStore
}

func NewMediaService(deps Deps, files storage.FileStore) *MediaService {
	return &MediaService{Deps: deps.withDefaults(), files: files}
}

func checkImage(up Upload) error {
	if len(up.Data) == 0 {
		return apperrors.BadRequest("no file uploaded")
	}
	if len(up.Data) > MaxImageSize {
		return apperrors.BadRequest("file too large (max 5MB)")
	}
	if !imageTypes[http.DetectContentType(up.Data)] {
		return apperrors.BadRequest("invalid file type, only JPEG, PNG and GIF are allowed")
	}
	return nil
}

func decodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.BadRequest("could not read image")
	}
	if cfg.Width > maxImageSide || cfg.Height > maxImageSide || cfg.Width*cfg.Height > maxImagePixels {
		return nil, apperrors.BadRequest("image dimensions too large (max 10000px per side, 40 megapixels)")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.BadRequest("could not read image")
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}
	return buf.Bytes(), nil
}

// fitImage shrinks img to fit within bound×bound, leaving smaller images as
// they are.
func fitImage(img image.Image, bound int) image.Image {
	b := img.Bounds()
	if b.Dx() <= bound && b.Dy() <= bound {
		return img
	}
	return imaging.Fit(img, bound, bound, imaging.Lanczos)
}

func (s *MediaService) save(ctx context.Context, ext, contentType string, data []byte) (string, error) {
	ctx, cancel := s.provider(ctx)
	defer cancel()
	url, err := s.files.Save(ctx, utils.GenerateUUID()+ext, contentType, data)
	if err != nil {
		logProviderFailure(err, "storage", "save")
		return "", apperrors.Internal(err)
	}
	return url, nil
}

// UploadProfilePicture crops the image to a square avatar and sets it on
// the user.
func (s *MediaService) UploadProfilePicture(ctx context.Context, userID string, up Upload) (string, error) {
	if err := checkImage(up); err != nil {
		return "", err
	}
	img, err := decodeImage(up.Data)
	if err != nil {
		return "", err
	}
	data, err := encodeJPEG(imaging.Fill(img, avatarSize, avatarSize, imaging.Center, imaging.Lanczos))
	if err != nil {
		return "", apperrors.Internal(err)
	}

	url, err := s.save(ctx, ".jpg", "image/jpeg", data)
	if err != nil {
		return "", err
	}

	dbCtx, cancel := s.db(ctx)
	defer cancel()
	if err := s.Store.SetProfilePicture(dbCtx, userID, url, s.Now()); err != nil {
		return "", storeError(err, "user not found")
	}
	return url, nil
}

// UploadMatrimonyPictures stores every acceptable image and appends them to
// the user's gallery. Unacceptable files are skipped.
func (s *MediaService) UploadMatrimonyPictures(ctx context.Context, userID string, uploads []Upload) ([]string, error) {
	var urls []string
	for _, up := range uploads {
		if err := checkImage(up); err != nil {
			logger.Warn().Str("user_id", userID).Str("file", up.Filename).Err(err).Msg("skipping matrimony image")
			continue
		}
		img, err := decodeImage(up.Data)
		if err != nil {
			logger.Warn().Str("user_id", userID).Str("file", up.Filename).Msg("skipping undecodable matrimony image")
			continue
		}
		data, err := encodeJPEG(fitImage(img, matrimonyBound))
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		url, err := s.save(ctx, ".jpg", "image/jpeg", data)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		return nil, apperrors.BadRequest("no valid images were uploaded")
	}

	dbCtx, cancel := s.db(ctx)
	defer cancel()
	if err := s.Store.AddMatrimonyPictures(dbCtx, userID, urls, s.Now()); err != nil {
		return nil, storeError(err, "user not found")
	}
	return urls, nil
}

// UploadImage stores a general image attachment, such as a news picture.
func (s *MediaService) UploadImage(ctx context.Context, up Upload) (*FileInfo, error) {
	if err := checkImage(up); err != nil {
		return nil, err
	}
	img, err := decodeImage(up.Data)
	if err != nil {
		return nil, err
	}
	data, err := encodeJPEG(fitImage(img, attachmentBound))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	url, err := s.save(ctx, ".jpg", "image/jpeg", data)
	if err != nil {
		return nil, err
	}
	return &FileInfo{URL: url, Name: up.Filename, Size: len(data), MimeType: "image/jpeg"}, nil
}

// UploadResume stores a PDF or DOCX file unchanged.
func (s *MediaService) UploadResume(ctx context.Context, up Upload) (*FileInfo, error) {
	if len(up.Data) == 0 {
		return nil, apperrors.BadRequest("no file uploaded")
	}
	if len(up.Data) > MaxResumeSize {
		return nil, apperrors.BadRequest("file too large (max 5MB)")
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	mime, ok := resumeTypes[ext]
	if !ok || !resumeSignature(ext, up.Data) {
		return nil, apperrors.BadRequest("invalid file type, only PDF and DOCX are allowed")
	}
	url, err := s.save(ctx, ext, mime, up.Data)
	if err != nil {
		return nil, err
	}
	return &FileInfo{URL: url, Name: up.Filename, Size: len(up.Data), MimeType: mime}, nil
}

// resumeSignature checks the magic bytes: PDFs start with %PDF, DOCX files
// are zip archives.
func resumeSignature(ext string, data []byte) bool {
	switch ext {
	case ".pdf":
		return bytes.HasPrefix(data, []byte("%PDF"))
	case ".docx":
		return bytes.HasPrefix(data, []byte("PK\x03\x04"))
	}
	return false
}

// Thumbnail scales a stored image down to width pixels wide.
func Thumbnail(data []byte, width int) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	return encodeJPEG(img)
}
