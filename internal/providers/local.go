package providers

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/photolib/server/internal/models"
)

// mediaExtensions are the file types a listing reports
var mediaExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".heic": true, ".heif": true, ".tiff": true, ".tif": true, ".bmp": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true, ".m4v": true,
}

// dimensionProbeExtensions are formats the stdlib decoders can size cheaply
var dimensionProbeExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// LocalProvider serves media from a directory tree on local disk.
// File IDs are forward-slash relative paths under the base path.
type LocalProvider struct {
	id          string
	displayName string
	cfg         models.LocalProviderConfig
}

// NewLocalProvider creates an uninitialized LocalProvider
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (p *LocalProvider) ID() string                { return p.id }
func (p *LocalProvider) Type() models.ProviderType { return models.ProviderTypeLocal }
func (p *LocalProvider) DisplayName() string       { return p.displayName }
func (p *LocalProvider) SupportsUpload() bool      { return true }
func (p *LocalProvider) SupportsWatch() bool       { return true }

// Initialize sets identity fields and parses the config blob, falling back to
// defaults when the blob is missing or malformed.
func (p *LocalProvider) Initialize(id, displayName, configBlob string) {
	p.id = id
	p.displayName = displayName
	p.cfg = models.ParseLocalProviderConfig(configBlob)
	if strings.TrimSpace(p.cfg.BasePath) == "" {
		p.cfg.BasePath = "./media"
	}
}

// ListFiles walks the directory under folderID (or the base path) and emits
// a descriptor for every media file, plus folder entries. Hidden directories
// are skipped.
func (p *LocalProvider) ListFiles(ctx context.Context, folderID string, recursive bool) ([]models.RemoteFile, error) {
	root, err := p.resolvePath(folderID)
	if err != nil {
		return nil, err
	}

	base, err := filepath.Abs(p.cfg.BasePath)
	if err != nil {
		return nil, err
	}

	var files []models.RemoteFile
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal for the listing
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, relErr := filepath.Rel(base, path)
		if relErr != nil || relPath == "." {
			return nil
		}
		fileID := filepath.ToSlash(relPath)

		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			files = append(files, models.RemoteFile{
				ID:             fileID,
				Name:           info.Name(),
				Path:           fileID,
				ModifiedTime:   info.ModTime().UTC(),
				IsFolder:       true,
				ParentFolderID: parentFolderID(fileID),
			})
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(info.Name()))
		if strings.HasPrefix(info.Name(), ".") || !mediaExtensions[ext] {
			return nil
		}

		rf := models.RemoteFile{
			ID:             fileID,
			Name:           info.Name(),
			Path:           fileID,
			Size:           info.Size(),
			ContentType:    contentTypeForExt(ext),
			MediaType:      models.MediaTypeForFilename(info.Name()),
			CreatedTime:    info.ModTime().UTC(),
			ModifiedTime:   info.ModTime().UTC(),
			ParentFolderID: parentFolderID(fileID),
		}

		if dimensionProbeExtensions[ext] {
			if w, h, ok := probeDimensions(path); ok {
				rf.Width = &w
				rf.Height = &h
			}
		}

		files = append(files, rf)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if files == nil {
		files = []models.RemoteFile{}
	}

	return files, nil
}

// ReadFile opens the file identified by a relative path
func (p *LocalProvider) ReadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	fullPath, err := p.resolvePath(fileID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if os.IsNotExist(err) {
		return nil, models.ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return f, nil
}

// WriteFile stores new content under the base path, organized by Year/Month
// when configured, with unique-name collision handling.
func (p *LocalProvider) WriteFile(ctx context.Context, filename string, r io.Reader, contentType string) (*models.WriteResult, error) {
	sanitized := filepath.Base(filename)
	if strings.TrimSpace(sanitized) == "" || sanitized == "." {
		return nil, models.ErrEmptyFilename
	}

	relFolder := ""
	if p.cfg.OrganizeByDate {
		now := time.Now()
		relFolder = filepath.Join(now.Format("2006"), now.Format("01"))
	}

	base, err := filepath.Abs(p.cfg.BasePath)
	if err != nil {
		return nil, err
	}
	absFolder := filepath.Join(base, relFolder)
	if err := os.MkdirAll(absFolder, 0755); err != nil {
		return nil, err
	}

	unique := uniqueFilename(sanitized, absFolder)
	relPath := filepath.Join(relFolder, unique)
	absPath := filepath.Join(base, relPath)

	// Security check: ensure path is within base path
	if !strings.HasPrefix(absPath, base) {
		return nil, models.ErrPathTraversal
	}

	file, err := os.OpenFile(absPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	written, err := io.Copy(file, r)
	if err != nil {
		os.Remove(absPath) // Clean up on error
		return nil, err
	}

	return &models.WriteResult{
		FileID:     filepath.ToSlash(relPath),
		StoredPath: filepath.ToSlash(relPath),
		Size:       written,
		WrittenAt:  time.Now().UTC(),
	}, nil
}

// DeleteFile removes a file; a missing file returns (false, nil)
func (p *LocalProvider) DeleteFile(ctx context.Context, fileID string) (bool, error) {
	fullPath, err := p.resolvePath(fileID)
	if err != nil {
		return false, err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// FileExists checks whether a file ID resolves to an existing file
func (p *LocalProvider) FileExists(ctx context.Context, fileID string) bool {
	fullPath, err := p.resolvePath(fileID)
	if err != nil {
		return false
	}

	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// TestConnection reports whether the base path is an accessible directory
func (p *LocalProvider) TestConnection(ctx context.Context) bool {
	info, err := os.Stat(p.cfg.BasePath)
	return err == nil && info.IsDir()
}

// resolvePath maps a file ID to an absolute path, rejecting traversal
func (p *LocalProvider) resolvePath(fileID string) (string, error) {
	base, err := filepath.Abs(p.cfg.BasePath)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(fileID) == "" {
		return base, nil
	}

	fullPath := filepath.Join(base, filepath.FromSlash(fileID))
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}

	if absPath != base && !strings.HasPrefix(absPath, base+string(os.PathSeparator)) {
		return "", models.ErrPathTraversal
	}

	return absPath, nil
}

func parentFolderID(fileID string) string {
	parent := filepath.ToSlash(filepath.Dir(filepath.FromSlash(fileID)))
	if parent == "." {
		return ""
	}
	return parent
}

func contentTypeForExt(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// probeDimensions reads just enough of the file header to size the image
func probeDimensions(path string) (int, int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// uniqueFilename creates a unique filename if a collision exists
func uniqueFilename(filename, folderPath string) string {
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))
	ext := filepath.Ext(filename)
	candidate := filename
	counter := 1

	for {
		fullPath := filepath.Join(folderPath, candidate)
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			break
		}

		candidate = fmt.Sprintf("%s_%03d%s", nameWithoutExt, counter, ext)
		counter++

		if counter > 9999 {
			// Fall back to timestamp
			candidate = fmt.Sprintf("%s_%d%s", nameWithoutExt, time.Now().UnixNano(), ext)
			break
		}
	}

	return candidate
}
