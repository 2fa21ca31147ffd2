// Package packager bundles processed images for download: a single PNG when
// there is one image, a ZIP archive otherwise.
package packager

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/sunglasses/internal/constants"
)

// ErrNothingToPackage is returned for an empty item list.
var ErrNothingToPackage = errors.New("nothing to package")

// Content types of bundles.
const (
	ContentTypePNG = "image/png"
	ContentTypeZIP = "application/zip"
)

// Item is one file to package.
type Item struct {
	Filename string
	Data     []byte
}

// Bundle is a downloadable file.
type Bundle struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Package bundles items. Entry names are NFC-normalized and made unique.
func Package(items []Item) (*Bundle, error) {
	if len(items) == 0 {
		return nil, ErrNothingToPackage
	}
	names := uniqueNames(items)

	if len(items) == 1 {
		return &Bundle{
			Filename:    names[0],
			ContentType: ContentTypePNG,
			Data:        items[0].Data,
		}, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Now()
	for i, item := range items {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     names[i],
			Method:   zip.Store, // PNG data is already compressed
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("adding %s to archive: %w", names[i], err)
		}
		if _, err := w.Write(item.Data); err != nil {
			return nil, fmt.Errorf("writing %s to archive: %w", names[i], err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}

	return &Bundle{
		Filename:    constants.ArchiveName,
		ContentType: ContentTypeZIP,
		Data:        buf.Bytes(),
	}, nil
}

// WriteDir writes every item into dir and returns the written paths.
func WriteDir(dir string, items []Item) ([]string, error) {
	if len(items) == 0 {
		return nil, ErrNothingToPackage
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	names := uniqueNames(items)
	paths := make([]string, 0, len(items))
	for i, item := range items {
		path := filepath.Join(dir, names[i])
		if err := os.WriteFile(path, item.Data, 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteBundle writes b into dir under its own filename.
func WriteBundle(dir string, b *Bundle) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, b.Filename)
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// uniqueNames returns a safe entry name per item. Repeated names get a
// " (n)" suffix before the extension.
func uniqueNames(items []Item) []string {
	seen := make(map[string]int, len(items))
	names := make([]string, len(items))
	for i, item := range items {
		name := cleanName(item.Filename)
		key := strings.ToLower(name)
		if n, ok := seen[key]; ok {
			ext := filepath.Ext(name)
			base := strings.TrimSuffix(name, ext)
			for {
				n++
				candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
				if _, taken := seen[strings.ToLower(candidate)]; !taken {
					seen[key] = n
					name = candidate
					key = strings.ToLower(candidate)
					break
				}
			}
		}
		seen[key] = 0
		names[i] = name
	}
	return names
}

func cleanName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		name = "image.png"
	}
	return name
}
