// Package archive extracts the spatial imaging archives (tar and zip) shipped
// alongside each sample. Format detection tries the file extension first, then
// magic bytes. A manifest of extracted members marks a directory as complete,
// so the "missing" policy can skip finished extractions without re-reading the
// archive.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotExtractable reports a file that no extractor recognizes.
var ErrNotExtractable = errors.New("file is not extractable")

// ManifestName is written into the extraction directory once every member
// has been extracted. Its presence marks the directory as complete.
const ManifestName = "extracted_files.json"

// Manifest records a completed extraction.
type Manifest struct {
	Source      string   `json:"source"`
	ExtractedAt int64    `json:"extracted_at"`
	Files       []string `json:"files"`
}

type format int

const (
	formatNone format = iota
	formatTar
	formatTarGz
	formatTarBz2
	formatZip
)

var tarExts = map[string]format{
	".tar":     formatTar,
	".tar.gz":  formatTarGz,
	".tgz":     formatTarGz,
	".tar.bz2": formatTarBz2,
	".tbz2":    formatTarBz2,
	".zip":     formatZip,
}

// IsExtractable reports whether path looks like a supported archive by name.
func IsExtractable(path string) bool {
	return detectByName(path) != formatNone
}

func detectByName(path string) format {
	lower := strings.ToLower(path)
	for ext, f := range tarExts {
		if strings.HasSuffix(lower, ext) {
			return f
		}
	}
	// xz tarballs are recognized but unsupported; resolved to an error in Extract.
	return formatNone
}

// detectByMagic sniffs the leading bytes when the extension is unknown.
func detectByMagic(path string) (format, error) {
	f, err := os.Open(path)
	if err != nil {
		return formatNone, err
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		return formatNone, nil // too short to be any archive
	}

	switch {
	case head[0] == 0x1f && head[1] == 0x8b:
		return formatTarGz, nil
	case head[0] == 'B' && head[1] == 'Z' && head[2] == 'h':
		return formatTarBz2, nil
	case head[0] == 'P' && head[1] == 'K' && head[2] == 0x03 && head[3] == 0x04:
		return formatZip, nil
	}

	// Plain tar: "ustar" magic at offset 257.
	magic := make([]byte, 5)
	if _, err := f.ReadAt(magic, 257); err == nil && string(magic) == "ustar" {
		return formatTar, nil
	}
	return formatNone, nil
}

// Extract unpacks the archive at path into destDir and writes the member
// manifest. Existing destination files are overwritten. Returns the list of
// extracted regular files (relative paths).
func Extract(path, destDir string) ([]string, error) {
	f := detectByName(path)
	if f == formatNone {
		if strings.HasSuffix(strings.ToLower(path), ".tar.xz") || strings.HasSuffix(strings.ToLower(path), ".txz") {
			return nil, fmt.Errorf("extract %s: xz archives are not supported", filepath.Base(path))
		}
		var err error
		f, err = detectByMagic(path)
		if err != nil {
			return nil, err
		}
	}
	if f == formatNone {
		return nil, fmt.Errorf("%w: %s", ErrNotExtractable, filepath.Base(path))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}

	var (
		files []string
		err   error
	)
	switch f {
	case formatZip:
		files, err = extractZip(path, destDir)
	default:
		files, err = extractTar(path, destDir, f)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}

	if err := WriteManifest(destDir, path, files); err != nil {
		return nil, err
	}
	return files, nil
}

// ReadManifest loads the extraction manifest from destDir.
// Returns nil, nil when the directory has no (complete) extraction.
func ReadManifest(destDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(destDir, ManifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	return &m, nil
}

// WriteManifest marks destDir as a completed extraction of source.
func WriteManifest(destDir, source string, files []string) error {
	m := Manifest{
		Source:      source,
		ExtractedAt: time.Now().Unix(),
		Files:       files,
	}
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, ManifestName), data, 0644)
}

// safeJoin joins name under destDir, rejecting members that escape it.
func safeJoin(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(destDir, name))
	if cleaned != destDir && !strings.HasPrefix(cleaned, destDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member escapes destination: %q", name)
	}
	return cleaned, nil
}

func extractTar(path, destDir string, f format) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var r io.Reader = fh
	switch f {
	case formatTarGz:
		gz, err := gzip.NewReader(fh)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case formatTarBz2:
		r = bzip2.NewReader(fh)
	}

	var files []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		dest, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return nil, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := writeMember(dest, tr, hdr.FileInfo().Mode()); err != nil {
				return nil, err
			}
			files = append(files, filepath.ToSlash(filepath.Clean(hdr.Name)))
		default:
			// Symlinks and specials are dropped: nothing in the published
			// archives needs them and links are a traversal vector.
		}
	}
	return files, nil
}

func extractZip(path, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var files []string
	for _, member := range zr.File {
		dest, err := safeJoin(destDir, member.Name)
		if err != nil {
			return nil, err
		}

		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return nil, err
			}
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return nil, err
		}
		err = writeMember(dest, rc, member.Mode())
		rc.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(filepath.Clean(member.Name)))
	}
	return files, nil
}

func writeMember(dest string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
