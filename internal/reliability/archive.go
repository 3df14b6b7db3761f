package reliability

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	archivePrefix     = "agrisage-backup-"
	archiveTimeLayout = "2006-01-02-150405"
	manifestFilename  = "manifest.json"
)

// Manifest travels inside every archive and pins what the archive holds.
// Restore refuses any archive whose contents disagree with it.
type Manifest struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Databases []ArchiveEntry `json:"databases"`
}

// ArchiveEntry records one database file inside an archive.
type ArchiveEntry struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// archiveName builds the remote key for an archive created at t.
func archiveName(t time.Time) string {
	return archivePrefix + t.UTC().Format(archiveTimeLayout) + ".tar.gz"
}

// parseArchiveTime extracts the creation time from an archive filename.
func parseArchiveTime(filename string) (time.Time, bool) {
	if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
		return time.Time{}, false
	}

	stamp := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
	t, err := time.Parse(archiveTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// checksumFile returns the SHA-256 of a file as "sha256:<hex>".
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// writeManifest writes the manifest JSON next to the snapshots.
func writeManifest(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// readManifest loads a manifest extracted from an archive.
func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// writeArchive packs the named files from sourceDir into a tar.gz at archivePath.
func writeArchive(archivePath, sourceDir string, filenames []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	for _, filename := range filenames {
		if err := addFileToArchive(tw, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}

	return nil
}

// addFileToArchive adds a single file to a tar archive.
func addFileToArchive(tw *tar.Writer, filePath, nameInArchive string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if _, err := io.Copy(tw, f); err != nil {
		return err
	}

	return nil
}

// extractArchive unpacks a tar.gz into destDir. Entry names are flattened to
// their base name, so an archive cannot write outside destDir.
func extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read archive compression: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := filepath.Base(header.Name)
		if name == "." || name == ".." || name == "/" {
			continue
		}

		dest := filepath.Join(destDir, name)
		out, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("failed to extract %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("failed to finish %s: %w", name, err)
		}
	}
}
