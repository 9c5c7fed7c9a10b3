package cifar10

import "archive/tar"
import "compress/gzip"
import "context"
import "crypto/md5"
import "errors"
import "fmt"
import "io"
import "net/http"
import "os"
import "path"
import "path/filepath"
import "strings"

// ArchiveURL is the location of the binary archive.
var ArchiveURL = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"

// ArchiveMD5 is the published checksum of the archive.
var ArchiveMD5 = "c32a1d4ab5d03f1284b67883e8d87530"

var ErrChecksum = errors.New("cifar10: archive checksum mismatch")

// Ensure makes the batch files available under dataDir. When they are
// missing and download is set, the archive is fetched, verified and
// unpacked. It reports whether a download happened.
func Ensure(ctx context.Context, dataDir string, download bool) (bool, error) {
	if Present(dataDir) {
		return false, nil
	}
	if !download {
		return false, fmt.Errorf("%w under %s", ErrMissing, dataDir)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return false, fmt.Errorf("cifar10: %w", err)
	}
	archive, err := fetch(ctx, dataDir)
	if err != nil {
		return false, err
	}
	defer os.Remove(archive)
	if err := extract(archive, dataDir); err != nil {
		return false, err
	}
	if !Present(dataDir) {
		return true, fmt.Errorf("%w after unpacking %s", ErrMissing, ArchiveURL)
	}
	return true, nil
}

// fetch downloads the archive into a temporary file in dir and verifies it.
func fetch(ctx context.Context, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ArchiveURL, nil)
	if err != nil {
		return "", fmt.Errorf("cifar10: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cifar10: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cifar10: download %s: %s", ArchiveURL, resp.Status)
	}

	f, err := os.CreateTemp(dir, ".cifar-10-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("cifar10: %w", err)
	}
	h := md5.New()
	_, err = io.Copy(io.MultiWriter(f, h), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("cifar10: download: %w", err)
	}
	if sum := fmt.Sprintf("%x", h.Sum(nil)); sum != ArchiveMD5 {
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: got %s, want %s", ErrChecksum, sum, ArchiveMD5)
	}
	return f.Name(), nil
}

// extract unpacks the regular files of the batches directory.
func extract(archive, dataDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("cifar10: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("cifar10: gzip: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Join(dataDir, BatchesDir), 0o755); err != nil {
		return fmt.Errorf("cifar10: %w", err)
	}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cifar10: tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Clean(hdr.Name)
		dir, base := path.Split(name)
		if strings.TrimSuffix(dir, "/") != BatchesDir || strings.HasPrefix(base, ".") {
			continue
		}
		if err := writeFile(filepath.Join(dataDir, BatchesDir, base), tr); err != nil {
			return err
		}
	}
}

func writeFile(dst string, r io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cifar10: %w", err)
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("cifar10: unpack %s: %w", dst, err)
	}
	return nil
}
