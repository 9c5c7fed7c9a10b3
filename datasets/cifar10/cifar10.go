// Package cifar10 loads the CIFAR-10 binary batches, downloading them on demand
package cifar10

import "bytes"
import "errors"
import "fmt"
import "math/rand"
import "os"
import "path/filepath"

// BatchesDir is the directory the binary archive unpacks to.
const BatchesDir = "cifar-10-batches-bin"

const Size = 32
const Channels = 3
const Classes = 10

// ImageLen is the number of bytes of one image: three 32x32 planes, R, G, B.
const ImageLen = Channels * Size * Size

// RecordLen is one label byte followed by one image.
const RecordLen = 1 + ImageLen

// Padding is the zero padding of the random crop.
const Padding = 4

var TrainFiles = []string{
	"data_batch_1.bin",
	"data_batch_2.bin",
	"data_batch_3.bin",
	"data_batch_4.bin",
	"data_batch_5.bin",
}

var TestFiles = []string{"test_batch.bin"}

// Labels are the class names, indexed by label.
var Labels = [Classes]string{
	"airplane", "automobile", "bird", "cat", "deer",
	"dog", "frog", "horse", "ship", "truck",
}

var ErrMissing = errors.New("cifar10: dataset files missing")

// Set is a decoded CIFAR-10 split. It satisfies datasets.Samples.
type Set struct {
	images []byte
	labels []byte

	// Augment enables the random horizontal flip and padded random crop.
	Augment bool
}

// Len returns the number of images.
func (s *Set) Len() int {
	return len(s.labels)
}

// Shape returns [3, 32, 32].
func (s *Set) Shape() []int {
	return []int{Channels, Size, Size}
}

// Label returns the label of image i.
func (s *Set) Label(i int) int {
	return int(s.labels[i])
}

// Sample writes image i, normalized to [-1, 1], into dst.
func (s *Set) Sample(i int, rng *rand.Rand, dst []float32) int {
	img := s.images[i*ImageLen : (i+1)*ImageLen]
	var dx, dy int
	var flip bool
	if s.Augment && rng != nil {
		flip = rng.Intn(2) == 1
		dy = rng.Intn(2*Padding+1) - Padding
		dx = rng.Intn(2*Padding+1) - Padding
	}
	for c := 0; c < Channels; c++ {
		plane := img[c*Size*Size : (c+1)*Size*Size]
		out := dst[c*Size*Size : (c+1)*Size*Size]
		for y := 0; y < Size; y++ {
			sy := y + dy
			for x := 0; x < Size; x++ {
				sx := x + dx
				if sy < 0 || sy >= Size || sx < 0 || sx >= Size {
					out[y*Size+x] = normalize(0)
					continue
				}
				if flip {
					sx = Size - 1 - sx
				}
				out[y*Size+x] = normalize(plane[sy*Size+sx])
			}
		}
	}
	return int(s.labels[i])
}

// normalize maps a pixel to (p/255 - 0.5) / 0.5
func normalize(p byte) float32 {
	return float32(p)/127.5 - 1
}

// Present reports whether every batch file exists under dataDir.
func Present(dataDir string) bool {
	for _, name := range append(append([]string{}, TrainFiles...), TestFiles...) {
		if _, err := os.Stat(filepath.Join(dataDir, BatchesDir, name)); err != nil {
			return false
		}
	}
	return true
}

// Train loads the five training batches.
func Train(dataDir string) (*Set, error) {
	return Load(dataDir, TrainFiles...)
}

// Test loads the test batch.
func Test(dataDir string) (*Set, error) {
	return Load(dataDir, TestFiles...)
}

// Load decodes the named batch files under dataDir/cifar-10-batches-bin.
func Load(dataDir string, files ...string) (*Set, error) {
	var images, labels bytes.Buffer
	for _, name := range files {
		path := filepath.Join(dataDir, BatchesDir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		if err != nil {
			return nil, fmt.Errorf("cifar10: read %s: %w", path, err)
		}
		if len(data)%RecordLen != 0 {
			return nil, fmt.Errorf("cifar10: %s: size %d is not a multiple of %d", path, len(data), RecordLen)
		}
		for off := 0; off < len(data); off += RecordLen {
			if data[off] >= Classes {
				return nil, fmt.Errorf("cifar10: %s: record %d has label %d", path, off/RecordLen, data[off])
			}
			labels.WriteByte(data[off])
			images.Write(data[off+1 : off+RecordLen])
		}
	}
	return &Set{images: images.Bytes(), labels: labels.Bytes()}, nil
}
