package checkpoint

import "bytes"
import "crypto/sha256"
import "encoding/binary"
import "errors"
import "math"

var magic = [4]byte{'N', 'L', 'C', 'K'}

// Version is the codec version written by Encode.
const Version uint16 = 1

const (
	headerLen   = 4 + 2 + 8 + 8
	checksumLen = sha256.Size
	minLen      = headerLen + 8 + 8 + checksumLen
)

// Encode serializes a state into a self-checking blob. The blobs are copied
// as is and never interpreted.
func Encode(s *TrainingState) ([]byte, error) {
	if s == nil {
		return nil, errors.New("encode checkpoint: nil state")
	}
	if s.Epoch < 0 {
		return nil, errors.New("encode checkpoint: negative epoch")
	}
	var buf bytes.Buffer
	buf.Grow(minLen + len(s.ModelParameters) + len(s.OptimizerState))
	buf.Write(magic[:])

	var scratch [8]byte
	binary.LittleEndian.PutUint16(scratch[:2], Version)
	buf.Write(scratch[:2])
	binary.LittleEndian.PutUint64(scratch[:], uint64(s.Epoch))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(s.Loss))
	buf.Write(scratch[:])
	for _, blob := range [][]byte{s.ModelParameters, s.OptimizerState} {
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(blob)))
		buf.Write(scratch[:])
		buf.Write(blob)
	}
	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode. Any structural problem is reported as an
// error matching ErrCorrupt.
func Decode(blob []byte) (*TrainingState, error) {
	if len(blob) < minLen {
		return nil, corrupt("%d bytes is shorter than the minimal %d", len(blob), minLen)
	}
	if !bytes.Equal(blob[:4], magic[:]) {
		return nil, corrupt("bad magic %q", blob[:4])
	}
	if v := binary.LittleEndian.Uint16(blob[4:6]); v != Version {
		return nil, corrupt("unsupported version %d", v)
	}
	body, sum := blob[:len(blob)-checksumLen], blob[len(blob)-checksumLen:]
	if want := sha256.Sum256(body); !bytes.Equal(sum, want[:]) {
		return nil, corrupt("checksum mismatch")
	}

	epoch := binary.LittleEndian.Uint64(body[6:14])
	if epoch > math.MaxInt {
		return nil, corrupt("epoch %d out of range", epoch)
	}
	s := &TrainingState{
		Epoch: int(epoch),
		Loss:  math.Float64frombits(binary.LittleEndian.Uint64(body[14:22])),
	}
	rest := body[headerLen:]
	for _, dst := range []*[]byte{&s.ModelParameters, &s.OptimizerState} {
		if len(rest) < 8 {
			return nil, corrupt("missing blob length")
		}
		n := binary.LittleEndian.Uint64(rest[:8])
		rest = rest[8:]
		if n > uint64(len(rest)) {
			return nil, corrupt("blob of %d bytes runs past the end", n)
		}
		if n > 0 {
			*dst = append([]byte(nil), rest[:n]...)
		}
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return nil, corrupt("%d trailing bytes", len(rest))
	}
	return s, nil
}
