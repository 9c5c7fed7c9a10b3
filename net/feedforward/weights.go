package feedforward

import "bufio"
import "bytes"
import "compress/lzw"
import "encoding/binary"
import "errors"
import "fmt"
import "io"

var weightsMagic = [4]byte{'N', 'L', 'W', '1'}

// ExportParameters snapshots all weights into an lzw compressed blob.
func (f *FeedforwardNetwork) ExportParameters() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.WriteCompressedWeights(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImportParameters overwrites all weights from a blob made by ExportParameters.
// The network is left untouched when the blob does not match its layout.
func (f *FeedforwardNetwork) ImportParameters(blob []byte) error {
	return f.ReadCompressedWeights(bytes.NewReader(blob))
}

// WriteCompressedWeights writes model weights to a writer
func (f *FeedforwardNetwork) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	bw := bufio.NewWriter(lw)

	if _, err := bw.Write(weightsMagic[:]); err != nil {
		return err
	}
	var params = f.Parameters()
	if err := writeUvarint(bw, uint64(len(params))); err != nil {
		return err
	}
	var n int
	for _, c := range f.combiners {
		for _, p := range c.Params() {
			name := paramName(n, p)
			if err := writeUvarint(bw, uint64(len(name))); err != nil {
				return err
			}
			if _, err := bw.WriteString(name); err != nil {
				return err
			}
			if err := writeUvarint(bw, uint64(len(p.Value))); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, p.Value); err != nil {
				return err
			}
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return lw.Close()
}

// ReadCompressedWeights reads model weights from a reader
func (f *FeedforwardNetwork) ReadCompressedWeights(r io.Reader) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	br := bufio.NewReader(lr)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return fmt.Errorf("weights header: %w", err)
	}
	if magic != weightsMagic {
		return errors.New("weights header: bad magic")
	}
	count, err := binary.ReadUvarint(br)
	if err != nil {
		return fmt.Errorf("weights count: %w", err)
	}
	var params = f.Parameters()
	if count != uint64(len(params)) {
		return fmt.Errorf("weights hold %d parameters, network has %d", count, len(params))
	}

	// decode everything first so a bad blob never half-updates the network
	var values = make([][]float32, 0, len(params))
	var n int
	for _, c := range f.combiners {
		for _, p := range c.Params() {
			want := paramName(n, p)
			nameLen, err := binary.ReadUvarint(br)
			if err != nil {
				return fmt.Errorf("weights %s: %w", want, err)
			}
			if nameLen != uint64(len(want)) {
				return fmt.Errorf("weights: unexpected parameter name length %d, want %s", nameLen, want)
			}
			name := make([]byte, nameLen)
			if _, err := io.ReadFull(br, name); err != nil {
				return fmt.Errorf("weights %s: %w", want, err)
			}
			if string(name) != want {
				return fmt.Errorf("weights: parameter %q, want %q", name, want)
			}
			size, err := binary.ReadUvarint(br)
			if err != nil {
				return fmt.Errorf("weights %s: %w", want, err)
			}
			if size != uint64(len(p.Value)) {
				return fmt.Errorf("weights %s: %d values, want %d", want, size, len(p.Value))
			}
			v := make([]float32, size)
			if err := binary.Read(br, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("weights %s: %w", want, err)
			}
			values = append(values, v)
		}
		n++
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return errors.New("weights: trailing data")
	}
	for i, p := range params {
		copy(p.Value, values[i])
	}
	return nil
}

func writeUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	_, err := w.Write(buf[:binary.PutUvarint(buf[:], v)])
	return err
}
