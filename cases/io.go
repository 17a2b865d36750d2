package cases

import (
	"bytes"
	"io"
)

// Reader splits newline-delimited JSON into lines, skipping blank lines and
// lines starting with '#'.
type Reader struct {
	buf         [4096]byte
	unprocessed []byte

	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) fillUnprocessed() error {
	n, err := r.r.Read(r.buf[:])
	r.unprocessed = r.buf[:n]
	if n > 0 && err == io.EOF {
		return nil
	}
	return err
}

// ReadNext uses p as the line buffer, allocating when needed.
func (r *Reader) ReadNext(p []byte) ([]byte, error) {
	for {
		line, err := r.readLine(p[:0])
		if err != nil {
			return line, err
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || trimmed[0] == '#' {
			p = line
			continue
		}
		return line, nil
	}
}

func (r *Reader) readLine(p []byte) ([]byte, error) {
	for {
		if len(r.unprocessed) == 0 {
			err := r.fillUnprocessed()
			if err == io.EOF && len(p) > 0 {
				return p, nil
			}
			if err != nil {
				return p, err
			}
		}

		index := bytes.IndexByte(r.unprocessed, '\n')
		if index != -1 {
			p = append(p, r.unprocessed[:index]...)
			r.unprocessed = r.unprocessed[index+1:]
			return p, nil
		}

		p = append(p, r.unprocessed...)
		r.unprocessed = nil
	}
}
