package bt

import (
	"bufio"
	"io"
)

// framer splits an RFCOMM byte stream into payloads. A payload is either one
// top-level JSON object or, for anything outside an object, the bytes up to
// the next newline or opening brace. Payloads longer than max are cut short
// and the remainder of the object is discarded.
type framer struct {
	r   *bufio.Reader
	max int
}

func newFramer(r io.Reader, max int) *framer {
	if max <= 0 {
		max = 4096
	}
	return &framer{r: bufio.NewReaderSize(r, 1024), max: max}
}

// Next returns the next payload. At end of stream it returns io.EOF; an
// object cut off by the end of the stream is dropped.
func (f *framer) Next() ([]byte, error) {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0:
			continue
		case '{':
			return f.object()
		default:
			return f.stray(b)
		}
	}
}

func (f *framer) object() ([]byte, error) {
	buf := []byte{'{'}
	depth := 1
	inString, escaped := false, false
	for depth > 0 {
		b, err := f.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if len(buf) < f.max {
			buf = append(buf, b)
		}
		switch {
		case escaped:
			escaped = false
		case inString:
			switch b {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case b == '"':
			inString = true
		case b == '{':
			depth++
		case b == '}':
			depth--
		}
	}
	return buf, nil
}

func (f *framer) stray(first byte) ([]byte, error) {
	buf := []byte{first}
	for {
		b, err := f.r.ReadByte()
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
		if b == '\n' {
			return buf, nil
		}
		if b == '{' {
			_ = f.r.UnreadByte()
			return buf, nil
		}
		if len(buf) < f.max {
			buf = append(buf, b)
		}
	}
}
