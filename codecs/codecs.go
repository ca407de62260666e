// Package codecs compresses values held by the read cache. Encoded values
// carry a leading byte identifying their Codec, so values written under one
// configured Codec remain readable after the configuration changes.
package codecs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Codec names a compression codec.
type Codec string

const (
	None   Codec = "none"
	Gzip   Codec = "gzip"
	Snappy Codec = "snappy"
	Zstd   Codec = "zstd"
)

var headers = map[Codec]byte{None: 0, Gzip: 1, Snappy: 2, Zstd: 3}

// Validate returns an error if the Codec is not known.
func (c Codec) Validate() error {
	if _, ok := headers[c]; !ok {
		return fmt.Errorf("unsupported codec %q", string(c))
	}
	return nil
}

// Encode |value| with Codec |c|.
func Encode(c Codec, value []byte) ([]byte, error) {
	var header, ok = headers[c]
	if !ok {
		return nil, fmt.Errorf("unsupported codec %q", string(c))
	}
	var buf bytes.Buffer
	buf.WriteByte(header)

	var w, err = newWriter(&buf, c)
	if err != nil {
		return nil, err
	} else if _, err = w.Write(value); err != nil {
		return nil, errors.WithMessagef(err, "%s write", c)
	} else if err = w.Close(); err != nil {
		return nil, errors.WithMessagef(err, "%s close", c)
	}
	return buf.Bytes(), nil
}

// Decode a |value| produced by Encode.
func Decode(value []byte) ([]byte, error) {
	if len(value) == 0 {
		return nil, errors.New("empty encoded value")
	}
	var r, err = newReader(bytes.NewReader(value[1:]), value[0])
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithMessage(err, "decoding value")
	}
	return out, nil
}

func newWriter(w io.Writer, c Codec) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported codec %q", string(c))
	}
}

func newReader(r io.Reader, header byte) (io.ReadCloser, error) {
	switch header {
	case headers[None]:
		return io.NopCloser(r), nil
	case headers[Gzip]:
		return gzip.NewReader(r)
	case headers[Snappy]:
		return io.NopCloser(snappy.NewReader(r)), nil
	case headers[Zstd]:
		var d, err = zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unknown codec header %d", header)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
