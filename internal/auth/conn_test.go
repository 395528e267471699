package auth_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/PadBridge/internal/auth"
)

// bufConn is one direction of a connection backed by a shared buffer.
type bufConn struct {
	net.Conn
	buf *bytes.Buffer
}

func (c bufConn) Read(p []byte) (int, error)  { return c.buf.Read(p) }
func (c bufConn) Write(p []byte) (int, error) { return c.buf.Write(p) }

func sessionKey(t *testing.T, password string) []byte {
	t.Helper()
	key, err := auth.DeriveKey(password)
	require.NoError(t, err)
	return auth.DeriveSessionKey(key, bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 32))
}

func wrap(t *testing.T, buf *bytes.Buffer, key []byte) net.Conn {
	t.Helper()
	c, err := auth.WrapConn(bufConn{buf: buf}, key)
	require.NoError(t, err)
	return c
}

func TestConnRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	key := sessionKey(t, "s3cret")
	w := wrap(t, &wire, key)

	msgs := []string{"controllers/list\x00", `{"controllers":[{"id":"p1"}]}` + "\n"}
	for _, m := range msgs {
		n, err := w.Write([]byte(m))
		require.NoError(t, err)
		assert.Equal(t, len(m), n)
	}
	assert.NotContains(t, wire.String(), "controllers")

	// small reads drain one frame before the next is opened
	r := wrap(t, &wire, key)
	want := msgs[0] + msgs[1]
	got := make([]byte, 0, len(want))
	chunk := make([]byte, 5)
	for len(got) < len(want) {
		n, err := r.Read(chunk)
		require.NoError(t, err)
		got = append(got, chunk[:n]...)
	}
	assert.Equal(t, want, string(got))
}

func TestConnRejects(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(wire *bytes.Buffer)
		readKey string
		wantErr string
	}{
		{
			name:    "different password",
			readKey: "other",
			wantErr: "message authentication failed",
		},
		{
			name: "tampered ciphertext",
			corrupt: func(wire *bytes.Buffer) {
				b := wire.Bytes()
				b[len(b)-1] ^= 0xff
			},
			readKey: "s3cret",
			wantErr: "message authentication failed",
		},
		{
			name: "oversized frame",
			corrupt: func(wire *bytes.Buffer) {
				wire.Reset()
				_ = binary.Write(wire, binary.BigEndian, uint32(0xffffffff))
			},
			readKey: "s3cret",
			wantErr: "out of range",
		},
		{
			name: "short frame",
			corrupt: func(wire *bytes.Buffer) {
				wire.Reset()
				_ = binary.Write(wire, binary.BigEndian, uint32(3))
			},
			readKey: "s3cret",
			wantErr: "out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wire bytes.Buffer
			w := wrap(t, &wire, sessionKey(t, "s3cret"))
			_, err := w.Write([]byte("ping\x00"))
			require.NoError(t, err)
			if tt.corrupt != nil {
				tt.corrupt(&wire)
			}

			r := wrap(t, &wire, sessionKey(t, tt.readKey))
			_, err = r.Read(make([]byte, 16))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWrapConnBadKeyLength(t *testing.T) {
	_, err := auth.WrapConn(bufConn{buf: &bytes.Buffer{}}, []byte{1, 2, 3})
	assert.ErrorContains(t, err, "bad key length")
}

func TestConnPeerClosed(t *testing.T) {
	client, server := net.Pipe()
	key := sessionKey(t, "s3cret")
	r, err := auth.WrapConn(server, key)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	_, err = r.Read(make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)
}
