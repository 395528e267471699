package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Alia5/PadBridge/apitypes"
)

// Handshake layout:
//
//	client -> server: "eVI1\x00" nonce[32] hmac(key, authContext|nonce)[32]
//	server -> client: "OK\x00" nonce[32], or a problem+json line on failure
const (
	HandshakeMagic = "eVI1\x00"
	NonceSize      = 32
	authContext    = "VIIPER-Auth-v1"
	okPrefix       = "OK\x00"
)

var ErrInvalidPassword = errors.New("invalid password")

// IsHandshake reports whether the buffered stream starts with the handshake magic.
func IsHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(HandshakeMagic))
	if err != nil {
		return false, err
	}
	return string(b) == HandshakeMagic, nil
}

// Accept runs the server side of the handshake on a stream that starts with
// the magic. On success the returned conn encrypts everything after the
// handshake. Bytes already buffered in r are part of the handshake only.
func Accept(conn net.Conn, r *bufio.Reader, key []byte) (net.Conn, error) {
	clientNonce, err := readClientHello(r, key)
	if err != nil {
		return nil, err
	}
	serverNonce, err := writeServerHello(conn)
	if err != nil {
		return nil, err
	}
	return WrapConn(&bufferedConn{Conn: conn, r: r}, DeriveSessionKey(key, serverNonce, clientNonce))
}

// Dial runs the client side of the handshake with password and returns the
// encrypted conn. A server refusal is returned as *apitypes.ApiError.
func Dial(conn net.Conn, password string) (net.Conn, error) {
	key, err := DeriveKey(password)
	if err != nil {
		return nil, err
	}
	clientNonce := make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, fmt.Errorf("generate client nonce: %w", err)
	}
	msg := append([]byte(HandshakeMagic), clientNonce...)
	msg = append(msg, clientMAC(key, clientNonce)...)
	if _, err := conn.Write(msg); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	r := bufio.NewReader(conn)
	prefix := make([]byte, len(okPrefix))
	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.EOF) {
			// servers drop the connection on a bad password
			return nil, &apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: ErrInvalidPassword.Error()}
		}
		return nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != okPrefix {
		rest, _ := io.ReadAll(r)
		line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")
		var apiErr apitypes.ApiError
		if err := json.Unmarshal([]byte(line), &apiErr); err == nil && (apiErr.Status != 0 || apiErr.Title != "") {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("invalid handshake response from server: %s", line)
	}
	serverNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, fmt.Errorf("read server nonce: %w", err)
	}
	return WrapConn(&bufferedConn{Conn: conn, r: r}, DeriveSessionKey(key, serverNonce, clientNonce))
}

func readClientHello(r *bufio.Reader, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("handshake: missing key")
	}
	if _, err := r.Discard(len(HandshakeMagic)); err != nil {
		return nil, fmt.Errorf("discard handshake magic: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, fmt.Errorf("read client nonce: %w", err)
	}
	mac := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, mac); err != nil {
		return nil, fmt.Errorf("read client auth: %w", err)
	}
	if !hmac.Equal(mac, clientMAC(key, nonce)) {
		return nil, ErrInvalidPassword
	}
	return nonce, nil
}

func writeServerHello(w io.Writer) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate server nonce: %w", err)
	}
	if _, err := w.Write(append([]byte(okPrefix), nonce...)); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return nonce, nil
}

func clientMAC(key, nonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(nonce)
	return mac.Sum(nil)
}

// bufferedConn reads through a bufio.Reader that may already hold bytes
// received right after the handshake.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }
