package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	nonceLen      = chacha20poly1305.NonceSize
	maxPacketSize = 2 * 1024 * 1024
)

// Conn seals every Write into one frame: length[4] nonce[12] ciphertext.
// The nonce is a big-endian send counter.
type Conn struct {
	net.Conn
	aead cipher.AEAD

	wmu     sync.Mutex
	sendCtr uint64

	rmu     sync.Mutex
	recvBuf bytes.Buffer
}

func WrapConn(conn net.Conn, sessionKey []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead}, nil
}

func (s *Conn) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	frame := make([]byte, 4+nonceLen, 4+nonceLen+len(p)+s.aead.Overhead())
	binary.BigEndian.PutUint64(frame[4+nonceLen-8:4+nonceLen], s.sendCtr)
	s.sendCtr++
	frame = s.aead.Seal(frame, frame[4:4+nonceLen], p, nil)
	binary.BigEndian.PutUint32(frame[:4], uint32(len(frame)-4))

	if _, err := s.Conn.Write(frame); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Conn) Read(p []byte) (int, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length < nonceLen || length > maxPacketSize {
			return 0, fmt.Errorf("encrypted frame length %d out of range", length)
		}
		pkt := make([]byte, length)
		if _, err := io.ReadFull(s.Conn, pkt); err != nil {
			return 0, err
		}
		pt, err := s.aead.Open(pkt[nonceLen:nonceLen], pkt[:nonceLen], pkt[nonceLen:], nil)
		if err != nil {
			return 0, err
		}
		s.recvBuf.Write(pt)
	}
	return s.recvBuf.Read(p)
}
