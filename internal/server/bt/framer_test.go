package bt

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader, max int) ([]string, error) {
	t.Helper()
	fr := newFramer(r, max)
	var out []string
	for {
		p, err := fr.Next()
		if err != nil {
			return out, err
		}
		out = append(out, string(p))
	}
}

func TestFramer(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		max         int
		expected    []string
		expectedErr error
	}{
		{
			name:        "back to back objects",
			input:       `{"action":"a"}{"action":"b"}`,
			expected:    []string{`{"action":"a"}`, `{"action":"b"}`},
			expectedErr: io.EOF,
		},
		{
			name:        "newline separated with whitespace",
			input:       "{\"action\":\"a\"}\r\n  {\"action\":\"b\"}\n",
			expected:    []string{`{"action":"a"}`, `{"action":"b"}`},
			expectedErr: io.EOF,
		},
		{
			name:        "braces inside strings",
			input:       `{"action":"}{","controllerName":"a \"{quoted}\" \\"}`,
			expected:    []string{`{"action":"}{","controllerName":"a \"{quoted}\" \\"}`},
			expectedErr: io.EOF,
		},
		{
			name:        "nested objects",
			input:       `{"a":{"b":{}}}{"c":1}`,
			expected:    []string{`{"a":{"b":{}}}`, `{"c":1}`},
			expectedErr: io.EOF,
		},
		{
			name:        "stray text up to newline",
			input:       "hello\n{\"action\":\"a\"}",
			expected:    []string{"hello", `{"action":"a"}`},
			expectedErr: io.EOF,
		},
		{
			name:        "stray text before object",
			input:       `garbage{"action":"a"}`,
			expected:    []string{"garbage", `{"action":"a"}`},
			expectedErr: io.EOF,
		},
		{
			name:        "stray text at end of stream",
			input:       `{"action":"a"}tail`,
			expected:    []string{`{"action":"a"}`, "tail"},
			expectedErr: io.EOF,
		},
		{
			name:        "oversized object is cut and resynchronised",
			input:       `{"action":"xxxxxxxxxxxxxxxxxxxx"}{"action":"b"}`,
			max:         8,
			expected:    []string{`{"action`, `{"action`},
			expectedErr: io.EOF,
		},
		{
			name:        "truncated object at end of stream",
			input:       `{"action":"a"}{"act`,
			expected:    []string{`{"action":"a"}`},
			expectedErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAll(t, strings.NewReader(tt.input), tt.max)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFramerByteAtATime(t *testing.T) {
	got, err := readAll(t, iotest.OneByteReader(strings.NewReader(`{"action":"a"} {"action":"b"}`)), 0)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{`{"action":"a"}`, `{"action":"b"}`}, got)
}

func TestFramerReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := readAll(t, iotest.ErrReader(boom), 0)
	assert.ErrorIs(t, err, boom)
}
