package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// MaxBodyBytes caps request bodies read by DecodeJSON
const MaxBodyBytes = 1 << 20

// BufferPool pools bytes.Buffer for JSON encoding of API responses
var BufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves a bytes.Buffer from the pool
func GetBuffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a bytes.Buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	// Don't pool buffers that grew too large (>64KB)
	if buf.Cap() > 64*1024 {
		return
	}
	buf.Reset()
	BufferPool.Put(buf)
}

// EncodeJSON encodes v to JSON using a pooled buffer
func EncodeJSON(v interface{}) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}

	// Copy the buffer contents since we're returning the buffer to the pool
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// WriteJSON encodes v and writes it with status. Encoding happens before
// the header is sent so a failure can still become a 500.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		http.Error(w, `{"code":"INTERNAL_ERROR","message":"failed to encode response"}`, http.StatusInternalServerError)
		return fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// DecodeJSON strictly decodes a single JSON object from r into v
func DecodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
