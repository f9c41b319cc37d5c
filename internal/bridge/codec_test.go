package bridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/eyecare/internal/models"
)

func TestFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte(`{"kind":"x"}`)); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	if got := binary.NativeEndian.Uint32(raw[:4]); got != 12 {
		t.Errorf("length prefix = %d, want 12", got)
	}
	if string(raw[4:]) != `{"kind":"x"}` {
		t.Errorf("unexpected body %q", raw[4:])
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Envelope{
		Kind:    KindMessage,
		ID:      "abc",
		Message: &models.Message{Type: models.MsgStartFocusMode, Duration: 25},
	}
	if err := WriteEnvelope(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFrameErrors(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader(nil)); !errors.Is(err, io.EOF) {
		t.Errorf("empty stream: expected io.EOF, got %v", err)
	}

	truncated := make([]byte, 4, 6)
	binary.NativeEndian.PutUint32(truncated, 10)
	truncated = append(truncated, '{', '}')
	if _, err := ReadFrame(bytes.NewReader(truncated)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated body: expected ErrUnexpectedEOF, got %v", err)
	}

	huge := make([]byte, 4)
	binary.NativeEndian.PutUint32(huge, maxInboundSize+1)
	if _, err := ReadFrame(bytes.NewReader(huge)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized frame: expected ErrFrameTooLarge, got %v", err)
	}

	if err := WriteFrame(io.Discard, make([]byte, maxOutboundSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized write: expected ErrFrameTooLarge, got %v", err)
	}
}

func TestReadEnvelopeRejectsBadJSON(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, []byte("not json"))
	if _, err := ReadEnvelope(&buf); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
