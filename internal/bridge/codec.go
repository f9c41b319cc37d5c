// Package bridge speaks the browser's native messaging protocol: each
// message is a 32-bit length in native byte order followed by that many
// bytes of UTF-8 JSON.
package bridge

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/notifier"
)

const (
	// Browsers reject host messages above 1 MiB.
	maxOutboundSize = 1 << 20
	maxInboundSize  = 64 << 20
)

var ErrFrameTooLarge = errors.New("native message exceeds size limit")

// Envelope kinds sent by the extension.
const (
	KindDomainObserved  = "domainObserved"
	KindWindowFocusLost = "windowFocusLost"
	KindIdleChanged     = "idleChanged"
	KindStorageChanged  = "storageChanged"
	KindMessage         = "message"
	KindResult          = "result"
)

// Envelope kinds sent by the host.
const (
	KindGetRules    = "getRules"
	KindUpdateRules = "updateRules"
	KindNotify      = "notify"
	KindResponse    = "response"
)

// Envelope is the single JSON shape carried in both directions. Kind
// selects which of the other fields are set.
type Envelope struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`

	URL   string   `json:"url,omitempty"`
	State string   `json:"state,omitempty"`
	Keys  []string `json:"keys,omitempty"`

	Message  *models.Message  `json:"message,omitempty"`
	Response *models.Response `json:"response,omitempty"`

	Rules         []models.Rule `json:"rules,omitempty"`
	RemoveRuleIDs []int         `json:"removeRuleIds,omitempty"`
	AddRules      []models.Rule `json:"addRules,omitempty"`

	Notification *notifier.Notification `json:"notification,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// ReadFrame reads one length-prefixed message.
func ReadFrame(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.NativeEndian, &size); err != nil {
		return nil, err
	}
	if size > maxInboundSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	return buf, nil
}

// WriteFrame writes payload with its length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxOutboundSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 4+len(payload))
	binary.NativeEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

func ReadEnvelope(r io.Reader) (Envelope, error) {
	raw, err := ReadFrame(r)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid native message: %w", err)
	}
	return env, nil
}

func WriteEnvelope(w io.Writer, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return WriteFrame(w, raw)
}
