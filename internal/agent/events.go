package agent

import (
	"github.com/julianstephens/eyecare/internal/bridge"
	"github.com/julianstephens/eyecare/internal/models"
)

// Event is anything the agent loop reacts to.
type Event interface {
	event()
}

// DomainObserved reports the URL of the page now in front of the user.
type DomainObserved struct{ URL string }

// WindowFocusLost reports that no browser window has focus.
type WindowFocusLost struct{}

// IdleChanged reports the browser's idle state: active, idle or locked.
type IdleChanged struct{ State string }

type AlarmFired struct{ Name string }

// MessageReceived carries a request from a UI surface. Reply may be nil.
type MessageReceived struct {
	Message models.Message
	Reply   func(models.Response)
}

// StorageChanged lists the store documents another writer changed.
type StorageChanged struct{ Keys []string }

// FlushTick drives periodic crediting and rule retries.
type FlushTick struct{}

func (DomainObserved) event()  {}
func (WindowFocusLost) event() {}
func (IdleChanged) event()     {}
func (AlarmFired) event()      {}
func (MessageReceived) event() {}
func (StorageChanged) event()  {}
func (FlushTick) event()       {}

// fromEnvelope maps an inbound bridge envelope to an event. Message replies
// are routed back through host.
func fromEnvelope(env bridge.Envelope, host *bridge.Host) (Event, bool) {
	switch env.Kind {
	case bridge.KindDomainObserved:
		return DomainObserved{URL: env.URL}, true
	case bridge.KindWindowFocusLost:
		return WindowFocusLost{}, true
	case bridge.KindIdleChanged:
		return IdleChanged{State: env.State}, true
	case bridge.KindStorageChanged:
		return StorageChanged{Keys: env.Keys}, true
	case bridge.KindMessage:
		if env.Message == nil {
			return nil, false
		}
		id := env.ID
		return MessageReceived{
			Message: *env.Message,
			Reply: func(resp models.Response) {
				_ = host.Reply(id, resp)
			},
		}, true
	}
	return nil, false
}
