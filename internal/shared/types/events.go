package types

// Application lifecycle topics published on the global bus
const (
	EventAppRegistered   = "app.registered"
	EventAppUnregistered = "app.unregistered"
	EventAppLaunched     = "app.launched"
	EventAppActivated    = "app.activated"
	EventAppTerminated   = "app.terminated"
)

// EventClipboardChanged fires on every clipboard copy or clear
const EventClipboardChanged = "clipboard.changed"

// AppEvent is the payload carried by application lifecycle topics
type AppEvent struct {
	AppID  string `json:"app_id"`
	TaskID string `json:"task_id,omitempty"`
}
