// Package notify fans build notifications out to connected clients.
package notify

import (
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
)

// EventType discriminates Event.
type EventType string

const (
	EventReload        EventType = "reload"
	EventError         EventType = "error"
	EventBuildStart    EventType = "build-start"
	EventBuildComplete EventType = "build-complete"
	EventPluginsList   EventType = "plugins-list"
)

// Event is the message sent over every notification transport.
type Event struct {
	Type     EventType     `json:"type"`
	PluginID string        `json:"pluginId,omitempty"`
	Error    string        `json:"error,omitempty"`
	Plugins  []plugin.View `json:"plugins,omitempty"`
}

func BuildStart(id string) Event    { return Event{Type: EventBuildStart, PluginID: id} }
func BuildComplete(id string) Event { return Event{Type: EventBuildComplete, PluginID: id} }
func Reload(id string) Event        { return Event{Type: EventReload, PluginID: id} }

func Error(id, msg string) Event {
	return Event{Type: EventError, PluginID: id, Error: msg}
}

// PluginsList carries a full snapshot. A nil slice is sent as an empty list.
func PluginsList(views []plugin.View) Event {
	if views == nil {
		views = []plugin.View{}
	}
	return Event{Type: EventPluginsList, Plugins: views}
}
