package activity

import (
	"fmt"
	"time"

	"github.com/imtaco/watch-party/party"
)

const (
	fieldType        = "type"
	fieldRoomID      = "roomId"
	fieldConnID      = "connId"
	fieldDisplayName = "displayName"
	fieldDetail      = "detail"
	fieldAt          = "at"
	fieldNode        = "node"
)

// Encode flattens ev into stream fields, leaving out empty ones.
func Encode(ev party.ActivityEvent, node string) map[string]any {
	values := map[string]any{
		fieldType:   ev.Type,
		fieldRoomID: ev.RoomID,
		fieldAt:     ev.At.UTC().Format(time.RFC3339Nano),
	}
	optional := map[string]string{
		fieldConnID:      ev.ConnID,
		fieldDisplayName: ev.DisplayName,
		fieldDetail:      ev.Detail,
		fieldNode:        node,
	}
	for k, v := range optional {
		if v != "" {
			values[k] = v
		}
	}
	return values
}

// Decode is the inverse of Encode for entries read back from the stream.
func Decode(values map[string]any) (ev party.ActivityEvent, node string) {
	str := func(key string) string {
		v, ok := values[key]
		if !ok {
			return ""
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}

	ev = party.ActivityEvent{
		Type:        str(fieldType),
		RoomID:      str(fieldRoomID),
		ConnID:      str(fieldConnID),
		DisplayName: str(fieldDisplayName),
		Detail:      str(fieldDetail),
	}
	if at, err := time.Parse(time.RFC3339Nano, str(fieldAt)); err == nil {
		ev.At = at
	}
	return ev, str(fieldNode)
}
