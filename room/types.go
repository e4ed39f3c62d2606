// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package room

// Room protocol request methods.
const (
	MethodJoinRoom             = "joinRoom"
	MethodLeaveRoom            = "leaveRoom"
	MethodPublishVideo         = "publishVideo"
	MethodUnpublishVideo       = "unpublishVideo"
	MethodReceiveVideoFrom     = "receiveVideoFrom"
	MethodUnsubscribeFromVideo = "unsubscribeFromVideo"
	MethodOnIceCandidate       = "onIceCandidate"
	MethodSendMessage          = "sendMessage"
	MethodCustomRequest        = "customRequest"
)

// Server-pushed notification methods.
const (
	EventParticipantJoined      = "participantJoined"
	EventParticipantLeft        = "participantLeft"
	EventParticipantPublished   = "participantPublished"
	EventParticipantUnpublished = "participantUnpublished"
	EventParticipantSendMessage = "sendMessage"
	EventParticipantEvicted     = "participantEvicted"
	EventIceCandidate           = "iceCandidate"
	EventMediaError             = "mediaError"
)

// Response is the successful resolution of a room call, keyed by the
// correlation id the caller supplied when sending it.
type Response struct {
	ID int64

	// Values holds the decoded result object. It is nil when the
	// server returned a non-object result.
	Values map[string]any
}

// Value returns the named result attribute.
func (r *Response) Value(key string) (any, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// Users returns the participant list of a joinRoom response, one map
// per existing participant. It returns nil when the response carries
// no such list.
func (r *Response) Users() []map[string]any {
	list, ok := r.Values["value"].([]any)
	if !ok {
		if list, ok = r.Values["users"].([]any); !ok {
			return nil
		}
	}
	users := make([]map[string]any, 0, len(list))
	for _, u := range list {
		if m, ok := u.(map[string]any); ok {
			users = append(users, m)
		}
	}
	return users
}

// Error is the failed resolution of a room call: either a
// server-reported error, or a local one such as a lost connection.
type Error struct {
	ID int64

	// Code is the server's error code, or zero for local errors.
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Notification is server-pushed room state not correlated to any
// call, such as another participant joining or leaving.
type Notification struct {
	Method string
	Params map[string]any
}

// Param returns the named notification parameter.
func (n *Notification) Param(key string) (any, bool) {
	v, ok := n.Params[key]
	return v, ok
}
