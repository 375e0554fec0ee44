// Package ws streams injection delivery reports to websocket subscribers.
//
// Stream is registered with the navigation hub as a Reporter and mounted on
// the control API at /v1/events. Each subscriber gets a bounded queue; a
// subscriber that falls behind misses frames instead of slowing the hub.
//
// Frames:
//
//	{"type":"system","message":"...","timestamp":...}
//	{"type":"delivery","delivery":{...},"timestamp":...}
//	{"type":"pong","timestamp":...}
package ws
