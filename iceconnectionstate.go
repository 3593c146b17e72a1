// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtc

import "github.com/sansio/rtc/internal/ice"

// ICEConnectionState mirrors internal/ice.ConnectionState on the public
// surface (spec §4.8 event taxonomy: EventICEConnectionStateChange).
type ICEConnectionState int

const (
	ICEConnectionStateNew ICEConnectionState = iota + 1
	ICEConnectionStateChecking
	ICEConnectionStateConnected
	ICEConnectionStateCompleted
	ICEConnectionStateDisconnected
	ICEConnectionStateFailed
	ICEConnectionStateClosed
)

func NewICEConnectionState(raw string) ICEConnectionState {
	switch raw {
	case "new":
		return ICEConnectionStateNew
	case "checking":
		return ICEConnectionStateChecking
	case "connected":
		return ICEConnectionStateConnected
	case "completed":
		return ICEConnectionStateCompleted
	case "disconnected":
		return ICEConnectionStateDisconnected
	case "failed":
		return ICEConnectionStateFailed
	case "closed":
		return ICEConnectionStateClosed
	default:
		return ICEConnectionState(Unknown)
	}
}

func (c ICEConnectionState) String() string {
	switch c {
	case ICEConnectionStateNew:
		return "new"
	case ICEConnectionStateChecking:
		return "checking"
	case ICEConnectionStateConnected:
		return "connected"
	case ICEConnectionStateCompleted:
		return "completed"
	case ICEConnectionStateDisconnected:
		return "disconnected"
	case ICEConnectionStateFailed:
		return "failed"
	case ICEConnectionStateClosed:
		return "closed"
	default:
		return ErrUnknownType.Error()
	}
}

// iceConnectionStateFromAgent maps internal/ice's connection state onto
// the public enum (spec §3 "ICE connection state").
func iceConnectionStateFromAgent(s ice.ConnectionState) ICEConnectionState {
	switch s {
	case ice.ConnectionNew:
		return ICEConnectionStateNew
	case ice.ConnectionChecking:
		return ICEConnectionStateChecking
	case ice.ConnectionConnected:
		return ICEConnectionStateConnected
	case ice.ConnectionCompleted:
		return ICEConnectionStateCompleted
	case ice.ConnectionDisconnected:
		return ICEConnectionStateDisconnected
	case ice.ConnectionFailed:
		return ICEConnectionStateFailed
	case ice.ConnectionClosed:
		return ICEConnectionStateClosed
	default:
		return ICEConnectionState(Unknown)
	}
}
