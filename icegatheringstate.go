// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtc

import "github.com/sansio/rtc/internal/ice"

// ICEGatheringState mirrors internal/ice.GatheringState on the public
// surface (spec §4.8 event taxonomy: EventICEGatheringStateChange).
type ICEGatheringState int

const (
	ICEGatheringStateUnknown ICEGatheringState = iota
	ICEGatheringStateNew
	ICEGatheringStateGathering
	ICEGatheringStateComplete
)

func NewICEGatheringState(raw string) ICEGatheringState {
	switch raw {
	case "new":
		return ICEGatheringStateNew
	case "gathering":
		return ICEGatheringStateGathering
	case "complete":
		return ICEGatheringStateComplete
	default:
		return ICEGatheringStateUnknown
	}
}

func (s ICEGatheringState) String() string {
	switch s {
	case ICEGatheringStateNew:
		return "new"
	case ICEGatheringStateGathering:
		return "gathering"
	case ICEGatheringStateComplete:
		return "complete"
	default:
		return ErrUnknownType.Error()
	}
}

func iceGatheringStateFromAgent(s ice.GatheringState) ICEGatheringState {
	switch s {
	case ice.GatheringNew:
		return ICEGatheringStateNew
	case ice.GatheringGathering:
		return ICEGatheringStateGathering
	case ice.GatheringComplete:
		return ICEGatheringStateComplete
	default:
		return ICEGatheringStateUnknown
	}
}
