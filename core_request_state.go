/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

// RequestState is one of the states in the transition table of spec §4.2.
type RequestState int

const (
	StateNew RequestState = iota
	StateQueued
	StatePayloadIn
	StateProcessing
	StateSubmittedResponse
	StateReadyToRespond
	StateSentResponse
	StatePayloadOut
	StateFinished
	StateAborted
)

func (s RequestState) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateQueued:
		return "Queued"
	case StatePayloadIn:
		return "PayloadIn"
	case StateProcessing:
		return "Processing"
	case StateSubmittedResponse:
		return "SubmittedResponse"
	case StateReadyToRespond:
		return "ReadyToRespond"
	case StateSentResponse:
		return "SentResponse"
	case StatePayloadOut:
		return "PayloadOut"
	case StateFinished:
		return "Finished"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is Finished or Aborted — no further
// transition is legal from a terminal state.
func (s RequestState) IsTerminal() bool {
	return s == StateFinished || s == StateAborted
}

// validTransitions enumerates spec §4.2's table. Aborted is reachable from
// any non-terminal state and is checked separately in setState.
var validTransitions = map[RequestState][]RequestState{
	StateNew:                {StateQueued},
	StateQueued:              {StatePayloadIn, StateProcessing},
	StatePayloadIn:           {StateProcessing, StateSubmittedResponse},
	StateProcessing:          {StateSubmittedResponse},
	StateSubmittedResponse:   {StateReadyToRespond},
	StateReadyToRespond:      {StateSentResponse},
	StateSentResponse:        {StatePayloadOut, StateFinished},
	StatePayloadOut:          {StateFinished},
}

func canTransition(from, to RequestState) bool {
	if to == StateAborted {
		return !from.IsTerminal()
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
