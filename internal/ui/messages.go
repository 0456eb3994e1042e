package ui

import "vidtrack/internal/engine"

type snapshotMsg struct {
	S engine.Snapshot
}

type startResultMsg struct {
	Err error
}

type feedClosedMsg struct{}
