package models

import "encoding/json"

// CommandType names one inbound player command.
type CommandType string

const (
	CmdJoin             CommandType = "join"
	CmdStart            CommandType = "start"
	CmdRevealInitial    CommandType = "reveal-initial-card"
	CmdPickFromDraw     CommandType = "pick-from-draw"
	CmdPickFromDiscard  CommandType = "pick-from-discard"
	CmdReplaceCard      CommandType = "replace-card"
	CmdDiscardSelected  CommandType = "discard-selected-card"
	CmdTurnCard         CommandType = "turn-card"
	CmdToggleReplay     CommandType = "toggle-replay"
	CmdChangeSettings   CommandType = "change-settings"
	CmdInitiateKickVote CommandType = "initiate-kick-vote"
	CmdCastKickVote     CommandType = "cast-kick-vote"
	CmdLeave            CommandType = "leave"
)

// GameAction is the wire envelope for a single player command.
type GameAction struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CardPosition addresses one cell in a player's grid.
type CardPosition struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// VotePayload carries a kick-vote ballot or initiation target.
type VotePayload struct {
	TargetID string `json:"targetId,omitempty"`
	Vote     bool   `json:"vote"`
}
