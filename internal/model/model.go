package model

import (
	"github.com/ladybugteam/ladybug-backend/internal/model/entities"
	"github.com/ladybugteam/ladybug-backend/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	Reading      = entities.Reading
	AlertState   = entities.AlertState
	AlertLevel   = entities.AlertLevel
	FarmLocation = entities.FarmLocation

	Message     = messages.Message
	MessageKind = messages.MessageKind

	StatusMessage   = messages.StatusMessage
	LocationMessage = messages.LocationMessage
	LegacyMessage   = messages.LegacyMessage
	TrapEvent       = messages.TrapEvent
)

const (
	LevelGreen  = entities.LevelGreen
	LevelYellow = entities.LevelYellow
	LevelRed    = entities.LevelRed

	KindStatus   = messages.KindStatus
	KindLocation = messages.KindLocation
	KindLegacy   = messages.KindLegacy

	EventAlert    = messages.EventAlert
	EventLocation = messages.EventLocation
	EventSnapshot = messages.EventSnapshot
)
