package models

import "time"

// Background is the character drawn on cells without a flower
const Background = '.'

// EventType identifies what happened in the garden
type EventType string

const (
	EventPlanted   EventType = "planted"
	EventGrew      EventType = "grew"
	EventBloomed   EventType = "bloomed"
	EventCollected EventType = "collected"
	EventCancelled EventType = "cancelled"
)

// GardenEvent describes a single change to the garden
type GardenEvent struct {
	Type      EventType `json:"type"`
	Position  Position  `json:"position"`
	Symbol    string    `json:"symbol,omitempty"`
	PlantedAt time.Time `json:"planted_at"`
	At        time.Time `json:"at"`
}

// GardenStats summarizes the flower collection
type GardenStats struct {
	Live      int `json:"live"`
	Growing   int `json:"growing"`
	Bloomed   int `json:"bloomed"`
	Planted   int `json:"planted"`
	Harvested int `json:"harvested"`
}

// GardenView is a rendered snapshot of the garden
type GardenView struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Rows   []string    `json:"rows"`
	Player Position    `json:"player"`
	Stats  GardenStats `json:"stats"`
}

// HarvestRecord is an entry in the harvest ledger
type HarvestRecord struct {
	ID          string    `json:"id"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Symbol      string    `json:"symbol"`
	PlantedAt   time.Time `json:"planted_at"`
	HarvestedAt time.Time `json:"harvested_at"`
}
