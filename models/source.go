package models

import (
	"encoding/json"
	"time"
)

// Fetch methods a source can be configured with
const (
	MethodGet        = "GET"
	MethodPost       = "POST"
	MethodPostNDJSON = "POST_NDJSON"
	MethodRender     = "RENDER"
)

// Source is a configured listing website or API the scraper polls
type Source struct {
	ID       int
	Agency   string // Stable source id used to pick the parser, e.g. "pararius"
	QueryURL string
	Method   string
	Headers  map[string]string
	PostData json.RawMessage // JSON body for POST, JSON array for POST_NDJSON
	Enabled  bool
	UserInfo SourceInfo
}

// SourceInfo is the display metadata shown to subscribers
type SourceInfo struct {
	Agency  string `json:"agency"`
	Website string `json:"website"`
}

// DisplayName returns the human agency name, falling back to the source id
func (s Source) DisplayName() string {
	if s.UserInfo.Agency != "" {
		return s.UserInfo.Agency
	}
	return s.Agency
}

// Subscriber is a Telegram user receiving listings that match their filter
type Subscriber struct {
	TelegramID int64
	Enabled    bool
	UserLevel  int
	DateAdded  time.Time
	Filter     SubscriberFilter
	Lang       string
}

// SubscriberFilter holds the per-subscriber match criteria.
// Cities and Sources are lower-case ids; absence from Sources means opted out.
type SubscriberFilter struct {
	MinPrice int
	MaxPrice int
	Cities   []string
	Sources  []string
	MinSQM   int // 0 means no constraint
}

// Meta is the operator-controlled state shared with the bot and dashboard
type Meta struct {
	ScraperHalted       bool
	DevModeEnabled      bool
	DonationLink        string
	DonationLinkUpdated time.Time
}

// DefaultMeta is used when no meta record exists yet: everything stays off
func DefaultMeta() Meta {
	return Meta{
		ScraperHalted:  true,
		DevModeEnabled: true,
	}
}
