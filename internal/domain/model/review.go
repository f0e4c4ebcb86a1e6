package model

import "time"

type Review struct {
	ID         string    `json:"id"`
	POIID      string    `json:"poi_id"`
	UID        string    `json:"uid"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewSummary struct {
	POIID   string  `json:"poi_id"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}
