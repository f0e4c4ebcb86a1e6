package dto

import "github.com/ssmoliagin/weekendguide/internal/domain/model"

type LocateResponse struct {
	Region    model.Region `json:"region"`
	DistanceM float64      `json:"distance_m"`
	Unlocked  bool         `json:"unlocked"`
}
