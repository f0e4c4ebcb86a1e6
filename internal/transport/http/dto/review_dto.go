package dto

import "github.com/ssmoliagin/weekendguide/internal/domain/model"

type ReviewCreateRequest struct {
	Rating   int    `json:"rating"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

type ReviewsResponse struct {
	Items   []model.Review      `json:"items"`
	Summary model.ReviewSummary `json:"summary"`
}

type WikiSummaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}
