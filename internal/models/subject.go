package models

// Subject groups a collection of MCQs. CreatedAt is unix milliseconds and
// MCQCount always mirrors the length of the stored collection.
type Subject struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsFavorite bool   `json:"isFavorite"`
	CreatedAt  int64  `json:"createdAt"`
	MCQCount   int    `json:"mcqCount"`
}
