package models

// Car is a single catalog record. Values are never mutated after construction.
type Car struct {
	ID    int    `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
}
