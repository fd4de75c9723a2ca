package models

// FeatureCollection is the store collection holding marketing features
const FeatureCollection = "features"

// Feature is a display-only product feature shown per role
type Feature struct {
	ID          string    `json:"id"`
	Type        StageType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}
