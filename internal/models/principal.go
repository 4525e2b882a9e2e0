package models

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID        string `json:"id"`
	IsAdmin   bool   `json:"isAdmin"`
	IsBlocked bool   `json:"isBlocked"`
}
