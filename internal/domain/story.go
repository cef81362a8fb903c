// Package domain holds the SafeSpace entities as they are stored and served.
package domain

import "time"

// Mood is the tag a poster attaches to a story.
type Mood string

const (
	MoodHopeful  Mood = "hopeful"
	MoodAnxious  Mood = "anxious"
	MoodHealing  Mood = "healing"
	MoodLonely   Mood = "lonely"
	MoodGrateful Mood = "grateful"
	MoodTired    Mood = "tired"
)

// DefaultMoods is the mood set offered by the client.
var DefaultMoods = []Mood{
	MoodHopeful,
	MoodAnxious,
	MoodHealing,
	MoodLonely,
	MoodGrateful,
	MoodTired,
}

// Story is an anonymous post. Content is stored already cleaned.
type Story struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Mood      Mood      `json:"mood"`
	UserID    *string   `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reaction is a single reader response to a story.
type Reaction struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"storyId"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Report is a write-only moderation record against a story.
type Report struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"storyId"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}
