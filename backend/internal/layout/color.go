package layout

import (
	"fmt"
	"strings"
)

var moodPalette = map[string]string{
	"happy":    "#facc15",
	"excited":  "#f97316",
	"grateful": "#22c55e",
	"calm":     "#38bdf8",
	"neutral":  "#a3a3a3",
	"tired":    "#a78bfa",
	"anxious":  "#fb7185",
	"sad":      "#60a5fa",
	"angry":    "#ef4444",
}

const unknownMoodColor = "#9ca3af"

// MoodColor returns the fixed palette color for a mood name
func MoodColor(mood string) string {
	if c, ok := moodPalette[strings.ToLower(strings.TrimSpace(mood))]; ok {
		return c
	}
	return unknownMoodColor
}

// HashColor derives a stable hue from s. Equal strings always get equal colors.
func HashColor(s string) string {
	var hash int32
	for _, r := range s {
		hash = int32(r) + ((hash << 5) - hash)
	}
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return fmt.Sprintf("hsl(%d, 65%%, 55%%)", h%360)
}
