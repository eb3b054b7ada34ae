package coach

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg int // User message accent
	Coach   int // Coach reply accent
	Safety  int // Canned safety replies
	Notice  int // Upgrade and throttling notices
	Error   int // Error messages
	Muted   int // Status bar, placeholders
	Accent  int // Headings, links
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg: 4,
		Coach:   2,
		Safety:  3,
		Notice:  6,
		Error:   1,
		Muted:   8,
		Accent:  5,
	}
}
