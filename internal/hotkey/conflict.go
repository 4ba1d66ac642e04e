package hotkey

import "runtime"

// ConflictInfo represents information about a known shortcut conflict
type ConflictInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Hotkey      string `json:"hotkey"`
}

type knownShortcut struct {
	goos        string
	name        string
	description string
	combo       Combo
}

// knownConflicts lists system and common launcher shortcuts per platform
var knownConflicts = []knownShortcut{
	{"darwin", "Spotlight", "macOS Spotlight search", Combo{ModSuper, "Space"}},
	{"darwin", "Alfred", "Alfred launcher (common default)", Combo{ModSuper, "Space"}},
	{"darwin", "Raycast", "Raycast launcher (common default)", Combo{ModAlt, "Space"}},
	{"darwin", "Input Source", "Select the previous input source", Combo{ModCtrl, "Space"}},
	{"darwin", "Character Viewer", "Emoji & Symbols", Combo{ModCtrl | ModSuper, "Space"}},
	{"darwin", "Force Quit", "macOS Force Quit", Combo{ModSuper | ModAlt, "Escape"}},
	{"darwin", "App Switcher", "Switch applications", Combo{ModSuper, "Tab"}},
	{"darwin", "Screenshot", "Capture a portion of the screen", Combo{ModSuper | ModShift, "4"}},

	{"windows", "Input Switch", "Switch input language", Combo{ModSuper, "Space"}},
	{"windows", "IME Toggle", "Toggle the input method editor", Combo{ModCtrl, "Space"}},
	{"windows", "Task Switcher", "Switch windows", Combo{ModAlt, "Tab"}},
	{"windows", "Close Window", "Close the active window", Combo{ModAlt, "F4"}},
	{"windows", "Lock", "Lock the workstation", Combo{ModSuper, "L"}},
	{"windows", "Show Desktop", "Show the desktop", Combo{ModSuper, "D"}},

	{"linux", "Input Source", "GNOME input source switch", Combo{ModSuper, "Space"}},
	{"linux", "Window Menu", "Window menu (GNOME, KDE)", Combo{ModAlt, "Space"}},
	{"linux", "Task Switcher", "Switch windows", Combo{ModAlt, "Tab"}},
	{"linux", "Close Window", "Close the active window", Combo{ModAlt, "F4"}},
	{"linux", "Terminal", "Open a terminal (Ubuntu)", Combo{ModCtrl | ModAlt, "T"}},
	{"linux", "Run Dialog", "Run a command", Combo{ModAlt, "F2"}},
}

// CheckConflicts checks if the given hotkey conflicts with known system
// shortcuts on the running platform
func CheckConflicts(c Combo) []ConflictInfo {
	return conflictsFor(runtime.GOOS, c)
}

func conflictsFor(goos string, c Combo) []ConflictInfo {
	var conflicts []ConflictInfo

	for _, known := range knownConflicts {
		if known.goos == goos && known.combo == c {
			conflicts = append(conflicts, ConflictInfo{
				Name:        known.name,
				Description: known.description,
				Hotkey:      known.combo.String(),
			})
		}
	}

	return conflicts
}

// Validate parses s and reports the shortcuts it would collide with.
func Validate(s string) (Combo, []ConflictInfo, error) {
	c, err := Parse(s)
	if err != nil {
		return Combo{}, nil, err
	}
	return c, CheckConflicts(c), nil
}
