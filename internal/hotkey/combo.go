package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

// Modifier is a platform-independent modifier set.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	// ModSuper is Cmd on macOS and the Windows key elsewhere.
	ModSuper
)

// modifierOrder is the canonical display order.
var modifierOrder = []Modifier{ModCtrl, ModShift, ModAlt, ModSuper}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"cmd":     ModSuper,
	"command": ModSuper,
	"super":   ModSuper,
	"win":     ModSuper,
	"meta":    ModSuper,
}

func (m Modifier) label() string {
	switch m {
	case ModCtrl:
		return "Ctrl"
	case ModShift:
		return "Shift"
	case ModAlt:
		return "Alt"
	case ModSuper:
		return superLabel
	}
	return ""
}

// Combo is a parsed shortcut such as "Alt+Space". Key holds the canonical
// key name.
type Combo struct {
	Modifiers Modifier
	Key       string
}

type keyInfo struct {
	name string
	key  hotkey.Key
}

// keys maps lowercase aliases to the canonical name and native key code.
var keys = map[string]keyInfo{
	"space":  {"Space", hotkey.KeySpace},
	"enter":  {"Enter", hotkey.KeyReturn},
	"return": {"Enter", hotkey.KeyReturn},
	"escape": {"Escape", hotkey.KeyEscape},
	"esc":    {"Escape", hotkey.KeyEscape},
	"tab":    {"Tab", hotkey.KeyTab},
	"delete": {"Delete", hotkey.KeyDelete},
	"up":     {"Up", hotkey.KeyUp},
	"down":   {"Down", hotkey.KeyDown},
	"left":   {"Left", hotkey.KeyLeft},
	"right":  {"Right", hotkey.KeyRight},
	"f1":     {"F1", hotkey.KeyF1},
	"f2":     {"F2", hotkey.KeyF2},
	"f3":     {"F3", hotkey.KeyF3},
	"f4":     {"F4", hotkey.KeyF4},
	"f5":     {"F5", hotkey.KeyF5},
	"f6":     {"F6", hotkey.KeyF6},
	"f7":     {"F7", hotkey.KeyF7},
	"f8":     {"F8", hotkey.KeyF8},
	"f9":     {"F9", hotkey.KeyF9},
	"f10":    {"F10", hotkey.KeyF10},
	"f11":    {"F11", hotkey.KeyF11},
	"f12":    {"F12", hotkey.KeyF12},
}

func init() {
	letters := []hotkey.Key{
		hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE, hotkey.KeyF,
		hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ, hotkey.KeyK, hotkey.KeyL,
		hotkey.KeyM, hotkey.KeyN, hotkey.KeyO, hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR,
		hotkey.KeyS, hotkey.KeyT, hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX,
		hotkey.KeyY, hotkey.KeyZ,
	}
	for i, k := range letters {
		name := string(rune('A' + i))
		keys[strings.ToLower(name)] = keyInfo{name, k}
	}

	digits := []hotkey.Key{
		hotkey.Key0, hotkey.Key1, hotkey.Key2, hotkey.Key3, hotkey.Key4,
		hotkey.Key5, hotkey.Key6, hotkey.Key7, hotkey.Key8, hotkey.Key9,
	}
	for i, k := range digits {
		name := string(rune('0' + i))
		keys[name] = keyInfo{name, k}
	}
}

// Parse reads a shortcut like "Ctrl+Shift+A". Names are case-insensitive;
// the last part is the key and every other part must be a modifier.
func Parse(s string) (Combo, error) {
	parts := strings.Split(s, "+")
	if strings.TrimSpace(s) == "" {
		return Combo{}, fmt.Errorf("invalid hotkey: %q", s)
	}

	var c Combo
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Combo{}, fmt.Errorf("invalid hotkey %q: unknown modifier %q", s, strings.TrimSpace(p))
		}
		c.Modifiers |= mod
	}

	last := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	info, ok := keys[last]
	if !ok {
		return Combo{}, fmt.Errorf("invalid hotkey %q: unknown key %q", s, last)
	}
	c.Key = info.name
	return c, nil
}

// String formats the combo in canonical order. Parse(c.String()) == c.
func (c Combo) String() string {
	var parts []string
	for _, m := range modifierOrder {
		if c.Modifiers&m != 0 {
			parts = append(parts, m.label())
		}
	}
	return strings.Join(append(parts, c.Key), "+")
}

// Has reports whether every modifier in m is part of the combo.
func (c Combo) Has(m Modifier) bool {
	return c.Modifiers&m == m
}

// native returns the platform modifiers and key code for registration.
func (c Combo) native() ([]hotkey.Modifier, hotkey.Key, error) {
	info, ok := keys[strings.ToLower(c.Key)]
	if !ok {
		return nil, 0, fmt.Errorf("unknown key %q", c.Key)
	}
	var mods []hotkey.Modifier
	for _, m := range modifierOrder {
		if c.Modifiers&m != 0 {
			mods = append(mods, nativeModifier(m))
		}
	}
	return mods, info.key, nil
}
