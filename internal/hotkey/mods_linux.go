package hotkey

import "golang.design/x/hotkey"

const superLabel = "Super"

// X11 maps Alt to Mod1 and Super to Mod4 on common keyboard layouts.
func nativeModifier(m Modifier) hotkey.Modifier {
	switch m {
	case ModCtrl:
		return hotkey.ModCtrl
	case ModShift:
		return hotkey.ModShift
	case ModAlt:
		return hotkey.Mod1
	default:
		return hotkey.Mod4
	}
}
