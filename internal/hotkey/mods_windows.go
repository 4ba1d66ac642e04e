package hotkey

import "golang.design/x/hotkey"

const superLabel = "Win"

func nativeModifier(m Modifier) hotkey.Modifier {
	switch m {
	case ModCtrl:
		return hotkey.ModCtrl
	case ModShift:
		return hotkey.ModShift
	case ModAlt:
		return hotkey.ModAlt
	default:
		return hotkey.ModWin
	}
}
