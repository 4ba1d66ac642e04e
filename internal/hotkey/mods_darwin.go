package hotkey

import "golang.design/x/hotkey"

const superLabel = "Cmd"

func nativeModifier(m Modifier) hotkey.Modifier {
	switch m {
	case ModCtrl:
		return hotkey.ModCtrl
	case ModShift:
		return hotkey.ModShift
	case ModAlt:
		return hotkey.ModOption
	default:
		return hotkey.ModCmd
	}
}
