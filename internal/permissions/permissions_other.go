//go:build !darwin

package permissions

import (
	"os/exec"
	"runtime"
)

// Windows has a microphone privacy page but no accessibility gate for
// synthetic input. Linux has neither.
var (
	microphoneSettingsURL    = windowsOnly("ms-settings:privacy-microphone")
	accessibilitySettingsURL = ""
)

func windowsOnly(url string) string {
	if runtime.GOOS == "windows" {
		return url
	}
	return ""
}

func checkMicrophone() PermissionStatus { return PermissionAuthorized }

func checkAccessibility() PermissionStatus { return PermissionAuthorized }

func openSettings(url string) error {
	return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Run()
}
