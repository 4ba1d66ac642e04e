package permissions

/*
#cgo CFLAGS: -x objective-c -fmodules
#cgo LDFLAGS: -framework AVFoundation -framework ApplicationServices

#import <AVFoundation/AVFoundation.h>
#import <ApplicationServices/ApplicationServices.h>

int check_microphone_permission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

int check_accessibility_permission() {
    Boolean isAccessibilityEnabled = AXIsProcessTrusted();
    return isAccessibilityEnabled ? 1 : 0;
}
*/
import "C"

import "os/exec"

const (
	microphoneSettingsURL    = "x-apple.systempreferences:com.apple.preference.security?Privacy_Microphone"
	accessibilitySettingsURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility"
)

func checkMicrophone() PermissionStatus {
	return PermissionStatus(C.check_microphone_permission())
}

func checkAccessibility() PermissionStatus {
	if C.check_accessibility_permission() == 1 {
		return PermissionAuthorized
	}
	return PermissionDenied
}

func openSettings(url string) error {
	return exec.Command("open", url).Run()
}
