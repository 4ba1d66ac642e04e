// Package permissions reports whether the OS lets the app record the
// microphone and synthesize input. Only macOS gates either; other
// platforms report both as authorized.
package permissions

import "encoding/json"

// PermissionStatus represents the status of a system permission
type PermissionStatus int

const (
	// PermissionNotDetermined means the user hasn't been asked yet
	PermissionNotDetermined PermissionStatus = 0
	// PermissionRestricted means the permission is restricted by parental controls
	PermissionRestricted PermissionStatus = 1
	// PermissionDenied means the user has explicitly denied the permission
	PermissionDenied PermissionStatus = 2
	// PermissionAuthorized means the user has authorized the permission
	PermissionAuthorized PermissionStatus = 3
)

// PermissionStatus string representation
func (ps PermissionStatus) String() string {
	switch ps {
	case PermissionNotDetermined:
		return "NotDetermined"
	case PermissionRestricted:
		return "Restricted"
	case PermissionDenied:
		return "Denied"
	case PermissionAuthorized:
		return "Authorized"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes the status by name.
func (ps PermissionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(ps.String())
}

// Permission names
const (
	Microphone    = "microphone"
	Accessibility = "accessibility"
)

// Report is the permission summary served to the settings page.
type Report struct {
	Microphone    PermissionStatus `json:"microphone"`
	Accessibility PermissionStatus `json:"accessibility"`
	AllGranted    bool             `json:"all_granted"`
	Missing       []string         `json:"missing"`
}

// PermissionChecker checks and requests system permissions
type PermissionChecker struct {
	microphone    func() PermissionStatus
	accessibility func() PermissionStatus
	open          func(url string) error
}

// NewPermissionChecker creates a checker for the running platform
func NewPermissionChecker() *PermissionChecker {
	return &PermissionChecker{
		microphone:    checkMicrophone,
		accessibility: checkAccessibility,
		open:          openSettings,
	}
}

// CheckMicrophonePermission checks if the application has microphone access permission
func (pc *PermissionChecker) CheckMicrophonePermission() PermissionStatus {
	return pc.microphone()
}

// CheckAccessibilityPermission checks if the application may send synthetic input
func (pc *PermissionChecker) CheckAccessibilityPermission() PermissionStatus {
	return pc.accessibility()
}

// RequestMicrophonePermission opens the system settings page for the microphone
func (pc *PermissionChecker) RequestMicrophonePermission() error {
	return pc.request(microphoneSettingsURL)
}

// RequestAccessibilityPermission opens the system settings page for accessibility
func (pc *PermissionChecker) RequestAccessibilityPermission() error {
	return pc.request(accessibilitySettingsURL)
}

func (pc *PermissionChecker) request(url string) error {
	if url == "" {
		return nil
	}
	return pc.open(url)
}

// Check returns the current status of every permission
func (pc *PermissionChecker) Check() Report {
	r := Report{
		Microphone:    pc.CheckMicrophonePermission(),
		Accessibility: pc.CheckAccessibilityPermission(),
		Missing:       []string{},
	}
	if r.Microphone != PermissionAuthorized {
		r.Missing = append(r.Missing, Microphone)
	}
	if r.Accessibility != PermissionAuthorized {
		r.Missing = append(r.Missing, Accessibility)
	}
	r.AllGranted = len(r.Missing) == 0
	return r
}

// AreAllPermissionsGranted returns whether all required permissions are granted
func (pc *PermissionChecker) AreAllPermissionsGranted() bool {
	return pc.Check().AllGranted
}
