// Package appctx identifies the foreground application so the prompt can
// be adapted to it.
package appctx

import (
	"path/filepath"
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/yok-tottii/ezdictate/internal/llm"
)

// Context describes the application that will receive the text.
type Context struct {
	AppName     string      `json:"app_name"`
	WindowTitle string      `json:"window_title"`
	AppType     llm.AppType `json:"app_type"`
}

// Detector reports the current foreground application.
type Detector interface {
	Detect() Context
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func() Context

func (f DetectorFunc) Detect() Context { return f() }

// Robot uses robotgo to read the active window.
type Robot struct{}

// Detect returns an empty General context when the window cannot be read.
func (Robot) Detect() Context {
	pid := robotgo.GetPid()
	name, err := robotgo.FindName(pid)
	if err != nil {
		name = ""
	}
	name = cleanName(name)
	return Context{
		AppName:     name,
		WindowTitle: strings.TrimSpace(robotgo.GetTitle()),
		AppType:     Classify(name),
	}
}

// cleanName strips a directory and a Windows .exe suffix.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if strings.EqualFold(filepath.Ext(name), ".exe") {
		name = name[:len(name)-4]
	}
	return name
}

var rules = []struct {
	appType  llm.AppType
	keywords []string
}{
	{llm.AppEmail, []string{"outlook", "gmail", "thunderbird", "mail"}},
	{llm.AppChat, []string{"slack", "discord", "wechat", "telegram", "teams"}},
	{llm.AppCode, []string{"code", "intellij", "vim", "nvim", "cursor"}},
	{llm.AppDocument, []string{"word", "docs", "notion", "obsidian", "typora"}},
}

// Classify maps an application name to an AppType by case-insensitive
// substring match. The first matching rule wins.
func Classify(appName string) llm.AppType {
	name := strings.ToLower(appName)
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(name, k) {
				return r.appType
			}
		}
	}
	return llm.AppGeneral
}
