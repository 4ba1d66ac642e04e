package clipboard

import (
	"github.com/go-vgo/robotgo"
)

// Robot drives the real clipboard and keyboard through robotgo.
type Robot struct{}

// NewRobot returns the robotgo-backed Keyboard.
func NewRobot() *Robot { return &Robot{} }

func (Robot) ReadText() (string, error) { return robotgo.ReadAll() }

func (Robot) WriteText(text string) error { return robotgo.WriteAll(text) }

func (Robot) KeyTap(key string, modifiers ...string) error {
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

func (Robot) TypeText(text string) { robotgo.TypeStr(text) }
