package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/yok-tottii/ezdictate/internal/pipeline"
)

const iconSize = 32

// stateColors: grey idle, orange while listening, blue and violet while
// thinking, green while typing.
var stateColors = map[pipeline.State]color.NRGBA{
	pipeline.Idle:         {0xE3, 0xE3, 0xE3, 0xFF},
	pipeline.Recording:    {0xF1, 0x9E, 0x39, 0xFF},
	pipeline.Transcribing: {0x4C, 0x9A, 0xFB, 0xFF},
	pipeline.Polishing:    {0x9B, 0x6C, 0xF5, 0xFF},
	pipeline.Outputting:   {0x75, 0xFB, 0x4C, 0xFF},
}

// renderIcon draws a filled disc; recording adds a hollow centre so the
// state is distinguishable on monochrome menu bars.
func renderIcon(state pipeline.State) []byte {
	c, ok := stateColors[state]
	if !ok {
		c = stateColors[pipeline.Idle]
	}

	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	center := float64(iconSize-1) / 2
	outer := center - 1
	inner := 0.0
	if state == pipeline.Recording {
		inner = outer / 2.5
	}
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			d := dx*dx + dy*dy
			if d <= outer*outer && d >= inner*inner {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func renderIcons() map[pipeline.State][]byte {
	icons := make(map[pipeline.State][]byte, len(stateColors))
	for s := range stateColors {
		icons[s] = renderIcon(s)
	}
	return icons
}
