package ifaa

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/go-ctap/halbridge/pkg/options"
)

// geometryProps are the properties describing an under-display sensor.
type geometryProps struct {
	Flag     string
	Location string
	Size     string
}

var schemes = map[options.GeometryScheme]geometryProps{
	options.GeometrySchemeUDFPS: {
		Flag:     "ro.hardware.fp.udfps",
		Location: "persist.vendor.sys.fp.udfps.location.X_Y",
		Size:     "persist.vendor.sys.fp.udfps.size.width_height",
	},
	options.GeometrySchemeFOD: {
		Flag:     "ro.hardware.fp.fod",
		Location: "persist.vendor.sys.fp.fod.location.X_Y",
		Size:     "persist.vendor.sys.fp.fod.size.width_height",
	},
}

// SensorGeometry is the on-screen area of an under-display fingerprint sensor.
type SensorGeometry struct {
	StartX      int  `json:"startX"`
	StartY      int  `json:"startY"`
	Width       int  `json:"width"`
	Height      int  `json:"height"`
	NavConflict bool `json:"navConflict"`
}

type sensorLocation struct {
	Type     int            `json:"type"`
	FullView SensorGeometry `json:"fullView"`
}

// ParseGeometry reads a "X,Y" location and a "W,H" size. Unless both parse
// completely, the result is None.
func ParseGeometry(xy, wh string) mo.Option[SensorGeometry] {
	loc, ok := parsePair(xy).Get()
	if !ok {
		return mo.None[SensorGeometry]()
	}
	size, ok := parsePair(wh).Get()
	if !ok {
		return mo.None[SensorGeometry]()
	}

	return mo.Some(SensorGeometry{
		StartX:      loc[0],
		StartY:      loc[1],
		Width:       size[0],
		Height:      size[1],
		NavConflict: true,
	})
}

func parsePair(s string) mo.Option[[2]int] {
	if !strings.Contains(s, ",") {
		return mo.None[[2]int]()
	}

	// Trailing empty fields are ignored, so "10,20," reads as "10,20".
	fields := lo.DropRightWhile(strings.Split(s, ","), func(f string) bool {
		return f == ""
	})
	if len(fields) != 2 {
		return mo.None[[2]int]()
	}

	values := lo.FilterMap(fields, func(f string, _ int) (int, bool) {
		n, err := strconv.Atoi(f)
		return n, err == nil
	})
	if len(values) != 2 {
		return mo.None[[2]int]()
	}

	return mo.Some([2]int{values[0], values[1]})
}

// MarshalLocation renders g the way IFAA clients expect a sensor location.
func (g SensorGeometry) MarshalLocation() (string, error) {
	b, err := json.Marshal(sensorLocation{FullView: g})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
