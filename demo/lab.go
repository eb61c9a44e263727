package demo

import (
	"fmt"
	"math"

	"github.com/signadot/tony-format/go-dash/enum"
	"github.com/signadot/tony-format/go-dash/meta"
	"github.com/signadot/tony-format/go-dash/model"
)

type Mode int

const (
	ModeOff Mode = iota
	ModeManual
	ModeAuto
)

// Modes is the codec of Mode.  Settings and clients see the lower case
// strings.
var Modes = enum.Define("Mode",
	enum.Of(ModeOff, "OFF", "off"),
	enum.Of(ModeManual, "MANUAL", "manual"),
	enum.Of(ModeAuto, "AUTO", "auto"))

// Channel is one input of the bench.
type Channel struct {
	// Name labels the channel.
	Name string `dash:"name=name"`
	// Enabled channels are sampled.
	Enabled bool    `dash:"name=enabled"`
	Offset  float64 `dash:"name=offset,units=V,step=0.01"`
}

// Probe measures the bench output.
type Probe struct {
	// Value is the last reading.
	Value   float64 `dash:"name=value,readonly,units=V"`
	Samples int     `dash:"name=samples,readonly"`
}

// Lab is a simulated test bench exercising every kind of property.
type Lab struct {
	// Gain is the amplifier gain.
	Gain float64 `dash:"name=gain,min=0,max=10,step=0.5,renderAs=slider"`
	// Mode selects how the bench is driven.
	Mode     Mode       `dash:"name=mode"`
	Channels []*Channel `dash:"name=channels"`
	// Tags are free form labels.
	Tags   []string       `dash:"name=tags"`
	Notes  string         `dash:"name=notes,renderAs=textarea"`
	Extra  map[string]any `dash:"name=extra"`
	Probe  *Probe         `dash:"name=probe"`
	Serial string         `dash:"name=serial,readonly"`

	threshold float64
}

func NewLab() *Lab {
	return &Lab{
		Gain: 1,
		Mode: ModeManual,
		Channels: []*Channel{
			{Name: "a", Enabled: true},
			{Name: "b"},
		},
		Tags:      []string{"bench"},
		Extra:     map[string]any{},
		Probe:     &Probe{},
		Serial:    "lab-0001",
		threshold: 0.5,
	}
}

func (*Lab) Members() []model.Member {
	return []model.Member{
		model.Prop("output", (*Lab).Output).
			OnGet(meta.Set(meta.KeyUnits, "V")),
		model.PropRW("threshold", (*Lab).Threshold, (*Lab).SetThreshold).
			OnGet(meta.Doc("Readings above the threshold are flagged.")).
			OnSet(meta.With(map[string]any{meta.KeyMin: 0.0, meta.KeyMax: 1.0})),
		model.Prop("over", (*Lab).Over),
		model.Method[Lab]("sample", (*Lab).Sample),
		model.Method[Lab]("scale", (*Lab).Scale, "factor"),
		model.Method[Lab]("reset", (*Lab).Reset),
	}
}

// Output is the simulated output level.
func (l *Lab) Output() float64 {
	if l.Mode == ModeOff {
		return 0
	}
	sum := 0.0
	for _, c := range l.Channels {
		if c != nil && c.Enabled {
			sum += 1 + c.Offset
		}
	}
	return l.Gain * sum
}

func (l *Lab) Threshold() float64 { return l.threshold }

func (l *Lab) SetThreshold(v float64) { l.threshold = math.Max(0, math.Min(1, v)) }

// Over reports whether the last reading is above the threshold.
func (l *Lab) Over() bool { return l.Probe.Value > l.threshold }

// Sample takes a reading of the output and returns it.
func (l *Lab) Sample() float64 {
	l.Probe.Value = l.Output()
	l.Probe.Samples++
	return l.Probe.Value
}

// Scale multiplies the gain by factor.
func (l *Lab) Scale(factor float64) (float64, error) {
	g := l.Gain * factor
	if g < 0 || g > 10 {
		return l.Gain, fmt.Errorf("gain %g out of range", g)
	}
	l.Gain = g
	return g, nil
}

// Reset clears the probe.
func (l *Lab) Reset() {
	l.Probe.Value, l.Probe.Samples = 0, 0
}
