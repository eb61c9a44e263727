// Package debug holds switches for diagnostic output, read once from the
// environment.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Walk  bool
	RPC   bool
	Saver bool
	Delta bool
}

var d *debug

func init() {
	d = &debug{}
	d.Walk = boolEnv("DASH_DEBUG_WALK")
	d.RPC = boolEnv("DASH_DEBUG_RPC")
	d.Saver = boolEnv("DASH_DEBUG_SAVER")
	d.Delta = boolEnv("DASH_DEBUG_DELTA")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Walk reports whether model construction logs every node it adds.
func Walk() bool {
	return d.Walk
}

func RPC() bool {
	return d.RPC
}

func Saver() bool {
	return d.Saver
}

func Delta() bool {
	return d.Delta
}

func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", v)
		return
	}
	os.Stderr.Write(append(d, '\n'))
}
