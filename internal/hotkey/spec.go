package hotkey

import (
	"fmt"
	"strings"
)

// Binding resolves a modifier+trigger chord onto concrete key codes.
// Modifier names cover both sides of the keyboard unless prefixed with l/r.
type Binding struct {
	Modifier []uint16
	Trigger  uint16
	Name     string
}

func (b Binding) isModifier(code uint16) bool {
	for _, c := range b.Modifier {
		if c == code {
			return true
		}
	}
	return false
}

// Linux input-event key codes. The main block matches the XT scancodes that
// libuiohook uses, so the X11 backend shares this table for triggers.
var keyCodes = map[string]uint16{
	"esc": 1, "1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"minus": 12, "equal": 13, "backspace": 14, "tab": 15,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"enter": 28,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"semicolon": 39, "apostrophe": 40, "grave": 41, "backslash": 43,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"comma": 51, "period": 52, "slash": 53,
	"space": 57, "capslock": 58,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64, "f7": 65, "f8": 66, "f9": 67, "f10": 68,
	"scrolllock": 70, "f11": 87, "f12": 88, "pause": 119,
}

var evdevModifiers = map[string][]uint16{
	"ctrl":   {29, 97},
	"lctrl":  {29},
	"rctrl":  {97},
	"shift":  {42, 54},
	"lshift": {42},
	"rshift": {54},
	"alt":    {56, 100},
	"lalt":   {56},
	"ralt":   {100},
	"super":  {125, 126},
	"lsuper": {125},
	"rsuper": {126},
}

var modifierAliases = map[string]string{
	"control": "ctrl",
	"meta":    "super",
	"cmd":     "super",
	"win":     "super",
}

var triggerAliases = map[string]string{
	"return": "enter",
	"escape": "esc",
	"spc":    "space",
}

func canonicalModifier(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := modifierAliases[name]; ok {
		return alias
	}
	return name
}

func canonicalTrigger(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := triggerAliases[name]; ok {
		return alias
	}
	return name
}

// ResolveEvdev maps a chord onto Linux input-event key codes.
func ResolveEvdev(modifier, trigger string) (Binding, error) {
	mod := canonicalModifier(modifier)
	codes, ok := evdevModifiers[mod]
	if !ok {
		return Binding{}, fmt.Errorf("unknown hotkey modifier %q", modifier)
	}
	trig := canonicalTrigger(trigger)
	code, ok := keyCodes[trig]
	if !ok {
		return Binding{}, fmt.Errorf("unknown hotkey trigger %q", trigger)
	}
	if containsCode(codes, code) {
		return Binding{}, fmt.Errorf("hotkey trigger %q overlaps modifier %q", trigger, modifier)
	}
	return Binding{Modifier: codes, Trigger: code, Name: mod + "+" + trig}, nil
}

func containsCode(codes []uint16, code uint16) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
