package dom

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// parseColor converts CSS color to "rgb(r, g, b)" notation, alpha is kept
// only when below 1.
func parseColor(s, currentColor string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "currentcolor", "inherit":
		return currentColor, true
	case "transparent":
		return "rgba(0, 0, 0, 0)", true
	}
	if c, ok := colornames.Map[s]; ok {
		return formatRGB(int(c.R), int(c.G), int(c.B), 1), true
	}
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		return parseHexColor(hex)
	}
	if args, ok := functionArgs(s, "rgba", "rgb"); ok {
		return parseRGBArgs(args)
	}
	return "", false
}

func parseHexColor(hex string) (string, bool) {
	if len(hex) == 3 || len(hex) == 4 {
		var sb strings.Builder
		for _, c := range hex {
			sb.WriteRune(c)
			sb.WriteRune(c)
		}
		hex = sb.String()
	}
	if len(hex) != 6 && len(hex) != 8 {
		return "", false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return "", false
	}
	alpha := 1.0
	if len(hex) == 8 {
		alpha = float64(v&0xff) / 255
		v >>= 8
	}
	return formatRGB(int(v>>16&0xff), int(v>>8&0xff), int(v&0xff), alpha), true
}

// functionArgs returns argument list of the first matching function.
func functionArgs(s string, names ...string) ([]string, bool) {
	for _, name := range names {
		rest, ok := strings.CutPrefix(s, name+"(")
		if !ok {
			continue
		}
		rest, ok = strings.CutSuffix(rest, ")")
		if !ok {
			return nil, false
		}
		// both legacy comma and modern space separated syntax
		rest = strings.NewReplacer(",", " ", "/", " ").Replace(rest)
		return strings.Fields(rest), true
	}
	return nil, false
}

func parseRGBArgs(args []string) (string, bool) {
	if len(args) != 3 && len(args) != 4 {
		return "", false
	}
	var rgb [3]int
	for i := range rgb {
		v, ok := channel(args[i], 255)
		if !ok {
			return "", false
		}
		rgb[i] = int(math.Round(v))
	}
	alpha := 1.0
	if len(args) == 4 {
		v, ok := channel(args[3], 1)
		if !ok {
			return "", false
		}
		alpha = v
	}
	return formatRGB(rgb[0], rgb[1], rgb[2], alpha), true
}

// channel parses number or percentage clamped to [0, limit].
func channel(s string, limit float64) (float64, bool) {
	p, percent := strings.CutSuffix(s, "%")
	v, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return 0, false
	}
	if percent {
		// multiply first, 50*2.55 is below 127.5
		v = v * limit / 100
	}
	return min(max(v, 0), limit), true
}

func formatRGB(r, g, b int, alpha float64) string {
	if alpha < 1 {
		return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64))
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}
