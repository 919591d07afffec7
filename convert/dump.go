package convert

import (
	"h2svg/extract"
	"h2svg/utils/debug"
)

// dumpLayout returns readable tree of extracted runs for debug report.
func dumpLayout(res *extract.LayoutResult) string {
	tw := debug.NewTreeWriter()
	tw.Attrs(0, "Layout", "offset", [2]float64{res.XOffset, res.YOffset}, "width", res.Width, "height", res.Height, "runs", len(res.Runs))
	for i, r := range res.Runs {
		tw.Attrs(1, "Run", "index", i, "line", r.LineNum, "x", r.X, "y", r.Y, "height", r.Height,
			"parent", r.ParentID, "href", r.Href, "hyphenated", r.Hyphenated)
		tw.TextBlock(2, "text", r.Text)
		if r.Style != nil {
			tw.TextBlock(2, "style", r.Style.Signature())
		}
	}
	return tw.String()
}
