package extract

// AssignLines moves runs to canvas local coordinates with y on the estimated
// baseline and numbers lines. Line number grows whenever run sits lower than
// the one before it, a run higher than previous one (column break) keeps the
// current number.
func AssignLines(res *LayoutResult, baselineShift float64) {
	line := 1
	for i := range res.Runs {
		r := &res.Runs[i]

		var fontSize float64
		if r.Style != nil {
			fontSize = r.Style.FontSize
		}
		r.Y = r.Y - res.YOffset + r.Height - fontSize*baselineShift
		r.X -= res.XOffset

		if i > 0 && r.Y > res.Runs[i-1].Y {
			line++
		}
		r.LineNum = line
	}
}
