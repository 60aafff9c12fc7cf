package lossengine

type Winner string

const (
	WinnerA   Winner = "A"
	WinnerB   Winner = "B"
	WinnerTie Winner = "tie"
)

type ComparisonRow struct {
	Metric        string  `json:"metric"`
	A             float64 `json:"a"`
	B             float64 `json:"b"`
	LowerIsBetter bool    `json:"lower_is_better"`
	Winner        Winner  `json:"winner"`
}

type Comparison struct {
	Rows    []ComparisonRow `json:"rows"`
	WinsA   int             `json:"wins_a"`
	WinsB   int             `json:"wins_b"`
	Overall Winner          `json:"overall"`
}

// Compare ranks two analyses metric by metric. The overall winner is the
// side that takes more rows.
func Compare(a, b LossAnalysis) Comparison {
	rows := []ComparisonRow{
		compareRow("Weekly Time Loss", a.WeeklyTimeLossHours, b.WeeklyTimeLossHours, true),
		compareRow("Weekly Financial Loss", a.EstimatedFinancialLoss, b.EstimatedFinancialLoss, true),
		compareRow("Waste Ratio", a.WasteRatio, b.WasteRatio, true),
		compareRow("Clarity Score", float64(a.ClarityScore), float64(b.ClarityScore), false),
		compareRow("Decision Delay Index", a.DecisionDelayIndex, b.DecisionDelayIndex, true),
	}
	c := Comparison{Rows: rows, Overall: WinnerTie}
	for _, r := range rows {
		switch r.Winner {
		case WinnerA:
			c.WinsA++
		case WinnerB:
			c.WinsB++
		}
	}
	switch {
	case c.WinsA > c.WinsB:
		c.Overall = WinnerA
	case c.WinsB > c.WinsA:
		c.Overall = WinnerB
	}
	return c
}

func compareRow(metric string, a, b float64, lowerIsBetter bool) ComparisonRow {
	row := ComparisonRow{Metric: metric, A: a, B: b, LowerIsBetter: lowerIsBetter, Winner: WinnerTie}
	if a == b {
		return row
	}
	if (a < b) == lowerIsBetter {
		row.Winner = WinnerA
	} else {
		row.Winner = WinnerB
	}
	return row
}
