package growth

// WHO child growth standards, boys 0–12 months, sampled every three months.
// Girls' tables are not bundled yet; female queries resolve to the boys'
// table of the same kind with a logged fallback (see Engine.ResolveTable).

func band(p3, p15, p50, p85, p97 float64) map[Percentile]float64 {
	return map[Percentile]float64{3: p3, 15: p15, 50: p50, 85: p85, 97: p97}
}

// Weight-for-age (kg).
var weightForAgeBoys = []ReferencePoint{
	{AgeMonths: 0, Values: band(2.9, 3.2, 3.5, 3.9, 4.2)},
	{AgeMonths: 3, Values: band(5.0, 5.6, 6.4, 7.2, 7.9)},
	{AgeMonths: 6, Values: band(6.4, 7.0, 7.9, 8.8, 9.5)},
	{AgeMonths: 9, Values: band(7.1, 7.9, 8.9, 9.9, 10.7)},
	{AgeMonths: 12, Values: band(7.7, 8.6, 9.6, 10.8, 11.7)},
}

// Length/height-for-age (cm).
var heightForAgeBoys = []ReferencePoint{
	{AgeMonths: 0, Values: band(47.0, 48.5, 49.9, 51.3, 52.5)},
	{AgeMonths: 3, Values: band(57.2, 58.8, 61.4, 63.0, 64.4)},
	{AgeMonths: 6, Values: band(63.4, 65.1, 67.6, 70.1, 71.6)},
	{AgeMonths: 9, Values: band(67.7, 69.5, 72.0, 74.5, 76.2)},
	{AgeMonths: 12, Values: band(71.0, 72.9, 75.7, 78.4, 80.1)},
}

// Head circumference-for-age (cm).
var headCircumferenceForAgeBoys = []ReferencePoint{
	{AgeMonths: 0, Values: band(32.1, 33.1, 34.5, 35.7, 36.6)},
	{AgeMonths: 3, Values: band(37.2, 38.3, 40.1, 41.7, 42.7)},
	{AgeMonths: 6, Values: band(40.2, 41.4, 43.3, 44.9, 45.8)},
	{AgeMonths: 9, Values: band(42.0, 43.2, 45.2, 46.8, 47.8)},
	{AgeMonths: 12, Values: band(43.2, 44.4, 46.3, 47.9, 48.9)},
}

// StandardTables returns fresh copies of the bundled reference tables.
func StandardTables() []ReferenceTable {
	raw := []ReferenceTable{
		{Kind: KindWeight, Gender: GenderMale, Points: weightForAgeBoys},
		{Kind: KindHeight, Gender: GenderMale, Points: heightForAgeBoys},
		{Kind: KindHeadCircumference, Gender: GenderMale, Points: headCircumferenceForAgeBoys},
	}
	out := make([]ReferenceTable, len(raw))
	for i, t := range raw {
		out[i] = t.clone()
	}
	return out
}
