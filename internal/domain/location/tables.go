package location

// Rewrite replaces a whole-word phrase with its canonical form.
type Rewrite struct {
	From string
	To   string
}

// Tables is the static data driving normalization. Rewrites are applied in
// slice order, so a later entry sees the output of earlier ones.
type Tables struct {
	Aliases   []Rewrite // abbreviations and nicknames
	Compounds []Rewrite // glued words such as "newyork"
	Stop      []string  // geography noise
	States    []string  // US postal abbreviations
}

// DefaultTables returns a fresh copy of the built-in tables.
func DefaultTables() Tables {
	return Tables{
		Aliases: []Rewrite{
			{From: "la", To: "los angeles"},
			{From: "l a", To: "los angeles"},
			{From: "nyc", To: "new york"},
			{From: "sf", To: "san francisco"},
			{From: "sfo", To: "san francisco"},
			{From: "sj", To: "san jose"},
			{From: "sd", To: "san diego"},
			{From: "dfw", To: "dallas fort worth"},
			{From: "bay area", To: "san francisco bay"},
		},
		Compounds: []Rewrite{
			{From: "losangeles", To: "los angeles"},
			{From: "newyork", To: "new york"},
			{From: "sanfrancisco", To: "san francisco"},
			{From: "sanjose", To: "san jose"},
			{From: "sandiego", To: "san diego"},
		},
		Stop: []string{
			"usa", "us", "united", "states", "america", "u", "s",
			"uk", "cn", "prc", "people", "republic",
			"the", "of", "and",
			"city", "county", "province", "state", "region", "district",
			"prefecture", "municipality", "metro", "area", "greater", "metropolitan",
		},
		// No "la": the alias table rewrites it first.
		States: []string{
			"al", "ak", "az", "ar", "ca", "co", "ct", "de", "fl", "ga", "hi", "id",
			"il", "in", "ia", "ks", "ky", "me", "md", "ma", "mi", "mn", "ms", "mo",
			"mt", "ne", "nv", "nh", "nj", "nm", "ny", "nc", "nd", "oh", "ok", "or",
			"pa", "ri", "sc", "sd", "tn", "tx", "ut", "vt", "va", "wa", "wv", "wi", "wy", "dc",
		},
	}
}
