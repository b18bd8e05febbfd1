package catalog

import "github.com/shopspring/decimal"

type derivedSeed struct {
	code, name, symbol string
	factor             int64
}

type familySeed struct {
	code, name, symbol string
	category           UnitCategory
	derived            []derivedSeed
}

var defaultFamilies = []familySeed{
	{"PCS", "Piece", "pc", UnitCategoryCountable, []derivedSeed{
		{"CTN6", "Carton of 6", "ctn6", 6},
		{"CTN12", "Carton of 12", "ctn12", 12},
		{"BOX24", "Box of 24", "box24", 24},
	}},
	{"G", "Gram", "g", UnitCategoryWeight, []derivedSeed{
		{"KG", "Kilogram", "kg", 1000},
		{"T", "Tonne", "t", 1000000},
	}},
	{"ML", "Millilitre", "ml", UnitCategoryVolume, []derivedSeed{
		{"L", "Litre", "l", 1000},
	}},
	{"MM", "Millimetre", "mm", UnitCategoryLength, []derivedSeed{
		{"CM", "Centimetre", "cm", 10},
		{"M", "Metre", "m", 1000},
	}},
}

// DefaultUnits returns the seed unit set, canonical units first within each family.
// IDs are freshly generated; seeding matches existing rows by code.
func DefaultUnits() []UnitOfMeasure {
	var units []UnitOfMeasure
	for _, f := range defaultFamilies {
		base, err := NewCanonicalUnit(f.code, f.name, f.symbol, f.category)
		if err != nil {
			panic(err)
		}
		units = append(units, *base)
		for _, d := range f.derived {
			u, err := NewDerivedUnit(d.code, d.name, d.symbol, base, decimal.NewFromInt(d.factor))
			if err != nil {
				panic(err)
			}
			units = append(units, *u)
		}
	}
	return units
}
