package timeseries

import "fmt"

type unitPair struct {
	from string
	to   string
}

// unitAliases maps upstream unit codes to the units used on the platform.
var unitAliases = map[string]string{
	"MAW":     "MW",
	"MWH":     "MWh",
	"KWH":     "kWh",
	"EUR/MWH": "EUR/MWh",
}

var unitFactors = map[unitPair]float64{
	{"MW", "kW"}:           1000,
	{"kW", "MW"}:           0.001,
	{"MWh", "kWh"}:         1000,
	{"kWh", "MWh"}:         0.001,
	{"EUR/MWh", "EUR/kWh"}: 0.001,
	{"EUR/kWh", "EUR/MWh"}: 1000,
	{"kg/MWh", "g/kWh"}:    1,
	{"g/kWh", "kg/MWh"}:    1,
	{"kg/MWh", "t/MWh"}:    0.001,
	{"t/MWh", "kg/MWh"}:    1000,
}

// CanonicalUnit resolves upstream unit codes such as MAW to platform units.
func CanonicalUnit(unit string) string {
	if alias, ok := unitAliases[unit]; ok {
		return alias
	}
	return unit
}

// UnitFactor returns the multiplier converting values in from to values in to.
// An empty target keeps the source unit.
func UnitFactor(from, to string) (float64, error) {
	from = CanonicalUnit(from)
	to = CanonicalUnit(to)
	if to == "" || from == to {
		return 1, nil
	}
	factor, ok := unitFactors[unitPair{from: from, to: to}]
	if !ok {
		return 0, fmt.Errorf("%w: %s to %s", ErrUnknownUnitConversion, from, to)
	}
	return factor, nil
}
