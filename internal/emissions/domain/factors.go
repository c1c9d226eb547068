package emissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FuelType names a production category. Values follow the transparency platform's
// PSR type descriptions in snake case.
type FuelType string

const (
	FuelBiomass            FuelType = "biomass"
	FuelLignite            FuelType = "fossil_brown_coal_lignite"
	FuelCoalDerivedGas     FuelType = "fossil_coal_derived_gas"
	FuelGas                FuelType = "fossil_gas"
	FuelHardCoal           FuelType = "fossil_hard_coal"
	FuelOil                FuelType = "fossil_oil"
	FuelOilShale           FuelType = "fossil_oil_shale"
	FuelPeat               FuelType = "fossil_peat"
	FuelGeothermal         FuelType = "geothermal"
	FuelHydroPumpedStorage FuelType = "hydro_pumped_storage"
	FuelHydroRunOfRiver    FuelType = "hydro_run_of_river_and_poundage"
	FuelHydroReservoir     FuelType = "hydro_water_reservoir"
	FuelMarine             FuelType = "marine"
	FuelNuclear            FuelType = "nuclear"
	FuelOtherRenewable     FuelType = "other_renewable"
	FuelSolar              FuelType = "solar"
	FuelWaste              FuelType = "waste"
	FuelWindOffshore       FuelType = "wind_offshore"
	FuelWindOnshore        FuelType = "wind_onshore"
	FuelOther              FuelType = "other"
	// FuelResidual is total scheduled generation minus the reported wind and solar.
	FuelResidual FuelType = "residual"
)

// IntensityUnit is the unit of derived intensity series and of factor values.
const IntensityUnit = "kg/MWh"

var (
	// ErrUnknownFuelType is returned in strict mode when a generation series has no factor.
	ErrUnknownFuelType = errors.New("emissions: unknown fuel type")
	// ErrNegativeFactor is returned when a factor table holds a negative value.
	ErrNegativeFactor = errors.New("emissions: negative emission factor")
	// ErrNoGeneration is returned when no generation series is supplied.
	ErrNoGeneration = errors.New("emissions: no generation series")
)

// FactorTable maps fuel types to life-cycle emission factors in kg CO2 per MWh.
type FactorTable map[FuelType]float64

// DefaultFactors returns median life-cycle factors. Residual generation is assumed to
// be gas-fired, the usual marginal technology.
func DefaultFactors() FactorTable {
	return FactorTable{
		FuelBiomass:            230,
		FuelLignite:            1100,
		FuelCoalDerivedGas:     820,
		FuelGas:                490,
		FuelHardCoal:           820,
		FuelOil:                650,
		FuelOilShale:           1000,
		FuelPeat:               1000,
		FuelGeothermal:         38,
		FuelHydroPumpedStorage: 24,
		FuelHydroRunOfRiver:    24,
		FuelHydroReservoir:     24,
		FuelMarine:             24,
		FuelNuclear:            12,
		FuelOtherRenewable:     30,
		FuelSolar:              45,
		FuelWaste:              580,
		FuelWindOffshore:       12,
		FuelWindOnshore:        11,
		FuelOther:              700,
		FuelResidual:           490,
	}
}

// Merge returns a copy of the table with overrides applied. Keys are matched case
// insensitively.
func (t FactorTable) Merge(overrides map[string]float64) FactorTable {
	out := make(FactorTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		key := FuelType(strings.ToLower(strings.TrimSpace(k)))
		if key == "" {
			continue
		}
		out[key] = v
	}
	return out
}

// Validate rejects negative factors.
func (t FactorTable) Validate() error {
	for _, fuel := range t.Fuels() {
		if t[fuel] < 0 {
			return fmt.Errorf("%w: %s=%v", ErrNegativeFactor, fuel, t[fuel])
		}
	}
	return nil
}

// Fuels returns the fuel types in the table in sorted order.
func (t FactorTable) Fuels() []FuelType {
	out := make([]FuelType, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lookup returns the factor for the fuel type.
func (t FactorTable) Lookup(fuel FuelType) (float64, bool) {
	v, ok := t[fuel]
	return v, ok
}
