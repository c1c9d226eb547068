package entsoe

import (
	emissions "entsoe-bridge/internal/emissions/domain"
)

// Document and process types used by the import queries.
const (
	DocumentPrices             = "A44"
	DocumentGenerationForecast = "A71"
	DocumentWindSolarForecast  = "A69"
	ProcessDayAhead            = "A01"

	curveSequentialFixed = "A03"
	reasonNoMatchingData = "999"
)

// PSR types for wind and solar forecasts.
const (
	PSRSolar        = "B16"
	PSRWindOffshore = "B18"
	PSRWindOnshore  = "B19"
)

var psrFuelTypes = map[string]emissions.FuelType{
	"B01": emissions.FuelBiomass,
	"B02": emissions.FuelLignite,
	"B03": emissions.FuelCoalDerivedGas,
	"B04": emissions.FuelGas,
	"B05": emissions.FuelHardCoal,
	"B06": emissions.FuelOil,
	"B07": emissions.FuelOilShale,
	"B08": emissions.FuelPeat,
	"B09": emissions.FuelGeothermal,
	"B10": emissions.FuelHydroPumpedStorage,
	"B11": emissions.FuelHydroRunOfRiver,
	"B12": emissions.FuelHydroReservoir,
	"B13": emissions.FuelMarine,
	"B14": emissions.FuelNuclear,
	"B15": emissions.FuelOtherRenewable,
	"B16": emissions.FuelSolar,
	"B17": emissions.FuelWaste,
	"B18": emissions.FuelWindOffshore,
	"B19": emissions.FuelWindOnshore,
	"B20": emissions.FuelOther,
	"B25": emissions.FuelOther,
}

// FuelTypeForPSR maps a PSR type code to a fuel type. Unmapped codes come back as
// "psr_<code>" so they surface as unknown fuel types.
func FuelTypeForPSR(code string) emissions.FuelType {
	if fuel, ok := psrFuelTypes[code]; ok {
		return fuel
	}
	return emissions.FuelType("psr_" + code)
}
