package application

import (
	"time"

	emissions "entsoe-bridge/internal/emissions/domain"
	platformapp "entsoe-bridge/internal/platform/application"
)

// Sensor names on the transmission zone asset.
const (
	SensorDayAheadPrices      = "Day-ahead prices"
	SensorScheduledGeneration = "Scheduled generation"
	SensorSolar               = "Solar"
	SensorWindOnshore         = "Wind Onshore"
	SensorWindOffshore        = "Wind Offshore"
	SensorCO2Intensity        = "CO2 intensity"
)

// DefaultResolution is the resolution of newly created sensors.
const DefaultResolution = 15 * time.Minute

const (
	unitPrice    = "EUR/MWh"
	unitPower    = "MW"
	unitEmission = emissions.IntensityUnit
)

// PriceSensor describes the day-ahead price sensor.
func PriceSensor() platformapp.SensorSpec {
	return platformapp.SensorSpec{Name: SensorDayAheadPrices, Unit: unitPrice, Resolution: DefaultResolution}
}

// generationSensor ties an upstream generation series to its sensor.
type generationSensor struct {
	Spec platformapp.SensorSpec
	// Fuel is empty for the scheduled total.
	Fuel emissions.FuelType
}

// generationSensors lists the upstream generation sensors, total first.
func generationSensors() []generationSensor {
	return []generationSensor{
		{Spec: platformapp.SensorSpec{Name: SensorScheduledGeneration, Unit: unitPower, Resolution: DefaultResolution}},
		{Spec: platformapp.SensorSpec{Name: SensorSolar, Unit: unitPower, Resolution: DefaultResolution}, Fuel: emissions.FuelSolar},
		{Spec: platformapp.SensorSpec{Name: SensorWindOnshore, Unit: unitPower, Resolution: DefaultResolution}, Fuel: emissions.FuelWindOnshore},
		{Spec: platformapp.SensorSpec{Name: SensorWindOffshore, Unit: unitPower, Resolution: DefaultResolution}, Fuel: emissions.FuelWindOffshore},
	}
}

// IntensitySensor describes the derived CO2 intensity sensor.
func IntensitySensor() platformapp.SensorSpec {
	return platformapp.SensorSpec{Name: SensorCO2Intensity, Unit: unitEmission, Resolution: DefaultResolution, Derived: true}
}
