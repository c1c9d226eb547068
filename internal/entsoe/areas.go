package entsoe

import (
	"fmt"
	"sort"
	"strings"
)

// Area is a bidding zone or control area known to the transparency platform.
type Area struct {
	Code     string
	EIC      string
	Timezone string
}

var areas = map[string]Area{
	"AT":      {Code: "AT", EIC: "10YAT-APG------L", Timezone: "Europe/Vienna"},
	"BE":      {Code: "BE", EIC: "10YBE----------2", Timezone: "Europe/Brussels"},
	"BG":      {Code: "BG", EIC: "10YCA-BULGARIA-R", Timezone: "Europe/Sofia"},
	"CH":      {Code: "CH", EIC: "10YCH-SWISSGRIDZ", Timezone: "Europe/Zurich"},
	"CZ":      {Code: "CZ", EIC: "10YCZ-CEPS-----N", Timezone: "Europe/Prague"},
	"DE_LU":   {Code: "DE_LU", EIC: "10Y1001A1001A82H", Timezone: "Europe/Berlin"},
	"DK_1":    {Code: "DK_1", EIC: "10YDK-1--------W", Timezone: "Europe/Copenhagen"},
	"DK_2":    {Code: "DK_2", EIC: "10YDK-2--------M", Timezone: "Europe/Copenhagen"},
	"EE":      {Code: "EE", EIC: "10Y1001A1001A39I", Timezone: "Europe/Tallinn"},
	"ES":      {Code: "ES", EIC: "10YES-REE------0", Timezone: "Europe/Madrid"},
	"FI":      {Code: "FI", EIC: "10YFI-1--------U", Timezone: "Europe/Helsinki"},
	"FR":      {Code: "FR", EIC: "10YFR-RTE------C", Timezone: "Europe/Paris"},
	"GR":      {Code: "GR", EIC: "10YGR-HTSO-----Y", Timezone: "Europe/Athens"},
	"HR":      {Code: "HR", EIC: "10YHR-HEP------M", Timezone: "Europe/Zagreb"},
	"HU":      {Code: "HU", EIC: "10YHU-MAVIR----U", Timezone: "Europe/Budapest"},
	"IE_SEM":  {Code: "IE_SEM", EIC: "10Y1001A1001A59C", Timezone: "Europe/Dublin"},
	"IT_NORD": {Code: "IT_NORD", EIC: "10Y1001A1001A73I", Timezone: "Europe/Rome"},
	"LT":      {Code: "LT", EIC: "10YLT-1001A0008Q", Timezone: "Europe/Vilnius"},
	"LV":      {Code: "LV", EIC: "10YLV-1001A00074", Timezone: "Europe/Riga"},
	"NL":      {Code: "NL", EIC: "10YNL----------L", Timezone: "Europe/Amsterdam"},
	"NO_1":    {Code: "NO_1", EIC: "10YNO-1--------2", Timezone: "Europe/Oslo"},
	"PL":      {Code: "PL", EIC: "10YPL-AREA-----S", Timezone: "Europe/Warsaw"},
	"PT":      {Code: "PT", EIC: "10YPT-REN------W", Timezone: "Europe/Lisbon"},
	"RO":      {Code: "RO", EIC: "10YRO-TEL------P", Timezone: "Europe/Bucharest"},
	"SE_3":    {Code: "SE_3", EIC: "10Y1001A1001A46L", Timezone: "Europe/Stockholm"},
	"SI":      {Code: "SI", EIC: "10YSI-ELES-----O", Timezone: "Europe/Ljubljana"},
	"SK":      {Code: "SK", EIC: "10YSK-SEPS-----K", Timezone: "Europe/Bratislava"},
}

// areaAliases maps plain country codes to the zone that carries their day-ahead market.
var areaAliases = map[string]string{
	"DE": "DE_LU",
	"LU": "DE_LU",
	"IE": "IE_SEM",
	"IT": "IT_NORD",
	"NO": "NO_1",
	"SE": "SE_3",
	"DK": "DK_1",
}

// LookupArea resolves a country or zone code, or a raw EIC code, to an Area.
func LookupArea(code string) (Area, error) {
	key := strings.ToUpper(strings.TrimSpace(code))
	if key == "" {
		return Area{}, fmt.Errorf("%w: empty code", ErrUnknownArea)
	}
	if alias, ok := areaAliases[key]; ok {
		key = alias
	}
	if area, ok := areas[key]; ok {
		return area, nil
	}
	for _, area := range areas {
		if area.EIC == key {
			return area, nil
		}
	}
	if len(key) == 16 && strings.HasPrefix(key, "10Y") {
		return Area{Code: key, EIC: key}, nil
	}
	return Area{}, fmt.Errorf("%w: %s", ErrUnknownArea, code)
}

// AreaCodes lists the known zone codes in sorted order.
func AreaCodes() []string {
	out := make([]string, 0, len(areas))
	for code := range areas {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
