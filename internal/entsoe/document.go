package entsoe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	timeseries "entsoe-bridge/internal/timeseries/domain"
)

// marketDocument covers the publication, generation-load and acknowledgement
// documents. Element names are matched without namespaces.
type marketDocument struct {
	XMLName    xml.Name
	TimeSeries []xmlTimeSeries `xml:"TimeSeries"`
	Reasons    []xmlReason     `xml:"Reason"`
}

type xmlReason struct {
	Code string `xml:"code"`
	Text string `xml:"text"`
}

type xmlTimeSeries struct {
	BusinessType string      `xml:"businessType"`
	InDomain     string      `xml:"inBiddingZone_Domain.mRID"`
	OutDomain    string      `xml:"outBiddingZone_Domain.mRID"`
	Currency     string      `xml:"currency_Unit.name"`
	PriceUnit    string      `xml:"price_Measure_Unit.name"`
	QuantityUnit string      `xml:"quantity_Measure_Unit.name"`
	CurveType    string      `xml:"curveType"`
	PSRType      string      `xml:"MktPSRType>psrType"`
	Periods      []xmlPeriod `xml:"Period"`
}

type xmlPeriod struct {
	Start      string     `xml:"timeInterval>start"`
	End        string     `xml:"timeInterval>end"`
	Resolution string     `xml:"resolution"`
	Points     []xmlPoint `xml:"Point"`
}

type xmlPoint struct {
	Position int      `xml:"position"`
	Price    *float64 `xml:"price.amount"`
	Quantity *float64 `xml:"quantity"`
}

// segment is one period of one upstream time series with positions expanded.
type segment struct {
	PSRType      string
	Unit         string
	Consumption  bool
	Resolution   time.Duration
	Observations []timeseries.RawObservation
}

var timeLayouts = []string{"2006-01-02T15:04Z07:00", time.RFC3339}

func decodeDocument(body []byte) (*marketDocument, error) {
	var doc marketDocument
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}

func (d *marketDocument) acknowledgement() bool {
	return d != nil && strings.HasPrefix(d.XMLName.Local, "Acknowledgement")
}

func (d *marketDocument) reason() (xmlReason, bool) {
	if d == nil || len(d.Reasons) == 0 {
		return xmlReason{}, false
	}
	return d.Reasons[0], true
}

// noMatchingData reports the acknowledgement sent for a query without results. The
// platform uses reason 999 for other failures too, so the text is checked as well.
func (d *marketDocument) noMatchingData() bool {
	r, ok := d.reason()
	return ok && r.Code == reasonNoMatchingData && strings.Contains(strings.ToLower(r.Text), "no matching data")
}

func (d *marketDocument) segments(prices bool) ([]segment, error) {
	var out []segment
	for _, ts := range d.TimeSeries {
		unit := timeseries.CanonicalUnit(ts.QuantityUnit)
		if prices {
			unit = timeseries.CanonicalUnit(ts.Currency + "/" + ts.PriceUnit)
		}
		for _, p := range ts.Periods {
			res, obs, err := expandPeriod(p, ts.CurveType, prices)
			if err != nil {
				return nil, err
			}
			out = append(out, segment{
				PSRType:      ts.PSRType,
				Unit:         unit,
				Consumption:  ts.OutDomain != "" && ts.InDomain == "" && !prices,
				Resolution:   res,
				Observations: obs,
			})
		}
	}
	return out, nil
}

// expandPeriod turns positions into timestamps. Curve type A03 omits positions whose
// value repeats the previous one, so those are filled from the last seen value.
func expandPeriod(p xmlPeriod, curveType string, prices bool) (time.Duration, []timeseries.RawObservation, error) {
	start, err := parseTime(p.Start)
	if err != nil {
		return 0, nil, err
	}
	end, err := parseTime(p.End)
	if err != nil {
		return 0, nil, err
	}
	res, err := timeseries.ParseResolution(p.Resolution)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if !start.Before(end) {
		return 0, nil, fmt.Errorf("%w: period %s to %s", ErrMalformedDocument, p.Start, p.End)
	}
	slots := int(end.Sub(start) / res)

	values := make(map[int]float64, len(p.Points))
	for _, pt := range p.Points {
		v := pt.Quantity
		if prices {
			v = pt.Price
		}
		if v == nil {
			continue
		}
		if pt.Position < 1 || pt.Position > slots {
			return 0, nil, fmt.Errorf("%w: position %d outside period of %d", ErrMalformedDocument, pt.Position, slots)
		}
		values[pt.Position] = *v
	}

	obs := make([]timeseries.RawObservation, 0, slots)
	last, seen := 0.0, false
	for pos := 1; pos <= slots; pos++ {
		v, ok := values[pos]
		if !ok && curveType == curveSequentialFixed && seen {
			v, ok = last, true
		}
		if !ok {
			continue
		}
		last, seen = v, true
		obs = append(obs, timeseries.RawObservation{At: start.Add(time.Duration(pos-1) * res), Value: v})
	}
	return res, obs, nil
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrMalformedDocument, value)
}

// mergeSegments joins segments into one raw series at the finest resolution present.
// Coarser periods are held onto the finest grid, and where periods at different
// resolutions cover the same slot the finer value wins.
func mergeSegments(kind timeseries.SeriesKind, segments []segment) (timeseries.RawSeries, error) {
	raw := timeseries.RawSeries{Kind: kind}
	for _, s := range segments {
		if raw.Resolution == 0 || s.Resolution < raw.Resolution {
			raw.Resolution = s.Resolution
		}
	}
	ordered := append([]segment(nil), segments...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Resolution < ordered[j].Resolution
	})

	covered := make(map[time.Time]time.Duration)
	for _, s := range ordered {
		if s.Resolution%raw.Resolution != 0 {
			return timeseries.RawSeries{}, fmt.Errorf("%w: period resolution %s is not a multiple of %s",
				ErrMalformedDocument, s.Resolution, raw.Resolution)
		}
		if raw.Unit == "" {
			raw.Unit = s.Unit
		}
		fuel := ""
		if s.PSRType != "" {
			fuel = string(FuelTypeForPSR(s.PSRType))
		}
		steps := int(s.Resolution / raw.Resolution)
		for _, o := range s.Observations {
			for k := 0; k < steps; k++ {
				at := o.At.Add(time.Duration(k) * raw.Resolution)
				if res, ok := covered[at]; ok && res < s.Resolution {
					continue
				}
				covered[at] = s.Resolution
				raw.Observations = append(raw.Observations, timeseries.RawObservation{At: at, Value: o.Value, FuelType: fuel})
			}
		}
	}
	sort.SliceStable(raw.Observations, func(i, j int) bool {
		return raw.Observations[i].At.Before(raw.Observations[j].At)
	})
	return raw, nil
}
