package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	platform "entsoe-bridge/internal/platform/domain"
	"entsoe-bridge/internal/platform/infrastructure/memory"
)

var pricesSpec = SensorSpec{Name: "Day-ahead prices", Unit: "EUR/MWh", Resolution: 15 * time.Minute}

func newResolver(t *testing.T, store *memory.Store, policy ResolutionPolicy) *SensorResolver {
	t.Helper()
	resolver, err := NewSensorResolver(store, store, store, policy, "Europe/Amsterdam", log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func zone(t *testing.T, resolver *SensorResolver) *platform.Asset {
	t.Helper()
	asset, err := resolver.EnsureTransmissionZone(context.Background(), "nl")
	if err != nil {
		t.Fatalf("ensure transmission zone: %v", err)
	}
	return asset
}

func TestEnsureTransmissionZoneIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	resolver := newResolver(t, store, PolicyFail)

	first := zone(t, resolver)
	second := zone(t, resolver)
	if first.ID != second.ID {
		t.Fatalf("expected same asset, got %d and %d", first.ID, second.ID)
	}
	if first.Name != "NL transmission zone" {
		t.Fatalf("unexpected asset name %q", first.Name)
	}
	assetType, err := store.FindAssetType(context.Background(), TransmissionZoneType)
	if err != nil || assetType == nil {
		t.Fatalf("expected asset type, got %v %v", assetType, err)
	}
	if assetType.Description != TransmissionZoneDescription {
		t.Fatalf("unexpected description %q", assetType.Description)
	}
}

func TestEnsureSourceIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	resolver := newResolver(t, store, PolicyFail)

	first, err := resolver.EnsureSource(context.Background(), UpstreamSourceName)
	if err != nil {
		t.Fatalf("ensure source: %v", err)
	}
	second, err := resolver.EnsureSource(context.Background(), UpstreamSourceName)
	if err != nil {
		t.Fatalf("ensure source again: %v", err)
	}
	if first.ID != second.ID || first.Type != SourceTypeForecast {
		t.Fatalf("expected one forecasting source, got %+v and %+v", first, second)
	}
}

func TestResolveCreatesThenFinds(t *testing.T) {
	store := memory.NewStore()
	resolver := newResolver(t, store, PolicyFail)
	asset := zone(t, resolver)

	created, err := resolver.Resolve(context.Background(), asset, pricesSpec, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if created.State != StateCreated || created.Sensor.Resolution != 15*time.Minute {
		t.Fatalf("expected created 15 minute sensor, got %+v", created)
	}
	if created.Sensor.Timezone != "Europe/Amsterdam" {
		t.Fatalf("unexpected timezone %q", created.Sensor.Timezone)
	}

	again, err := resolver.Resolve(context.Background(), asset, pricesSpec, 15*time.Minute)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.State != StateExisting || again.Sensor.ID != created.Sensor.ID {
		t.Fatalf("expected existing sensor %d, got %+v", created.Sensor.ID, again)
	}
	if len(store.Sensors()) != 1 {
		t.Fatalf("expected one sensor, got %d", len(store.Sensors()))
	}
}

func TestResolveDefaultKeepsExistingResolution(t *testing.T) {
	store := memory.NewStore()
	resolver := newResolver(t, store, PolicyFail)
	asset := zone(t, resolver)

	hourly, err := resolver.Resolve(context.Background(), asset, pricesSpec, time.Hour)
	if err != nil {
		t.Fatalf("resolve hourly: %v", err)
	}
	got, err := resolver.Resolve(context.Background(), asset, pricesSpec, 0)
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if got.Sensor.ID != hourly.Sensor.ID || got.Sensor.Resolution != time.Hour {
		t.Fatalf("expected the hourly sensor, got %+v", got)
	}
}

func TestResolveResolutionPolicies(t *testing.T) {
	cases := []struct {
		name    string
		policy  ResolutionPolicy
		wantErr error
		check   func(t *testing.T, existing platform.Sensor, got ResolvedSensor)
	}{
		{
			name:    "fail",
			policy:  PolicyFail,
			wantErr: platform.ErrSensorResolutionConflict,
		},
		{
			name:   "resample",
			policy: PolicyResample,
			check: func(t *testing.T, existing platform.Sensor, got ResolvedSensor) {
				if got.Sensor.ID != existing.ID || !got.Resampled || got.Sensor.Resolution != time.Hour {
					t.Fatalf("expected existing hourly sensor marked resampled, got %+v", got)
				}
			},
		},
		{
			name:   "new sensor",
			policy: PolicyNewSensor,
			check: func(t *testing.T, existing platform.Sensor, got ResolvedSensor) {
				if got.Sensor.ID == existing.ID || got.State != StateCreated {
					t.Fatalf("expected a new sensor, got %+v", got)
				}
				if got.Sensor.Name != "Day-ahead prices (PT15M)" || got.Sensor.Resolution != 15*time.Minute {
					t.Fatalf("unexpected new sensor %+v", got.Sensor)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			seed := newResolver(t, store, PolicyFail)
			asset := zone(t, seed)
			existing, err := seed.Resolve(context.Background(), asset, pricesSpec, time.Hour)
			if err != nil {
				t.Fatalf("seed hourly sensor: %v", err)
			}

			resolver := newResolver(t, store, tc.policy)
			got, err := resolver.Resolve(context.Background(), asset, pricesSpec, 15*time.Minute)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			tc.check(t, existing.Sensor, got)

			again, err := resolver.Resolve(context.Background(), asset, pricesSpec, 15*time.Minute)
			if err != nil {
				t.Fatalf("resolve again: %v", err)
			}
			if again.Sensor.ID != got.Sensor.ID {
				t.Fatalf("expected idempotent resolution, got %d then %d", got.Sensor.ID, again.Sensor.ID)
			}
		})
	}
}

func TestResolveIgnoresOtherUnits(t *testing.T) {
	store := memory.NewStore()
	resolver := newResolver(t, store, PolicyFail)
	asset := zone(t, resolver)

	if err := store.CreateSensor(context.Background(), &platform.Sensor{
		AssetID: asset.ID, Name: pricesSpec.Name, Unit: "EUR/kWh", Resolution: time.Hour, Timezone: "UTC",
	}); err != nil {
		t.Fatalf("seed sensor: %v", err)
	}
	got, err := resolver.Resolve(context.Background(), asset, pricesSpec, 15*time.Minute)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.State != StateCreated || got.Sensor.Unit != "EUR/MWh" {
		t.Fatalf("expected a new EUR/MWh sensor, got %+v", got)
	}
}

func TestParseResolutionPolicy(t *testing.T) {
	for input, want := range map[string]ResolutionPolicy{
		"":           PolicyFail,
		"FAIL":       PolicyFail,
		"resample":   PolicyResample,
		"new_sensor": PolicyNewSensor,
		"new-sensor": PolicyNewSensor,
	} {
		got, err := ParseResolutionPolicy(input)
		if err != nil || got != want {
			t.Fatalf("parse %q: expected %s, got %s (%v)", input, want, got, err)
		}
	}
	if _, err := ParseResolutionPolicy("migrate"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
