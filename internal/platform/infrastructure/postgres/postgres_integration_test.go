package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	platform "entsoe-bridge/internal/platform/domain"
	"entsoe-bridge/internal/platform/infrastructure/postgres"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate twice: %v", err)
	}

	store := postgres.NewStore(db)
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	assetType := &platform.AssetType{Name: "test zone " + suffix, Description: "integration"}
	if err := store.CreateAssetType(ctx, assetType); err != nil {
		t.Fatalf("create asset type: %v", err)
	}
	found, err := store.FindAssetType(ctx, assetType.Name)
	if err != nil || found == nil || found.ID != assetType.ID {
		t.Fatalf("find asset type: %+v %v", found, err)
	}

	asset := &platform.Asset{Name: "XX transmission zone", AssetTypeID: assetType.ID}
	if err := store.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	source := &platform.DataSource{Name: "ENTSO-E " + suffix, Type: "forecasting script"}
	if err := store.CreateSource(ctx, source); err != nil {
		t.Fatalf("create source: %v", err)
	}
	sensor := &platform.Sensor{AssetID: asset.ID, Name: "Day-ahead prices", Unit: "EUR/MWh", Resolution: 15 * time.Minute, Timezone: "Europe/Amsterdam"}
	if err := store.CreateSensor(ctx, sensor); err != nil {
		t.Fatalf("create sensor: %v", err)
	}
	sensors, err := store.ListSensors(ctx, asset.ID, "Day-ahead prices")
	if err != nil {
		t.Fatalf("list sensors: %v", err)
	}
	if len(sensors) != 1 || sensors[0].Resolution != 15*time.Minute {
		t.Fatalf("unexpected sensors: %+v", sensors)
	}

	start := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	belief := start.Add(-6 * time.Hour)
	beliefs := []platform.Belief{
		{SensorID: sensor.ID, EventStart: start, BeliefTime: belief, SourceID: source.ID, Value: 10},
		{SensorID: sensor.ID, EventStart: start.Add(15 * time.Minute), BeliefTime: belief, SourceID: source.ID, Value: 11},
	}
	first, err := store.SaveBeliefs(ctx, beliefs)
	if err != nil {
		t.Fatalf("save beliefs: %v", err)
	}
	if first.Inserted != 2 || first.Skipped != 0 {
		t.Fatalf("expected 2 inserted, got %+v", first)
	}
	second, err := store.SaveBeliefs(ctx, beliefs)
	if err != nil {
		t.Fatalf("save beliefs again: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %+v", second)
	}
}
