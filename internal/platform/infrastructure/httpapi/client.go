package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	platform "entsoe-bridge/internal/platform/domain"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

const apiPrefix = "/api/v3_0"

// Client is a REST client for a remote host platform. It implements platform.Store.
type Client struct {
	baseURL string
	tokens  *TokenSource
	client  *http.Client
}

// NewClient constructs a client.
func NewClient(baseURL string, tokens *TokenSource, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("httpapi: empty base url")
	}
	if tokens == nil {
		return nil, errors.New("httpapi: nil token source")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type assetTypeBody struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type assetBody struct {
	ID                 int64     `json:"id,omitempty"`
	Name               string    `json:"name"`
	GenericAssetTypeID int64     `json:"generic_asset_type_id"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
}

type sourceBody struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type sensorBody struct {
	ID              int64  `json:"id,omitempty"`
	GenericAssetID  int64  `json:"generic_asset_id"`
	Name            string `json:"name"`
	Unit            string `json:"unit"`
	EventResolution string `json:"event_resolution"`
	Timezone        string `json:"timezone"`
}

type beliefBody struct {
	SensorID   int64     `json:"sensor_id"`
	EventStart time.Time `json:"event_start"`
	BeliefTime time.Time `json:"belief_time"`
	SourceID   int64     `json:"source_id"`
	Value      float64   `json:"value"`
}

type beliefsRequest struct {
	Beliefs []beliefBody `json:"beliefs"`
}

type beliefsResponse struct {
	Results []struct {
		SensorID int64 `json:"sensor_id"`
		Inserted int   `json:"inserted"`
		Skipped  int   `json:"skipped"`
	} `json:"results"`
}

// FindAssetType looks up an asset type by name.
func (c *Client) FindAssetType(ctx context.Context, name string) (*platform.AssetType, error) {
	var resp []assetTypeBody
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/assets/types?name="+url.QueryEscape(name), nil, &resp); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	for _, item := range resp {
		if item.Name == name {
			return &platform.AssetType{ID: item.ID, Name: item.Name, Description: item.Description}, nil
		}
	}
	return nil, nil
}

// CreateAssetType creates an asset type.
func (c *Client) CreateAssetType(ctx context.Context, assetType *platform.AssetType) error {
	if assetType == nil {
		return errors.New("httpapi: nil asset type")
	}
	if err := assetType.Validate(); err != nil {
		return err
	}
	var resp assetTypeBody
	body := assetTypeBody{Name: assetType.Name, Description: assetType.Description}
	if err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/assets/types", body, &resp); err != nil {
		return err
	}
	assetType.ID = resp.ID
	return nil
}

// FindAsset looks up a public asset by name and type.
func (c *Client) FindAsset(ctx context.Context, name string, assetTypeID int64) (*platform.Asset, error) {
	query := url.Values{}
	query.Set("all_accessible", "true")
	query.Set("name", name)
	var resp []assetBody
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/assets?"+query.Encode(), nil, &resp); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	for _, item := range resp {
		if item.Name == name && item.GenericAssetTypeID == assetTypeID {
			return &platform.Asset{ID: item.ID, Name: item.Name, AssetTypeID: item.GenericAssetTypeID, CreatedAt: item.CreatedAt.UTC()}, nil
		}
	}
	return nil, nil
}

// CreateAsset creates a public asset.
func (c *Client) CreateAsset(ctx context.Context, asset *platform.Asset) error {
	if asset == nil {
		return errors.New("httpapi: nil asset")
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	var resp assetBody
	body := assetBody{Name: asset.Name, GenericAssetTypeID: asset.AssetTypeID}
	if err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/assets", body, &resp); err != nil {
		return err
	}
	asset.ID = resp.ID
	asset.CreatedAt = resp.CreatedAt.UTC()
	return nil
}

// FindSource looks up a data source by name and type.
func (c *Client) FindSource(ctx context.Context, name, sourceType string) (*platform.DataSource, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("type", sourceType)
	var resp []sourceBody
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/sources?"+query.Encode(), nil, &resp); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	for _, item := range resp {
		if item.Name == name && item.Type == sourceType {
			return &platform.DataSource{ID: item.ID, Name: item.Name, Type: item.Type}, nil
		}
	}
	return nil, nil
}

// CreateSource creates a data source.
func (c *Client) CreateSource(ctx context.Context, source *platform.DataSource) error {
	if source == nil {
		return errors.New("httpapi: nil source")
	}
	if err := source.Validate(); err != nil {
		return err
	}
	var resp sourceBody
	if err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/sources", sourceBody{Name: source.Name, Type: source.Type}, &resp); err != nil {
		return err
	}
	source.ID = resp.ID
	return nil
}

// ListSensors lists the sensors of an asset with a given name, oldest first.
func (c *Client) ListSensors(ctx context.Context, assetID int64, name string) ([]platform.Sensor, error) {
	query := url.Values{}
	query.Set("asset_id", strconv.FormatInt(assetID, 10))
	query.Set("name", name)
	var resp []sensorBody
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/sensors?"+query.Encode(), nil, &resp); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var result []platform.Sensor
	for _, item := range resp {
		if item.Name != name || item.GenericAssetID != assetID {
			continue
		}
		res, err := timeseries.ParseResolution(item.EventResolution)
		if err != nil {
			return nil, fmt.Errorf("httpapi: sensor %d: %w", item.ID, err)
		}
		result = append(result, platform.Sensor{
			ID:         item.ID,
			AssetID:    item.GenericAssetID,
			Name:       item.Name,
			Unit:       item.Unit,
			Resolution: res,
			Timezone:   item.Timezone,
		})
	}
	return result, nil
}

// CreateSensor creates a sensor.
func (c *Client) CreateSensor(ctx context.Context, sensor *platform.Sensor) error {
	if sensor == nil {
		return errors.New("httpapi: nil sensor")
	}
	if err := sensor.Validate(); err != nil {
		return err
	}
	body := sensorBody{
		GenericAssetID:  sensor.AssetID,
		Name:            sensor.Name,
		Unit:            sensor.Unit,
		EventResolution: timeseries.FormatResolution(sensor.Resolution),
		Timezone:        sensor.Timezone,
	}
	var resp sensorBody
	if err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/sensors", body, &resp); err != nil {
		return err
	}
	sensor.ID = resp.ID
	return nil
}

// SaveBeliefs posts all beliefs in one request; the platform commits them together.
func (c *Client) SaveBeliefs(ctx context.Context, beliefs []platform.Belief) (platform.SaveResult, error) {
	var result platform.SaveResult
	if len(beliefs) == 0 {
		return result, nil
	}
	req := beliefsRequest{Beliefs: make([]beliefBody, 0, len(beliefs))}
	for _, b := range beliefs {
		if err := b.Validate(); err != nil {
			return platform.SaveResult{}, err
		}
		req.Beliefs = append(req.Beliefs, beliefBody{
			SensorID:   b.SensorID,
			EventStart: b.EventStart.UTC(),
			BeliefTime: b.BeliefTime.UTC(),
			SourceID:   b.SourceID,
			Value:      b.Value,
		})
	}
	var resp beliefsResponse
	if err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/beliefs", req, &resp); err != nil {
		return platform.SaveResult{}, err
	}
	result.BySensor = make(map[int64]platform.SensorCount, len(resp.Results))
	for _, r := range resp.Results {
		result.Inserted += r.Inserted
		result.Skipped += r.Skipped
		result.BySensor[r.SensorID] = platform.SensorCount{Inserted: r.Inserted, Skipped: r.Skipped}
	}
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	if c == nil || c.client == nil {
		return errors.New("httpapi: nil client")
	}
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return platform.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpapi: %s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
