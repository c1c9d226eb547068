package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/xuri/excelize/v2"

	"entsoe-bridge/internal/importer/application"
	platformapp "entsoe-bridge/internal/platform/application"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

type stubWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() application.ImportCompleted {
	return application.ImportCompleted{
		Kind:       application.KindPrices,
		Country:    "NL",
		From:       time.Date(2024, 6, 12, 22, 0, 0, 0, time.UTC),
		Until:      time.Date(2024, 6, 13, 22, 0, 0, 0, time.UTC),
		Status:     platformapp.StatusSuccess,
		Inserted:   96,
		Sensors:    []string{"Day-ahead prices"},
		OccurredAt: time.Date(2024, 6, 12, 20, 0, 0, 0, time.UTC),
	}
}

func sampleResult() application.Result {
	loc, _ := time.LoadLocation("Europe/Amsterdam")
	from := time.Date(2024, 6, 13, 0, 0, 0, 0, loc)
	points := make([]timeseries.Point, 4)
	for i := range points {
		points[i] = timeseries.Point{At: from.Add(time.Duration(i) * 15 * time.Minute).UTC(), Value: float64(10 + i), Valid: i != 2}
	}
	return application.Result{
		Kind:     application.KindPrices,
		Country:  "NL",
		Window:   timeseries.Window{From: from, Until: from.Add(time.Hour)},
		Status:   platformapp.StatusSuccess,
		Inserted: 3,
		Sensors: []application.SensorReport{{
			SensorID:   1,
			Name:       "Day-ahead prices",
			Unit:       "EUR/MWh",
			Resolution: 15 * time.Minute,
			Source:     "ENTSO-E",
			State:      platformapp.StateCreated,
			Points:     points,
			Inserted:   3,
		}},
	}
}

func TestLoggingPublisher(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLoggingPublisher(log.New(&buf, "", 0))
	if err := publisher.PublishImportCompleted(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(buf.String(), "kind=prices country=NL") {
		t.Fatalf("unexpected log: %q", buf.String())
	}
}

func TestKafkaPublisher(t *testing.T) {
	writer := &stubWriter{}
	publisher, err := NewKafkaPublisher(writer)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := publisher.PublishImportCompleted(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "NL/prices" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var payload importCompletedMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Type != "import_completed" || payload.Inserted != 96 || payload.Status != "success" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer closed, err=%v", err)
	}
}

func TestMultiPublisherJoinsErrors(t *testing.T) {
	failing, _ := NewKafkaPublisher(&stubWriter{err: errors.New("broker down")})
	var buf bytes.Buffer
	multi := MultiPublisher{NewLoggingPublisher(log.New(&buf, "", 0)), failing}
	err := multi.PublishImportCompleted(context.Background(), sampleEvent())
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("expected broker error, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("logging publisher must still run")
	}
}

func TestNewKafkaWriterValidates(t *testing.T) {
	if _, err := NewKafkaWriter(nil, "topic"); err == nil {
		t.Fatalf("expected error without brokers")
	}
	writer, err := NewKafkaWriter([]string{"localhost:9092"}, "entsoe.import.completed")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if writer.Topic != "entsoe.import.completed" {
		t.Fatalf("unexpected topic %q", writer.Topic)
	}
}

func TestBuildReportXLSX(t *testing.T) {
	data, err := BuildReportXLSX(sampleResult())
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	country, _ := f.GetCellValue("summary", "B4")
	if country != "NL" {
		t.Fatalf("unexpected country %q", country)
	}
	start, _ := f.GetCellValue("values", "B2")
	if start != "2024-06-13 00:00 CEST" {
		t.Fatalf("unexpected first start %q", start)
	}
	missing, _ := f.GetCellValue("values", "C4")
	if missing != "" {
		t.Fatalf("missing value must stay empty, got %q", missing)
	}
	rows, err := f.GetRows("values")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header and 4 rows, got %d", len(rows))
	}
}

func TestBuildReportPDF(t *testing.T) {
	data, err := BuildReportPDF(sampleResult())
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf header")
	}
	if _, err := BuildReportPDF(application.Result{}); err == nil {
		t.Fatalf("expected error for empty result")
	}
}
