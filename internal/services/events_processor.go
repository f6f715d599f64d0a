package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"evcpms/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("invalid event")

const (
	StatusAccepted = "Accepted"
	StatusRejected = "Rejected"
)

// ChargePointStore is what the processor persists events through.
// *ChargePointService implements it.
type ChargePointStore interface {
	UpdateRegistration(ctx context.Context, chargeBoxId string, reg models.ChargeBoxRegistration, now time.Time) (bool, error)
	UpdateFirmwareStatus(ctx context.Context, chargeBoxId, status string)
	UpdateDiagnosticsStatus(ctx context.Context, chargeBoxId, status string)
	UpdateHeartbeat(ctx context.Context, chargeBoxId string, ts time.Time)
	InsertConnectorStatus(ctx context.Context, ev models.StatusEvent)
	InsertMeterValuesLegacy(ctx context.Context, chargeBoxId string, connectorId int, values []models.LegacyMeterValue)
	InsertMeterValues(ctx context.Context, chargeBoxId string, connectorId int, transactionId *int64, values []models.MeterValue)
	InsertMeterValuesOfTransaction(ctx context.Context, transactionId int64, values []models.MeterValue)
	StartTransaction(ctx context.Context, s models.StartTransaction) (int64, error)
	StopTransaction(ctx context.Context, s models.StopTransaction)
}

var _ ChargePointStore = (*ChargePointService)(nil)

type EventsProcessor struct {
	Store    ChargePointStore
	MaxSkew  time.Duration
	validate *validator.Validate
	now      func() time.Time
}

func NewEventsProcessor(store ChargePointStore, maxSkew time.Duration) *EventsProcessor {
	return &EventsProcessor{
		Store:    store,
		MaxSkew:  maxSkew,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Envelope is one decoded charge point message as forwarded by the gateway.
type Envelope struct {
	Type        string          `json:"type" validate:"required,oneof=BootNotification Heartbeat StatusNotification MeterValues StartTransaction StopTransaction FirmwareStatusNotification DiagnosticsStatusNotification"`
	ChargeBoxId string          `json:"chargeBoxId" validate:"required,max=255"`
	EventId     string          `json:"eventId"`
	Timestamp   *time.Time      `json:"timestamp"`
	Payload     json.RawMessage `json:"payload"`
}

type Result struct {
	EventId       string `json:"eventId"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	TransactionId *int64 `json:"transactionId,omitempty"`
}

type bootPayload struct {
	EndpointAddress         string `json:"endpointAddress"`
	OcppVersion             string `json:"ocppVersion" validate:"required,oneof=1.2 1.5 1.6"`
	ChargePointVendor       string `json:"chargePointVendor" validate:"required,max=20"`
	ChargePointModel        string `json:"chargePointModel" validate:"required,max=20"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber"`
	FirmwareVersion         string `json:"firmwareVersion"`
	Iccid                   string `json:"iccid"`
	Imsi                    string `json:"imsi"`
	MeterType               string `json:"meterType"`
	MeterSerialNumber       string `json:"meterSerialNumber"`
}

type statusPayload struct {
	ConnectorId     *int       `json:"connectorId" validate:"required,min=0"`
	Status          string     `json:"status" validate:"required"`
	ErrorCode       string     `json:"errorCode" validate:"required"`
	Info            *string    `json:"info"`
	VendorId        *string    `json:"vendorId"`
	VendorErrorCode *string    `json:"vendorErrorCode"`
	Timestamp       *time.Time `json:"timestamp"`
}

type sampledValuePayload struct {
	Value     string  `json:"value" validate:"required"`
	Context   *string `json:"context" validate:"omitempty,oneof=Interruption.Begin Interruption.End Sample.Clock Sample.Periodic Transaction.Begin Transaction.End"`
	Format    *string `json:"format" validate:"omitempty,oneof=Raw SignedData"`
	Measurand *string `json:"measurand"`
	Location  *string `json:"location" validate:"omitempty,oneof=Inlet Outlet Body"`
	Unit      *string `json:"unit"`
}

// meterValuePayload is either the legacy shape, with Value, or the current
// shape, with SampledValue.
type meterValuePayload struct {
	Timestamp    time.Time             `json:"timestamp" validate:"required"`
	Value        *int                  `json:"value" validate:"required_without=SampledValue,excluded_with=SampledValue"`
	SampledValue []sampledValuePayload `json:"sampledValue" validate:"dive"`
}

type meterValuesPayload struct {
	ConnectorId   int                 `json:"connectorId" validate:"min=0"`
	TransactionId *int64              `json:"transactionId"`
	Values        []meterValuePayload `json:"values" validate:"dive"`
}

type startPayload struct {
	ConnectorId   int       `json:"connectorId" validate:"required,min=1"`
	IdTag         string    `json:"idTag" validate:"required,max=20"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	MeterStart    *int      `json:"meterStart" validate:"required"`
	ReservationId *int64    `json:"reservationId"`
}

type stopPayload struct {
	TransactionId   *int64              `json:"transactionId" validate:"required"`
	Timestamp       time.Time           `json:"timestamp" validate:"required"`
	MeterStop       *int                `json:"meterStop" validate:"required"`
	TransactionData []meterValuePayload `json:"transactionData" validate:"dive"`
}

type firmwarePayload struct {
	Status string `json:"status" validate:"required"`
}

// Ingest decodes one event and hands it to the store. Errors wrapping
// ErrInvalidEvent mean the event was malformed and nothing was written.
func (p *EventsProcessor) Ingest(ctx context.Context, raw []byte) (Result, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := p.validate.Struct(env); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if env.EventId == "" {
		env.EventId = uuid.NewString()
	}

	res := Result{EventId: env.EventId, Type: env.Type, Status: StatusAccepted}
	cb := env.ChargeBoxId

	switch env.Type {
	case "BootNotification":
		var pl bootPayload
		if err := p.decode(env.Payload, &pl); err != nil {
			return Result{}, err
		}
		ok, err := p.Store.UpdateRegistration(ctx, cb, models.ChargeBoxRegistration{
			EndpointAddress:         pl.EndpointAddress,
			OcppVersion:             models.OcppVersion(pl.OcppVersion),
			ChargePointVendor:       pl.ChargePointVendor,
			ChargePointModel:        pl.ChargePointModel,
			ChargePointSerialNumber: pl.ChargePointSerialNumber,
			ChargeBoxSerialNumber:   pl.ChargeBoxSerialNumber,
			FwVersion:               pl.FirmwareVersion,
			Iccid:                   pl.Iccid,
			Imsi:                    pl.Imsi,
			MeterType:               pl.MeterType,
			MeterSerialNumber:       pl.MeterSerialNumber,
		}, p.eventTime(env.Timestamp))
		if err != nil || !ok {
			res.Status = StatusRejected
		}

	case "Heartbeat":
		p.Store.UpdateHeartbeat(ctx, cb, p.eventTime(env.Timestamp))

	case "StatusNotification":
		var pl statusPayload
		if err := p.decode(env.Payload, &pl); err != nil {
			return Result{}, err
		}
		p.Store.InsertConnectorStatus(ctx, models.StatusEvent{
			ChargeBoxId:     cb,
			ConnectorId:     *pl.ConnectorId,
			Status:          pl.Status,
			ErrorCode:       pl.ErrorCode,
			ErrorInfo:       pl.Info,
			VendorId:        pl.VendorId,
			VendorErrorCode: pl.VendorErrorCode,
			Timestamp:       pl.Timestamp,
		})

	case "MeterValues":
		var pl meterValuesPayload
		if err := p.decode(env.Payload, &pl); err != nil {
			return Result{}, err
		}
		legacy, current, err := splitMeterValues(pl.Values)
		if err != nil {
			return Result{}, err
		}
		if legacy != nil {
			p.Store.InsertMeterValuesLegacy(ctx, cb, pl.ConnectorId, legacy)
		} else {
			p.Store.InsertMeterValues(ctx, cb, pl.ConnectorId, pl.TransactionId, current)
		}

	case "StartTransaction":
		var pl startPayload
		if err := p.decode(env.Payload, &pl); err != nil {
			return Result{}, err
		}
		id, err := p.Store.StartTransaction(ctx, models.StartTransaction{
			ChargeBoxId:    cb,
			ConnectorId:    pl.ConnectorId,
			IdTag:          pl.IdTag,
			StartTimestamp: pl.Timestamp,
			StartValue:     strconv.Itoa(*pl.MeterStart),
			ReservationId:  pl.ReservationId,
		})
		if err != nil {
			res.Status = StatusRejected
		} else {
			res.TransactionId = &id
		}

	case "StopTransaction":
		var pl stopPayload
		if err := p.decode(env.Payload, &pl); err != nil {
			return Result{}, err
		}
		legacy, data, err := splitMeterValues(pl.TransactionData)
		if err != nil {
			return Result{}, err
		}
		if legacy != nil {
			return Result{}, fmt.Errorf("%w: transaction data needs sampled readings", ErrInvalidEvent)
		}
		p.Store.StopTransaction(ctx, models.StopTransaction{
			TransactionId: *pl.TransactionId,
			StopTimestamp: pl.Timestamp,
			StopValue:     strconv.Itoa(*pl.MeterStop),
		})
		if len(data) > 0 {
			p.Store.InsertMeterValuesOfTransaction(ctx, *pl.TransactionId, data)
		}
		res.TransactionId = pl.TransactionId

	case "FirmwareStatusNotification":
		var pl firmwarePayload
		if err := p.decode(env.Payload, &pl); err != nil {
			return Result{}, err
		}
		p.Store.UpdateFirmwareStatus(ctx, cb, pl.Status)

	case "DiagnosticsStatusNotification":
		var pl firmwarePayload
		if err := p.decode(env.Payload, &pl); err != nil {
			return Result{}, err
		}
		p.Store.UpdateDiagnosticsStatus(ctx, cb, pl.Status)
	}

	return res, nil
}

func (p *EventsProcessor) decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrInvalidEvent, err)
	}
	if err := p.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrInvalidEvent, err)
	}
	return nil
}

// eventTime falls back to the time of receipt when the device clock is
// missing or further off than MaxSkew.
func (p *EventsProcessor) eventTime(ts *time.Time) time.Time {
	now := p.now()
	if ts == nil {
		return now
	}
	t := ts.UTC()
	if p.MaxSkew > 0 && (t.Before(now.Add(-p.MaxSkew)) || t.After(now.Add(p.MaxSkew))) {
		return now
	}
	return t
}

// splitMeterValues converts the payload into exactly one of the two shapes.
// A batch mixing both shapes is rejected.
func splitMeterValues(values []meterValuePayload) ([]models.LegacyMeterValue, []models.MeterValue, error) {
	var legacy []models.LegacyMeterValue
	var current []models.MeterValue
	for _, v := range values {
		if v.Value != nil {
			legacy = append(legacy, models.LegacyMeterValue{Timestamp: v.Timestamp, Value: *v.Value})
			continue
		}
		mv := models.MeterValue{Timestamp: v.Timestamp}
		for _, sv := range v.SampledValue {
			mv.Values = append(mv.Values, models.SampledValue{
				Value:     sv.Value,
				Context:   asEnum[models.ReadingContext](sv.Context),
				Format:    asEnum[models.ValueFormat](sv.Format),
				Measurand: asEnum[models.Measurand](sv.Measurand),
				Location:  asEnum[models.Location](sv.Location),
				Unit:      asEnum[models.UnitOfMeasure](sv.Unit),
			})
		}
		current = append(current, mv)
	}
	if legacy != nil && current != nil {
		return nil, nil, fmt.Errorf("%w: meter values mix legacy and sampled readings", ErrInvalidEvent)
	}
	return legacy, current, nil
}

func asEnum[T ~string](s *string) *T {
	if s == nil {
		return nil
	}
	return models.Optional(T(*s))
}
