package services

import (
	"context"
	"errors"
	"time"

	"evcpms/internal/metrics"
	"evcpms/internal/models"
	"evcpms/internal/repo"

	"go.uber.org/zap"
)

type chargeBoxStore interface {
	UpdateRegistration(ctx context.Context, chargeBoxId string, reg models.ChargeBoxRegistration, now time.Time) (bool, error)
	UpdateFirmwareStatus(ctx context.Context, chargeBoxId, status string) error
	UpdateDiagnosticsStatus(ctx context.Context, chargeBoxId, status string) error
	UpdateHeartbeat(ctx context.Context, chargeBoxId string, ts time.Time) error
}

type connectorStore interface {
	InsertStatus(ctx context.Context, ev models.StatusEvent) (bool, error)
}

type meterValueStore interface {
	InsertLegacy(ctx context.Context, chargeBoxId string, connectorId int, values []models.LegacyMeterValue) (int, error)
	Insert(ctx context.Context, chargeBoxId string, connectorId int, transactionId *int64, values []models.MeterValue) (int, error)
	InsertForTransaction(ctx context.Context, transactionId int64, values []models.MeterValue) (int, error)
}

type transactionStore interface {
	Start(ctx context.Context, s models.StartTransaction) (int64, error)
	Stop(ctx context.Context, s models.StopTransaction) error
}

// ChargePointService persists what charge points report. Only registration
// and transaction start report failure to the caller; every other write is
// best effort and its failure ends up in the log and the error counter.
type ChargePointService struct {
	chargeBoxes  chargeBoxStore
	connectors   connectorStore
	meterValues  meterValueStore
	transactions transactionStore
	metrics      *metrics.Metrics
	log          *zap.Logger
}

func NewChargePointService(
	chargeBoxes chargeBoxStore,
	connectors connectorStore,
	meterValues meterValueStore,
	transactions transactionStore,
	m *metrics.Metrics,
	log *zap.Logger,
) *ChargePointService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChargePointService{
		chargeBoxes:  chargeBoxes,
		connectors:   connectors,
		meterValues:  meterValues,
		transactions: transactions,
		metrics:      m,
		log:          log,
	}
}

// UpdateRegistration stores boot attributes and reports whether the charge
// box is known.
func (s *ChargePointService) UpdateRegistration(ctx context.Context, chargeBoxId string, reg models.ChargeBoxRegistration, now time.Time) (bool, error) {
	ok, err := s.chargeBoxes.UpdateRegistration(ctx, chargeBoxId, reg, now)
	s.metrics.Observe("update_registration", err)
	log := s.log.With(zap.String("charge_box_id", chargeBoxId), zap.String("ocpp_version", string(reg.OcppVersion)))
	switch {
	case err != nil:
		log.Error("update registration failed", zap.Error(err))
		return false, err
	case ok:
		log.Info("charge box is registered, boot acknowledged")
	default:
		log.Warn("charge box is NOT registered, boot rejected")
	}
	return ok, nil
}

func (s *ChargePointService) UpdateFirmwareStatus(ctx context.Context, chargeBoxId, status string) {
	err := s.chargeBoxes.UpdateFirmwareStatus(ctx, chargeBoxId, status)
	s.bestEffort("update_firmware_status", err, zap.String("charge_box_id", chargeBoxId), zap.String("status", status))
}

func (s *ChargePointService) UpdateDiagnosticsStatus(ctx context.Context, chargeBoxId, status string) {
	err := s.chargeBoxes.UpdateDiagnosticsStatus(ctx, chargeBoxId, status)
	s.bestEffort("update_diagnostics_status", err, zap.String("charge_box_id", chargeBoxId), zap.String("status", status))
}

func (s *ChargePointService) UpdateHeartbeat(ctx context.Context, chargeBoxId string, ts time.Time) {
	err := s.chargeBoxes.UpdateHeartbeat(ctx, chargeBoxId, ts)
	s.bestEffort("update_heartbeat", err, zap.String("charge_box_id", chargeBoxId))
}

// InsertConnectorStatus appends a status row and registers the connector on
// its first event.
func (s *ChargePointService) InsertConnectorStatus(ctx context.Context, ev models.StatusEvent) {
	created, err := s.connectors.InsertStatus(ctx, ev)
	fields := []zap.Field{
		zap.String("charge_box_id", ev.ChargeBoxId),
		zap.Int("connector_id", ev.ConnectorId),
		zap.String("status", ev.Status),
	}
	s.bestEffort("insert_connector_status", err, fields...)
	if err != nil {
		return
	}
	if created {
		s.metrics.ConnectorCreated()
		s.log.Info("connector is new", fields[:2]...)
	} else {
		s.log.Debug("connector already known", fields[:2]...)
	}
}

// InsertConnectorStatus12 covers devices that report neither a timestamp nor
// the optional error detail fields.
func (s *ChargePointService) InsertConnectorStatus12(ctx context.Context, chargeBoxId string, connectorId int, status, errorCode string) {
	s.InsertConnectorStatus(ctx, models.StatusEvent{
		ChargeBoxId: chargeBoxId,
		ConnectorId: connectorId,
		Status:      status,
		ErrorCode:   errorCode,
	})
}

func (s *ChargePointService) InsertMeterValuesLegacy(ctx context.Context, chargeBoxId string, connectorId int, values []models.LegacyMeterValue) {
	n, err := s.meterValues.InsertLegacy(ctx, chargeBoxId, connectorId, values)
	s.meterValuesDone("insert_meter_values_legacy", n, err,
		zap.String("charge_box_id", chargeBoxId), zap.Int("connector_id", connectorId))
}

func (s *ChargePointService) InsertMeterValues(ctx context.Context, chargeBoxId string, connectorId int, transactionId *int64, values []models.MeterValue) {
	fields := []zap.Field{zap.String("charge_box_id", chargeBoxId), zap.Int("connector_id", connectorId)}
	if transactionId != nil {
		fields = append(fields, zap.Int64("transaction_id", *transactionId))
	}
	n, err := s.meterValues.Insert(ctx, chargeBoxId, connectorId, transactionId, values)
	s.meterValuesDone("insert_meter_values", n, err, fields...)
}

func (s *ChargePointService) InsertMeterValuesOfTransaction(ctx context.Context, transactionId int64, values []models.MeterValue) {
	n, err := s.meterValues.InsertForTransaction(ctx, transactionId, values)
	s.meterValuesDone("insert_meter_values_of_transaction", n, err, zap.Int64("transaction_id", transactionId))
}

// StartTransaction opens a session and consumes its reservation. Unlike the
// other writes, its failure is returned so the caller can reject the start.
func (s *ChargePointService) StartTransaction(ctx context.Context, st models.StartTransaction) (int64, error) {
	id, err := s.transactions.Start(ctx, st)
	s.metrics.Observe("start_transaction", err, repo.ErrConnectorNotFound, repo.ErrReservationNotFound)

	fields := []zap.Field{
		zap.String("charge_box_id", st.ChargeBoxId),
		zap.Int("connector_id", st.ConnectorId),
		zap.String("id_tag", st.IdTag),
	}
	if st.ReservationId != nil {
		fields = append(fields, zap.Int64("reservation_id", *st.ReservationId))
	}
	if err != nil {
		s.log.Error("start transaction failed", append(fields, zap.Error(err))...)
		return 0, err
	}
	s.log.Info("transaction started", append(fields, zap.Int64("transaction_id", id))...)
	return id, nil
}

func (s *ChargePointService) StartTransactionWithoutReservation(ctx context.Context, chargeBoxId string, connectorId int, idTag string, startTimestamp time.Time, startValue string) (int64, error) {
	return s.StartTransaction(ctx, models.StartTransaction{
		ChargeBoxId:    chargeBoxId,
		ConnectorId:    connectorId,
		IdTag:          idTag,
		StartTimestamp: startTimestamp,
		StartValue:     startValue,
	})
}

func (s *ChargePointService) StopTransaction(ctx context.Context, st models.StopTransaction) {
	err := s.transactions.Stop(ctx, st)
	s.bestEffort("stop_transaction", err, zap.Int64("transaction_id", st.TransactionId), zap.String("stop_value", st.StopValue))
}

func (s *ChargePointService) meterValuesDone(operation string, n int, err error, fields ...zap.Field) {
	s.bestEffort(operation, err, fields...)
	if err != nil {
		return
	}
	s.metrics.MeterValuesStored(n)
	s.log.Debug("meter values stored", append(fields, zap.Int("rows", n))...)
}

// bestEffort records the outcome of an operation whose failure is not
// reported to the device.
func (s *ChargePointService) bestEffort(operation string, err error, fields ...zap.Field) {
	s.metrics.Observe(operation, err, notFoundErrors...)
	if err == nil {
		return
	}
	fields = append(fields, zap.String("operation", operation), zap.Error(err))
	if isNotFound(err) {
		s.log.Warn("nothing to update", fields...)
		return
	}
	s.log.Error("persistence failed", fields...)
}

var notFoundErrors = []error{
	repo.ErrChargeBoxNotFound,
	repo.ErrConnectorNotFound,
	repo.ErrTransactionNotFound,
	repo.ErrReservationNotFound,
}

func isNotFound(err error) bool {
	for _, nf := range notFoundErrors {
		if errors.Is(err, nf) {
			return true
		}
	}
	return false
}
