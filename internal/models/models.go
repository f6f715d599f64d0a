package models

import "time"

type ChargeBox struct {
	ChargeBoxId             string
	EndpointAddress         *string
	OcppVersion             *string
	ChargePointVendor       *string
	ChargePointModel        *string
	ChargePointSerialNumber *string
	ChargeBoxSerialNumber   *string
	FwVersion               *string
	Iccid                   *string
	Imsi                    *string
	MeterType               *string
	MeterSerialNumber       *string
	LastHeartbeatTimestamp  *time.Time
	FwUpdateStatus          *string
	FwUpdateTimestamp       *time.Time
	DiagnosticsStatus       *string
	DiagnosticsTimestamp    *time.Time
}

// ChargeBoxRegistration carries the descriptive attributes a charge box
// reports when it boots.
type ChargeBoxRegistration struct {
	EndpointAddress         string
	OcppVersion             OcppVersion
	ChargePointVendor       string
	ChargePointModel        string
	ChargePointSerialNumber string
	ChargeBoxSerialNumber   string
	FwVersion               string
	Iccid                   string
	Imsi                    string
	MeterType               string
	MeterSerialNumber       string
}

type Connector struct {
	ConnectorPk int64
	ChargeBoxId string
	ConnectorId int
}

type ConnectorStatus struct {
	ConnectorPk     int64
	StatusTimestamp time.Time
	Status          string
	ErrorCode       string
	ErrorInfo       *string
	VendorId        *string
	VendorErrorCode *string
}

// StatusEvent is one decoded status notification. A nil Timestamp means the
// device did not report one and the time of receipt is stored instead.
type StatusEvent struct {
	ChargeBoxId     string
	ConnectorId     int
	Status          string
	ErrorCode       string
	ErrorInfo       *string
	VendorId        *string
	VendorErrorCode *string
	Timestamp       *time.Time
}

type ConnectorMeterValue struct {
	ConnectorPk    int64
	TransactionPk  *int64
	ValueTimestamp time.Time
	Value          string
	ReadingContext *string
	Format         *string
	Measurand      *string
	Location       *string
	Unit           *string
}

type Transaction struct {
	TransactionPk  int64
	ConnectorPk    int64
	IdTag          string
	StartTimestamp time.Time
	StartValue     string
	StopTimestamp  *time.Time
	StopValue      *string
}

// StartTransaction opens a charging session. When ReservationId is set the
// reservation is consumed together with the session insert.
type StartTransaction struct {
	ChargeBoxId    string
	ConnectorId    int
	IdTag          string
	StartTimestamp time.Time
	StartValue     string
	ReservationId  *int64
}

type StopTransaction struct {
	TransactionId int64
	StopTimestamp time.Time
	StopValue     string
}

type Reservation struct {
	ReservationPk  int64
	IdTag          string
	ChargeBoxId    string
	StartDatetime  time.Time
	ExpiryDatetime time.Time
}
