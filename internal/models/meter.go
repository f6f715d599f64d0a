package models

import "time"

type OcppVersion string

const (
	Ocpp12 OcppVersion = "1.2"
	Ocpp15 OcppVersion = "1.5"
	Ocpp16 OcppVersion = "1.6"
)

type ReadingContext string

const (
	ContextInterruptionBegin ReadingContext = "Interruption.Begin"
	ContextInterruptionEnd   ReadingContext = "Interruption.End"
	ContextSampleClock       ReadingContext = "Sample.Clock"
	ContextSamplePeriodic    ReadingContext = "Sample.Periodic"
	ContextTransactionBegin  ReadingContext = "Transaction.Begin"
	ContextTransactionEnd    ReadingContext = "Transaction.End"
)

type ValueFormat string

const (
	FormatRaw        ValueFormat = "Raw"
	FormatSignedData ValueFormat = "SignedData"
)

type Measurand string

const (
	MeasurandEnergyActiveExportRegister   Measurand = "Energy.Active.Export.Register"
	MeasurandEnergyActiveImportRegister   Measurand = "Energy.Active.Import.Register"
	MeasurandEnergyReactiveExportRegister Measurand = "Energy.Reactive.Export.Register"
	MeasurandEnergyReactiveImportRegister Measurand = "Energy.Reactive.Import.Register"
	MeasurandEnergyActiveExportInterval   Measurand = "Energy.Active.Export.Interval"
	MeasurandEnergyActiveImportInterval   Measurand = "Energy.Active.Import.Interval"
	MeasurandEnergyReactiveExportInterval Measurand = "Energy.Reactive.Export.Interval"
	MeasurandEnergyReactiveImportInterval Measurand = "Energy.Reactive.Import.Interval"
	MeasurandPowerActiveExport            Measurand = "Power.Active.Export"
	MeasurandPowerActiveImport            Measurand = "Power.Active.Import"
	MeasurandPowerReactiveExport          Measurand = "Power.Reactive.Export"
	MeasurandPowerReactiveImport          Measurand = "Power.Reactive.Import"
	MeasurandCurrentExport                Measurand = "Current.Export"
	MeasurandCurrentImport                Measurand = "Current.Import"
	MeasurandVoltage                      Measurand = "Voltage"
	MeasurandTemperature                  Measurand = "Temperature"
)

type Location string

const (
	LocationInlet  Location = "Inlet"
	LocationOutlet Location = "Outlet"
	LocationBody   Location = "Body"
)

type UnitOfMeasure string

const (
	UnitWh      UnitOfMeasure = "Wh"
	UnitKWh     UnitOfMeasure = "kWh"
	UnitVarh    UnitOfMeasure = "varh"
	UnitKvarh   UnitOfMeasure = "kvarh"
	UnitW       UnitOfMeasure = "W"
	UnitKW      UnitOfMeasure = "kW"
	UnitVar     UnitOfMeasure = "var"
	UnitKvar    UnitOfMeasure = "kvar"
	UnitAmp     UnitOfMeasure = "Amp"
	UnitVolt    UnitOfMeasure = "Volt"
	UnitCelsius UnitOfMeasure = "Celsius"
)

// LegacyMeterValue is the OCPP 1.2 reading: one integer per timestamp and no
// attributes.
type LegacyMeterValue struct {
	Timestamp time.Time
	Value     int
}

// MeterValue groups the sampled values a device took at one instant.
type MeterValue struct {
	Timestamp time.Time
	Values    []SampledValue
}

// SampledValue attributes are optional; nil is stored as NULL.
type SampledValue struct {
	Value     string
	Context   *ReadingContext
	Format    *ValueFormat
	Measurand *Measurand
	Location  *Location
	Unit      *UnitOfMeasure
}

// Optional returns a pointer to v, for filling optional attributes.
func Optional[T any](v T) *T {
	return &v
}

// NullableString converts an optional enum attribute to its column value.
func NullableString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
