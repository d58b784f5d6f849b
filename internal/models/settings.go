package models

import (
	"fmt"
	"strings"
)

const (
	DefaultKubThreshold         = 60.0
	DefaultDeflegmatorThreshold = 70.0
	DefaultDeltaT               = 0.2
	DefaultPeriodSeconds        = 60
	DefaultRazgonStopTemp       = 70.0
	DefaultChartYMin            = 10.0
	DefaultChartYMax            = 110.0
)

// Settings holds the operator-tunable thresholds.
type Settings struct {
	KubThreshold         float64 `json:"t_signal_kub" yaml:"t_signal_kub"`
	DeflegmatorThreshold float64 `json:"t_signal_deflegmator" yaml:"t_signal_deflegmator"`
	DeltaT               float64 `json:"delta_t" yaml:"delta_t"`
	PeriodSeconds        int     `json:"period_seconds" yaml:"period_seconds"`
	RazgonStopTemp       float64 `json:"temp_stop_razgon" yaml:"temp_stop_razgon"`
	ChartYMin            float64 `json:"chart_y_min" yaml:"chart_y_min"`
	ChartYMax            float64 `json:"chart_y_max" yaml:"chart_y_max"`
}

func DefaultSettings() Settings {
	return Settings{
		KubThreshold:         DefaultKubThreshold,
		DeflegmatorThreshold: DefaultDeflegmatorThreshold,
		DeltaT:               DefaultDeltaT,
		PeriodSeconds:        DefaultPeriodSeconds,
		RazgonStopTemp:       DefaultRazgonStopTemp,
		ChartYMin:            DefaultChartYMin,
		ChartYMax:            DefaultChartYMax,
	}
}

// Validate reports every out-of-range field at once.
func (s Settings) Validate() error {
	var errors []string

	if s.KubThreshold < 0 || s.KubThreshold > 100 {
		errors = append(errors, "t_signal_kub must be between 0 and 100")
	}

	if s.DeflegmatorThreshold < 0 || s.DeflegmatorThreshold > 100 {
		errors = append(errors, "t_signal_deflegmator must be between 0 and 100")
	}

	if s.DeltaT < 0.01 || s.DeltaT > 10 {
		errors = append(errors, "delta_t must be between 0.01 and 10")
	}

	if s.PeriodSeconds < 1 || s.PeriodSeconds > 3600 {
		errors = append(errors, "period_seconds must be between 1 and 3600")
	}

	if s.RazgonStopTemp < 0 || s.RazgonStopTemp > 100 {
		errors = append(errors, "temp_stop_razgon must be between 0 and 100")
	}

	if s.ChartYMin < -50 || s.ChartYMin > 200 || s.ChartYMax < -50 || s.ChartYMax > 200 {
		errors = append(errors, "chart_y_min and chart_y_max must be between -50 and 200")
	}

	if s.ChartYMin >= s.ChartYMax {
		errors = append(errors, "chart_y_min must be less than chart_y_max")
	}

	if len(errors) > 0 {
		return fmt.Errorf("settings validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
