package models

// CommandableParameters are the device settings accepted on "<name>_new".
var CommandableParameters = []string{
	"term_d_m",
	"press_c_m",
	"term_c_max",
	"term_c_min",
	"term_k_m",
	"term_nasos",
	"power_m",
	"otbor",
	"time_stop",
	"otbor_minus",
	"min_otb",
	"sek_otb",
	"otbor_g_1",
	"otbor_g_2",
	"otbor_t",
	"delta_t",
}

func IsCommandable(name string) bool {
	for _, p := range CommandableParameters {
		if p == name {
			return true
		}
	}
	return false
}

// Command value limits.
const (
	MaxPWM         = 99
	MinTemperature = 0.0
	MaxTemperature = 100.0
)
