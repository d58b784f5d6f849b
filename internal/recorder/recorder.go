// Package recorder writes incoming device data to rotating CSV logs.
package recorder

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"AlcoMonitorAPI/internal/config"
	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/telemetry"
)

const (
	MainLogName = "alco_esp_data.csv"
	AllLogName  = "alco_esp_all_device_data.csv"

	timeLayout = "2006-01-02 15:04:05.000"
)

// Recorder keeps two logs: the main topics in fixed columns, and every
// message as time;topic;value.
type Recorder struct {
	mu      sync.Mutex
	main    *RotatingFile
	all     *RotatingFile
	mainCSV *csv.Writer
	allCSV  *csv.Writer
	columns map[string]int
}

func New(cfg config.RecorderConfig) (*Recorder, error) {
	mainHeader := []string{"Время"}
	for _, topic := range models.MainTopics {
		mainHeader = append(mainHeader, models.TopicLabels[topic])
	}

	main, err := OpenRotating(filepath.Join(cfg.Dir, MainLogName),
		strings.Join(mainHeader, ";"), cfg.MaxBytes, cfg.Backups)
	if err != nil {
		return nil, err
	}

	all, err := OpenRotating(filepath.Join(cfg.Dir, AllLogName),
		"Время;Топик;Значение", cfg.MaxBytes, cfg.Backups)
	if err != nil {
		main.Close()
		return nil, err
	}

	columns := make(map[string]int, len(models.MainTopics))
	for i, topic := range models.MainTopics {
		columns[topic] = i
	}

	return &Recorder{
		main:    main,
		all:     all,
		mainCSV: newWriter(main),
		allCSV:  newWriter(all),
		columns: columns,
	}, nil
}

func newWriter(f *RotatingFile) *csv.Writer {
	w := csv.NewWriter(f)
	w.Comma = ';'
	return w
}

// FormatValue renders numbers in scientific notation so spreadsheets import
// them regardless of locale. Other payloads pass through.
func FormatValue(payload string) string {
	v, err := telemetry.ParseValue(payload)
	if err != nil {
		return payload
	}
	return strconv.FormatFloat(v, 'e', 6, 64)
}

// Record appends one message to the all-data log and, for main topics, to
// the main log.
func (r *Recorder) Record(topic, payload string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := at.Format(timeLayout)
	value := FormatValue(payload)

	if err := r.allCSV.Write([]string{ts, topic, value}); err != nil {
		return fmt.Errorf("failed to write all-data log: %w", err)
	}
	r.allCSV.Flush()
	if err := r.allCSV.Error(); err != nil {
		return fmt.Errorf("failed to flush all-data log: %w", err)
	}

	idx, ok := r.columns[topic]
	if !ok {
		return nil
	}

	row := make([]string, len(models.MainTopics)+1)
	row[0] = ts
	row[idx+1] = value
	if err := r.mainCSV.Write(row); err != nil {
		return fmt.Errorf("failed to write main data log: %w", err)
	}
	r.mainCSV.Flush()
	if err := r.mainCSV.Error(); err != nil {
		return fmt.Errorf("failed to flush main data log: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errMain := r.main.Close()
	errAll := r.all.Close()
	if errMain != nil {
		return errMain
	}
	return errAll
}
