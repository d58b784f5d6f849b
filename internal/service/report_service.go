package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/models"

	"github.com/jung-kurt/gofpdf"
)

const (
	DefaultReportPeriod = time.Hour
	reportFont          = "report"
	reportAlarmLimit    = 20
	maxChartPoints      = 600
)

var channelColors = map[models.Channel][3]int{
	models.ChannelColumn:      {31, 119, 180},
	models.ChannelCube:        {214, 39, 40},
	models.ChannelDeflegmator: {44, 160, 44},
}

// ReportService renders a PDF snapshot of the session: settings, signal
// states, latest values, a temperature chart and recent alarms.
type ReportService struct {
	monitor  *MonitorService
	alarms   IAlarmService
	fontPath string
	log      *logger.Logger
	now      func() time.Time
}

// NewReportService builds the service. Without a TTF fontPath the core
// Helvetica font is used and Cyrillic text is transliterated.
func NewReportService(monitor *MonitorService, alarms IAlarmService, fontPath string, log *logger.Logger) *ReportService {
	return &ReportService{
		monitor:  monitor,
		alarms:   alarms,
		fontPath: fontPath,
		log:      log.Named("report"),
		now:      time.Now,
	}
}

func (s *ReportService) Generate(ctx context.Context, w io.Writer, period time.Duration) error {
	if period <= 0 {
		period = DefaultReportPeriod
	}

	status := s.monitor.Status()
	now := s.now()

	alarms, err := s.alarms.History(ctx, reportAlarmLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to load alarms: %w", err)
	}

	series := make(map[models.Channel][]models.Sample, len(models.TrackedChannels))
	for _, ch := range models.TrackedChannels {
		samples, err := s.monitor.Window(ctx, ch, period)
		if err != nil {
			return err
		}
		series[ch] = samples
	}

	doc := s.newDoc()
	pdf := doc.pdf
	pdf.SetTitle("Alco ESP session report", true)
	pdf.AddPage()

	doc.font(16)
	doc.line(10, "Отчёт о сессии перегонки")
	doc.font(9)
	doc.line(5, "Generated "+now.Format("2006-01-02 15:04:05"))
	pdf.Ln(3)

	doc.section("Настройки")
	st := status.Settings
	rows := [][2]string{
		{"Сигнал T куба", fmt.Sprintf("%.1f", st.KubThreshold)},
		{"Сигнал T дефлегматора", fmt.Sprintf("%.1f", st.DeflegmatorThreshold)},
		{"Delta T", fmt.Sprintf("%.2f", st.DeltaT)},
		{"Период, с", fmt.Sprintf("%d", st.PeriodSeconds)},
		{"T остановки разгона", fmt.Sprintf("%.1f", st.RazgonStopTemp)},
	}
	for _, r := range rows {
		doc.row([]float64{70, 40}, r[0], r[1])
	}
	pdf.Ln(4)

	doc.section("Сигналы")
	widths := []float64{30, 25, 25, 100}
	doc.header(widths, "Signal", "State", "Phase", "Message")
	for _, sig := range status.Signals {
		doc.row(widths, sig.Signal, sig.State, sig.Phase, sig.Message)
	}
	wd := status.Watchdog
	doc.line(6, fmt.Sprintf("Last message %s, stale=%t", wd.LastMessageAt.Format("15:04:05"), wd.Stale))
	pdf.Ln(4)

	doc.section("Последние значения")
	for _, lv := range s.monitor.Latest() {
		doc.row([]float64{40, 60, 40}, lv.Key, lv.Raw, lv.ReceivedAt.Format("15:04:05"))
	}
	pdf.Ln(4)

	doc.section(fmt.Sprintf("Температуры (%v)", period))
	doc.chart(series, now.Add(-period), now, st.ChartYMin, st.ChartYMax)

	doc.section("Сигналы тревоги")
	if len(alarms) == 0 {
		doc.line(6, "-")
	}
	for _, a := range alarms {
		doc.row([]float64{40, 30, 110}, a.CreatedAt.Format("01-02 15:04:05"), a.Signal, a.Message)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

type reportDoc struct {
	pdf    *gofpdf.Fpdf
	family string
	text   func(string) string
}

// newDoc prefers the configured TTF font and falls back to core Helvetica.
func (s *ReportService) newDoc() *reportDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")

	if s.fontPath != "" {
		pdf.AddUTF8Font(reportFont, "", s.fontPath)
		if !pdf.Err() {
			return &reportDoc{pdf: pdf, family: reportFont, text: func(in string) string { return in }}
		}
		s.log.Warn("Failed to load report font %s: %v", s.fontPath, pdf.Error())
		pdf.ClearError()
	}

	return &reportDoc{pdf: pdf, family: "Helvetica", text: transliterate}
}

func (d *reportDoc) font(size float64) {
	d.pdf.SetFont(d.family, "", size)
}

func (d *reportDoc) line(height float64, s string) {
	d.pdf.CellFormat(0, height, d.text(s), "", 1, "L", false, 0, "")
}

func (d *reportDoc) section(title string) {
	d.font(12)
	d.line(8, title)
	d.font(9)
}

func (d *reportDoc) header(widths []float64, titles ...string) {
	d.pdf.SetFillColor(230, 230, 230)
	d.cells(widths, true, titles)
}

func (d *reportDoc) row(widths []float64, values ...string) {
	d.cells(widths, false, values)
}

func (d *reportDoc) cells(widths []float64, fill bool, values []string) {
	for i, v := range values {
		ln := 0
		if i == len(values)-1 {
			ln = 1
		}
		d.pdf.CellFormat(widths[i], 6, d.text(v), "1", ln, "L", fill, 0, "")
	}
}

func (d *reportDoc) chart(series map[models.Channel][]models.Sample, from, to time.Time, yMin, yMax float64) {
	const (
		width  = 180.0
		height = 70.0
	)
	pdf := d.pdf
	left, _, _, _ := pdf.GetMargins()
	top := pdf.GetY()

	scaleY := func(v float64) float64 {
		return top + height - (clamp(v, yMin, yMax)-yMin)/(yMax-yMin)*height
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Rect(left, top, width, height, "D")

	d.font(7)
	for _, y := range []float64{yMin, (yMin + yMax) / 2, yMax} {
		pdf.Text(left+1, scaleY(y), fmt.Sprintf("%.0f", y))
	}

	span := to.Sub(from).Seconds()
	pdf.SetLineWidth(0.4)
	legendX := left
	for _, ch := range models.TrackedChannels {
		color := channelColors[ch]
		pdf.SetDrawColor(color[0], color[1], color[2])
		pdf.SetTextColor(color[0], color[1], color[2])
		pdf.Text(legendX, top+height+4, d.text(ch.Label()))
		legendX += 35

		points := downsample(series[ch], maxChartPoints)
		for i := 1; i < len(points); i++ {
			x1 := left + points[i-1].Timestamp.Sub(from).Seconds()/span*width
			x2 := left + points[i].Timestamp.Sub(from).Seconds()/span*width
			pdf.Line(x1, scaleY(points[i-1].Value), x2, scaleY(points[i].Value))
		}
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.SetY(top + height + 8)
	d.font(9)
}

func downsample(samples []models.Sample, max int) []models.Sample {
	if len(samples) <= max {
		return samples
	}
	step := float64(len(samples)-1) / float64(max-1)
	out := make([]models.Sample, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, samples[int(float64(i)*step)])
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var latinOf = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'°': "", '≥': ">=", '≤': "<=", '—': "-", 'δ': "d",
}

// transliterate maps Cyrillic and a few symbols to ASCII for the core fonts, which only cover cp1252.
func transliterate(in string) string {
	var b strings.Builder
	for _, r := range in {
		lower := unicode.ToLower(r)
		latin, ok := latinOf[lower]
		switch {
		case !ok && r < 128:
			b.WriteRune(r)
		case !ok:
			b.WriteRune('?')
		case lower != r && latin != "":
			b.WriteString(strings.ToUpper(latin[:1]) + latin[1:])
		default:
			b.WriteString(latin)
		}
	}
	return b.String()
}
