package sbatch

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/segtools/phaseseg/pkg/segment"
)

// ExportZip packages a completed job: the tabular summary, every original
// and classified overlay at full resolution, a metadata record, an HTML
// distribution report and a color legend. Layout follows the exchange
// convention the downstream analysis scripts already read:
//
//	batch_results.csv
//	metadata.json
//	report.html
//	legend.png
//	originals/<name>.png
//	classified/<name>.png
func ExportZip(j *Job, phases []*segment.Phase, cfg segment.Config) ([]byte, error) {
	if j.State() != JobComplete {
		return nil, fmt.Errorf("export: job %s is '%s', not complete", j.ID, j.State())
	}
	results := j.Results()
	if len(results) == 0 {
		return nil, fmt.Errorf("export: job %s has no successful results", j.ID)
	}

	// Sort by physical X center, the order the CSV and report use
	sorted := append([]*ImageResult(nil), results...)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Meta.Rect.CenterX() < sorted[b].Meta.Rect.CenterX()
	})

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	if w, err := zw.Create("batch_results.csv"); err != nil {
		return nil, fmt.Errorf("export batch_results.csv: %v", err)
	} else if err := writeCSV(w, sorted, phases); err != nil {
		return nil, fmt.Errorf("export batch_results.csv: %v", err)
	}

	for _, r := range sorted {
		name := pngName(r.Meta.Name)
		if err := addPNG(zw, "originals/"+name, r.Original); err != nil {
			return nil, err
		}
		if err := addPNG(zw, "classified/"+name, r.Overlay); err != nil {
			return nil, err
		}
	}

	if err := addMetadata(zw, j, sorted, phases, cfg); err != nil {
		return nil, err
	}
	if err := addReport(zw, sorted, phases); err != nil {
		return nil, err
	}
	if err := addLegend(zw, phases); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: close zip: %v", err)
	}
	return buf.Bytes(), nil
}

func pngName(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".png") {
		return name
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name + ".png"
}

func addPNG(zw *zip.Writer, path string, img image.Image) error {
	w, err := zw.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %v", path, err)
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("export %s: %v", path, err)
	}
	return nil
}

// writeCSV emits one row per image, sorted by X center: identity, corner
// and center coordinates, pixel and physical dimensions, then a fraction
// column per phase plus the unclassified bucket.
func writeCSV(w io.Writer, results []*ImageResult, phases []*segment.Phase) error {
	cw := csv.NewWriter(w)

	header := []string{
		"Image", "X_Center", "Y_Center", "X0", "Y0", "X1", "Y1",
		"Width_px", "Height_px", "Physical_Width", "Physical_Height",
	}
	for _, p := range phases {
		header = append(header, fmt.Sprintf("%s_Fraction_%%", p.Name))
	}
	header = append(header, "Unclassified_%")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		m := r.Meta
		row := []string{
			m.Name,
			fmt.Sprintf("%.4f", m.Rect.CenterX()),
			fmt.Sprintf("%.4f", m.Rect.CenterY()),
			fmt.Sprintf("%.4f", m.Rect.X0),
			fmt.Sprintf("%.4f", m.Rect.Y0),
			fmt.Sprintf("%.4f", m.Rect.X1),
			fmt.Sprintf("%.4f", m.Rect.Y1),
			fmt.Sprintf("%d", m.Width),
			fmt.Sprintf("%d", m.Height),
			fmt.Sprintf("%.4f", m.PhysicalWidth),
			fmt.Sprintf("%.4f", m.PhysicalHeight),
		}
		for _, p := range phases {
			row = append(row, fmt.Sprintf("%.2f", r.Stats.Fraction(int32(p.ID))))
		}
		row = append(row, fmt.Sprintf("%.2f", r.Stats.Fraction(segment.Unclassified)))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// exportMetadata is the metadata.json shape: enough to re-run the job
// (phase definitions + parameters) plus per-image summaries.
type exportMetadata struct {
	JobID       string           `json:"jobId"`
	ProcessedAt string           `json:"processedAt"`
	NumImages   int              `json:"numImages"`
	Bins        int              `json:"bins"`
	Phases      []*segment.Phase `json:"phases"`
	Images      []imageSummary   `json:"images"`
}

type imageSummary struct {
	Name            string            `json:"name"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Rect            [4]float64        `json:"rect"` // x0,y0,x1,y1
	CenterX         float64           `json:"xCenter"`
	CenterY         float64           `json:"yCenter"`
	CapturedAt     *time.Time        `json:"capturedAt,omitempty"`
	ArealFractions map[string]string `json:"arealFractions"`
}

func addMetadata(zw *zip.Writer, j *Job, results []*ImageResult, phases []*segment.Phase, cfg segment.Config) error {
	meta := exportMetadata{
		JobID:       j.ID,
		ProcessedAt: time.Now().Format(time.RFC3339),
		NumImages:   len(results),
		Bins:        cfg.Bins,
		Phases:      phases,
	}
	for _, r := range results {
		fracs := map[string]string{
			"unclassified": fmt.Sprintf("%.2f", r.Stats.Fraction(segment.Unclassified)),
		}
		for _, p := range phases {
			fracs[p.Name] = fmt.Sprintf("%.2f", r.Stats.Fraction(int32(p.ID)))
		}
		meta.Images = append(meta.Images, imageSummary{
			Name:           r.Meta.Name,
			Width:          r.Meta.Width,
			Height:         r.Meta.Height,
			Rect:           [4]float64{r.Meta.Rect.X0, r.Meta.Rect.Y0, r.Meta.Rect.X1, r.Meta.Rect.Y1},
			CenterX:        r.Meta.Rect.CenterX(),
			CenterY:        r.Meta.Rect.CenterY(),
			CapturedAt:     r.Meta.CapturedAt,
			ArealFractions: fracs,
		})
	}

	w, err := zw.Create("metadata.json")
	if err != nil {
		return fmt.Errorf("export metadata.json: %v", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("export metadata.json: %v", err)
	}
	return nil
}

// addReport renders report.html. One image: a line chart of the binned
// X-axis distribution. Several: a scatter of whole-image fractions against
// each image's physical center, which is what you want when the images are
// spatially distinct samples along a specimen.
func addReport(zw *zip.Writer, results []*ImageResult, phases []*segment.Phase) error {
	w, err := zw.Create("report.html")
	if err != nil {
		return fmt.Errorf("export report.html: %v", err)
	}

	if len(results) == 1 {
		r := results[0]
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "Phase distribution", Width: "1100px", Height: "600px"}),
			charts.WithTitleOpts(opts.Title{Title: "Phase distribution across X", Subtitle: r.Meta.Name}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "X (physical)"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "areal fraction (%)"}),
		)

		xs := make([]string, len(r.Distribution))
		for i, bin := range r.Distribution {
			xs[i] = fmt.Sprintf("%.3f", r.Meta.Rect.PhysicalX(bin.BinCenterX, r.Meta.Width))
		}
		line.SetXAxis(xs)

		for _, p := range phases {
			data := make([]opts.LineData, len(r.Distribution))
			for i, bin := range r.Distribution {
				data[i] = opts.LineData{Value: bin.Fractions[int32(p.ID)]}
			}
			line.AddSeries(p.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: p.DisplayColor}))
		}
		unc := make([]opts.LineData, len(r.Distribution))
		for i, bin := range r.Distribution {
			unc[i] = opts.LineData{Value: bin.Fractions[segment.Unclassified]}
		}
		line.AddSeries("unclassified", unc)

		if err := line.Render(w); err != nil {
			return fmt.Errorf("export report.html: %v", err)
		}
		return nil
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Phase fractions", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Whole-image phase fractions vs position", Subtitle: fmt.Sprintf("%d images", len(results))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X center (physical)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "areal fraction (%)"}),
	)

	for _, p := range phases {
		data := make([]opts.ScatterData, 0, len(results))
		for _, r := range results {
			data = append(data, opts.ScatterData{
				Value: []interface{}{r.Point.CenterX, r.Point.Fractions[int32(p.ID)]},
			})
		}
		scatter.AddSeries(p.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: p.DisplayColor}))
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("export report.html: %v", err)
	}
	return nil
}

// addLegend draws a swatch-per-phase legend PNG for use next to the
// overlays.
func addLegend(zw *zip.Writer, phases []*segment.Phase) error {
	const (
		rowH   = 28
		swatch = 18
		width  = 280
	)
	dc := gg.NewContext(width, rowH*(len(phases)+1)+12)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	y := 12.0
	for _, p := range phases {
		rgb := p.DisplayRGB()
		dc.SetRGB255(int(rgb.R), int(rgb.G), int(rgb.B))
		dc.DrawRectangle(12, y, swatch, swatch)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawString(p.Name, 12+swatch+10, y+swatch-4)
		y += rowH
	}
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.DrawRectangle(12, y, swatch, swatch)
	dc.Stroke()
	dc.SetRGB(0, 0, 0)
	dc.DrawString("unclassified", 12+swatch+10, y+swatch-4)

	w, err := zw.Create("legend.png")
	if err != nil {
		return fmt.Errorf("export legend.png: %v", err)
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("export legend.png: %v", err)
	}
	return nil
}
