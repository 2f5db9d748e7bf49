package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/phpdave11/gofpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.25rem 0.5rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders Markdown into a standalone page.
func HTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}

// WritePDF writes a one-page landscape summary.
func (r *Report) WritePDF(path string) error {
	t := r.Totals()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Sediment nutrient value: %s", r.Scope.Code))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Run %s, dose %s t/ha, %s nutrient basis", r.RunID, number(q.Some(r.Dose), 0), r.Params.Basis))
	pdf.Ln(10)

	header := []string{"Year", "Reuse ha", "Applied N", "Applied P", "Usable N", "Usable P", "N met", "P met", "Limiting", "Separate"}
	widths := []float64{18, 26, 26, 26, 26, 26, 22, 22, 38, 38}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, v := range r.Rows {
		cells := []string{
			fmt.Sprint(v.Year), number(v.ReuseArea, 2),
			number(v.AppliedN, 2), number(v.AppliedP, 2),
			number(v.UsableN, 2), number(v.UsableP, 2),
			Percent(v.PercentN), Percent(v.PercentP),
			Money(v.LimitingTotal), Money(v.SeparateTotal),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("%d of %d years have a defined reuse area.", t.ValidYears, t.Years),
		fmt.Sprintf("Limiting-nutrient value, total: %s", Money(t.SumLimiting)),
		fmt.Sprintf("Separate pricing value, total: %s (mean %s per year)", Money(t.SumSeparate), Money(t.MeanSeparate)),
	}
	for _, l := range lines {
		pdf.Cell(0, 6, l)
		pdf.Ln(6)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}
