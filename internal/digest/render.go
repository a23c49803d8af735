// Package digest renders the consolidated Digest into the delivery
// representations: an HTML document for the morning email and a plain
// text fallback. Rendering is a pure transform; no detector logic and
// no clock reads live here.
package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/scoutwatch/scout/internal/domain"
)

var htmlTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"value": formatValue,
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Scout Daily Digest {{.ReferenceDate}}</title></head>
<body style="font-family: -apple-system, Segoe UI, Helvetica, Arial, sans-serif; color: #24292e; max-width: 720px; margin: 0 auto;">
<h1 style="font-size: 20px;">Scout Daily Digest &mdash; {{.ReferenceDate}}</h1>
<p style="color: #586069;">Analysis date {{.AnalysisDate}} &middot; generated {{.GeneratedAt.UTC.Format "2006-01-02 15:04:05"}} UTC</p>

<table width="100%" cellpadding="0" cellspacing="0" style="margin: 24px 0;">
<tr>
<td width="25%" align="center" style="padding: 16px; background: #ffebee; border-radius: 8px;">
<div style="font-size: 32px; font-weight: 700;">{{.Counts.Disaster}}</div>
<div style="font-size: 12px; text-transform: uppercase;">Disasters (P0)</div>
</td>
<td width="25%" align="center" style="padding: 16px; background: #fff8e1; border-radius: 8px;">
<div style="font-size: 32px; font-weight: 700;">{{.Counts.Spam}}</div>
<div style="font-size: 12px; text-transform: uppercase;">Spam (P1)</div>
</td>
<td width="25%" align="center" style="padding: 16px; background: #f8f9fa; border-radius: 8px;">
<div style="font-size: 32px; font-weight: 700;">{{.Counts.Record}}</div>
<div style="font-size: 12px; text-transform: uppercase;">Records</div>
</td>
<td width="25%" align="center" style="padding: 16px; background: #f8f9fa; border-radius: 8px;">
<div style="font-size: 32px; font-weight: 700;">{{.Counts.Trend}}</div>
<div style="font-size: 12px; text-transform: uppercase;">Trends</div>
</td>
</tr>
</table>

{{if .Alerts}}
<h2 style="font-size: 16px;">Alerts ({{.TotalAlerts}}{{if .SuppressedCount}}, {{.SuppressedCount}} suppressed by volume cap{{end}})</h2>
{{range .Alerts}}
<div style="border-left: 4px solid {{if eq .Priority "P0"}}#d73a49{{else if eq .Priority "P1"}}#e36209{{else if eq .Priority "P2"}}#b08800{{else}}#22863a{{end}}; background: #f6f8fa; border-radius: 6px; padding: 12px 16px; margin-bottom: 10px;">
<div style="margin-bottom: 6px;">
<strong>{{.PropertyID}}{{if .Domain}} &middot; {{.Domain}}{{end}}</strong>
<span style="float: right; font-size: 11px; font-weight: 600;">{{.Priority}} &middot; {{.Detector}} &middot; impact {{.BusinessImpact}}</span>
</div>
<div style="font-size: 14px;">{{.Message}}</div>
<div style="font-size: 12px; color: #586069; margin-top: 4px;">
{{.Dimension}}{{if .DimensionValue}} = {{.DimensionValue}}{{end}} &middot; {{.Metric}} &middot; observed {{value .ObservedValue}} vs baseline {{value .BaselineValue}}
{{if .ActionRequired}}<br>{{.ActionRequired}}{{end}}
</div>
</div>
{{end}}
{{else}}
<h2 style="font-size: 16px; color: #22863a;">All clear &mdash; no anomalies detected</h2>
{{end}}

{{if .AllClear}}
<h2 style="font-size: 16px;">All clear</h2>
<p style="font-size: 13px; color: #586069;">{{range $i, $p := .AllClear}}{{if $i}}, {{end}}{{$p}}{{end}}</p>
{{end}}

{{if .Issues}}
<h2 style="font-size: 16px;">Issues</h2>
<ul style="font-size: 13px; color: #586069;">
{{range .Issues}}<li>{{.PropertyID}}{{if .Detector}} ({{.Detector}}){{end}}: {{.Code}}{{if .Detail}} &mdash; {{.Detail}}{{end}}</li>
{{end}}</ul>
{{end}}

<p style="font-size: 11px; color: #959da5; margin-top: 32px;">Scout monitors {{len .Properties}} properties daily. Reply to this email to reach the analytics team.</p>
</body>
</html>
`))

// RenderHTML renders the digest for email delivery. The output is a
// deterministic function of the digest.
func RenderHTML(d domain.Digest) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("render digest html: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderText renders the plain-text fallback.
func RenderText(d domain.Digest) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "SCOUT DAILY DIGEST — %s\n", d.ReferenceDate)
	fmt.Fprintf(&b, "Analysis date %s, generated %s UTC\n\n", d.AnalysisDate, d.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Disasters: %d  Spam: %d  Records: %d  Trends: %d\n\n",
		d.Counts.Disaster, d.Counts.Spam, d.Counts.Record, d.Counts.Trend)

	if len(d.Alerts) == 0 {
		b.WriteString("All clear — no anomalies detected.\n")
	} else {
		fmt.Fprintf(&b, "ALERTS (%d", d.TotalAlerts)
		if d.SuppressedCount > 0 {
			fmt.Fprintf(&b, ", %d suppressed by volume cap", d.SuppressedCount)
		}
		b.WriteString(")\n")
		for _, a := range d.Alerts {
			fmt.Fprintf(&b, "[%s] %s %s", a.Priority, a.Detector, a.PropertyID)
			if a.Domain != "" {
				fmt.Fprintf(&b, " (%s)", a.Domain)
			}
			fmt.Fprintf(&b, "\n    %s\n", a.Message)
			fmt.Fprintf(&b, "    %s", a.Dimension)
			if a.DimensionValue != "" {
				fmt.Fprintf(&b, "=%s", a.DimensionValue)
			}
			fmt.Fprintf(&b, " %s observed %s baseline %s impact %d\n",
				a.Metric, formatValue(a.ObservedValue), formatValue(a.BaselineValue), a.BusinessImpact)
			if a.ActionRequired != "" {
				fmt.Fprintf(&b, "    ACTION: %s\n", a.ActionRequired)
			}
		}
	}

	if len(d.AllClear) > 0 {
		fmt.Fprintf(&b, "\nALL CLEAR: %s\n", strings.Join(d.AllClear, ", "))
	}
	if len(d.Issues) > 0 {
		b.WriteString("\nISSUES\n")
		for _, issue := range d.Issues {
			fmt.Fprintf(&b, "  %s", issue.PropertyID)
			if issue.Detector != "" {
				fmt.Fprintf(&b, " (%s)", issue.Detector)
			}
			fmt.Fprintf(&b, ": %s", issue.Code)
			if issue.Detail != "" {
				fmt.Fprintf(&b, " — %s", issue.Detail)
			}
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

// formatValue trims trailing zeros so counts render as integers and
// rates keep their precision.
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(fmt.Sprintf("%.2f", v), "0")
}
