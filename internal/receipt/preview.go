// internal/receipt/preview.go
package receipt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

var previewTemplate = template.Must(template.New("receipt").Parse(`<div class="receipt font-{{.Font}}" style="width:{{.Width}}ch;font-family:monospace;white-space:pre">
{{- range .Rows}}
{{- if eq .Kind "logo"}}
<div class="row logo" style="text-align:center">{{if .Src}}<img src="{{.Src}}" alt="logo" style="max-width:100%">{{end}}</div>
{{- else if eq .Kind "qrcode"}}
<div class="row qrcode" style="text-align:center">{{if .Src}}<img src="{{.Src}}" alt="{{.Text}}">{{else}}{{.Text}}{{end}}</div>
{{- else if eq .Kind "pair"}}
<div class="row pair{{if .Bold}} bold{{end}}" style="display:flex;justify-content:space-between{{if .Bold}};font-weight:bold{{end}}"><span>{{.Left}}</span><span>{{.Right}}</span></div>
{{- else}}
<div class="row {{.Kind}}{{if .Bold}} bold{{end}}{{if .Double}} double{{end}}" style="text-align:{{.Align}}{{if .Bold}};font-weight:bold{{end}}{{if .Double}};font-size:2em{{end}}">{{.Text}}</div>
{{- end}}
{{- end}}
</div>`))

type previewRow struct {
	Kind   string
	Text   string
	Left   string
	Right  string
	Align  string
	Bold   bool
	Double bool
	Src    template.URL
}

type previewDoc struct {
	Font  string
	Width int
	Rows  []previewRow
}

// RenderPreview produces an HTML fragment with the same rows Render prints
func (r *Renderer) RenderPreview(data *ReceiptData, settings *ReceiptSettings, ps PrinterSettings) (string, error) {
	doc := Layout(data, settings, ps.Normalized())

	view := previewDoc{Font: doc.Font.String(), Width: doc.Width}
	for _, row := range doc.Rows {
		pr := previewRow{
			Text:   row.Text,
			Left:   row.Left,
			Right:  row.Right,
			Align:  row.Align.String(),
			Bold:   row.Bold,
			Double: row.Double,
		}

		switch row.Kind {
		case RowLogo:
			pr.Kind = "logo"
			if src, ok := logoSource(row.Text); ok {
				pr.Src = src
			}
		case RowQRCode:
			pr.Kind = "qrcode"
			png, err := qrcode.Encode(row.Text, qrcode.Low, -QRModuleSize)
			if err != nil {
				r.logger.Warn("Preview shows QR payload as text", zap.Error(err))
			} else {
				pr.Src = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
			}
		case RowPair:
			pr.Kind = "pair"
		case RowDivider:
			pr.Kind = "divider"
		default:
			pr.Kind = "text"
		}
		view.Rows = append(view.Rows, pr)
	}

	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.String(), nil
}

// logoSource allows only image URLs the browser can load directly
func logoSource(ref string) (template.URL, bool) {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "data:image/"):
		return template.URL(ref), true
	default:
		return "", false
	}
}
