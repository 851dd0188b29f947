// internal/receipt/renderer.go
package receipt

import (
	"context"

	"go.uber.org/zap"

	"print-bridge/internal/escpos"
	"print-bridge/internal/imaging"
)

// Renderer draws receipts as ESC/POS bytes and as HTML previews from the
// same Layout
type Renderer struct {
	logos  imaging.Loader
	logger *zap.Logger
}

// NewRenderer creates a renderer. logos may be nil to skip logos entirely.
func NewRenderer(logos imaging.Loader, logger *zap.Logger) *Renderer {
	return &Renderer{
		logos:  logos,
		logger: logger.With(zap.String("component", "receipt_renderer")),
	}
}

// Render produces the ESC/POS byte stream for a receipt. Only context
// cancellation is reported as an error; a logo that cannot be loaded is
// logged and left out.
func (r *Renderer) Render(ctx context.Context, data *ReceiptData, settings *ReceiptSettings, ps PrinterSettings) ([]byte, error) {
	ps = ps.Normalized()
	doc := Layout(data, settings, ps)
	enc := escpos.NewEncoder(r.encoderOptions(ps)...)

	enc.Initialize().Align(escpos.AlignCenter).FontSelect(doc.Font)
	align := escpos.AlignCenter

	for _, row := range doc.Rows {
		if row.Align != align {
			enc.Align(row.Align)
			align = row.Align
		}

		switch row.Kind {
		case RowLogo:
			r.writeLogo(ctx, enc, data, row.Text, ps)
		case RowQRCode:
			enc.QRCode(row.Text, QRModuleSize).Newline()
		default:
			if row.Double {
				enc.Size(2, 2)
			}
			if row.Bold {
				enc.Bold(true)
			}
			enc.Text(row.Line(doc.Width)).Newline()
			if row.Bold {
				enc.Bold(false)
			}
			if row.Double {
				enc.Size(1, 1)
			}
		}
	}

	enc.Feed(doc.FeedLines)
	if doc.Cut {
		enc.Cut()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if n := enc.NonASCIICount(); n > 0 {
		r.logger.Warn("Receipt text contains non-ASCII characters sent without transcoding",
			zap.Int("code_units", n),
			zap.String("character_encoding", ps.CharacterEncoding),
		)
	}

	return enc.Bytes(), nil
}

func (r *Renderer) encoderOptions(ps PrinterSettings) []escpos.Option {
	if !ps.Transcode {
		return nil
	}
	cs, ok := escpos.LookupCharset(ps.CharacterEncoding)
	if !ok {
		r.logger.Warn("Unknown character encoding, sending text unconverted",
			zap.String("character_encoding", ps.CharacterEncoding),
		)
		return nil
	}
	return []escpos.Option{escpos.WithCharset(cs)}
}

func (r *Renderer) writeLogo(ctx context.Context, enc *escpos.Encoder, data *ReceiptData, ref string, ps PrinterSettings) {
	if r.logos == nil {
		return
	}

	bmp, err := r.logos.LoadLogo(ctx, imaging.LogoRequest{
		Ref:      ref,
		OwnerID:  data.BusinessID,
		Version:  data.BusinessUpdatedAt,
		MaxWidth: ps.MaxLogoWidth(),
	})
	if err != nil {
		r.logger.Warn("Printing receipt without logo", zap.Error(err))
		return
	}
	if bmp.Width == 0 {
		return
	}

	enc.Image(bmp.Data, bmp.Width)
}
