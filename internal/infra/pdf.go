package infra

// Dispensation receipt generation using go-pdf/fpdf.
// The receipt is A6 portrait with the prescription, patient, product, lot and
// quantity released. Output is returned in memory; persisting it is the job of
// a Storage implementation.

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// ComprobanteDispensacion carries the denormalised data printed on a receipt.
type ComprobanteDispensacion struct {
	DispensacionID   string
	Fecha            time.Time
	RecetaCodigo     string
	Paciente         string
	Medico           string
	Producto         string
	Concentracion    string
	NumeroLote       string
	FechaVencimiento time.Time
	Cantidad         int
	Dosis            string
	Frecuencia       string
	DispensadoPor    string
	Observaciones    string
}

// GenerateComprobanteDispensacion renders the receipt and returns the PDF bytes.
func GenerateComprobanteDispensacion(c ComprobanteDispensacion) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A6", "")
	pdf.SetMargins(6, 6, 6)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 12

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, tr("Comprobante de Dispensación"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, c.DispensacionID, "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, c.Fecha.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	pdf.Line(6, pdf.GetY(), pageW-6, pdf.GetY())
	pdf.Ln(2)

	fila := func(label, valor string) {
		if valor == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW*0.35, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(contentW*0.65, 5, tr(valor), "", "L", false)
	}

	fila("Receta:", c.RecetaCodigo)
	fila("Paciente:", c.Paciente)
	fila("Médico:", c.Medico)
	pdf.Ln(1)
	fila("Producto:", c.Producto)
	fila("Concentración:", c.Concentracion)
	fila("Lote:", c.NumeroLote)
	if !c.FechaVencimiento.IsZero() {
		fila("Vence:", c.FechaVencimiento.Format("02/01/2006"))
	}
	fila("Dosis:", c.Dosis)
	fila("Frecuencia:", c.Frecuencia)

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, fmt.Sprintf("Cantidad dispensada: %d", c.Cantidad), "TB", 1, "C", false, 0, "")
	pdf.Ln(2)

	fila("Dispensado por:", c.DispensadoPor)
	fila("Observaciones:", c.Observaciones)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
