// Package pdf implementa la representación gráfica de las facturas de la
// clínica con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Clínica + NIF  │  N° Factura + Fecha               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: Dirección / Tel / Email                            │
//	│  CLIENTE: Nombre + NIF + domicilio                          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Concepto | P.Unit | Dto% | Importe           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Base / IVA / IRPF / Retención / TOTAL             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  NOTAS + leyenda legal                                      │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appbilling "github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 96, Blue: 100}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ appbilling.DocumentRenderer = (*InvoiceRenderer)(nil)

// InvoiceRenderer implementa billing.DocumentRenderer usando Maroto v2.
type InvoiceRenderer struct{}

// NewInvoiceRenderer construye el renderizador.
func NewInvoiceRenderer() *InvoiceRenderer { return &InvoiceRenderer{} }

// Render genera el PDF de la factura y devuelve sus bytes.
func (g *InvoiceRenderer) Render(
	_ context.Context,
	inv *entity.Invoice,
	lines []*entity.InvoiceLine,
	org *entity.Organization,
	profile *entity.BillingProfile,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+inv.FormattedNumber, true).
		WithAuthor(org.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv, org))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emisorRow(org))
	m.AddRows(clienteRow(profile))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableLineRows(lines) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range footerRows(inv) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: nombre de la clínica + NIF (izq) y N° de factura + fecha (der).
func headerRow(inv *entity.Invoice, org *entity.Organization) core.Row {
	fecha := inv.IssueDate.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(org.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIF: "+org.TaxID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(invoiceTitle(inv.Type), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(inv.FormattedNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// emisorRow: datos del emisor (clínica).
func emisorRow(org *entity.Organization) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Dirección: %s, %s %s   |   Tel: %s   |   Email: %s",
				nonEmpty(org.Address, "—"), org.PostalCode, org.City,
				nonEmpty(org.Phone, "—"),
				nonEmpty(org.Email, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// clienteRow: datos fiscales del cliente.
func clienteRow(profile *entity.BillingProfile) core.Row {
	if profile == nil {
		profile = &entity.BillingProfile{Name: "—"}
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(profile.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("NIF: %s   |   %s, %s %s",
				profile.TaxID, profile.Address, profile.PostalCode, profile.City,
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de conceptos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Concepto", 6, align.Left),
		h("P. Unit.", 2, align.Right),
		h("Dto.%", 1, align.Center),
		h("Importe", 2, align.Right),
	)
}

// tableLineRows: una fila por línea de factura.
func tableLineRows(lines []*entity.InvoiceLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				l.Quantity.StringFixed(0),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(6).Add(text.New(
				l.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				l.UnitPrice.StringFixed(2)+" €",
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				l.DiscountPct.StringFixed(0)+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				l.Amount.StringFixed(2)+" €",
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: base, IVA, IRPF, retención y total alineados a la derecha.
func totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(34).Add(
		col.New(4),
		col.New(4).Add(
			label("Base imponible:"),
			label("IVA:"),
			label("IRPF:"),
			label("Retención:"),
			grandLabel("TOTAL:"),
		),
		col.New(4).Add(
			value(inv.BaseAmount.StringFixed(2)+" €"),
			value(inv.VATAmount.StringFixed(2)+" €"),
			value("−"+inv.IRPFAmount.StringFixed(2)+" €"),
			value("−"+inv.RetentionAmount.StringFixed(2)+" €"),
			grandValue(inv.TotalAmount.StringFixed(2)+" €"),
		),
	)
}

// footerRows: bloque de notas + leyenda legal.
func footerRows(inv *entity.Invoice) []core.Row {
	var rows []core.Row
	if inv.Notes != "" {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New("NOTAS", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)))
		rows = append(rows, row.New(16).Add(col.New(12).Add(
			text.New(inv.Notes, props.Text{Size: 7, Color: colorGray, Top: 1, Left: 2}),
		)))
	}
	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Factura emitida conforme al Reglamento de facturación (RD 1619/2012). "+
				"Conserve este documento como justificante fiscal.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func invoiceTitle(t entity.InvoiceType) string {
	switch t {
	case entity.InvoiceTypeSimplified:
		return "FACTURA SIMPLIFICADA"
	case entity.InvoiceTypeRectifying:
		return "FACTURA RECTIFICATIVA"
	default:
		return "FACTURA"
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
