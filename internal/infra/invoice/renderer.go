package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Document is the data rendered into a billing document.
type Document struct {
	InvoiceNumber string
	IssuedAt      time.Time
	TransactionID string
	CustomerName  string
	CustomerEmail string
	PlanName      string
	PlanDuration  string
	Amount        float64
	Currency      string
}

var page = template.Must(template.New("invoice").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>Invoice {{.InvoiceNumber}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;color:#222}
.head{display:flex;justify-content:space-between;border-bottom:2px solid #222;padding-bottom:12px}
table{width:100%;margin-top:24px;border-collapse:collapse}
td,th{border:1px solid #ccc;padding:8px;text-align:left}
.total{font-weight:bold}
.small{font-size:12px;color:#666;margin-top:24px}
</style>
</head>
<body>
<div class="head">
  <div>
    <h2>Invoice {{.InvoiceNumber}}</h2>
    <div>Issued {{.IssuedAt.Format "02 Jan 2006"}}</div>
  </div>
  <div>
    <div>{{.CustomerName}}</div>
    <div>{{.CustomerEmail}}</div>
  </div>
</div>
<table>
  <tr><th>Description</th><th>Billing period</th><th>Amount</th></tr>
  <tr>
    <td>{{.PlanName}} subscription</td>
    <td>{{.PlanDuration}}</td>
    <td>{{printf "%.2f" .Amount}} {{.Currency}}</td>
  </tr>
  <tr class="total"><td colspan="2">Total</td><td>{{printf "%.2f" .Amount}} {{.Currency}}</td></tr>
</table>
<div class="small">Transaction reference: {{.TransactionID}}</div>
</body>
</html>`))

// Render produces the billing document bytes for a document.
func Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", doc.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}
