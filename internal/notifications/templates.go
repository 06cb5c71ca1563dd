package notifications

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	"github.com/angelmondragon/estore-backend/pkg/mail"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

var notifiedStatuses = map[enums.OrderStatus]string{
	enums.OrderStatusConfirmed: "Your order is confirmed",
	enums.OrderStatusShipped:   "Your order is on its way",
	enums.OrderStatusDelivered: "Your order was delivered",
	enums.OrderStatusCancelled: "Your order was cancelled",
}

func notifies(status enums.OrderStatus) bool {
	_, ok := notifiedStatuses[status]
	return ok
}

var funcs = template.FuncMap{
	"itemName": func(ref types.Reference) string {
		return types.MatchReference(ref,
			func(a types.Active) string { return a.Name },
			func(a types.Archived) string { return a.Name },
		)
	},
	"size": func(ref types.Reference) string {
		return types.MatchReference(ref,
			func(a types.Active) string { return a.Name },
			func(types.Archived) string { return "-" },
		)
	},
}

var bodies = template.Must(template.New("").Funcs(funcs).Parse(`
{{define "header"}}Hello {{.Shipping.FirstName}},
{{end}}
{{define "footer"}}
Order reference: {{.ID}}
{{end}}
{{define "confirmed"}}{{template "header" .}}
Thank you, we received your order and will start printing it shortly.
{{range .Items}}
  - {{itemName .Item}} ({{size .Variant}}) x{{.Quantity}}: {{.TotalPrice.StringFixed 2}} DA{{end}}

Total: {{.Total.StringFixed 2}} DA
Delivery to: {{.Shipping.Address}}, {{.Shipping.City}}
{{template "footer" .}}{{end}}
{{define "shipped"}}{{template "header" .}}
Your order has left our workshop.
{{with .Tracking}}{{with .TrackingNumber}}Tracking number: {{.}}
{{end}}{{with .EstimatedDelivery}}Estimated delivery: {{.Format "2006-01-02"}}
{{end}}{{end}}{{template "footer" .}}{{end}}
{{define "delivered"}}{{template "header" .}}
Your order was delivered. We hope you enjoy it.
{{template "footer" .}}{{end}}
{{define "cancelled"}}{{template "header" .}}
Your order has been cancelled. Contact us if this is unexpected.
{{template "footer" .}}{{end}}
`))

// render builds the email sent when an order reaches status.
func render(status enums.OrderStatus, order *orders.OrderDTO) (mail.Message, error) {
	subject, ok := notifiedStatuses[status]
	if !ok {
		return mail.Message{}, fmt.Errorf("no template for status %s", status)
	}
	var buf bytes.Buffer
	if err := bodies.ExecuteTemplate(&buf, status.String(), order); err != nil {
		return mail.Message{}, fmt.Errorf("render %s email: %w", status, err)
	}
	return mail.Message{
		To:        order.Shipping.Email,
		ToName:    strings.TrimSpace(order.Shipping.FirstName + " " + order.Shipping.LastName),
		Subject:   subject,
		PlainText: strings.TrimSpace(buf.String()) + "\n",
	}, nil
}
