package einvoice

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/corefin/billing-service/internal/models"
)

// Builder renders an invoice plus its payment schedule as a UBL-flavoured
// XML document for exchange with external billing systems.
type Builder struct {
	log *logrus.Logger
}

// NewBuilder initializes a new e-invoice builder
func NewBuilder(log *logrus.Logger) *Builder {
	return &Builder{log: log}
}

// Build produces the XML document. Schedule entries become PaymentTerms
// elements in their stored order; percentage entries carry a SettlementPeriod
// percent instead of an Amount.
func (b *Builder) Build(invoice *models.Invoice, client *models.Client, payload models.SchedulePayload, summary models.ScheduleSummary) ([]byte, error) {
	if invoice == nil || client == nil {
		return nil, fmt.Errorf("invoice and client are required")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Invoice")
	root.CreateElement("ID").SetText(invoice.ID)
	root.CreateElement("IssueDate").SetText(invoice.CreatedAt.Format(models.DateLayout))
	root.CreateElement("DocumentCurrencyCode").SetText("USD")

	customer := root.CreateElement("AccountingCustomerParty")
	party := customer.CreateElement("Party")
	party.CreateElement("Name").SetText(client.Name)
	if client.Email != "" {
		party.CreateElement("ElectronicMail").SetText(client.Email)
	}

	total := root.CreateElement("LegalMonetaryTotal")
	total.CreateElement("PayableAmount").SetText(fmt.Sprintf("%.2f", invoice.Amount))

	for i, entry := range payload.Schedule {
		terms := root.CreateElement("PaymentTerms")
		terms.CreateElement("ID").SetText(fmt.Sprintf("%d", entry.ID))
		terms.CreateElement("SequenceNumeric").SetText(fmt.Sprintf("%d", i+1))
		terms.CreateElement("PaymentDueDate").SetText(entry.Date)
		if entry.IsAmount {
			terms.CreateElement("Amount").SetText(fmt.Sprintf("%.2f", entry.Amount))
		} else {
			terms.CreateElement("PaymentPercent").SetText(fmt.Sprintf("%.0f", entry.Amount))
		}
	}

	note := root.CreateElement("AllocationNote")
	note.CreateAttr("complete", fmt.Sprintf("%t", summary.IsComplete))
	note.SetText(fmt.Sprintf("scheduled %.2f, remaining %.2f", summary.ScheduledSum, summary.Remaining))

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize invoice document: %w", err)
	}

	b.log.Debugf("Built e-invoice document for %s at %s", invoice.ID, time.Now().Format(time.RFC3339))
	return out, nil
}
