// Package invoice формирует PDF-квитанцию о расчёте по контракту.
//
// PDF собирается вручную: одна страница, стандартный шрифт Helvetica,
// без сжатия потоков. Этого достаточно для квитанции, и не тянет
// внешнюю библиотеку ради одного документа.
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Data содержит содержимое квитанции.
type Data struct {
	ContractID      uuid.UUID
	ProjectTitle    string
	ClientName      string
	ClientEmail     string
	ContractorName  string
	ContractorEmail string
	Amount          float64
	ReleasedAt      time.Time
}

// Number возвращает номер квитанции, производный от контракта.
func (d Data) Number() string {
	raw := strings.ReplaceAll(d.ContractID.String(), "-", "")
	return "INV-" + strings.ToUpper(raw[:12])
}

// Generate собирает PDF-квитанцию и возвращает её байты.
func Generate(d Data) ([]byte, error) {
	if d.ContractID == uuid.Nil {
		return nil, fmt.Errorf("invoice: контракт не указан")
	}

	lines := []string{
		"PROPEL ESCROW - PAYMENT RECEIPT",
		"",
		fmt.Sprintf("Receipt no:   %s", d.Number()),
		fmt.Sprintf("Date:         %s", d.ReleasedAt.UTC().Format("2006-01-02 15:04 UTC")),
		fmt.Sprintf("Contract:     %s", d.ContractID),
		"",
		fmt.Sprintf("Project:      %s", sanitize(d.ProjectTitle)),
		fmt.Sprintf("Client:       %s <%s>", sanitize(d.ClientName), sanitize(d.ClientEmail)),
		fmt.Sprintf("Contractor:   %s <%s>", sanitize(d.ContractorName), sanitize(d.ContractorEmail)),
		"",
		fmt.Sprintf("Amount:       %.2f", d.Amount),
		"",
		"Paid via Propel Escrow",
	}

	content := buildContentStream(lines)

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return buf.Bytes(), nil
}

// buildContentStream рисует строки моноширинным интервалом сверху вниз.
func buildContentStream(lines []string) string {
	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n50 780 Td\n14 TL\n")
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("T*\n")
		}
		fmt.Fprintf(&sb, "(%s) Tj\n", escapePDF(line))
	}
	sb.WriteString("ET")
	return sb.String()
}

// escapePDF экранирует спецсимволы строкового литерала PDF.
func escapePDF(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)")
	return r.Replace(s)
}

// sanitize убирает переводы строк из пользовательских значений.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
