package schema

import (
	"errors"
	"testing"

	"nfa/internal/table"
)

func headerRaw(header []string, rows ...[]string) table.Raw {
	return table.Raw{Name: "test.csv", Header: header, Rows: rows}
}

func TestNormalizeResolvesAccentFreeAliases(t *testing.T) {
	raw := headerRaw(
		[]string{"chave de acesso", "CPF/CNPJ EMITENTE", "Razao Social Emitente", "DATA_EMISSAO", "valor nota fiscal"},
		[]string{"NF1", "123", "Acme", "2024-01-15", "100.00"},
	)

	typed, err := NewNormalizer(DefaultConventions()).Normalize(raw, DefaultSet().Header)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(typed.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(typed.Rows))
	}
	if got := len(typed.Resolutions); got != 5 {
		t.Errorf("resolutions logged = %d, want 5", got)
	}
	if i := typed.ColumnIndex(ColSupplierName); typed.Rows[0][i].Str != "Acme" {
		t.Errorf("supplier_name = %q", typed.Rows[0][i].Str)
	}
	if i := typed.ColumnIndex(ColInvoiceTotal); typed.Rows[0][i].Dec.StringFixed(2) != "100.00" {
		t.Errorf("invoice_total = %s", typed.Rows[0][i].Dec)
	}
}

func TestNormalizeMissingColumn(t *testing.T) {
	raw := headerRaw(
		[]string{"CHAVE DE ACESSO", "CPF/CNPJ Emitente", "DATA EMISSÃO", "VALOR NOTA FISCAL"},
		[]string{"NF1", "123", "2024-01-15", "100.00"},
	)

	_, err := NewNormalizer(DefaultConventions()).Normalize(raw, DefaultSet().Header)
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if se.Missing != ColSupplierName {
		t.Errorf("Missing = %q, want %q", se.Missing, ColSupplierName)
	}
}

func TestNormalizeRejectsBadRowsKeepsRest(t *testing.T) {
	raw := headerRaw(
		[]string{"CHAVE DE ACESSO", "CPF/CNPJ Emitente", "RAZÃO SOCIAL EMITENTE", "DATA EMISSÃO", "VALOR NOTA FISCAL"},
		[]string{"NF1", "123", "Acme", "2024-01-15", "100.00"},
		[]string{"NF2", "456", "Bolt", "not-a-date", "50.00"},
		[]string{"NF3", "789", "Cork", "2024-01-16", "-5.00"},
	)

	typed, err := NewNormalizer(DefaultConventions()).Normalize(raw, DefaultSet().Header)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(typed.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(typed.Rows))
	}
	if len(typed.Rejections) != 2 {
		t.Fatalf("rejections = %d, want 2", len(typed.Rejections))
	}
	if typed.Rejections[0].Line != 2 || typed.Rejections[0].Column != ColIssueDate {
		t.Errorf("rejection[0] = %+v", typed.Rejections[0])
	}
	if typed.Rejections[1].Line != 3 || typed.Rejections[1].Column != ColInvoiceTotal {
		t.Errorf("rejection[1] = %+v", typed.Rejections[1])
	}
}

func TestNormalizeAllRowsRejected(t *testing.T) {
	raw := headerRaw(
		[]string{"CHAVE DE ACESSO", "CPF/CNPJ Emitente", "RAZÃO SOCIAL EMITENTE", "DATA EMISSÃO", "VALOR NOTA FISCAL"},
		[]string{"NF1", "123", "Acme", "nope", "100.00"},
	)

	_, err := NewNormalizer(DefaultConventions()).Normalize(raw, DefaultSet().Header)
	var ee *EmptyTableError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *EmptyTableError", err)
	}
	if ee.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", ee.Rejected)
	}
}

func TestParseDecimalConventions(t *testing.T) {
	br := NewNormalizer(Conventions{DecimalComma: true})
	d, err := br.parseDecimal("R$ 1.234,56")
	if err != nil {
		t.Fatalf("parseDecimal: %v", err)
	}
	if d.StringFixed(2) != "1234.56" {
		t.Errorf("BR parse = %s", d)
	}

	us := NewNormalizer(Conventions{})
	d, err = us.parseDecimal("1,234.56")
	if err != nil {
		t.Fatalf("parseDecimal: %v", err)
	}
	if d.StringFixed(2) != "1234.56" {
		t.Errorf("US parse = %s", d)
	}
}

func TestCoerceQuantityNumber(t *testing.T) {
	n := NewNormalizer(DefaultConventions())
	v, err := n.coerce(table.KindNumber, "2.500")
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if v.Float() != 2.5 {
		t.Errorf("Float = %v, want 2.5", v.Float())
	}
	if _, err := n.coerce(table.KindNumber, "-1"); err == nil {
		t.Error("expected negative quantity to fail")
	}
}
