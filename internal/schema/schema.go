// Package schema resolves raw CSV headers against per-role column
// schemas and coerces cells into typed values.
//
// Column resolution tolerates header naming drift: each target column
// carries an alias list, and matching is case- and diacritic-insensitive
// (see internal/textnorm). The first matching source header wins, and
// every resolution decision is recorded for auditability.
package schema

import (
	"fmt"

	"nfa/internal/table"
)

// ColumnSpec declares one required target column for a role.
type ColumnSpec struct {
	// Key is the canonical column name used everywhere downstream.
	Key string
	// Kind is the coercion target.
	Kind table.Kind
	// Aliases are acceptable source header spellings, compared under
	// textnorm.Fold. Key itself is always tried first.
	Aliases []string
}

// Role enumerates the required columns of one logical table.
type Role struct {
	Name    string
	Columns []ColumnSpec
}

// Set bundles the two roles the pipeline ingests.
type Set struct {
	Header Role
	Items  Role
}

// Conventions configure locale-dependent parsing.
type Conventions struct {
	// DecimalComma selects "1.234,56" when true, "1,234.56" when false.
	DecimalComma bool
	// DateLayouts are tried in order.
	DateLayouts []string
}

// DefaultConventions matches the NF-e CSV exports the original archives
// use: dot decimal separator, ISO-ish timestamps.
func DefaultConventions() Conventions {
	return Conventions{
		DecimalComma: false,
		DateLayouts: []string{
			"2006-01-02 15:04:05",
			"2006-01-02",
			"02/01/2006",
		},
	}
}

// Canonical column keys.
const (
	ColInvoiceID    = "invoice_id"
	ColSupplierID   = "supplier_id"
	ColSupplierName = "supplier_name"
	ColIssueDate    = "issue_date"
	ColInvoiceTotal = "invoice_total"
	ColProductID    = "product_id"
	ColProductDesc  = "product_desc"
	ColQuantity     = "quantity"
	ColUnitValue    = "unit_value"
	ColLineValue    = "line_value"
)

// DefaultSet returns the role schemas for Brazilian NF-e exports, with
// accented and accent-free alias spellings.
func DefaultSet() Set {
	return Set{
		Header: Role{
			Name: "header",
			Columns: []ColumnSpec{
				{Key: ColInvoiceID, Kind: table.KindIdentifier, Aliases: []string{"CHAVE DE ACESSO", "chave", "id nota fiscal"}},
				{Key: ColSupplierID, Kind: table.KindIdentifier, Aliases: []string{"CPF/CNPJ Emitente", "cnpj emitente", "cpf cnpj emitente"}},
				{Key: ColSupplierName, Kind: table.KindString, Aliases: []string{"RAZÃO SOCIAL EMITENTE", "nome emitente", "fornecedor"}},
				{Key: ColIssueDate, Kind: table.KindDate, Aliases: []string{"DATA EMISSÃO", "data de emissao", "data"}},
				{Key: ColInvoiceTotal, Kind: table.KindCurrency, Aliases: []string{"VALOR NOTA FISCAL", "valor total da nota"}},
			},
		},
		Items: Role{
			Name: "items",
			Columns: []ColumnSpec{
				{Key: ColInvoiceID, Kind: table.KindIdentifier, Aliases: []string{"CHAVE DE ACESSO", "chave", "id nota fiscal"}},
				{Key: ColProductID, Kind: table.KindIdentifier, Aliases: []string{"NÚMERO PRODUTO", "codigo do produto", "numero do item"}},
				{Key: ColProductDesc, Kind: table.KindString, Aliases: []string{"DESCRIÇÃO DO PRODUTO/SERVIÇO", "descricao do produto"}},
				{Key: ColQuantity, Kind: table.KindNumber, Aliases: []string{"QUANTIDADE", "qtd"}},
				{Key: ColUnitValue, Kind: table.KindCurrency, Aliases: []string{"VALOR UNITÁRIO", "valor unitario"}},
				{Key: ColLineValue, Kind: table.KindCurrency, Aliases: []string{"VALOR TOTAL", "valor total do item", "valor do produto"}},
			},
		},
	}
}

// Error reports a required column that could not be resolved under any
// configured alias.
type Error struct {
	Role    string
	Missing string
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema: %s table: required column %q not found under any alias", e.Role, e.Missing)
}

// Code returns the stable machine code for console callers.
func (e *Error) Code() string { return "schema" }

// EmptyTableError reports a load whose rejection rate left zero usable
// rows.
type EmptyTableError struct {
	Role     string
	Rejected int
}

func (e *EmptyTableError) Error() string {
	return fmt.Sprintf("schema: %s table has no usable rows (%d rejected)", e.Role, e.Rejected)
}

// Code returns the stable machine code for console callers.
func (e *EmptyTableError) Code() string { return "empty_table" }
