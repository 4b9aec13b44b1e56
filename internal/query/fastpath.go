package query

import (
	"fmt"
	"regexp"
	"strconv"

	"nfa/internal/dataset"
	"nfa/internal/table"
	"nfa/internal/textnorm"
)

// The fast path answers a small set of high-confidence canonical
// questions straight from the summary views: a latency win, and a
// correctness safeguard for the questions users ask most. Fast-path
// answers are deterministic even though the delegated path is not.

var topProductsRe = regexp.MustCompile(`(\d+)\s+(?:produtos|itens|products|items)`)

func (e *Engine) fastPath(question string, ds *dataset.Dataset) (*Answer, bool) {
	q := textnorm.Fold(question)
	has := func(subs ...string) bool {
		for _, s := range subs {
			if textnorm.ContainsFold(q, s) {
				return true
			}
		}
		return false
	}

	mentionsProduct := has("produto", "item", "product")
	mentionsSupplier := has("fornecedor", "emitente", "supplier")

	switch {
	case has("valor total", "total faturado", "total value", "montante total") && !mentionsProduct && !mentionsSupplier:
		return fastAnswer(question, "summary:total_value",
			fmt.Sprintf("Valor total faturado: %s", table.FormatBRL(ds.TotalValue()))), true

	case has("quantas notas", "quantidade de notas", "numero de notas", "how many invoices", "notas foram emitidas"):
		return fastAnswer(question, "summary:invoice_count",
			fmt.Sprintf("Foram emitidas %d notas fiscais.", ds.InvoiceCount())), true

	case has("media", "average", "valor medio") && has("nota", "invoice"):
		return fastAnswer(question, "summary:mean_invoice_value",
			fmt.Sprintf("Valor médio por nota fiscal: %s", table.FormatBRL(ds.MeanInvoiceValue()))), true

	case mentionsSupplier && has("maior montante", "mais recebeu", "maior valor", "most value", "montante recebido"):
		sup := ds.SupplierTotals()
		if len(sup) == 0 {
			return nil, false
		}
		a := fastAnswer(question, "summary:supplier_totals",
			fmt.Sprintf("Fornecedor com maior montante recebido: %s (%s em %d notas)",
				sup[0].Key, table.FormatBRL(sup[0].Value), sup[0].Count))
		a.Table = bucketsTable(sup, e.opt.TopN)
		return a, true

	case mentionsSupplier && has("mais notas", "most invoices"):
		sup := ds.SupplierTotals()
		if len(sup) == 0 {
			return nil, false
		}
		top := sup[0]
		for _, b := range sup[1:] {
			if b.Count > top.Count {
				top = b
			}
		}
		return fastAnswer(question, "summary:supplier_invoice_counts",
			fmt.Sprintf("Fornecedor com mais notas: %s (%d notas)", top.Key, top.Count)), true

	case mentionsProduct && has("mais vendido", "maior volume", "maior quantidade", "top products", "most sold"):
		prods := ds.ProductQuantities()
		if len(prods) == 0 {
			return nil, false
		}
		n := e.opt.TopN
		if m := topProductsRe.FindStringSubmatch(q); m != nil {
			if parsed, err := strconv.Atoi(m[1]); err == nil && parsed > 0 {
				n = parsed
			}
		}
		if n > e.opt.MaxResultRows {
			n = e.opt.MaxResultRows
		}
		a := fastAnswer(question, "summary:product_quantities",
			fmt.Sprintf("Produto com maior volume: %s (%s unidades)",
				prods[0].Key, table.FormatBR(prods[0].Value, 0)))
		a.Table = bucketsTable(prods, n)
		return a, true
	}

	return nil, false
}

func fastAnswer(question, trace, text string) *Answer {
	return &Answer{
		Question: question,
		Text:     text,
		Trace:    []string{trace},
		FastPath: true,
		Certain:  true,
	}
}

func bucketsTable(buckets []dataset.Bucket, limit int) *ResultTable {
	t := &ResultTable{Columns: []string{"grupo", "valor", "registros"}}
	for i, b := range buckets {
		if i == limit {
			break
		}
		t.Rows = append(t.Rows, []string{b.Key, b.Value.Round(2).String(), fmt.Sprintf("%d", b.Count)})
	}
	return t
}
