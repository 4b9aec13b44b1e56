package query

import (
	"context"
	"testing"
)

// No translator configured: only the fast path can answer. Any question
// reaching the delegated path fails, which the tests below rely on.
func fastOnlyEngine() *Engine { return New(nil, Options{TopN: 5}) }

func TestFastPathTotalValue(t *testing.T) {
	ds := testDataset(t)
	e := fastOnlyEngine()

	ans, err := e.Answer(context.Background(), "qual o valor total faturado?", ds)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !ans.FastPath {
		t.Fatal("expected fast-path answer")
	}
	if ans.Text != "Valor total faturado: R$ 150,00" {
		t.Errorf("Text = %q", ans.Text)
	}
	if len(ans.Trace) != 1 || ans.Trace[0] != "summary:total_value" {
		t.Errorf("Trace = %v", ans.Trace)
	}
}

func TestFastPathIdempotent(t *testing.T) {
	ds := testDataset(t)
	e := fastOnlyEngine()

	a1, err := e.Answer(context.Background(), "total value faturado", ds)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	a2, err := e.Answer(context.Background(), "total value faturado", ds)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if a1.Text != a2.Text {
		t.Errorf("fast path not deterministic: %q vs %q", a1.Text, a2.Text)
	}
}

func TestFastPathInvoiceCountAndMean(t *testing.T) {
	ds := testDataset(t)
	e := fastOnlyEngine()

	ans, err := e.Answer(context.Background(), "quantas notas fiscais foram emitidas?", ds)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text != "Foram emitidas 2 notas fiscais." {
		t.Errorf("count Text = %q", ans.Text)
	}

	ans, err = e.Answer(context.Background(), "qual a média de valor por nota fiscal?", ds)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text != "Valor médio por nota fiscal: R$ 75,00" {
		t.Errorf("mean Text = %q", ans.Text)
	}
}

func TestFastPathTopSupplier(t *testing.T) {
	ds := testDataset(t)
	e := fastOnlyEngine()

	ans, err := e.Answer(context.Background(), "Qual fornecedor teve maior montante recebido?", ds)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text != "Fornecedor com maior montante recebido: Acme (R$ 100,00 em 1 notas)" {
		t.Errorf("Text = %q", ans.Text)
	}
	if ans.Table == nil || ans.Table.Rows[0][0] != "Acme" {
		t.Errorf("Table = %+v", ans.Table)
	}
}

func TestFastPathTopProductsParsesN(t *testing.T) {
	ds := testDataset(t)
	e := fastOnlyEngine()

	ans, err := e.Answer(context.Background(), "quais são os 1 produtos mais vendidos?", ds)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Table.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(ans.Table.Rows))
	}
	if ans.Table.Rows[0][0] != "Screw" {
		t.Errorf("top product = %q, want Screw", ans.Table.Rows[0][0])
	}
}

func TestNonCanonicalQuestionNeedsAgent(t *testing.T) {
	ds := testDataset(t)
	e := fastOnlyEngine()

	_, err := e.Answer(context.Background(), "qual a correlação entre datas e valores?", ds)
	if err == nil {
		t.Fatal("expected error without a configured agent")
	}
}
