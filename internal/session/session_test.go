package session

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"nfa/internal/query"
	"nfa/internal/store"
)

func buildZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create member %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const (
	headerCols = "CHAVE DE ACESSO,CPF/CNPJ Emitente,RAZÃO SOCIAL EMITENTE,DATA EMISSÃO,VALOR NOTA FISCAL\n"
	itemsCols  = "CHAVE DE ACESSO,NÚMERO PRODUTO,DESCRIÇÃO DO PRODUTO/SERVIÇO,QUANTIDADE,VALOR UNITÁRIO,VALOR TOTAL\n"
)

func archiveA(t *testing.T) []byte {
	t.Helper()
	return buildZip(t, map[string]string{
		"202401_Cabecalho.csv": headerCols +
			"1,11,Acme,2024-01-10,100.00\n" +
			"2,22,Bolt,2024-01-11,50.00\n" +
			"3,33,Bad,nunca,100.00\n", // unparseable date, row rejected
		"202401_Itens.csv": itemsCols +
			"1,P1,Widget,2,50.00,100.00\n" +
			"2,P2,Screw,30,1.00,30.00\n",
	})
}

func archiveB(t *testing.T) []byte {
	t.Helper()
	return buildZip(t, map[string]string{
		"202402_Cabecalho.csv": headerCols + "9,99,Zeta,2024-02-01,70.00\n",
		"202402_Itens.csv":     itemsCols + "9,P9,Bolt,1,70.00,70.00\n",
	})
}

func newTestController() *Controller {
	return NewController(query.New(nil, query.Options{}), Options{})
}

func TestAskBeforeLoad(t *testing.T) {
	c := newTestController()

	_, err := c.Ask(context.Background(), "qual o valor total faturado?")
	var nre *NotReadyError
	if !errors.As(err, &nre) {
		t.Fatalf("err = %v, want *NotReadyError", err)
	}
	if nre.Code() != "not_ready" {
		t.Errorf("Code = %q", nre.Code())
	}

	if _, err := c.Describe(); !errors.As(err, &nre) {
		t.Errorf("Describe err = %v, want *NotReadyError", err)
	}
}

func TestLoadRejectsBadRowsAndAnswers(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	sess, err := c.LoadArchive(ctx, archiveA(t))
	if err != nil {
		t.Fatalf("LoadArchive: %v", err)
	}
	if sess.HeaderRejected != 1 || sess.ItemsRejected != 0 {
		t.Errorf("rejected = %d/%d, want 1/0", sess.HeaderRejected, sess.ItemsRejected)
	}

	ans, err := c.Ask(ctx, "qual o valor total faturado?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "Valor total faturado: R$ 150,00" {
		t.Errorf("Text = %q", ans.Text)
	}

	desc, err := c.Describe()
	if err != nil || desc == "" {
		t.Errorf("Describe = %q, %v", desc, err)
	}
}

func TestFailedQuestionKeepsSessionQueryable(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	if _, err := c.LoadArchive(ctx, archiveA(t)); err != nil {
		t.Fatalf("LoadArchive: %v", err)
	}

	// No delegated agent is configured, so a non-canonical question fails.
	if _, err := c.Ask(ctx, "qual a correlação entre datas e valores?"); err == nil {
		t.Fatal("expected error for non-canonical question without an agent")
	}

	ans, err := c.Ask(ctx, "quantas notas fiscais foram emitidas?")
	if err != nil {
		t.Fatalf("Ask after failure: %v", err)
	}
	if ans.Text != "Foram emitidas 2 notas fiscais." {
		t.Errorf("Text = %q", ans.Text)
	}
}

func TestLoadReplacesPriorSession(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	if _, err := c.LoadArchive(ctx, archiveA(t)); err != nil {
		t.Fatalf("load A: %v", err)
	}
	if _, err := c.LoadArchive(ctx, archiveB(t)); err != nil {
		t.Fatalf("load B: %v", err)
	}

	ans, err := c.Ask(ctx, "qual o valor total faturado?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "Valor total faturado: R$ 70,00" {
		t.Errorf("Text = %q", ans.Text)
	}
}

func TestFailedLoadKeepsPriorSession(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	if _, err := c.LoadArchive(ctx, archiveA(t)); err != nil {
		t.Fatalf("load A: %v", err)
	}
	if _, err := c.LoadArchive(ctx, []byte("not a zip")); err == nil {
		t.Fatal("expected error for invalid archive")
	}

	ans, err := c.Ask(ctx, "qual o valor total faturado?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(ans.Text, "R$ 150,00") {
		t.Errorf("Text = %q, want prior session totals", ans.Text)
	}
}

type fakeStore struct {
	replaced map[string]int
}

func (f *fakeStore) Close() {}

func (f *fakeStore) EnsureTables(ctx context.Context, tables []store.TableSpec) error { return nil }

func (f *fakeStore) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	f.replaced[table] = len(rows)
	return nil
}

func TestLoadSnapshotsToStore(t *testing.T) {
	st := &fakeStore{replaced: map[string]int{}}
	c := NewController(query.New(nil, query.Options{}), Options{Store: st})

	if _, err := c.LoadArchive(context.Background(), archiveA(t)); err != nil {
		t.Fatalf("LoadArchive: %v", err)
	}
	if st.replaced[store.TableInvoices] != 2 {
		t.Errorf("invoices rows = %d, want 2", st.replaced[store.TableInvoices])
	}
	if st.replaced[store.TableInvoiceItems] != 2 {
		t.Errorf("item rows = %d, want 2", st.replaced[store.TableInvoiceItems])
	}
	if _, ok := st.replaced[store.TableSupplierTotals]; !ok {
		t.Error("supplier totals not snapshotted")
	}
}
