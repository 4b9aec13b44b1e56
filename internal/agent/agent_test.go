package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nfa/internal/query"
)

func TestParseDirectiveFenced(t *testing.T) {
	reply := "```json\n{\"op\":\"run\",\"plan\":{\"aggregation\":\"count\"}}\n```"
	dir, err := ParseDirective(reply)
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if dir.Op != "run" || dir.Plan == nil || dir.Plan.Aggregation != "count" {
		t.Errorf("dir = %+v", dir)
	}
}

func TestParseDirectiveDefaultsOp(t *testing.T) {
	dir, err := ParseDirective(`{"plan":{"aggregation":"sum","measure":"line_value"}}`)
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if dir.Op != "run" {
		t.Errorf("Op = %q, want run", dir.Op)
	}

	dir, err = ParseDirective(`{"answer":"R$ 100,00"}`)
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if dir.Op != "final" {
		t.Errorf("Op = %q, want final", dir.Op)
	}
}

func TestParseDirectiveGarbage(t *testing.T) {
	if _, err := ParseDirective("desculpe, não entendi"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseDirective("{}"); err == nil {
		t.Fatal("expected error for empty directive")
	}
}

func TestBuildPromptListsColumns(t *testing.T) {
	p := BuildPrompt(query.Schema{
		Dimensions: []string{"supplier_name", "product_desc"},
		Measures:   []string{"line_value"},
		RowCount:   42,
	})
	for _, want := range []string{"supplier_name", "product_desc", "line_value", "42"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestClientNext(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"op":"final","plan":{"aggregation":"count"},"answer":"{value} notas"}`}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", Endpoint: srv.URL})
	dir, err := c.Next(context.Background(), query.TranslateRequest{
		Question: "quantas notas?",
		Schema:   query.Schema{Dimensions: []string{"supplier_name"}, Measures: []string{"line_value"}, RowCount: 3},
		Hint:     "agregue antes de responder",
	})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dir.Op != "final" || dir.Answer != "{value} notas" {
		t.Errorf("dir = %+v", dir)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Temperature != 0 || len(gotReq.Messages) != 2 {
		t.Errorf("request = %+v", gotReq)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "agregue antes de responder") {
		t.Error("hint not forwarded to agent")
	}
}

func TestClientNextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_exceeded"},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", Endpoint: srv.URL})
	_, err := c.Next(context.Background(), query.TranslateRequest{Question: "q"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v, want rate limited", err)
	}
}

func TestClientNextHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Config{APIKey: "sk-test", Endpoint: srv.URL})
	if _, err := c.Next(ctx, query.TranslateRequest{Question: "q"}); err == nil {
		t.Fatal("expected context error")
	}
}
