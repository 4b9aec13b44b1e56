package agent

import (
	"fmt"
	"strings"

	"nfa/internal/query"
)

// BuildPrompt renders the system prompt: the agent's role, the table
// schema, and the closed operation contract it must answer within.
func BuildPrompt(sch query.Schema) string {
	var b strings.Builder

	b.WriteString(`Você é um especialista em análise de dados de notas fiscais brasileiras.
Você responde perguntas sobre uma única tabela analítica consultando-a
exclusivamente através de planos de computação em JSON. Você nunca escreve
código; apenas planos.

`)
	fmt.Fprintf(&b, "A tabela tem %d linhas.\n", sch.RowCount)
	fmt.Fprintf(&b, "Colunas de agrupamento/filtro (dimensões): %s\n", strings.Join(sch.Dimensions, ", "))
	fmt.Fprintf(&b, "Colunas numéricas (métricas): %s\n\n", strings.Join(sch.Measures, ", "))

	b.WriteString(`Em cada turno responda com UM objeto JSON, sem texto fora dele:
  {"op":"run","plan":{...}}            — executa um plano e devolve um resumo do resultado
  {"op":"final","plan":{...},"answer":"...","explanation":"..."} — resposta definitiva

Formato do plano:
  {"filters":{"coluna":["valor",...]},"group_by":"coluna","aggregation":"sum|count|avg|min|max","measure":"coluna","sort":"value_desc|value_asc|key_asc|key_desc","limit":N}

Regras:
1. Use somente as colunas listadas acima; qualquer outra é rejeitada.
2. Somente as operações do formato acima existem; não há acesso a arquivos, rede ou código.
3. No "answer", use {value} como marcador do resultado computado.
4. Formato brasileiro: valores monetários como R$ X.XXX,XX; datas como DD/MM/AAAA.
5. Explique brevemente em "explanation" como chegou ao resultado.
6. Seja preciso e objetivo; prefira um único plano "final" quando a pergunta for direta.`)

	return b.String()
}

// buildTurn renders the user message for the current delegation turn:
// the question, the transcript of prior steps, and any engine hint.
func buildTurn(req query.TranslateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PERGUNTA: %s\n", req.Question)

	for i, s := range req.Steps {
		fmt.Fprintf(&b, "\nPASSO %d:\n", i+1)
		if s.PlanJSON != "" {
			fmt.Fprintf(&b, "  plano: %s\n", s.PlanJSON)
		}
		if s.Preview != "" {
			fmt.Fprintf(&b, "  resultado: %s\n", s.Preview)
		}
		if s.Err != "" {
			fmt.Fprintf(&b, "  erro: %s\n", s.Err)
		}
	}

	if req.Hint != "" {
		fmt.Fprintf(&b, "\nINSTRUÇÃO: %s\n", req.Hint)
	}

	b.WriteString("\nResponda somente com JSON válido:")
	return b.String()
}
