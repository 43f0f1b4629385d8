package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Resumo de Direito Administrativo</title></head>
<body>
<header><p>Menu de navegação do site com muitos links irrelevantes</p></header>
<nav><li>Home</li><li>Artigos</li></nav>
<article>
<h1>Princípios da Administração Pública</h1>
<p>A administração pública direta e indireta de qualquer dos Poderes obedecerá aos princípios de legalidade, impessoalidade, moralidade, publicidade e eficiência.</p>
<p>O princípio da legalidade determina que o administrador público só pode agir conforme a lei autoriza, diferente do particular.</p>
<script>console.log("tracking code that must not leak into the content");</script>
</article>
<footer><p>Rodapé do site com informações de copyright e contato</p></footer>
</body>
</html>`

func TestParsePageExtractsArticle(t *testing.T) {
	content, err := parsePage(articleHTML, "https://example.com/artigo", "example.com")
	if err != nil {
		t.Fatalf("parsePage failed: %v", err)
	}

	if content.Title != "Resumo de Direito Administrativo" {
		t.Errorf("Unexpected title: %q", content.Title)
	}
	if content.Domain != "example.com" {
		t.Errorf("Unexpected domain: %q", content.Domain)
	}
	if !strings.Contains(content.Content, "legalidade, impessoalidade") {
		t.Error("Article paragraph missing from content")
	}
	if strings.Contains(content.Content, "tracking code") {
		t.Error("Script content leaked into the extracted text")
	}
	if strings.Contains(content.Content, "Menu de navegação") {
		t.Error("Header chrome leaked into the extracted text")
	}
	if strings.Contains(content.Content, "Rodapé do site") {
		t.Error("Footer leaked into the extracted text")
	}
	if content.WordCount == 0 {
		t.Error("Expected a non-zero word count")
	}
}

func TestParsePageRejectsThinPages(t *testing.T) {
	thin := `<html><head><title>Vazio</title></head><body><p>Quase nada aqui dentro, na verdade.</p></body></html>`

	_, err := parsePage(thin, "https://example.com", "example.com")
	if err == nil {
		t.Fatal("Expected an error for a page with too little text")
	}
}

func TestParsePageFallsBackToBody(t *testing.T) {
	page := `<html><head><title>Sem article</title></head><body>
<p>Primeiro parágrafo longo o suficiente para ser coletado pelo extrator de conteúdo.</p>
<p>Segundo parágrafo igualmente longo para garantir que o texto passe do limite mínimo.</p>
</body></html>`

	content, err := parsePage(page, "https://example.com", "example.com")
	if err != nil {
		t.Fatalf("parsePage failed: %v", err)
	}
	if !strings.Contains(content.Content, "Primeiro parágrafo") {
		t.Error("Body fallback did not collect paragraphs")
	}
}

func TestExtractRejectsInvalidURLs(t *testing.T) {
	s := NewURLExtractService()

	tests := []string{
		"ftp://example.com/file",
		"not a url at all",
		"javascript:alert(1)",
	}

	for _, raw := range tests {
		_, err := s.Extract(context.Background(), raw)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Extract(%q): expected ValidationError, got %v", raw, err)
		}
	}
}

func TestCleanContentCollapsesWhitespace(t *testing.T) {
	got := cleanContent("um   texto\tcom    espaços\n\n\n\nsegundo  bloco")
	want := "um texto com espaços\n\nsegundo bloco"
	if got != want {
		t.Errorf("cleanContent() = %q, want %q", got, want)
	}
}
