package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"aprovaai-backend/internal/models"
)

const (
	minSummaryContentChars = 100
	maxSummaryContentChars = 15000
)

// AIService wraps Gemini for summaries, categorization, tagging, edital
// analysis and plan allocation. When no API key is configured the client is
// nil and every operation degrades to its deterministic fallback or fails
// with ErrAIDisabled.
type AIService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	redis    *redis.Client
	rateChan chan struct{} // Token bucket
}

var ErrAIDisabled = fmt.Errorf("AI service is not configured")

func NewAIService(apiKey string, concurrentReqs int, redisClient *redis.Client) (*AIService, error) {
	s := &AIService{
		redis: redisClient,
	}

	if apiKey == "" {
		log.Println("⚠ GEMINI_API_KEY not set, AI features degraded to fallbacks")
		return s, nil
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	s.client = client
	s.model = model
	s.rateChan = rateChan
	return s, nil
}

func (s *AIService) Enabled() bool {
	return s.client != nil
}

func (s *AIService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *AIService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *AIService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *AIService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// GenerateSummary produces a Markdown summary of the content in the requested
// type and tone. Content below 100 characters is rejected; content above
// 15000 characters is truncated before prompting.
func (s *AIService) GenerateSummary(ctx context.Context, content string, opts models.SummaryOptions) (string, error) {
	if len(content) < minSummaryContentChars {
		return "", &ValidationError{Fields: map[string]string{
			"content": "Conteúdo muito curto para gerar resumo",
		}}
	}
	if !s.Enabled() {
		return "", ErrAIDisabled
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(content) > maxSummaryContentChars {
		content = content[:maxSummaryContentChars] + "..."
	}

	prompt := summarySystemPrompt(opts.Type) + "\n\n" + buildSummaryPrompt(content, opts)

	model := s.client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(summaryTokenBudget(opts.Type))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty summary")
	}

	return text, nil
}

// Categorize assigns one of the fixed exam categories to the content. It
// never fails: API errors and the disabled state fall back to keyword
// matching.
func (s *AIService) Categorize(ctx context.Context, content string) string {
	if !s.Enabled() {
		return fallbackCategory(content)
	}

	if err := s.acquireRate(ctx); err != nil {
		return fallbackCategory(content)
	}
	defer s.releaseRate()

	prompt := fmt.Sprintf(`Analise o texto abaixo e categorize-o em UMA das seguintes categorias de concursos públicos:

CATEGORIAS DISPONÍVEIS:
%s

Responda APENAS com o nome da categoria, sem explicações.

TEXTO:
%s...`, "- "+strings.Join(documentCategories, "\n- "), truncate(content, 2000))

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("categorization failed, using fallback: %v", err)
		return fallbackCategory(content)
	}

	category := strings.TrimSpace(extractText(resp))
	for _, c := range documentCategories {
		if strings.EqualFold(category, c) {
			return c
		}
	}
	return fallbackCategory(content)
}

// ExtractTags pulls 3-7 search tags from the content, falling back to a
// fixed term scan when the API is unavailable.
func (s *AIService) ExtractTags(ctx context.Context, content string) []string {
	if !s.Enabled() {
		return fallbackTags(content)
	}

	if err := s.acquireRate(ctx); err != nil {
		return fallbackTags(content)
	}
	defer s.releaseRate()

	prompt := fmt.Sprintf(`Extraia 3-7 tags relevantes do texto abaixo. As tags devem ser:
- Palavras-chave importantes para concursos
- Conceitos principais do texto
- Termos que facilitam busca e organização

Responda apenas com as tags separadas por vírgula, sem numeração.

TEXTO:
%s...`, truncate(content, 1500))

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("tag extraction failed, using fallback: %v", err)
		return fallbackTags(content)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return fallbackTags(content)
	}

	var tags []string
	for _, t := range strings.Split(text, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return fallbackTags(content)
	}
	if len(tags) > 7 {
		tags = tags[:7]
	}
	return tags
}

// AnalyzeEdital extracts the structure of a public-exam announcement. A
// response that cannot be parsed as JSON degrades to a keyword scan of the
// announcement text.
func (s *AIService) AnalyzeEdital(ctx context.Context, content string) (*models.EditalAnalysis, error) {
	if !s.Enabled() {
		return nil, ErrAIDisabled
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := fmt.Sprintf(`Analise o edital de concurso abaixo e extraia as seguintes informações em formato JSON:

{
  "exam_name": "Nome do concurso",
  "agency": "Órgão responsável",
  "role": "Cargo principal",
  "exam_date": "Data da prova (formato YYYY-MM-DD se disponível)",
  "subjects": [
    {
      "name": "Nome da matéria",
      "weight": 3,
      "topics": ["tópico1", "tópico2"]
    }
  ],
  "suggested_hours_per_day": "Número de horas diárias sugeridas",
  "difficulty_level": "easy|medium|hard",
  "notes": "Observações importantes sobre o edital"
}

Retorne APENAS o JSON, sem explicações. O peso de cada matéria vai de 1 a 5.

EDITAL:
%s...`, truncate(content, 8000))

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	raw := salvageJSONObject(stripFences(extractText(resp)))

	analysis := &models.EditalAnalysis{}
	if err := json.Unmarshal([]byte(raw), analysis); err != nil {
		log.Printf("edital analysis JSON parse failed, using fallback: %v", err)
		return fallbackEditalAnalysis(content), nil
	}
	if analysis.Subjects == nil {
		analysis.Subjects = []models.EditalSubject{}
	}

	return analysis, nil
}

// PlanAllocation asks Gemini for a subject allocation for a study plan. The
// caller validates and normalizes whatever comes back.
func (s *AIService) PlanAllocation(ctx context.Context, req models.StudyPlanRequest) (*models.AIPlanAllocation, error) {
	if !s.Enabled() {
		return nil, ErrAIDisabled
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	var focus string
	if len(req.FocusAreas) > 0 {
		focus = fmt.Sprintf("- Áreas de foco: %s\n", strings.Join(req.FocusAreas, ", "))
	}

	prompt := fmt.Sprintf(`Crie um plano de estudos detalhado para o concurso "%s" com as seguintes especificações:

- Data da prova: %s
- Horas disponíveis por dia: %.1fh
- Nível atual: %s
- Matérias: %s
%s
Retorne um JSON com a seguinte estrutura:
{
  "title": "Título do plano",
  "description": "Descrição detalhada",
  "total_hours": numero_total_de_horas,
  "subjects": [
    {
      "name": "Nome da matéria",
      "weight": porcentagem_do_tempo,
      "hours": horas_estimadas,
      "difficulty": "easy|medium|hard",
      "priority": numero_de_1_a_5
    }
  ]
}

Considere:
- Distribuição equilibrada baseada no peso das matérias no edital
- Tempo para revisões (20%% do tempo total)
- Dificuldade progressiva
- Intervalos e descanso

Retorne APENAS o JSON, sem explicações.`,
		req.ExamName, req.ExamDate.Format("02/01/2006"), req.AvailableHoursPerDay,
		req.CurrentLevel, strings.Join(req.Subjects, ", "), focus)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	raw := salvageJSONObject(stripFences(extractText(resp)))

	allocation := &models.AIPlanAllocation{}
	if err := json.Unmarshal([]byte(raw), allocation); err != nil {
		return nil, fmt.Errorf("failed to parse plan allocation JSON: %w", err)
	}

	return allocation, nil
}

// TranscribeAudio uses the Gemini File API to transcribe audio bytes. Used
// when a YouTube video has no caption track.
func (s *AIService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if !s.Enabled() {
		return "", ErrAIDisabled
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "youtube-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
	}

	// Ensure remote file is cleaned up
	defer s.client.DeleteFile(context.Background(), file.Name)

	// Wait until file is active
	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded audio file")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("audio file did not become active in time")
	}

	prompt := "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini transcription error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty transcription")
	}

	return text, nil
}

// ─── Prompts ───

func summarySystemPrompt(summaryType string) string {
	if summaryType == "study_guide" {
		return `Você é um especialista em Técnica de Estudos e seu papel é me ajudar a preparar para uma prova.

SUAS CARACTERÍSTICAS:
1. EXPERTISE: Conhecimento profundo em técnicas de memorização e aprendizagem
2. METODOLOGIA: Especialista em criar guias de estudos estruturados
3. DIDÁTICA: Transforma conteúdo complexo em material de estudo eficiente
4. PRECISÃO: Mantém exatidão técnica e foco em concursos públicos
5. ORGANIZAÇÃO: Estrutura informações para máxima retenção

DIRETRIZES OBRIGATÓRIAS:
- Analise o documento e crie um guia de estudos detalhado
- Use formatação Markdown para organização clara
- Foque no que é mais relevante para provas e concursos
- Destaque informações críticas que frequentemente aparecem em provas
- Use exemplos práticos quando apropriado`
	}

	return `Assuma o papel de um colega de estudos que está me ajudando a revisar a matéria, normalmente para concursos públicos brasileiros. Suas características:

1. EXPERTISE: Conhecimento profundo em todas as matérias de concursos públicos
2. CLAREZA: Transforma conteúdo complexo em linguagem acessível
3. ESTRUTURA: Organiza informações de forma lógica e memorável
4. PRECISÃO: Mantém a exatidão técnica e jurídica
5. FOCO: Destaca o que é mais relevante para provas

DIRETRIZES OBRIGATÓRIAS:
- Comece me dando uma visão geral do que o documento aborda em um único parágrafo
- Use formatação Markdown para organização
- Simplifique termos técnicos sem perder precisão
- Use analogias e exemplos do dia a dia quando possível
- Destaque informações frequentes em provas
- Mantenha linguagem clara e objetiva`
}

var summaryToneInstructions = map[string]string{
	"formal": "Use linguagem técnica e formal, apropriada para concursos públicos. Mantenha terminologia jurídica e administrativa precisa.",
	"casual": "Use linguagem clara e acessível, mas mantenha a precisão técnica. Explique termos complexos de forma simples.",
	"simple": "Explique como se fosse para alguém que está começando a estudar o assunto. Use analogias e exemplos do dia a dia quando possível.",
}

var summaryTypeInstructions = map[string]string{
	"short": `Crie um resumo CURTO e direto:
- Máximo 10 pontos principais em bullet points
- Foque apenas no essencial
- Use frases concisas e objetivas
- Ideal para revisão rápida`,
	"medium": `Crie um resumo MÉDIO conceitual:
- Organize em 3-5 tópicos principais
- Explique conceitos de forma clara
- Inclua definições importantes
- Mantenha estrutura lógica
- Ideal para estudo regular`,
	"detailed": `Crie um resumo DETALHADO e estruturado:
- Organize em tópicos e subtópicos
- Inclua definições, exemplos e aplicações
- Mantenha hierarquia clara (##, ###)
- Destaque pontos importantes com **negrito**
- Inclua observações e dicas para provas
- Ideal para estudo aprofundado`,
	"study_guide": `Crie um GUIA DE ESTUDOS COMPLETO seguindo EXATAMENTE esta estrutura:

## 📋 Resumo Estruturado
[Um resumo dos principais tópicos, seguindo a ordem do documento]

## 🎯 Pontos-Chave
[Lista em bullet points com as informações mais críticas: datas importantes, definições essenciais, artigos de lei relevantes, fórmulas e conceitos que frequentemente aparecem em provas]

## 📚 Glossário
[Defina os 5 termos técnicos mais relevantes no formato:]
**Termo:** Definição clara e concisa

## ❓ Questões de Revisão
[Elabore 5 perguntas dissertativas baseadas no conteúdo, cada uma com:]
**N. [Pergunta dissertativa]**
*Resposta:* [Resposta concisa e completa]

IMPORTANTE: Siga EXATAMENTE esta estrutura com os emojis e formatação indicados.`,
}

func buildSummaryPrompt(content string, opts models.SummaryOptions) string {
	typeInstr, ok := summaryTypeInstructions[opts.Type]
	if !ok {
		typeInstr = summaryTypeInstructions["medium"]
	}
	toneInstr, ok := summaryToneInstructions[opts.Tone]
	if !ok {
		toneInstr = summaryToneInstructions["formal"]
	}

	task := "Criar um resumo de alta qualidade para concurso público"
	if opts.Type == "study_guide" {
		task = "Criar um guia de estudos detalhado para preparação de prova"
	}

	return fmt.Sprintf(`TAREFA: %s

TIPO DE RESUMO: %s

TOM: %s

INSTRUÇÕES ESPECÍFICAS:
- Identifique os conceitos mais importantes para concursos
- Destaque definições que frequentemente aparecem em provas
- Organize de forma que facilite memorização
- Use formatação Markdown apropriada
- Mantenha foco no que é cobrado em concursos públicos

CONTEÚDO PARA RESUMIR:
%s

RESUMO:`, task, typeInstr, toneInstr, content)
}

func summaryTokenBudget(summaryType string) int32 {
	switch summaryType {
	case "short":
		return 800
	case "detailed":
		return 2500
	case "study_guide":
		return 4000
	default:
		return 1500
	}
}

// ─── Fallbacks ───

var documentCategories = []string{
	"Direito Constitucional",
	"Direito Administrativo",
	"Direito Civil",
	"Direito Penal",
	"Direito Processual",
	"Direito Tributário",
	"Português",
	"Matemática",
	"Raciocínio Lógico",
	"Informática",
	"Conhecimentos Gerais",
	"Atualidades",
	"Administração Pública",
	"Contabilidade",
	"Economia",
	"Estatística",
	"Geografia",
	"História",
	"Legislação Específica",
	"Outros",
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Direito Constitucional", []string{"constituição", "constitucional", "direitos fundamentais", "princípios constitucionais", "poder constituinte"}},
	{"Direito Administrativo", []string{"administração pública", "servidor público", "licitação", "contrato administrativo", "ato administrativo"}},
	{"Direito Civil", []string{"código civil", "pessoa física", "pessoa jurídica", "contratos", "responsabilidade civil"}},
	{"Direito Penal", []string{"código penal", "crime", "contravenção", "pena", "processo penal"}},
	{"Português", []string{"gramática", "concordância", "regência", "ortografia", "redação", "interpretação de texto"}},
	{"Matemática", []string{"equação", "função", "geometria", "álgebra", "trigonometria"}},
	{"Raciocínio Lógico", []string{"lógica", "proposição", "silogismo", "sequência", "padrão"}},
	{"Informática", []string{"computador", "software", "hardware", "internet", "sistema operacional"}},
	{"Conhecimentos Gerais", []string{"história do brasil", "geografia", "atualidades", "política"}},
	{"Administração Pública", []string{"gestão pública", "planejamento", "organização", "controle"}},
	{"Contabilidade", []string{"balanço", "demonstração", "ativo", "passivo", "patrimônio"}},
}

// fallbackCategory picks the first category with two keyword hits, then the
// first with a single hit, then "Outros".
func fallbackCategory(content string) string {
	contentLower := strings.ToLower(content)

	for _, entry := range categoryKeywords {
		matches := 0
		for _, kw := range entry.keywords {
			if strings.Contains(contentLower, kw) {
				matches++
			}
		}
		if matches >= 2 {
			return entry.category
		}
	}

	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(contentLower, kw) {
				return entry.category
			}
		}
	}

	return "Outros"
}

var fallbackTagTerms = []string{
	"princípios", "conceitos", "definições", "lei", "artigo", "direito",
	"administração", "público", "servidor", "concurso", "prova", "questão",
	"constituição", "código", "norma", "regulamento", "decreto", "portaria",
	"processo", "procedimento", "competência", "atribuição", "responsabilidade",
}

func fallbackTags(content string) []string {
	contentLower := strings.ToLower(content)

	var tags []string
	for _, term := range fallbackTagTerms {
		if strings.Contains(contentLower, term) {
			tags = append(tags, term)
			if len(tags) == 5 {
				break
			}
		}
	}
	return tags
}

func fallbackEditalAnalysis(content string) *models.EditalAnalysis {
	contentLower := strings.ToLower(content)

	commonSubjects := []string{
		"direito constitucional", "direito administrativo", "direito civil",
		"direito penal", "português", "matemática", "raciocínio lógico",
		"informática", "conhecimentos gerais", "atualidades",
	}

	subjects := []models.EditalSubject{}
	for _, subject := range commonSubjects {
		if strings.Contains(contentLower, subject) {
			subjects = append(subjects, models.EditalSubject{
				Name:   strings.ToUpper(subject[:1]) + subject[1:],
				Weight: 3,
				Topics: []string{},
			})
		}
	}

	if len(subjects) == 0 {
		subjects = []models.EditalSubject{
			{Name: "Português", Weight: 4, Topics: []string{}},
			{Name: "Conhecimentos Gerais", Weight: 3, Topics: []string{}},
		}
	}

	return &models.EditalAnalysis{
		ExamName:        "Concurso Público",
		Agency:          "Órgão Público",
		Role:            "Cargo Público",
		Subjects:        subjects,
		SuggestedHours:  "4",
		DifficultyLevel: "medium",
		Notes:           "Análise automática do edital",
	}
}

// ─── Response helpers ───

func extractText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// salvageJSONObject cuts the text down to the outermost {...} so stray
// preambles around the model's JSON do not break parsing.
func salvageJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
