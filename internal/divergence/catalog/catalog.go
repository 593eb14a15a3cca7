// Package catalog is the static registry of every integrity-check type.
// Adding a divergence type is a data addition here plus a check function,
// never a control-flow change.
package catalog

import "avalia-integrity/internal/models"

// Info carries the classification and fixability metadata of one type.
type Info struct {
	Severity       models.Severity `json:"severity"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Icon           string          `json:"icon"`
	Fixable        bool            `json:"fixable"`
	AutoFixable    bool            `json:"autoFixable"`
	FixActionLabel string          `json:"fixActionLabel,omitempty"`
}

var registry = map[models.DivergenceType]Info{
	// --- critical: structural breakage ---
	models.TypeAlunosDuplicados: {
		Severity:       models.SeverityCritical,
		Title:          "Alunos duplicados",
		Description:    "Mais de um aluno ativo compartilha o mesmo código",
		Icon:           "users",
		Fixable:        true,
		AutoFixable:    false,
		FixActionLabel: "Mesclar registros",
	},
	models.TypeResultadosOrfaos: {
		Severity:       models.SeverityCritical,
		Title:          "Resultados órfãos",
		Description:    "Resultados consolidados cujo aluno não existe mais",
		Icon:           "unlink",
		Fixable:        true,
		AutoFixable:    true,
		FixActionLabel: "Excluir órfãos",
	},
	models.TypeEscolasSemRegiao: {
		Severity:    models.SeverityCritical,
		Title:       "Escolas sem região",
		Description: "Escolas sem vínculo com uma região administrativa",
		Icon:        "map-pin",
	},
	models.TypeTurmasSemEscola: {
		Severity:    models.SeverityCritical,
		Title:       "Turmas sem escola",
		Description: "Turmas cujo vínculo com a escola não resolve",
		Icon:        "school",
	},

	// --- important: computed-value mismatches ---
	models.TypeMediasInconsistentes: {
		Severity:       models.SeverityImportant,
		Title:          "Médias inconsistentes",
		Description:    "Média armazenada difere da média recalculada",
		Icon:           "calculator",
		Fixable:        true,
		AutoFixable:    true,
		FixActionLabel: "Recalcular médias",
	},
	models.TypeAcertosInconsistentes: {
		Severity:       models.SeverityImportant,
		Title:          "Acertos inconsistentes",
		Description:    "Total de acertos difere das respostas registradas",
		Icon:           "check-square",
		Fixable:        true,
		AutoFixable:    true,
		FixActionLabel: "Recontar acertos",
	},
	models.TypeNotasForaIntervalo: {
		Severity:       models.SeverityImportant,
		Title:          "Notas fora do intervalo",
		Description:    "Notas fora do intervalo válido de 0 a 10",
		Icon:           "alert-triangle",
		Fixable:        true,
		AutoFixable:    true,
		FixActionLabel: "Normalizar notas",
	},
	models.TypeNiveisInconsistentes: {
		Severity:       models.SeverityImportant,
		Title:          "Níveis inconsistentes",
		Description:    "Nível de aprendizagem difere da faixa da média recalculada",
		Icon:           "layers",
		Fixable:        true,
		AutoFixable:    true,
		FixActionLabel: "Reclassificar níveis",
	},
	models.TypeGabaritosAusentes: {
		Severity:    models.SeverityImportant,
		Title:       "Gabaritos ausentes",
		Description: "Resultados importados sem gabarito cadastrado para a série/ano",
		Icon:        "file-question",
	},
	models.TypeSeriesSemConfiguracao: {
		Severity:    models.SeverityImportant,
		Title:       "Séries sem configuração",
		Description: "Séries com turmas ativas e nenhuma configuração de avaliação",
		Icon:        "settings",
	},

	// --- warning: plausible-but-suspicious ---
	models.TypeAnoLetivoInvalido: {
		Severity:       models.SeverityWarning,
		Title:          "Ano letivo inválido",
		Description:    "Resultados com ano letivo fora do formato de quatro dígitos",
		Icon:           "calendar-x",
		Fixable:        true,
		AutoFixable:    true,
		FixActionLabel: "Normalizar ano letivo",
	},
	models.TypeAusentesComRespostas: {
		Severity:    models.SeverityWarning,
		Title:       "Ausentes com respostas",
		Description: "Alunos marcados como ausentes que possuem respostas registradas",
		Icon:        "user-x",
	},
	models.TypeCodigosConflitantes: {
		Severity:       models.SeverityWarning,
		Title:          "Códigos conflitantes",
		Description:    "O mesmo código de aluno resolve para nomes diferentes",
		Icon:           "shuffle",
		Fixable:        true,
		AutoFixable:    false,
		FixActionLabel: "Revincular código",
	},
	models.TypeEscolasInativasComDados: {
		Severity:    models.SeverityWarning,
		Title:       "Escolas inativas com dados",
		Description: "Escolas desativadas com resultados no ano corrente",
		Icon:        "building",
	},
	models.TypeSerieDivergenteTurma: {
		Severity:    models.SeverityWarning,
		Title:       "Série divergente da turma",
		Description: "Alunos cuja série registrada difere da série da turma",
		Icon:        "git-branch",
	},
	models.TypeImportacoesTravadas: {
		Severity:    models.SeverityWarning,
		Title:       "Importações travadas",
		Description: "Importações paradas em processamento ou erro além do limite",
		Icon:        "loader",
	},

	// --- informational: benign emptiness ---
	models.TypeAlunosSemResultados: {
		Severity:    models.SeverityInformational,
		Title:       "Alunos sem resultados",
		Description: "Alunos ativos sem nenhum resultado consolidado",
		Icon:        "user",
	},
	models.TypeEscolasSemAlunos: {
		Severity:    models.SeverityInformational,
		Title:       "Escolas sem alunos",
		Description: "Escolas ativas sem alunos matriculados",
		Icon:        "building-2",
	},
	models.TypeRegioesSemEscolas: {
		Severity:    models.SeverityInformational,
		Title:       "Regiões sem escolas",
		Description: "Regiões administrativas sem escolas cadastradas",
		Icon:        "map",
	},
	models.TypeQuestoesNaoUtilizadas: {
		Severity:    models.SeverityInformational,
		Title:       "Questões não utilizadas",
		Description: "Questões do banco sem nenhuma resposta associada",
		Icon:        "help-circle",
	},
	models.TypeTurmasVazias: {
		Severity:       models.SeverityInformational,
		Title:          "Turmas vazias",
		Description:    "Turmas ativas sem alunos",
		Icon:           "inbox",
		Fixable:        true,
		AutoFixable:    true,
		FixActionLabel: "Desativar turmas",
	},
}

// Get returns the metadata for a divergence type.
func Get(t models.DivergenceType) (Info, bool) {
	info, ok := registry[t]
	return info, ok
}

// All returns the full registry keyed by type.
func All() map[models.DivergenceType]Info {
	out := make(map[models.DivergenceType]Info, len(registry))
	for k, v := range registry {
		out[k] = v
	}
	return out
}
